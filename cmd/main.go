package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/AOShei/go-image-miner/pkg/api"
	"github.com/AOShei/go-image-miner/pkg/associate"
	"github.com/AOShei/go-image-miner/pkg/config"
	"github.com/AOShei/go-image-miner/pkg/loader"
	"github.com/AOShei/go-image-miner/pkg/locate"
	"github.com/AOShei/go-image-miner/pkg/logger"
	"github.com/AOShei/go-image-miner/pkg/miner"
	"github.com/AOShei/go-image-miner/pkg/records"
)

const usage = "Usage: image-miner <records.xlsx> <document.pdf> <output.json>"

func main() {
	cfg, err := config.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one mining pass and returns the process exit code.
func run(ctx context.Context, cfg config.Config, args []string) int {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	recordsPath, pdfPath, outPath := args[0], args[1], args[2]

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	client, err := api.NewClient(&api.Config{
		LoginURL:  cfg.API.LoginURL,
		UploadURL: cfg.API.UploadURL,
		Timeout:   cfg.API.Timeout(),
		UserAgent: cfg.API.UserAgent,
		Logger:    log,
	})
	if err != nil {
		log.Error("failed to create api client", zap.Error(err))
		return 1
	}

	token, err := client.Login(ctx, config.CredentialsFromEnv())
	if err != nil {
		log.Warn("authentication failed, writing empty output", zap.Error(err))
		if err := miner.WriteLookup(outPath, nil); err != nil {
			log.Error("failed to write output", zap.Error(err))
			return 1
		}
		return 0
	}

	log.Info("reading records", zap.String("path", recordsPath))
	recs, err := records.LoadXLSX(recordsPath)
	if err != nil {
		log.Error("failed to load records", zap.Error(err))
		return 1
	}

	idx, err := loader.Open(pdfPath, log)
	if err != nil {
		log.Error("failed to open document", zap.Error(err))
		return 1
	}

	driver := miner.NewDriver(
		locate.New(idx, locate.Config{
			Threshold:   cfg.Mining.Threshold,
			QueryPrefix: cfg.Mining.QueryPrefix,
		}, log),
		associate.New(idx, associate.Config{
			SamePageCap: cfg.Mining.SamePageCap,
			NextPageCap: cfg.Mining.NextPageCap,
		}, log),
		idx,
		client,
		miner.Fields{Flag: cfg.Mining.FlagField, Question: cfg.Mining.QuestionField},
		log,
	)

	log.Info("starting image mining",
		zap.Int("records", len(recs)),
		zap.Int("pages", idx.NumPages()),
		zap.String("title", idx.Metadata().Title))
	lookup, stats := driver.Run(ctx, recs, token)

	if err := multierr.Append(miner.WriteLookup(outPath, lookup), idx.Close()); err != nil {
		log.Error("failed to finish run", zap.Error(err))
		return 1
	}

	log.Info("mining complete",
		zap.Int("mined", stats.Mined),
		zap.Int("flagged", stats.Flagged),
		zap.Int("skipped", stats.Skipped()),
		zap.String("output", outPath))
	return 0
}
