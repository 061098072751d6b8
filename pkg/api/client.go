// Package api talks to the quiz backend: it logs in for a bearer token and
// uploads mined images.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/AOShei/go-image-miner/pkg/model"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "go-image-miner/1.0"

	maxResponseSize = 1 << 20
)

// Config holds the backend endpoints and request settings.
type Config struct {
	LoginURL  string
	UploadURL string
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// Client is safe to reuse across calls; cookies set at login are sent with
// every later request.
type Client struct {
	http      *http.Client
	loginURL  string
	uploadURL string
	userAgent string
	logger    *zap.Logger
}

func NewClient(cfg *Config) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      &http.Client{Timeout: timeout, Jar: jar},
		loginURL:  cfg.LoginURL,
		uploadURL: cfg.UploadURL,
		userAgent: ua,
		logger:    logger,
	}, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	if creds.Email == "" || creds.Password == "" {
		return "", &model.AuthError{Reason: "missing email or password"}
	}

	body, err := json.Marshal(map[string]string{"email": creds.Email, "password": creds.Password})
	if err != nil {
		return "", &model.AuthError{Reason: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", &model.AuthError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, payload, err := c.do(req)
	if err != nil {
		return "", &model.AuthError{Reason: "login request failed", Err: err}
	}
	if !isSuccess(status) {
		return "", &model.AuthError{Status: status, Reason: "login rejected: " + snippet(payload)}
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", &model.AuthError{Status: status, Reason: "unparseable login response", Err: err}
	}
	token, ok := TokenFrom(doc)
	if !ok {
		return "", &model.AuthError{Status: status, Reason: "token not found in login response"}
	}
	c.logger.Info("logged in")
	return token, nil
}

// Upload sends data as the multipart field "file" and returns the URL the
// backend reports for it.
func (c *Client) Upload(ctx context.Context, data []byte, filename, token string) (string, error) {
	if path.Ext(filename) == "" {
		filename += ".png"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", ContentType(filename))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", &model.UploadError{Filename: filename, Reason: "build form", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &model.UploadError{Filename: filename, Reason: "build form", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &model.UploadError{Filename: filename, Reason: "build form", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", &model.UploadError{Filename: filename, Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	status, payload, err := c.do(req)
	if err != nil {
		return "", &model.UploadError{Filename: filename, Reason: "upload request failed", Err: err}
	}
	c.logger.Debug("upload finished",
		zap.String("filename", filename),
		zap.Int("status", status),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))

	if !isSuccess(status) {
		return "", &model.UploadError{Filename: filename, Status: status, Reason: "upload rejected: " + snippet(payload)}
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", &model.UploadError{Filename: filename, Status: status, Reason: "unparseable upload response", Err: err}
	}
	url, ok := URLFrom(doc)
	if !ok {
		return "", &model.UploadError{Filename: filename, Status: status, Reason: "url not found in response: " + snippet(payload)}
	}
	return url, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// snippet shortens a response body for error messages.
func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpx":  "image/jpx",
	".jp2":  "image/jp2",
	".gif":  "image/gif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// ContentType guesses the MIME type of an image filename.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "image/png"
}
