package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AOShei/go-image-miner/pkg/model"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		LoginURL:  srv.URL + "/auth/login",
		UploadURL: srv.URL + "/upload",
		Timeout:   5 * time.Second,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["email"] != "a@b.c" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"bad credentials"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"accessToken":"tok-123"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	token, err := c.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q", token)
	}

	_, err = c.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "wrong"})
	var authErr *model.AuthError
	if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		t.Errorf("rejected login error = %v, want AuthError with status 401", err)
	}
	if !errors.Is(err, model.ErrAuth) {
		t.Errorf("rejected login error %v is not ErrAuth", err)
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		creds  model.Credentials
	}{
		{"missing credentials", http.StatusOK, `{"token":"x"}`, model.Credentials{Email: "a@b.c"}},
		{"no token", http.StatusOK, `{"data":{"user":"a"}}`, model.Credentials{Email: "a", Password: "b"}},
		{"empty token", http.StatusOK, `{"token":""}`, model.Credentials{Email: "a", Password: "b"}},
		{"not json", http.StatusOK, `<html>`, model.Credentials{Email: "a", Password: "b"}},
		{"server error", http.StatusInternalServerError, `{}`, model.Credentials{Email: "a", Password: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Login(context.Background(), tt.creds)
			if !errors.Is(err, model.ErrAuth) {
				t.Errorf("Login error = %v, want ErrAuth", err)
			}
		})
	}
}

func TestLoginNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.Login(context.Background(), model.Credentials{Email: "a", Password: "b"})
	var authErr *model.AuthError
	if !errors.As(err, &authErr) || authErr.Status != 0 {
		t.Errorf("Login error = %v, want AuthError without status", err)
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "PNGDATA" {
			t.Errorf("uploaded %q", data)
		}
		if header.Filename != "q_4.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part content type = %q", ct)
		}
		_, _ = io.WriteString(w, `{"data":{"files":[{"url":"https://cdn.example.com/q_4.png"}]}}`)
	}))
	defer srv.Close()

	url, err := newTestClient(t, srv).Upload(context.Background(), []byte("PNGDATA"), "q_4", "tok")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/q_4.png" {
		t.Errorf("url = %q", url)
	}
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `{"url":"https://x"}`},
		{"no url", http.StatusOK, `{"data":{"id":7}}`},
		{"not json", http.StatusOK, `ok`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Upload(context.Background(), []byte("x"), "q_1.jpeg", "tok")
			var upErr *model.UploadError
			if !errors.As(err, &upErr) {
				t.Fatalf("Upload error = %v, want UploadError", err)
			}
			if upErr.Filename != "q_1.jpeg" || upErr.Status != tt.status {
				t.Errorf("UploadError = %+v", upErr)
			}
			if !errors.Is(err, model.ErrUpload) {
				t.Errorf("error %v is not ErrUpload", err)
			}
		})
	}
}

func TestUploadHonoursTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, err := NewClient(&Config{UploadURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Upload(context.Background(), []byte("x"), "q_0.png", "tok"); !errors.Is(err, model.ErrUpload) {
		t.Errorf("Upload error = %v, want ErrUpload after timeout", err)
	}
}

func TestLoginCookiesReusedForUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			_, _ = io.WriteString(w, `{"token":"t"}`)
		case "/upload":
			if c, err := r.Cookie("session"); err != nil || c.Value != "s1" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/a.png"}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	token, err := c.Login(context.Background(), model.Credentials{Email: "a", Password: "b"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.Upload(context.Background(), []byte("x"), "a.png", token); err != nil {
		t.Errorf("Upload after login: %v", err)
	}
}

func TestURLFrom(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"root url", `{"url":"https://a","data":{"url":"https://b"}}`, "https://a", true},
		{"data url", `{"data":{"url":"https://b","link":"https://c"}}`, "https://b", true},
		{"data link", `{"data":{"link":"https://c","files":[{"url":"https://d"}]}}`, "https://c", true},
		{"files", `{"data":{"files":[{"url":"https://d"},{"url":"https://e"}]},"secure_url":"https://f"}`, "https://d", true},
		{"empty files falls through", `{"data":{"files":[]},"secure_url":"https://f"}`, "https://f", true},
		{"secure url", `{"secure_url":"https://f"}`, "https://f", true},
		{"data string", `{"data":"https://g"}`, "https://g", true},
		{"data string not url", `{"data":"ok"}`, "", false},
		{"non-string url skipped", `{"url":null,"secure_url":"https://f"}`, "https://f", true},
		{"nothing", `{"status":"ok"}`, "", false},
		{"array root", `[{"url":"https://a"}]`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc any
			if err := json.Unmarshal([]byte(tt.body), &doc); err != nil {
				t.Fatal(err)
			}
			got, ok := URLFrom(doc)
			if ok != tt.ok || got != tt.want {
				t.Errorf("URLFrom(%s) = %q, %v; want %q, %v", tt.body, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTokenFrom(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"data":{"accessToken":"a","token":"b"},"token":"c"}`, "a"},
		{`{"data":{"token":"b"},"accessToken":"c"}`, "b"},
		{`{"accessToken":"c","token":"d"}`, "c"},
		{`{"token":"d"}`, "d"},
		{`{"data":"x"}`, ""},
	}
	for _, tt := range tests {
		var doc any
		if err := json.Unmarshal([]byte(tt.body), &doc); err != nil {
			t.Fatal(err)
		}
		if got, _ := TokenFrom(doc); got != tt.want {
			t.Errorf("TokenFrom(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"q_1.png":  "image/png",
		"q_1.jpeg": "image/jpeg",
		"q_1.JPG":  "image/jpeg",
		"q_1.jpx":  "image/jpx",
		"q_1.bin":  "image/png",
	} {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("é", 250))
	got := snippet(body)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 200) + "..."; got != want {
		t.Errorf("snippet length = %d runes, want 203", utf8.RuneCountInString(got))
	}
	if got := snippet([]byte("  short body \n")); got != "short body" {
		t.Errorf("snippet = %q", got)
	}
}
