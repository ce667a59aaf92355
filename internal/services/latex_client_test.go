package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/cvforge-backend/internal/apperr"
)

func newTestLatexClient(t *testing.T, srv *httptest.Server, maxRetries int) *latexClient {
	t.Helper()
	return &latexClient{
		log:        testLogger(t),
		buildURL:   srv.URL,
		compiler:   "pdflatex",
		httpClient: srv.Client(),
		maxRetries: maxRetries,
		retryDelay: time.Millisecond,
	}
}

func TestLatexCompile_RetriesServerErrors(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.5 fake"))
	}))
	defer srv.Close()

	c := newTestLatexClient(t, srv, 2)
	pdf, err := c.Compile(context.Background(), `\documentclass{article}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(pdf) != "%PDF-1.5 fake" {
		t.Fatalf("unexpected pdf body: %q", pdf)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestLatexCompile_RejectionIsNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"log_files":{"main.log":"! Undefined control sequence."}}`))
	}))
	defer srv.Close()

	c := newTestLatexClient(t, srv, 2)
	_, err := c.Compile(context.Background(), `\badmacro`)
	if !apperr.HasCode(err, apperr.CodeCompilationRejected) {
		t.Fatalf("expected compilation_rejected, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestLatexCompile_ExhaustedRetries(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestLatexClient(t, srv, 1)
	_, err := c.Compile(context.Background(), `\documentclass{article}`)
	if !apperr.HasCode(err, apperr.CodeServiceUnavailable) {
		t.Fatalf("expected service_unavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestBuildErrorDetail(t *testing.T) {
	detail := buildErrorDetail([]byte(`{"log_files":{"main.log":"! Undefined control sequence."}}`))
	if detail != "! Undefined control sequence." {
		t.Fatalf("detail=%q", detail)
	}

	detail = buildErrorDetail([]byte("plain failure text"))
	if detail != "plain failure text" {
		t.Fatalf("detail=%q", detail)
	}
}
