package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
)

// LatexClient compiles a LaTeX source into a PDF via a remote build API.
// A rejected source (4xx) fails immediately; an infrastructure failure
// (5xx, transport error) is retried a fixed number of times with linearly
// increasing backoff before surfacing as service-unavailable.
type LatexClient interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

type latexClient struct {
	log        *logger.Logger
	buildURL   string
	compiler   string
	httpClient *http.Client

	maxRetries int
	retryDelay time.Duration
}

func NewLatexClient(log *logger.Logger) LatexClient {
	buildURL := os.Getenv("LATEX_API_URL")
	if buildURL == "" {
		buildURL = "https://latex.ytotech.com/builds/sync"
	}

	timeoutSec := 60
	if v := os.Getenv("LATEX_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("LATEX_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &latexClient{
		log:        log.With("service", "LatexClient"),
		buildURL:   buildURL,
		compiler:   "pdflatex",
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
		retryDelay: 1 * time.Second,
	}
}

type latexResource struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type latexBuildRequest struct {
	Compiler  string          `json:"compiler"`
	Resources []latexResource `json:"resources"`
}

func (c *latexClient) Compile(ctx context.Context, source string) ([]byte, error) {
	reqBody := latexBuildRequest{
		Compiler:  c.compiler,
		Resources: []latexResource{{Path: "main.tex", Content: source}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff: wait longer on each retry.
			select {
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		pdf, retryable, err := c.compileOnce(ctx, payload)
		if err == nil {
			return pdf, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		c.log.Warn("LaTeX build retrying", "attempt", attempt+1, "max_retries", c.maxRetries, "error", err.Error())
	}

	return nil, apperr.ServiceUnavailable("latex build service unreachable after %d attempts: %v", c.maxRetries+1, lastErr)
}

// compileOnce returns retryable=true only for server-class failures.
func (c *latexClient) compileOnce(ctx context.Context, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("latex build server error: %d", resp.StatusCode)
	default:
		// Client-class failure: the source itself was rejected. Retrying
		// cannot help a syntactically invalid document.
		c.log.Error("LaTeX build rejected", "status", resp.StatusCode, "detail", buildErrorDetail(raw))
		return nil, false, apperr.CompilationRejected("latex compilation failed: %d", resp.StatusCode)
	}
}

// buildErrorDetail pulls the tail of the compiler log out of an error
// response body when present, for diagnostics.
func buildErrorDetail(raw []byte) string {
	var parsed struct {
		LogFiles map[string]string `json:"log_files"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		for _, logContent := range parsed.LogFiles {
			if len(logContent) > 2000 {
				logContent = logContent[len(logContent)-2000:]
			}
			return logContent
		}
	}
	detail := string(raw)
	if len(detail) > 2000 {
		detail = detail[:2000]
	}
	return detail
}
