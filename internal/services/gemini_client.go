package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
)

// CompletionClient is the generative-model gateway. Every component that
// needs model output takes it as an interface so tests can substitute a
// deterministic fake.
type CompletionClient interface {
	// GenerateText returns the raw completion for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateJSON parses the completion into out, stripping a ```json
	// fence when the model wraps its payload in one. A completion that
	// does not parse is a malformed-completion error.
	GenerateJSON(ctx context.Context, prompt string, out interface{}) error
	// GenerateDocumentPair extracts the CV and cover-letter sources from
	// one completion via explicit start/end markers. A missing marker is
	// a malformed-completion error.
	GenerateDocumentPair(ctx context.Context, prompt string) (cv string, cover string, err error)
}

type geminiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewGeminiClient(log *logger.Logger) (CompletionClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}

	timeoutSec := 120
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &geminiClient{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

// +/- 20% around base, so concurrent retries don't land together.
func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body interface{}) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body interface{}, out interface{}) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *geminiClient) generate(ctx context.Context, prompt string) (string, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	var resp geminiResponse
	if err := c.do(ctx, path, req, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		break
	}
	if text.Len() == 0 {
		return "", apperr.MalformedCompletion("gemini returned no candidate text")
	}
	return text.String(), nil
}

func (c *geminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}

func (c *geminiClient) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return err
	}
	return parseCompletionJSON(text, out)
}

func (c *geminiClient) GenerateDocumentPair(ctx context.Context, prompt string) (string, string, error) {
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", "", err
	}
	return extractDocumentPair(text)
}

// ---- Completion parsing ----

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseCompletionJSON unmarshals a model completion that may wrap its JSON
// payload in a markdown fence.
func parseCompletionJSON(text string, out interface{}) error {
	payload := strings.TrimSpace(text)
	if m := jsonFenceRe.FindStringSubmatch(payload); m != nil {
		payload = strings.TrimSpace(m[1])
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return apperr.MalformedCompletion("completion is not valid JSON: %v", err)
	}
	return nil
}

// Document-pair markers the generation prompt instructs the model to emit.
const (
	cvStartMarker    = "===CV_START==="
	cvEndMarker      = "===CV_END==="
	coverStartMarker = "===COVER_START==="
	coverEndMarker   = "===COVER_END==="
)

var (
	latexFenceOpenRe  = regexp.MustCompile("(?i)^```(?:latex|tex)?\\s*")
	latexFenceCloseRe = regexp.MustCompile("(?i)\\s*```$")
)

func extractMarkedSection(text, start, end string) (string, bool) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func cleanLatexSource(latex string) string {
	cleaned := strings.TrimSpace(latex)
	cleaned = latexFenceOpenRe.ReplaceAllString(cleaned, "")
	cleaned = latexFenceCloseRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func extractDocumentPair(text string) (string, string, error) {
	cv, ok := extractMarkedSection(text, cvStartMarker, cvEndMarker)
	if !ok {
		return "", "", apperr.MalformedCompletion("completion is missing CV markers")
	}
	cover, ok := extractMarkedSection(text, coverStartMarker, coverEndMarker)
	if !ok {
		return "", "", apperr.MalformedCompletion("completion is missing cover letter markers")
	}
	return cleanLatexSource(cv), cleanLatexSource(cover), nil
}
