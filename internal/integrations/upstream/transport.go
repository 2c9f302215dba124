package upstream

import (
	"log/slog"
	"net/http"
	"time"
)

// loggingTransport records every outbound provider call with its status and
// latency. Request and response bodies are never logged.
type loggingTransport struct {
	provider string
	next     http.RoundTripper
	logger   *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := t.next.RoundTrip(req)
	took := time.Since(start)

	attrs := []any{
		"provider", t.provider,
		"method", req.Method,
		"url", req.URL.Redacted(),
		"duration_ms", took.Milliseconds(),
	}
	if err != nil {
		t.logger.ErrorContext(req.Context(), "upstream request failed", append(attrs, "err", err)...)
		return res, err
	}
	attrs = append(attrs, "status", res.StatusCode)
	if res.StatusCode >= 400 {
		t.logger.WarnContext(req.Context(), "upstream request returned error status", attrs...)
	} else {
		t.logger.DebugContext(req.Context(), "upstream request", attrs...)
	}
	return res, nil
}

// NewHTTPClient returns the client shared by a provider SDK. No timeout is
// set; the SDK defaults apply.
func NewHTTPClient(provider string, logger *slog.Logger) *http.Client {
	return NewHTTPClientWithTransport(provider, logger, http.DefaultTransport)
}

func NewHTTPClientWithTransport(provider string, logger *slog.Logger, next http.RoundTripper) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &http.Client{Transport: &loggingTransport{provider: provider, next: next, logger: logger}}
}
