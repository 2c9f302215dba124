package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"llm-gateway/internal/domain"
	"llm-gateway/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
)

type Gateway interface {
	SendMessage(ctx context.Context, in usecase.MessageInput) (domain.Response, error)
	NameThread(ctx context.Context, in usecase.NameThreadInput) (domain.Response, error)
	Models() []string
}

type messageRequest struct {
	Messages     []domain.ChatMessage `json:"messages"`
	Model        string               `json:"model"`
	SystemPrompt string               `json:"system_prompt"`
}

type nameThreadRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type Handler struct {
	gateway Gateway
	origin  string
	logger  *slog.Logger
}

// NewHandler wires the HTTP surface. allowedOrigin is the only origin CORS
// accepts; an empty value accepts none.
func NewHandler(gw Gateway, allowedOrigin string, logger *slog.Logger) (*Handler, error) {
	if gw == nil {
		return nil, errors.New("handler: gateway must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{gateway: gw, origin: strings.TrimSpace(allowedOrigin), logger: logger}, nil
}

// Routes returns the router wrapped in CORS and request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", h.postMessage)
	mux.HandleFunc("POST /name-thread", h.postNameThread)
	mux.HandleFunc("GET /models", h.getModels)
	mux.HandleFunc("GET /{$}", h.getRoot)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{h.origin},
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodConnect, http.MethodTrace,
		},
		AllowedHeaders: []string{"*"},
	})
	return h.withCorrelation(c.Handler(mux))
}

// CompressedRoutes is Routes with gzip for clients that accept it.
func (h *Handler) CompressedRoutes() http.Handler {
	return gziphandler.GzipHandler(h.Routes())
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.gateway.SendMessage(r.Context(), usecase.MessageInput{
		Messages:     req.Messages,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) postNameThread(w http.ResponseWriter, r *http.Request) {
	var req nameThreadRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.gateway.NameThread(r.Context(), usecase.NameThreadInput{Messages: req.Messages})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.gateway.Models())
}

func (h *Handler) getRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Ping": "It's working :)"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_json", Err: err})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, reason := mapError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		"correlation_id", w.Header().Get(correlationHeader),
		"code", code,
		"reason", reason,
		"err", err,
	)
	writeJSON(w, status, errorResponse{Error: code, Reason: reason})
}

func mapError(err error) (status int, code, reason string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal), "unexpected_error"
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput, usecase.ErrorUnsupportedModel:
		status = http.StatusBadRequest
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	return status, string(ucErr.Code), ucErr.Reason
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (h *Handler) withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := strings.TrimSpace(r.Header.Get(correlationHeader))
		if correlationID == "" {
			correlationID = newCorrelationID()
		}
		w.Header().Set(correlationHeader, correlationID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		h.logger.InfoContext(r.Context(), "request served",
			"correlation_id", correlationID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
