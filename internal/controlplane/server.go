package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/command"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/metrics"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/transcript"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/web"
)

// Server serves the map page and the voice command API. The zero value is
// usable: it classifies with command.Classifier, logs nowhere and exports
// no metrics.
type Server struct {
	Classifier Classifier
	Logger     *zap.Logger

	// Metrics is optional. MetricsPath is only registered when both are set.
	Metrics     *metrics.Metrics
	MetricsPath string

	// ExcerptWords bounds how much of each transcript reaches the logs.
	ExcerptWords int

	page      []byte
	excerpter *transcript.Excerpter
}

const (
	maxJSONBodyBytes = 1 << 20 // 1 MiB
	requestIDHeader  = "X-Request-ID"
	maxRequestIDLen  = 128
)

var (
	errInvalidJSON  = errors.New("invalid JSON body")
	errTrailingData = errors.New("body must contain a single JSON object")
)

// Routes builds the handler tree. It fills in s's zero-value fields
// (Classifier, Logger) with defaults, so call it once before serving.
func (s *Server) Routes() http.Handler {
	if s.Classifier == nil {
		s.Classifier = command.Classifier{}
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	s.page = web.IndexHTML()
	s.excerpter = transcript.NewExcerpter(transcript.Options{MaxWords: s.ExcerptWords})

	mux := http.NewServeMux()

	s.registerPageRoutes(mux)
	s.registerSystemRoutes(mux)
	s.registerAPIRoutes(mux)

	return s.withMiddleware(mux)
}

//
// Route registration
//

func (s *Server) registerPageRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
}

func (s *Server) registerSystemRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	if s.Metrics != nil && s.MetricsPath != "" {
		mux.Handle(s.MetricsPath, s.Metrics.Handler())
	}
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/voice-command", s.handleVoiceCommand)
}

//
// Middleware
//

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return s.requestIDMiddleware(
		s.loggingMiddleware(
			s.recoverMiddleware(next),
		),
	)
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the request ID assigned by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		route := s.routeLabel(r.URL.Path)
		s.Metrics.ObserveRequest(route, r.Method, sw.status, elapsed)

		s.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", RequestIDFromContext(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.Logger.Error("panic",
					zap.Any("error", err),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestIDFromContext(r.Context())),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// routeLabel keeps metric cardinality bounded to the registered routes.
func (s *Server) routeLabel(path string) string {
	switch {
	case path == "/", path == "/voice-command", path == "/health":
		return path
	case s.MetricsPath != "" && path == s.MetricsPath:
		return path
	case strings.HasPrefix(path, "/static/"):
		return "/static/"
	default:
		return "other"
	}
}

//
// Handlers
//

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(s.page); err != nil {
		s.Logger.Warn("write page failed", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	if !requireJSONPost(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	req, err := decodeVoiceCommandRequest(r.Body)
	if err != nil {
		status, msg := decodeErrorStatus(err)
		s.Logger.Debug("rejecting voice command",
			zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())),
		)
		http.Error(w, msg, status)
		return
	}

	text := req.text()
	action := s.Classifier.Classify(text)
	s.Metrics.ObserveCommand(action.String())

	ex := s.excerpter.Excerpt(text)
	s.Logger.Info("voice command classified",
		zap.String("action", action.String()),
		zap.Bool("recognized", action.Recognized()),
		zap.String("text", ex.Text),
		zap.Int("words", ex.Words),
		zap.Bool("text_truncated", ex.Truncated),
		zap.String("request_id", RequestIDFromContext(r.Context())),
	)

	s.writeJSON(w, http.StatusOK, voiceCommandResponse{Action: action.String()})
}

func requireJSONPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	return true
}

// decodeVoiceCommandRequest accepts exactly one JSON value. Unknown fields
// are ignored; a null body or a missing text field decodes to empty text.
func decodeVoiceCommandRequest(body io.Reader) (voiceCommandRequest, error) {
	var req voiceCommandRequest

	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return voiceCommandRequest{}, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}

	switch err := dec.Decode(&struct{}{}); {
	case err == io.EOF:
	case err == nil:
		return voiceCommandRequest{}, errTrailingData
	default:
		return voiceCommandRequest{}, fmt.Errorf("%w: %w", errTrailingData, err)
	}

	return req, nil
}

func decodeErrorStatus(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, errTrailingData):
		return http.StatusBadRequest, errTrailingData.Error()
	default:
		return http.StatusBadRequest, errInvalidJSON.Error()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.Logger.Warn("write response failed", zap.Error(err))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

type voiceCommandRequest struct {
	Text *string `json:"text"`
}

func (r voiceCommandRequest) text() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

type voiceCommandResponse struct {
	Action string `json:"action"`
}
