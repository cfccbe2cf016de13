// Package audit records who changed what through the API.
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tendant/simple-company/pkg/authz"
)

// Event is one audited request.
type Event struct {
	ID        uuid.UUID
	Actor     authz.Actor
	Method    string
	URI       string
	Status    int
	Duration  time.Duration
	Timestamp time.Time
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes events to a slog logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "audit")}
}

func (s *LogSink) Record(ctx context.Context, e Event) {
	s.logger.InfoContext(ctx, "Audit",
		"id", e.ID,
		"actor", e.Actor,
		"method", e.Method,
		"uri", e.URI,
		"status", e.Status,
		"duration", e.Duration,
	)
}

// Middleware audits state-changing requests of authenticated actors.
type Middleware struct {
	sink Sink
	now  func() time.Time
}

func NewMiddleware(sink Sink) *Middleware {
	return &Middleware{sink: sink, now: time.Now}
}

// Handler must run after authz.Authenticate. Reads are not audited.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authz.ActorFrom(r.Context())
		if !ok || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		start := m.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.sink.Record(r.Context(), Event{
			ID:        uuid.New(),
			Actor:     actor,
			Method:    r.Method,
			URI:       r.RequestURI,
			Status:    status,
			Duration:  m.now().Sub(start),
			Timestamp: start,
		})
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
