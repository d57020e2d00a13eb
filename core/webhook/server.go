// Package webhook is the HTTP boundary of the bot: the Cloud API verification
// handshake, the event intake endpoint, and a liveness probe. The intake
// handler always acks parsed events so the provider never redelivers.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cisnemotors/leadbot/core/logger"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

// Engine is the conversation handler events are dispatched to.
type Engine interface {
	Handle(ctx context.Context, identity, text, contentType string) error
}

// Options configure NewServer.
type Options struct {
	Engine      Engine
	VerifyToken string
}

// Server routes webhook traffic to the engine.
type Server struct {
	engine      Engine
	verifyToken string
	router      chi.Router
}

// NewServer builds the router with logging and panic recovery middleware.
func NewServer(opts Options) *Server {
	s := &Server{
		engine:      opts.Engine,
		verifyToken: opts.VerifyToken,
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/whatsapp", s.handleVerify)
	r.Post("/whatsapp", s.handleEvents)
	s.router = r
	return s
}

// Handler exposes the http.Handler for the server runner.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleVerify implements the subscription handshake: echo the challenge on a
// token match, 403 on mismatch, 400 when only one parameter arrived, and a
// plain info text for a bare GET.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")
	hasToken := r.URL.Query().Has("hub.verify_token")
	hasChallenge := r.URL.Query().Has("hub.challenge")

	switch {
	case hasToken && hasChallenge:
		if token == s.verifyToken {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(challenge))
			return
		}
		logger.Warn(r.Context(), "http", "verify.rejected",
			slog.String("status", "fail"),
			slog.String("mode", "verify"),
		)
		http.Error(w, "Invalid verify token", http.StatusForbidden)

	case !hasToken && !hasChallenge:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Webhook endpoint: usar '?hub.verify_token=...&hub.challenge=...' para verificación de webhook."))

	default:
		http.Error(w, "Missing parameters", http.StatusBadRequest)
	}
}

// handleEvents parses one delivery and dispatches every message it carries.
// Once the body parsed as JSON the response is 200 no matter what the engine
// did: a non-2xx here would make the provider redeliver and duplicate the
// conversation input.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var event whatsapp.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		logger.Warn(r.Context(), "http", "event.badjson",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		http.Error(w, "no event received - not json", http.StatusBadRequest)
		return
	}

	found := false
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				found = true
				s.dispatch(r.Context(), msg)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	if found {
		_, _ = w.Write([]byte("EVENT_RECEIVED"))
		return
	}
	_, _ = w.Write([]byte("no event received"))
}

// dispatch hands one message to the engine. Panics and errors stop here;
// the delivery is already committed to a 200 ack.
func (s *Server) dispatch(ctx context.Context, msg whatsapp.InboundMessage) {
	rid := msg.ID
	if rid == "" {
		rid = uuid.NewString()
	}
	ctx = logger.WithRID(ctx, rid)
	ctx = logger.WithEventMeta(ctx, msg.ID, msg.From)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "http", "event.panic",
				slog.String("status", "fail"),
				slog.Any("err", rec),
			)
		}
	}()

	text, ok := whatsapp.ExtractText(msg)
	if !ok {
		logger.Debug(ctx, "http", "event.notext",
			slog.String("status", "skip"),
			slog.String("content_type", msg.Type),
		)
	}
	if err := s.engine.Handle(ctx, msg.From, text, msg.Type); err != nil {
		logger.Error(ctx, "http", "event.handle.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
