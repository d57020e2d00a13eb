// Package engine drives the lead-qualification conversation: intent
// interception, the step state machine, validation with tiered retry copy,
// and the outbound sends each transition produces.
package engine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"log/slog"

	"github.com/cisnemotors/leadbot/bot/store"
	"github.com/cisnemotors/leadbot/core/config"
	"github.com/cisnemotors/leadbot/core/logger"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

// Store is the narrow persistence contract the engine drives.
type Store interface {
	GetOrCreate(ctx context.Context, phone string) (*store.Conversation, error)
	Transition(ctx context.Context, id int64, next store.Step, updates store.FieldUpdates) error
	MarkStatus(ctx context.Context, id int64, status store.Status) error
	Restart(ctx context.Context, id int64) error
	RecordFailedValidation(ctx context.Context, id int64, step store.Step, input string, window time.Duration) (int, error)
	ClearFailedValidations(ctx context.Context, id int64, step store.Step) error
	LogMessage(ctx context.Context, id int64, direction, contentType, body, intent string) error
}

// Sender delivers one outbound message. Failures are logged, never retried
// here; the state transition that produced the message already committed.
type Sender interface {
	Send(ctx context.Context, msg whatsapp.Message) error
}

// Notifier is the fire-and-forget side channel to the sales operator.
// Implementations swallow their own failures.
type Notifier interface {
	NotifyLeadComplete(ctx context.Context, lead Lead)
	NotifyHandoff(ctx context.Context, identity, displayName, reason string)
}

// Lead is the completed record handed to the notifier.
type Lead struct {
	Phone             string
	Name              string
	DNIRuc            string
	Location          string
	Category          string
	Model             string
	Color             string
	PreferredCallTime string
	CreatedAt         time.Time
	Status            string
}

// Options configure New. Zero delays disable the humanized wait.
type Options struct {
	Store       Store
	Sender      Sender
	Notifier    Notifier
	Dealer      config.DealerConfig
	Location    *time.Location
	RetryWindow time.Duration
	DelayMin    time.Duration
	DelayMax    time.Duration
}

// Engine is the conversation orchestrator. Safe for concurrent use; events
// for the same identity are serialized by a per-identity lock.
type Engine struct {
	store    Store
	sender   Sender
	notifier Notifier
	locks    *identityLocks

	dealer      config.DealerConfig
	loc         *time.Location
	retryWindow time.Duration
	delayMin    time.Duration
	delayMax    time.Duration
	now         func() time.Time
}

// New builds an Engine. Location defaults to UTC and the retry window to
// five minutes when unset.
func New(opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	window := opts.RetryWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Engine{
		store:       opts.Store,
		sender:      opts.Sender,
		notifier:    opts.Notifier,
		locks:       newIdentityLocks(),
		dealer:      opts.Dealer,
		loc:         loc,
		retryWindow: window,
		delayMin:    opts.DelayMin,
		delayMax:    opts.DelayMax,
		now:         time.Now,
	}
}

// Handle processes one inbound event for an identity. Errors are returned
// for logging only; the transport acks the event regardless.
func (e *Engine) Handle(ctx context.Context, identity, text, contentType string) error {
	unlock := e.locks.Lock(identity)
	defer unlock()

	conv, err := e.store.GetOrCreate(ctx, identity)
	if err != nil {
		logger.Error(ctx, "engine", "conversation.load.fail",
			slog.String("status", "fail"),
			slog.String("phone", identity),
			slog.String("err", err.Error()),
		)
		return err
	}
	ctx = logger.WithEventMeta(ctx, logger.MessageIDFrom(ctx), identity)

	intent := IntentNone
	if conv.Status == store.StatusInProgress {
		intent = Classify(text)
	}

	if text != "" {
		if err := e.store.LogMessage(ctx, conv.ID, store.DirectionInbound, contentType, text, string(intent)); err != nil {
			logger.Warn(ctx, "engine", "audit.inbound.fail",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	switch conv.Status {
	case store.StatusHandedOff:
		logger.Debug(ctx, "engine", "event.ignored",
			slog.String("status", "skip"),
			slog.String("step", string(conv.Step)),
		)
		return nil
	case store.StatusCompleted:
		return e.handleFinished(ctx, conv, text)
	}

	if intent != IntentNone {
		return e.handleIntent(ctx, conv, intent)
	}
	return e.handleStep(ctx, conv, text)
}

func (e *Engine) handleIntent(ctx context.Context, conv *store.Conversation, intent Intent) error {
	logger.Info(ctx, "engine", "intent.detected",
		slog.String("status", "ok"),
		slog.String("intent", string(intent)),
		slog.String("step", string(conv.Step)),
	)

	switch intent {
	case IntentLocation:
		e.send(ctx, conv, whatsapp.NewLocation(conv.Phone,
			e.dealer.Latitude, e.dealer.Longitude, e.dealer.Name, e.dealer.Address))
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, locationInfoCopy))
		return nil

	case IntentHelp:
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, helpCopy(conv.Step)))
		return nil

	case IntentHandoff:
		if err := e.store.MarkStatus(ctx, conv.ID, store.StatusHandedOff); err != nil {
			logger.Error(ctx, "engine", "handoff.fail",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, handoffAckCopy))
		e.notifier.NotifyHandoff(ctx, conv.Phone, displayName(conv), "Cliente solicitó hablar con un asesor")
		return nil

	case IntentExit:
		if err := e.store.MarkStatus(ctx, conv.ID, store.StatusCompleted); err != nil {
			logger.Error(ctx, "engine", "exit.fail",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, farewellCopy))
		return nil
	}
	return nil
}

// send delivers one outbound message with the humanized delay, then records
// the audit row. Delivery failure is logged and swallowed.
func (e *Engine) send(ctx context.Context, conv *store.Conversation, msg whatsapp.Message) {
	if !e.humanDelay(ctx) {
		return
	}
	if err := e.sender.Send(ctx, msg); err != nil {
		logger.Warn(ctx, "engine", "send.fail",
			slog.String("status", "fail"),
			slog.String("content_type", msg.Type),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := e.store.LogMessage(ctx, conv.ID, store.DirectionOutbound, msg.Type, outboundBody(msg), ""); err != nil {
		logger.Warn(ctx, "engine", "audit.outbound.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// humanDelay waits a randomized interval to mimic typing. It suspends only
// this event's goroutine and returns false when the context is cancelled.
func (e *Engine) humanDelay(ctx context.Context) bool {
	if e.delayMax <= 0 {
		return ctx.Err() == nil
	}
	d := e.delayMin
	if span := e.delayMax - e.delayMin; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func displayName(conv *store.Conversation) string {
	if name := strVal(conv.Name); name != "" {
		return name
	}
	return conv.Phone
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func outboundBody(msg whatsapp.Message) string {
	switch {
	case msg.Text != nil:
		return msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.Body != nil:
		return msg.Interactive.Body.Text
	case msg.Location != nil:
		return msg.Location.Name
	default:
		return strings.ToUpper(msg.Type)
	}
}
