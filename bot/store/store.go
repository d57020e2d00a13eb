package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cisnemotors/leadbot/core/logger"
)

// Store wraps the SQL access for conversations and their audit tables.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New builds a Store on an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

const conversationColumns = `id, phone, step, status, name, dni_ruc, location,
	category, model, color, preferred_call_time, created_at, updated_at, completed_at`

// GetOrCreate returns the latest conversation for a phone number, creating a
// fresh one at START when none exists. Terminal conversations are returned
// as-is; the engine decides whether they stay silent or restart.
func (s *Store) GetOrCreate(ctx context.Context, phone string) (*Conversation, error) {
	var conv Conversation
	query := s.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM conversations WHERE phone = ? ORDER BY id DESC LIMIT 1`,
		conversationColumns))
	err := s.db.GetContext(ctx, &conv, query, phone)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: load conversation: %w", err)
	}

	now := s.now().UTC()
	insert := s.db.Rebind(
		`INSERT INTO conversations (phone, step, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := s.db.GetContext(ctx, &id, insert, phone, StepStart, StatusInProgress, now, now); err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}

	logger.Debug(ctx, "db", "conversation.create",
		slog.String("status", "ok"),
		slog.String("phone", phone),
		slog.String("step", string(StepStart)),
	)
	return &Conversation{
		ID:        id,
		Phone:     phone,
		Step:      StepStart,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition moves a conversation to the next step, persisting any lead
// fields captured along the way.
func (s *Store) Transition(ctx context.Context, id int64, next Step, updates FieldUpdates) error {
	sets := []string{"step = ?", "updated_at = ?"}
	args := []any{string(next), s.now().UTC()}

	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("name", updates.Name)
	add("dni_ruc", updates.DNIRuc)
	add("location", updates.Location)
	add("category", updates.Category)
	add("model", updates.Model)
	add("color", updates.Color)
	add("preferred_call_time", updates.PreferredCallTime)

	args = append(args, id)
	query := s.db.Rebind(
		`UPDATE conversations SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: transition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: transition: conversation %d not found", id)
	}
	return nil
}

// MarkStatus sets a lifecycle status. Completion also stamps completed_at.
func (s *Store) MarkStatus(ctx context.Context, id int64, status Status) error {
	now := s.now().UTC()
	var query string
	var args []any
	if status == StatusCompleted {
		query = `UPDATE conversations SET status = ?, updated_at = ?, completed_at = ? WHERE id = ?`
		args = []any{string(status), now, now, id}
	} else {
		query = `UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?`
		args = []any{string(status), now, id}
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("store: mark status: %w", err)
	}
	return nil
}

// Restart resets a conversation in place: back to START, IN_PROGRESS, all
// lead fields cleared. The failure history goes too, so the new run starts
// at the first retry tier. Used when a finished user wants to register again.
func (s *Store) Restart(ctx context.Context, id int64) error {
	query := s.db.Rebind(
		`UPDATE conversations SET step = ?, status = ?, name = NULL, dni_ruc = NULL,
		 location = NULL, category = NULL, model = NULL, color = NULL,
		 preferred_call_time = NULL, completed_at = NULL, updated_at = ?
		 WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, string(StepStart), string(StatusInProgress), s.now().UTC(), id); err != nil {
		return fmt.Errorf("store: restart: %w", err)
	}
	purge := s.db.Rebind(`DELETE FROM failed_validations WHERE conversation_id = ?`)
	if _, err := s.db.ExecContext(ctx, purge, id); err != nil {
		return fmt.Errorf("store: restart: clear failures: %w", err)
	}
	return nil
}

// RecordFailedValidation logs one rejected input and returns how many times
// the user has failed this step within the recent window, this attempt
// included. The count drives the tiered retry copy.
func (s *Store) RecordFailedValidation(ctx context.Context, id int64, step Step, input string, window time.Duration) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-window)

	var recent int
	count := s.db.Rebind(
		`SELECT COUNT(*) FROM failed_validations
		 WHERE conversation_id = ? AND step = ? AND created_at > ?`)
	if err := s.db.GetContext(ctx, &recent, count, id, string(step), cutoff); err != nil {
		return 0, fmt.Errorf("store: count failed validations: %w", err)
	}

	insert := s.db.Rebind(
		`INSERT INTO failed_validations (conversation_id, step, input, created_at)
		 VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, insert, id, string(step), input, now); err != nil {
		return 0, fmt.Errorf("store: record failed validation: %w", err)
	}
	return recent + 1, nil
}

// ClearFailedValidations drops the failure history for a step once the user
// passes it. Without this a later attempt at the same step inside the window
// would resume at a higher retry tier instead of the first one.
func (s *Store) ClearFailedValidations(ctx context.Context, id int64, step Step) error {
	query := s.db.Rebind(
		`DELETE FROM failed_validations WHERE conversation_id = ? AND step = ?`)
	if _, err := s.db.ExecContext(ctx, query, id, string(step)); err != nil {
		return fmt.Errorf("store: clear failed validations: %w", err)
	}
	return nil
}

// LogMessage appends one message audit row. Inbound rows carry the detected
// intent when there was one. Callers treat failures as non-fatal; losing an
// audit row must not break the conversation.
func (s *Store) LogMessage(ctx context.Context, id int64, direction, contentType, body, intent string) error {
	var intentVal any
	if intent != "" {
		intentVal = intent
	}
	query := s.db.Rebind(
		`INSERT INTO messages (conversation_id, direction, content_type, body, intent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, direction, contentType, body, intentVal, s.now().UTC()); err != nil {
		return fmt.Errorf("store: log message: %w", err)
	}
	return nil
}

// Get reloads one conversation by id.
func (s *Store) Get(ctx context.Context, id int64) (*Conversation, error) {
	var conv Conversation
	query := s.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM conversations WHERE id = ?`, conversationColumns))
	if err := s.db.GetContext(ctx, &conv, query, id); err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return &conv, nil
}
