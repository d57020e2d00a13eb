// Package store persists conversations, message audit rows and failed
// validation attempts behind a small SQL surface shared by Postgres in
// production and SQLite in tests.
package store

import "time"

// Step is the position of a conversation inside the qualification flow.
type Step string

const (
	StepStart             Step = "START"
	StepWaitingName       Step = "WAITING_NAME"
	StepWaitingIDLocation Step = "WAITING_ID_LOCATION"
	StepWaitingCategory   Step = "WAITING_CATEGORY"
	StepWaitingModel      Step = "WAITING_MODEL"
	StepWaitingColor      Step = "WAITING_COLOR"
	StepWaitingCallTime   Step = "WAITING_CALL_TIME"
	StepFinished          Step = "FINISHED"
)

// Status is the lifecycle state of a conversation. COMPLETED and HANDED_OFF
// are absorbing: the engine stops driving a conversation once it reaches one.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusHandedOff  Status = "HANDED_OFF"
)

// Directions for message audit rows.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conversation is one lead-qualification session for a phone number.
// Lead fields are nullable until the corresponding step collects them.
type Conversation struct {
	ID                int64      `db:"id"`
	Phone             string     `db:"phone"`
	Step              Step       `db:"step"`
	Status            Status     `db:"status"`
	Name              *string    `db:"name"`
	DNIRuc            *string    `db:"dni_ruc"`
	Location          *string    `db:"location"`
	Category          *string    `db:"category"`
	Model             *string    `db:"model"`
	Color             *string    `db:"color"`
	PreferredCallTime *string    `db:"preferred_call_time"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	CompletedAt       *time.Time `db:"completed_at"`
}

// Terminal reports whether the conversation no longer accepts input.
func (c *Conversation) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusHandedOff
}

// FieldUpdates carries lead fields captured during a step transition.
// Nil fields are left untouched.
type FieldUpdates struct {
	Name              *string
	DNIRuc            *string
	Location          *string
	Category          *string
	Model             *string
	Color             *string
	PreferredCallTime *string
}

// String returns a pointer to s, for building FieldUpdates inline.
func String(s string) *string { return &s }
