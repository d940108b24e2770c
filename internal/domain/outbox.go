package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaxOutboxErrorLen caps the stored dispatch error so a chatty sink cannot
// bloat the outbox table.
const MaxOutboxErrorLen = 2000

// OutboxMessage is an independent aggregate: it correlates to a domain event
// by type and payload, not to the account by foreign key, so event durability
// does not depend on the account's lifecycle. Rows are written in the same
// storage transaction as the state change they describe and are never
// deleted; processed rows remain as an audit trail.
type OutboxMessage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType     string         `gorm:"not null;index" json:"event_type"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	Processed     bool           `gorm:"not null;index" json:"processed"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	AttemptCount  int            `gorm:"not null" json:"attempt_count"`
	LastError     string         `json:"last_error,omitempty"`
	NextAttemptAt *time.Time     `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// NewOutboxMessage serializes an event into its outbox row.
func NewOutboxMessage(ev Event) (*OutboxMessage, error) {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return nil, Wrap(CodeInternal, "outbox.new", err)
	}
	now := time.Now().UTC()
	return &OutboxMessage{
		ID:        uuid.New(),
		EventType: string(ev.Type),
		Payload:   datatypes.JSON(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *OutboxMessage) MarkProcessed() {
	now := time.Now().UTC()
	m.Processed = true
	m.ProcessedAt = &now
	m.UpdatedAt = now
}

// RecordFailure books one failed dispatch attempt and schedules the next one.
func (m *OutboxMessage) RecordFailure(errMsg string, nextAttemptDelay time.Duration) {
	m.AttemptCount++
	m.LastError = truncateError(errMsg)
	next := time.Now().UTC().Add(nextAttemptDelay)
	m.NextAttemptAt = &next
	m.UpdatedAt = time.Now().UTC()
}

// Poison exhausts the message's retry budget immediately. Used for payloads
// that can never be dispatched, such as unknown event types.
func (m *OutboxMessage) Poison(errMsg string, maxAttempts int) {
	m.AttemptCount = maxAttempts
	m.LastError = truncateError(errMsg)
	m.NextAttemptAt = nil
	m.UpdatedAt = time.Now().UTC()
}

// CanProcess reports whether the dispatcher may attempt this message now.
func (m *OutboxMessage) CanProcess(maxAttempts int, now time.Time) bool {
	if m.Processed {
		return false
	}
	if m.AttemptCount >= maxAttempts {
		return false
	}
	return m.NextAttemptAt == nil || !m.NextAttemptAt.After(now)
}

func truncateError(s string) string {
	if len(s) > MaxOutboxErrorLen {
		return s[:MaxOutboxErrorLen]
	}
	return s
}
