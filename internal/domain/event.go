package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionEventType string

const (
	TransactionEventTypeCompleted TransactionEventType = "completed"
	TransactionEventTypeFailed    TransactionEventType = "failed"
	TransactionEventTypeCancelled TransactionEventType = "cancelled"
)

// TransactionEvent is the audit trail of a status transition, including who
// caused it.
type TransactionEvent struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	EventType     TransactionEventType
	Actor         string
	CreatedAt     time.Time
}
