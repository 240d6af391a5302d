package domain

import (
	"time"

	"github.com/google/uuid"
)

// User carries only what the ledger needs: identity for ownership checks
// and the loyalty points balance. Credentials and profile data live in the
// identity service upstream.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	RewardsBalance int64
	CreatedAt      time.Time
}
