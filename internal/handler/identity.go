package handler

import (
	"net/http"

	"github.com/google/uuid"
)

// The gateway in front of this service authenticates callers and forwards
// the verified identity; the ledger itself never sees credentials.
const userIDHeader = "X-User-ID"

func requesterID(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
