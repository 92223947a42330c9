package registration

import (
	"github.com/google/uuid"

	"Vouch/internal/core/content"
	"Vouch/internal/core/users"
)

// Request is a submitted registration form.
type Request struct {
	Profile  content.Profile
	Document content.Document
}

// Result describes a confirmed registration.
type Result struct {
	AttemptID   uuid.UUID              `json:"attemptId"`
	Record      *users.LocalUserRecord `json:"record"`
	TxHash      string                 `json:"txHash"`
	BlockNumber uint64                 `json:"blockNumber"`
	History     []Step                 `json:"history"`
}
