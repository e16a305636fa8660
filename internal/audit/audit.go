// Package audit writes decision records for state-mutating actions.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/models"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Writer persists decision records. *store.Store implements it.
type Writer interface {
	WriteAudit(ctx context.Context, action, inputsHash, outcome, taskID, details string, now time.Time) (*models.AuditEntry, error)
}

// Recorder writes decision records with hashed inputs.
type Recorder struct {
	w     Writer
	clock clock.Clock
}

// NewRecorder creates a recorder. A nil clock uses the system clock.
func NewRecorder(w Writer, c clock.Clock) *Recorder {
	if c == nil {
		c = clock.System{}
	}
	return &Recorder{w: w, clock: c}
}

// Record writes an entry for action. inputs is hashed, never stored.
func (r *Recorder) Record(ctx context.Context, action string, inputs any, outcome, taskID, details string) (*models.AuditEntry, error) {
	return r.w.WriteAudit(ctx, action, HashInputs(inputs), outcome, taskID, details, r.clock.Now())
}

// HashInputs returns the hex SHA-256 of the JSON encoding of inputs.
func HashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
