package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pay/internal/obs"
)

// TypeSweep is the task type for the stale pending-payment sweep.
const TypeSweep = "pending:sweep"

type sweepPayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

// NewSweepTask builds the periodic sweep task. Records older than
// maxAge belong to checkouts that never returned from the gateway.
func NewSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(sweepPayload{MaxAgeSeconds: int64(maxAge.Seconds())})
	if err != nil {
		return nil, fmt.Errorf("encode sweep payload: %w", err)
	}
	return asynq.NewTask(TypeSweep, payload), nil
}

// StaleDeleter removes pending records older than a cutoff.
type StaleDeleter interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper removes abandoned pending-payment records.
type Sweeper struct {
	Store  StaleDeleter
	Logger zerolog.Logger
}

// HandleSweep processes a sweep task.
func (s *Sweeper) HandleSweep(ctx context.Context, task *asynq.Task) error {
	var payload sweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode sweep payload: %w", err)
	}
	maxAge := time.Duration(payload.MaxAgeSeconds) * time.Second
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	deleted, err := s.Store.DeleteStale(ctx, maxAge)
	if err != nil {
		return err
	}
	if obs.PendingSweepDeleted != nil {
		obs.PendingSweepDeleted.Add(float64(deleted))
	}
	s.Logger.Info().
		Int64("deleted", deleted).
		Dur("max_age", maxAge).
		Msg("pending_sweep")
	return nil
}
