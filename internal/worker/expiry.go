package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskCouponExpirySweep is the asynq task type for the periodic expiry sweep.
const TaskCouponExpirySweep = "coupon:expiry_sweep"

// ExpiryStore flips lapsed coupons out of the active state.
type ExpiryStore interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper moves active coupons past their expiry instant to the expired
// state. Validation enforces the window on every request regardless, so the
// sweep only keeps stored state and reporting honest.
type ExpirySweeper struct {
	Store  ExpiryStore
	Logger *zerolog.Logger
}

// NewExpiryTask builds the task the scheduler enqueues.
func NewExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskCouponExpirySweep, nil)
}

// Handle processes one sweep task.
func (s ExpirySweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	n, err := s.Store.MarkExpired(ctx, time.Now())
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error().Err(err).Msg("coupon expiry sweep")
		}
		return err
	}
	if s.Logger != nil && n > 0 {
		s.Logger.Info().Int64("expired", n).Msg("coupon expiry sweep")
	}
	return nil
}
