package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Str("event_id", event.ID.String()).
		Str("aggregate_id", event.AggregateID.String()).
		RawJSON("payload", event.Payload).
		Msg("domain_event")
	return nil
}
