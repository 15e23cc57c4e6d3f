package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-promo/internal/events"
)

const insertEventSQL = `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5)`

var _ events.Store = (*Events)(nil)

// Events persists domain events to PostgreSQL.
type Events struct {
	pool *pgxpool.Pool
}

// NewEvents returns an Events repository backed by the given pool.
func NewEvents(pool *pgxpool.Pool) *Events {
	return &Events{pool: pool}
}

// InsertEvent appends a domain event row.
func (r *Events) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	if _, err := r.pool.Exec(ctx, insertEventSQL, ev.ID, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt); err != nil {
		return events.Event{}, fmt.Errorf("inserting event %s: %w", topic, err)
	}
	return ev, nil
}
