package customer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Identity carries the fields used to recognise a shopper across orders.
// Either field may be empty; an identity with neither is treated as unknown.
type Identity struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Known reports whether at least one identifying field is present.
func (i Identity) Known() bool {
	return strings.TrimSpace(i.Phone) != "" || strings.TrimSpace(i.Email) != ""
}

// Normalize trims whitespace and lowercases the email.
func (i Identity) Normalize() Identity {
	return Identity{
		Phone: strings.TrimSpace(i.Phone),
		Email: strings.ToLower(strings.TrimSpace(i.Email)),
	}
}

// Kind classifies a shopper relative to a store's order history.
type Kind string

const (
	// KindNew marks shoppers with no completed orders at the store.
	KindNew Kind = "new"
	// KindReturning marks shoppers with at least one prior order.
	KindReturning Kind = "returning"
)

// History looks up prior-order counts for an identity within a store.
type History interface {
	CountPriorOrders(ctx context.Context, storeID uuid.UUID, phone, email string) (int64, error)
}

// Classifier answers the new-vs-returning question. Unknown identities and
// lookup failures both classify as new: the engine deliberately fails open
// toward the more permissive classification so that a history outage can
// never block a first-order promotion at checkout.
type Classifier struct {
	History History
	Logger  *zerolog.Logger
}

// Classify returns the shopper kind for the given identity and store.
func (c Classifier) Classify(ctx context.Context, storeID uuid.UUID, identity Identity) Kind {
	id := identity.Normalize()
	if !id.Known() || c.History == nil {
		return KindNew
	}
	count, err := c.History.CountPriorOrders(ctx, storeID, id.Phone, id.Email)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn().Err(err).Str("store_id", storeID.String()).Msg("classify customer: history lookup failed, defaulting to new")
		}
		return KindNew
	}
	if count > 0 {
		return KindReturning
	}
	return KindNew
}
