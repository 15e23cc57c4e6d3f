package promo

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/common"
	"github.com/noah-isme/toko-promo/internal/customer"
)

// Handler exposes the resolution endpoint used by the checkout flow.
type Handler struct {
	Resolver *Resolver
	Validate *validator.Validate
}

// ResolveRequest is the wire shape of a resolution call.
type ResolveRequest struct {
	StoreID       string            `json:"storeId" validate:"required,uuid4"`
	PaymentMethod string            `json:"paymentMethod" validate:"required"`
	CouponCode    string            `json:"couponCode"`
	Customer      customer.Identity `json:"customer"`
	Items         []cart.Line       `json:"items" validate:"required,min=1,dive"`
}

// Resolve decides which single discount (if any) applies to the cart.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.Resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "resolver not configured", nil)
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid store id", nil)
		return
	}
	outcome := h.Resolver.Resolve(r.Context(), storeID, cart.Snapshot{Lines: req.Items}, req.Customer, req.PaymentMethod, req.CouponCode)
	common.Data(w, http.StatusOK, outcome)
}
