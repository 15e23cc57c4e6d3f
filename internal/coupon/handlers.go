package coupon

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/common"
	"github.com/noah-isme/toko-promo/internal/customer"
)

// Handler exposes the coupon validation and redemption endpoints.
type Handler struct {
	Validator *Validator
	Recorder  *Recorder
	Source    Source
	Validate  *validator.Validate
	Logger    *zerolog.Logger
}

// ValidateRequest is the wire shape of a validation call.
type ValidateRequest struct {
	StoreID       string            `json:"storeId" validate:"required,uuid4"`
	Code          string            `json:"code" validate:"required"`
	PaymentMethod string            `json:"paymentMethod" validate:"required"`
	Customer      customer.Identity `json:"customer"`
	Items         []cart.Line       `json:"items" validate:"required,min=1,dive"`
}

// ValidateResponse mirrors Result for the wire.
type ValidateResponse struct {
	Valid    bool            `json:"valid"`
	CouponID *uuid.UUID      `json:"couponId,omitempty"`
	Code     string          `json:"code,omitempty"`
	Kind     string          `json:"discountType,omitempty"`
	Value    int64           `json:"discountValue,omitempty"`
	Amount   cart.Money      `json:"discountAmount"`
	Reason   RejectionReason `json:"rejectionReason,omitempty"`
}

// ValidateCoupon answers whether a code applies to the cart without claiming
// usage. A rejected coupon is still a 200: rejection is data, not an error.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Validator == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon validator not configured", nil)
		return
	}
	var req ValidateRequest
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
	res, err := h.Validator.Validate(r.Context(), storeID, req.Code, cart.Snapshot{Lines: req.Items}, req.Customer, req.PaymentMethod)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("store_id", storeID.String()).Msg("coupon validation")
		}
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "coupon validation unavailable", nil)
		return
	}
	resp := ValidateResponse{
		Valid:  res.Valid,
		Code:   res.Code,
		Kind:   string(res.Kind),
		Value:  res.Value,
		Amount: res.Amount,
		Reason: res.Reason,
	}
	if res.Valid {
		id := res.CouponID
		resp.CouponID = &id
	}
	common.Data(w, http.StatusOK, resp)
}

// RedeemRequest is the wire shape of a redemption call. Redemption is invoked
// by the order pipeline once per order, after the order exists durably.
type RedeemRequest struct {
	StoreID         string            `json:"storeId" validate:"required,uuid4"`
	Code            string            `json:"code" validate:"required"`
	OrderID         string            `json:"orderId" validate:"required,uuid4"`
	Customer        customer.Identity `json:"customer"`
	DiscountApplied cart.Money        `json:"discountApplied" validate:"gte=0"`
}

// RedeemCoupon records a redemption against the coupon's caps. Retrying with
// the same order id is a no-op success.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Recorder == nil || h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon recorder not configured", nil)
		return
	}
	var req RedeemRequest
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
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	c, err := h.Source.FindCoupon(r.Context(), storeID, NormalizeCode(req.Code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("store_id", storeID.String()).Msg("find coupon for redemption")
		}
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "coupon lookup unavailable", nil)
		return
	}
	if err := h.Recorder.Record(r.Context(), c, orderID, req.Customer, req.DiscountApplied); err != nil {
		switch {
		case errors.Is(err, ErrLimitExceeded):
			common.JSONError(w, http.StatusConflict, "LIMIT_EXCEEDED", "coupon usage limit exceeded", nil)
		case errors.Is(err, ErrPerCustomerLimitExceeded):
			common.JSONError(w, http.StatusConflict, "PER_CUSTOMER_LIMIT_EXCEEDED", "per-customer usage limit exceeded", nil)
		default:
			if h.Logger != nil {
				h.Logger.Error().Err(err).Str("coupon_id", c.ID.String()).Msg("record coupon usage")
			}
			common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "redemption unavailable", nil)
		}
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"couponId": c.ID,
		"orderId":  orderID,
		"recorded": true,
	})
}
