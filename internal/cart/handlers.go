package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/marketplace-cart/internal/common"
	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type noticeView struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	DismissAfterMs int64  `json:"dismissAfterMs,omitempty"`
}

func toNoticeView(n Notice) noticeView {
	return noticeView{Type: n.Kind, Message: n.Message, DismissAfterMs: n.DismissAfter.Milliseconds()}
}

// Create opens a cart session from the rendered rows in the body, or the
// default catalog when the body is empty.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Items []SeedItem `json:"items"`
	}
	if err := common.DecodeJSON(r, &payload, true); err != nil {
		h.writeError(w, err)
		return
	}
	id, view, err := h.Svc.Create(r.Context(), payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"cartId": id,
			"cart":   view,
		},
	})
}

// Get returns the cart projection.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.View(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, view, err)
}

// AddItem adds a line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload SeedItem
	if err := common.DecodeJSON(r, &payload, false); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(payload.ID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// UpdateItem changes the license, typed quantity or stepper of a line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		License  *string         `json:"license"`
		Quantity json.RawMessage `json:"quantity"`
		Step     int             `json:"step"`
	}
	if err := common.DecodeJSON(r, &payload, false); err != nil {
		h.writeError(w, err)
		return
	}
	upd := ItemUpdate{License: payload.License, Step: payload.Step}
	if len(payload.Quantity) > 0 && string(payload.Quantity) != "null" {
		raw := quantityInput(payload.Quantity)
		upd.Quantity = &raw
	}
	view, err := h.Svc.UpdateItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), upd)
	h.respond(w, view, err)
}

// RemoveItem deletes a line item; unknown items leave the cart unchanged.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	h.respond(w, view, err)
}

// Clear removes every item.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, view, err)
}

// ApplyCoupon applies a discount code.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := common.DecodeJSON(r, &payload, false); err != nil {
		h.writeError(w, err)
		return
	}
	view, notice, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	switch {
	case errors.Is(err, voucher.ErrCodeRequired), errors.Is(err, voucher.ErrInvalidCoupon):
		code := "INVALID_COUPON"
		if errors.Is(err, voucher.ErrCodeRequired) {
			code = "CODE_REQUIRED"
		}
		common.JSONError(w, http.StatusUnprocessableEntity, code, notice.Message, map[string]any{
			"cart":   view,
			"notice": toNoticeView(notice),
		})
	case err != nil:
		h.writeError(w, err)
	default:
		common.JSON(w, http.StatusOK, map[string]any{"data": view, "notice": toNoticeView(notice)})
	}
}

// RemoveCoupon drops the discount code.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, view, err)
}

// Checkout hands the cart totals to the checkout page.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := h.Svc.Checkout(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"checkoutId": id,
			"handoffKey": handoff.Key(id),
			"summary":    snap,
		},
	})
}

func (h *Handler) respond(w http.ResponseWriter, view View, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// quantityInput accepts both JSON numbers and strings for a typed quantity.
func quantityInput(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if _, ok := common.AsAppError(err); ok {
		common.WriteError(w, err)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "Your cart is empty", nil)
	case errors.Is(err, ErrDuplicateItem):
		common.JSONError(w, http.StatusConflict, "DUPLICATE_ITEM", err.Error(), nil)
	case errors.Is(err, ErrLedgerClosed):
		common.JSONError(w, http.StatusConflict, "CART_CLOSED", err.Error(), nil)
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrUnknownTier), errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
