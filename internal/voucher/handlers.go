package voucher

import (
	"errors"
	"net/http"

	"github.com/noah-isme/marketplace-cart/internal/common"
	"github.com/noah-isme/marketplace-cart/internal/pricing"
)

// Handler exposes read-only coupon endpoints.
type Handler struct {
	Table Table
}

type previewRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
}

// PreviewResult describes the outcome of evaluating a code without touching a cart.
type PreviewResult struct {
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Subtotal    pricing.Money `json:"subtotal"`
	Discount    pricing.Money `json:"discount"`
	Total       pricing.Money `json:"total"`
	Formatted   struct {
		Discount string `json:"discount"`
		Total    string `json:"total"`
	} `json:"formatted"`
}

// Preview evaluates a code against a subtotal.
func Preview(t Table, code string, subtotal pricing.Money) (PreviewResult, error) {
	rule, err := t.Lookup(code)
	if err != nil {
		return PreviewResult{}, err
	}
	summary := pricing.Settle(subtotal, Compute(subtotal, rule))
	res := PreviewResult{
		Code:        rule.Code,
		Description: rule.Description,
		Subtotal:    summary.Subtotal,
		Discount:    summary.Discount,
		Total:       summary.Total,
	}
	res.Formatted.Discount = pricing.FormatDiscount(summary.Discount)
	res.Formatted.Total = pricing.Format(summary.Total)
	return res, nil
}

// Preview returns the simulated discount for a code without mutating any cart.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Table == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon table not configured", nil)
		return
	}
	var req previewRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		common.WriteError(w, err)
		return
	}
	subtotal, err := pricing.ParseMoney(req.Subtotal)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must be a non-negative amount", nil)
		return
	}
	result, err := Preview(h.Table, req.Code, subtotal)
	switch {
	case errors.Is(err, ErrCodeRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "CODE_REQUIRED", "Please enter a coupon code", nil)
	case errors.Is(err, ErrInvalidCoupon):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_COUPON", "Invalid coupon code", nil)
	case err != nil:
		common.WriteError(w, err)
	default:
		common.JSON(w, http.StatusOK, map[string]any{"data": result})
	}
}
