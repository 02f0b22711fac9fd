package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/marketplace-cart/internal/common"
	"github.com/noah-isme/marketplace-cart/internal/obs"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// Handler exposes checkout sessions over HTTP. Sessions are keyed by the cart
// session id they were handed off from.
type Handler struct {
	Svc *Service
}

type couponRequest struct {
	Code string `json:"code"`
}

type paymentRequest struct {
	Method string `json:"method"`
}

// Begin consumes the cart handoff and opens a checkout session.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	sess, err := h.Svc.Begin(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	sess.mu.Lock()
	view := sess.View()
	sess.mu.Unlock()
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get returns the checkout summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sess *Session) {
		common.JSON(w, http.StatusOK, map[string]any{"data": sess.View()})
	})
}

// ApplyCoupon applies a coupon code on the checkout page.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	h.withSession(w, r, func(sess *Session) {
		notice, err := sess.ApplyCoupon(req.Code)
		obs.IncCoupon("checkout", couponResult(err))
		if err != nil {
			h.writeError(w, common.NewAppError(couponCode(err), notice.Message, http.StatusUnprocessableEntity, err).
				WithDetails(map[string]any{"checkout": sess.View()}))
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": sess.View(), "notice": notice})
	})
}

// SetPaymentMethod switches between card, paypal and stripe.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	h.withSession(w, r, func(sess *Session) {
		if err := sess.SetPaymentMethod(req.Method); err != nil {
			h.writeError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": sess.View()})
	})
}

// PlaceOrder validates the checkout form and confirms the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	sess, ok := h.session(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	// The session lock serialises concurrent submissions for the same session.
	order, err := h.placeOrder(r.Context(), sess, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

func (h *Handler) placeOrder(ctx context.Context, sess *Session, req OrderRequest) (Order, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return h.Svc.PlaceOrder(ctx, sess, req)
}

func (h *Handler) session(w http.ResponseWriter, id string) (*Session, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return nil, false
	}
	sess, err := h.Svc.Session(id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*Session)) {
	sess, ok := h.session(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

func couponResult(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, voucher.ErrCodeRequired):
		return "empty"
	default:
		return "invalid"
	}
}

func couponCode(err error) string {
	if errors.Is(err, voucher.ErrCodeRequired) {
		return "CODE_REQUIRED"
	}
	return "INVALID_COUPON"
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
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", verr.Error(), verr.Fields)
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "checkout session not found", nil)
	case errors.Is(err, ErrNoHandoff):
		common.JSONError(w, http.StatusNotFound, "NO_HANDOFF", "no cart was handed off for this session", nil)
	case errors.Is(err, ErrAlreadyPlaced):
		common.JSONError(w, http.StatusConflict, "ALREADY_PLACED", err.Error(), nil)
	case errors.Is(err, ErrPaymentMethod):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, "CANCELLED", "request cancelled", nil)
	default:
		common.WriteError(w, err)
	}
}
