package handoff

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/marketplace-cart/internal/pricing"
)

// KeyPrefix is the fixed key under which cart snapshots are handed to checkout.
const KeyPrefix = "checkout_cart"

// ErrNotFound is returned when no snapshot is waiting under the key.
var ErrNotFound = errors.New("handoff snapshot not found")

// Snapshot is the ledger state carried from the cart page to checkout.
type Snapshot struct {
	Subtotal     pricing.Money `json:"subtotal"`
	Discount     pricing.Money `json:"discount"`
	DiscountCode string        `json:"discountCode,omitempty"`
}

// Key returns the storage key for a session.
func Key(sessionID string) string {
	if sessionID == "" {
		return KeyPrefix
	}
	return KeyPrefix + ":" + sessionID
}

func encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
