package cart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/pricing"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

var (
	// ErrItemNotFound is returned when an operation names an unknown line item.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrDuplicateItem is returned when adding an item whose id is already present.
	ErrDuplicateItem = errors.New("cart item already present")
	// ErrInvalidItem is returned when a line item cannot be priced.
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrUnknownTier is returned when a license tier is not offered for the item.
	ErrUnknownTier = errors.New("unknown license tier")
	// ErrEmptyCart blocks checkout when there is nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrLedgerClosed is returned when adding to a cart that was emptied in this session.
	ErrLedgerClosed = errors.New("cart was emptied")
)

const (
	// DefaultMinQty is the lower quantity bound used when an item does not declare one.
	DefaultMinQty = 1
	// DefaultMaxQty is the upper quantity bound used when an item does not declare one.
	DefaultMaxQty = 10
	// DefaultNoticeTTL is how long an error notice stays visible.
	DefaultNoticeTTL = 3 * time.Second
)

// State is the display state of a ledger.
type State string

const (
	StatePopulated State = "populated"
	StateEmpty     State = "empty"
)

// Tier is a license variant of a catalog entry with its fixed price.
type Tier struct {
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
}

// LineItem is one purchasable entry of the ledger.
type LineItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Tiers       []Tier        `json:"tiers"`
	LicenseTier string        `json:"licenseTier"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	Quantity    int           `json:"quantity"`
	MinQty      int           `json:"minQty"`
	MaxQty      int           `json:"maxQty"`
}

// LineTotal returns unit price times quantity.
func (it LineItem) LineTotal() pricing.Money {
	return pricing.LineTotal(it.UnitPrice, it.Quantity)
}

// ceiling is the largest line total the item can reach across its tiers and quantity bounds.
func (it LineItem) ceiling() (pricing.Money, error) {
	var top pricing.Money
	for _, t := range it.Tiers {
		if t.Price > top {
			top = t.Price
		}
	}
	return pricing.MulMoney(top, it.MaxQty)
}

func (it LineItem) tier(name string) (Tier, bool) {
	for _, t := range it.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

func (it LineItem) clamp(qty int) int {
	if qty < it.MinQty {
		return it.MinQty
	}
	if qty > it.MaxQty {
		return it.MaxQty
	}
	return qty
}

// Totals holds the derived amounts of the ledger.
type Totals struct {
	Subtotal     pricing.Money `json:"subtotal"`
	Discount     pricing.Money `json:"discount"`
	DiscountCode string        `json:"discountCode,omitempty"`
	Tax          pricing.Money `json:"tax"`
	Total        pricing.Money `json:"total"`
}

// Notice is a transient message for the rendering surface.
type Notice struct {
	Kind         string        `json:"type"`
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"-"`
}

// Options configures a ledger.
type Options struct {
	Coupons   voucher.Table
	MinQty    int
	MaxQty    int
	NoticeTTL time.Duration
}

// Ledger holds cart line items and an optional discount code, deriving totals
// after every mutation. A Ledger is owned by a single controller and is not
// safe for concurrent use.
type Ledger struct {
	coupons   voucher.Table
	minQty    int
	maxQty    int
	noticeTTL time.Duration

	items  []LineItem
	code   string
	totals Totals
	closed bool
}

// New creates a ledger seeded with the provided items.
func New(opts Options, items ...LineItem) (*Ledger, error) {
	l := &Ledger{
		coupons:   opts.Coupons,
		minQty:    opts.MinQty,
		maxQty:    opts.MaxQty,
		noticeTTL: opts.NoticeTTL,
	}
	if l.coupons == nil {
		l.coupons = voucher.DefaultTable()
	}
	if l.minQty <= 0 {
		l.minQty = DefaultMinQty
	}
	if l.maxQty < l.minQty {
		l.maxQty = DefaultMaxQty
		if l.maxQty < l.minQty {
			l.maxQty = l.minQty
		}
	}
	if l.noticeTTL <= 0 {
		l.noticeTTL = DefaultNoticeTTL
	}
	for _, it := range items {
		normalized, err := l.normalize(it)
		if err != nil {
			return nil, err
		}
		if l.index(normalized.ID) >= 0 {
			return nil, fmt.Errorf("seed %s: %w", normalized.ID, ErrDuplicateItem)
		}
		if err := l.admit(normalized); err != nil {
			return nil, err
		}
		l.items = append(l.items, normalized)
	}
	l.recompute()
	return l, nil
}

// AddItem appends a new line item.
func (l *Ledger) AddItem(item LineItem) (LineItem, error) {
	if l.closed {
		return LineItem{}, ErrLedgerClosed
	}
	normalized, err := l.normalize(item)
	if err != nil {
		return LineItem{}, err
	}
	if l.index(normalized.ID) >= 0 {
		return LineItem{}, fmt.Errorf("add %s: %w", normalized.ID, ErrDuplicateItem)
	}
	if err := l.admit(normalized); err != nil {
		return LineItem{}, err
	}
	l.items = append(l.items, normalized)
	l.recompute()
	return normalized, nil
}

// RemoveItem deletes the item if present and reports whether anything changed.
// Removing the last item empties the ledger for the rest of the session.
func (l *Ledger) RemoveItem(id string) bool {
	idx := l.index(id)
	if idx < 0 {
		l.recompute()
		return false
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	if len(l.items) == 0 {
		l.closed = true
	}
	l.recompute()
	return true
}

// Clear removes every item and any applied discount.
func (l *Ledger) Clear() {
	l.items = nil
	l.code = ""
	l.closed = true
	l.recompute()
}

// SetQuantity clamps qty to the item bounds and stores it.
func (l *Ledger) SetQuantity(id string, qty int) (LineItem, error) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, fmt.Errorf("set quantity %s: %w", id, ErrItemNotFound)
	}
	l.items[idx].Quantity = l.items[idx].clamp(qty)
	l.recompute()
	return l.items[idx], nil
}

// SetQuantityInput commits a typed quantity; values that are not integers fall
// back to the item minimum.
func (l *Ledger) SetQuantityInput(id string, raw string) (LineItem, error) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, fmt.Errorf("set quantity %s: %w", id, ErrItemNotFound)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		qty = l.items[idx].MinQty
	}
	return l.SetQuantity(id, qty)
}

// Increment raises the quantity by one unless already at the maximum.
func (l *Ledger) Increment(id string) (LineItem, error) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, fmt.Errorf("increment %s: %w", id, ErrItemNotFound)
	}
	return l.SetQuantity(id, l.items[idx].Quantity+1)
}

// Decrement lowers the quantity by one unless already at the minimum.
func (l *Ledger) Decrement(id string) (LineItem, error) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, fmt.Errorf("decrement %s: %w", id, ErrItemNotFound)
	}
	return l.SetQuantity(id, l.items[idx].Quantity-1)
}

// SetLicenseTier switches the item to another tier, updating tier and unit price together.
func (l *Ledger) SetLicenseTier(id, tier string) (LineItem, error) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, fmt.Errorf("set license %s: %w", id, ErrItemNotFound)
	}
	t, ok := l.items[idx].tier(strings.TrimSpace(tier))
	if !ok {
		return l.items[idx], fmt.Errorf("set license %s to %q: %w", id, tier, ErrUnknownTier)
	}
	l.items[idx].LicenseTier = t.Name
	l.items[idx].UnitPrice = t.Price
	l.recompute()
	return l.items[idx], nil
}

// ApplyDiscountCode replaces the active code. Unknown codes clear any discount
// and return ErrInvalidCoupon alongside an error notice.
func (l *Ledger) ApplyDiscountCode(code string) (Notice, error) {
	rule, err := l.coupons.Lookup(code)
	switch {
	case errors.Is(err, voucher.ErrCodeRequired):
		return Notice{Kind: "error", Message: "Please enter a coupon code", DismissAfter: l.noticeTTL}, err
	case err != nil:
		l.code = ""
		l.recompute()
		return Notice{Kind: "error", Message: "Invalid coupon code", DismissAfter: l.noticeTTL}, err
	}
	l.code = rule.Code
	l.recompute()
	return Notice{
		Kind:    "success",
		Message: fmt.Sprintf("Coupon %q applied! You saved %s", rule.Code, rule.Description),
	}, nil
}

// ClearDiscount drops the active code.
func (l *Ledger) ClearDiscount() {
	l.code = ""
	l.recompute()
}

// recompute is the single place derived amounts are refreshed. The discount is
// re-derived from the live code and subtotal, never cached.
func (l *Ledger) recompute() {
	items := make([]pricing.Item, 0, len(l.items))
	for _, it := range l.items {
		items = append(items, pricing.Item{Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	base := pricing.Compute(items, 0)
	var discount pricing.Money
	if l.code != "" {
		if rule, err := l.coupons.Lookup(l.code); err == nil {
			discount = voucher.Compute(base.Subtotal, rule)
		} else {
			l.code = ""
		}
	}
	summary := pricing.Settle(base.Subtotal, discount)
	l.totals = Totals{
		Subtotal:     summary.Subtotal,
		Discount:     summary.Discount,
		DiscountCode: l.code,
		Tax:          summary.Tax,
		Total:        summary.Total,
	}
}

// Totals returns the derived amounts.
func (l *Ledger) Totals() Totals { return l.totals }

// State reports whether the ledger has items.
func (l *Ledger) State() State {
	if len(l.items) == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Closed reports whether the ledger was emptied during this session.
func (l *Ledger) Closed() bool { return l.closed }

// ItemCount returns the number of line items.
func (l *Ledger) ItemCount() int { return len(l.items) }

// Items returns a copy of the line items in display order.
func (l *Ledger) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	for i, it := range l.items {
		it.Tiers = append([]Tier(nil), it.Tiers...)
		out[i] = it
	}
	return out
}

// Item returns the line item with the given id.
func (l *Ledger) Item(id string) (LineItem, bool) {
	idx := l.index(id)
	if idx < 0 {
		return LineItem{}, false
	}
	return l.items[idx], true
}

// Checkout produces the handoff snapshot, refusing when the cart is empty.
func (l *Ledger) Checkout() (handoff.Snapshot, error) {
	if len(l.items) == 0 {
		return handoff.Snapshot{}, ErrEmptyCart
	}
	return handoff.Snapshot{
		Subtotal:     l.totals.Subtotal,
		Discount:     l.totals.Discount,
		DiscountCode: l.totals.DiscountCode,
	}, nil
}

func (l *Ledger) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// admit refuses an item whose largest possible line total, added to those of
// the items already held, would exceed pricing.MaxSubtotal.
func (l *Ledger) admit(item LineItem) error {
	total, err := item.ceiling()
	for i := 0; err == nil && i < len(l.items); i++ {
		var c pricing.Money
		if c, err = l.items[i].ceiling(); err == nil {
			total, err = pricing.AddMoney(total, c)
		}
	}
	if err != nil {
		return fmt.Errorf("item %s: %w: %w", item.ID, ErrInvalidItem, err)
	}
	return nil
}

func (l *Ledger) normalize(item LineItem) (LineItem, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return LineItem{}, fmt.Errorf("item id required: %w", ErrInvalidItem)
	}
	if len(item.Tiers) == 0 {
		return LineItem{}, fmt.Errorf("item %s has no license tiers: %w", item.ID, ErrInvalidItem)
	}
	tiers := make([]Tier, 0, len(item.Tiers))
	for _, t := range item.Tiers {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" || t.Price < 0 || t.Price > pricing.MaxAmount {
			return LineItem{}, fmt.Errorf("item %s tier %q: %w", item.ID, t.Name, ErrInvalidItem)
		}
		tiers = append(tiers, t)
	}
	item.Tiers = tiers
	name := strings.TrimSpace(item.LicenseTier)
	if name == "" {
		name = tiers[0].Name
	}
	t, ok := item.tier(name)
	if !ok {
		return LineItem{}, fmt.Errorf("item %s license %q: %w", item.ID, name, ErrUnknownTier)
	}
	item.LicenseTier = t.Name
	item.UnitPrice = t.Price

	if item.MinQty <= 0 {
		item.MinQty = l.minQty
	}
	if item.MaxQty <= 0 {
		item.MaxQty = l.maxQty
	}
	if item.MaxQty < item.MinQty {
		return LineItem{}, fmt.Errorf("item %s bounds %d..%d: %w", item.ID, item.MinQty, item.MaxQty, ErrInvalidItem)
	}
	item.Quantity = item.clamp(item.Quantity)
	return item, nil
}
