package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/marketplace-cart/internal/pricing"
)

// SeedTier is a license option as rendered on the page, price as a decimal string.
type SeedTier struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// SeedItem mirrors one rendered cart row.
type SeedItem struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Quantity string     `json:"quantity"`
	MinQty   int        `json:"min"`
	MaxQty   int        `json:"max"`
	License  string     `json:"license"`
	Tiers    []SeedTier `json:"licenses"`
}

// LineItem converts the rendered row into a line item. A quantity that is not
// an integer is left at zero and clamps to the minimum.
func (s SeedItem) LineItem() (LineItem, error) {
	tiers := make([]Tier, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		price, err := pricing.ParseMoney(t.Price)
		if err != nil {
			return LineItem{}, fmt.Errorf("item %s tier %q: %w", s.ID, t.Name, ErrInvalidItem)
		}
		tiers = append(tiers, Tier{Name: t.Name, Price: price})
	}
	qty, _ := strconv.Atoi(strings.TrimSpace(s.Quantity))
	return LineItem{
		ID:          s.ID,
		Title:       strings.TrimSpace(s.Title),
		Tiers:       tiers,
		LicenseTier: s.License,
		Quantity:    qty,
		MinQty:      s.MinQty,
		MaxQty:      s.MaxQty,
	}, nil
}

// Load builds a ledger from the rows already rendered on the cart page.
func Load(opts Options, seeds []SeedItem) (*Ledger, error) {
	items := make([]LineItem, 0, len(seeds))
	for _, s := range seeds {
		it, err := s.LineItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return New(opts, items...)
}
