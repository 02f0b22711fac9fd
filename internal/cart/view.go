package cart

import "github.com/noah-isme/marketplace-cart/internal/pricing"

// TierView is a license option prepared for display.
type TierView struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Selected bool   `json:"selected"`
}

// ItemView is a line item prepared for display.
type ItemView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	License      string     `json:"license"`
	Licenses     []TierView `json:"licenses"`
	Quantity     int        `json:"quantity"`
	MinQty       int        `json:"min"`
	MaxQty       int        `json:"max"`
	UnitPrice    string     `json:"unitPrice"`
	LineTotal    string     `json:"lineTotal"`
	Free         bool       `json:"free"`
	CanIncrement bool       `json:"canIncrement"`
	CanDecrement bool       `json:"canDecrement"`
}

// View is the projection of a ledger consumed by the rendering surface.
type View struct {
	State           State      `json:"state"`
	Empty           bool       `json:"empty"`
	CheckoutEnabled bool       `json:"checkoutEnabled"`
	ItemCount       int        `json:"itemCount"`
	Items           []ItemView `json:"items"`
	Subtotal        string     `json:"subtotal"`
	Discount        string     `json:"discount,omitempty"`
	DiscountCode    string     `json:"discountCode,omitempty"`
	ShowDiscount    bool       `json:"showDiscount"`
	Tax             string     `json:"tax"`
	Total           string     `json:"total"`
}

// View renders the ledger. It never mutates state.
func (l *Ledger) View() View {
	totals := l.totals
	v := View{
		State:           l.State(),
		Empty:           len(l.items) == 0,
		CheckoutEnabled: len(l.items) > 0,
		ItemCount:       len(l.items),
		Items:           make([]ItemView, 0, len(l.items)),
		Subtotal:        pricing.Format(totals.Subtotal),
		Tax:             pricing.Format(totals.Tax),
		Total:           pricing.Format(totals.Total),
	}
	if totals.Discount > 0 {
		v.ShowDiscount = true
		v.Discount = pricing.FormatDiscount(totals.Discount)
		v.DiscountCode = totals.DiscountCode
	}
	for _, it := range l.items {
		licenses := make([]TierView, 0, len(it.Tiers))
		for _, t := range it.Tiers {
			licenses = append(licenses, TierView{
				Name:     t.Name,
				Price:    pricing.Format(t.Price),
				Selected: t.Name == it.LicenseTier,
			})
		}
		v.Items = append(v.Items, ItemView{
			ID:           it.ID,
			Title:        it.Title,
			License:      it.LicenseTier,
			Licenses:     licenses,
			Quantity:     it.Quantity,
			MinQty:       it.MinQty,
			MaxQty:       it.MaxQty,
			UnitPrice:    pricing.FormatLine(it.UnitPrice, it.UnitPrice),
			LineTotal:    pricing.FormatLine(it.UnitPrice, it.LineTotal()),
			Free:         it.UnitPrice == 0,
			CanIncrement: it.Quantity < it.MaxQty,
			CanDecrement: it.Quantity > it.MinQty,
		})
	}
	return v
}
