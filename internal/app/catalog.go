package app

import "github.com/noah-isme/marketplace-cart/internal/cart"

// DefaultCatalog is the cart seeded when a session is created without rows.
func DefaultCatalog() []cart.SeedItem {
	licenses := func(personal, commercial string) []cart.SeedTier {
		return []cart.SeedTier{
			{Name: "personal", Price: personal},
			{Name: "commercial", Price: commercial},
		}
	}
	return []cart.SeedItem{
		{ID: "dashboard-kit", Title: "Admin Dashboard UI Kit", Quantity: "1", License: "personal", Tiers: licenses("$49.00", "$99.00")},
		{ID: "landing-pack", Title: "SaaS Landing Page Pack", Quantity: "1", License: "personal", Tiers: licenses("$29.00", "$59.00")},
		{ID: "icon-set", Title: "Line Icon Set", Quantity: "1", License: "personal", Tiers: licenses("$0.00", "$10.00")},
	}
}
