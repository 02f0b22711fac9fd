package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/marketplace-cart/internal/app"
)

func sweepSessions(ctx context.Context, svcs app.Services, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svcs.Cart.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("swept idle cart sessions")
			}
			if n := svcs.Checkout.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("swept idle checkout sessions")
			}
		}
	}
}
