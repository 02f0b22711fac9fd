package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/marketplace-cart/internal/config"
	"github.com/noah-isme/marketplace-cart/internal/events"
	"github.com/noah-isme/marketplace-cart/internal/handoff"
	"github.com/noah-isme/marketplace-cart/internal/health"
	"github.com/noah-isme/marketplace-cart/internal/obs"
	"github.com/noah-isme/marketplace-cart/internal/ratelimit"
	"github.com/noah-isme/marketplace-cart/internal/resilience"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// Dependencies enumerates the services shared across the cart and checkout modules.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Redis   *redis.Client
	Handoff handoff.Store
	Probes  map[string]health.Pinger
	Coupons voucher.Table
	Events  *events.Bus

	CouponLimiter *limiter.Limiter

	Registerer  prometheus.Registerer
	Gatherer    prometheus.Gatherer
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
}

// NewDependencies builds the shared services. A configured REDIS_URL backs the
// handoff store and rate limiter with Redis; otherwise both stay in memory.
// The returned cleanup closes whatever was opened.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer, gather prometheus.Gatherer) (*Dependencies, func(), error) {
	d := &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Registerer: reg,
		Gatherer:   gather,
		Probes:     map[string]health.Pinger{},
	}
	cleanup := func() {}

	coupons, err := voucher.TableFromSpec(cfg.CouponCodes)
	if err != nil {
		return nil, cleanup, fmt.Errorf("coupon table: %w", err)
	}
	d.Coupons = coupons

	if cfg.Obs.EnablePrometheus {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
		d.HTTPMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.HTTPBuckets), reg)
	}

	if cfg.UseRedis() {
		client, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.EnablePrometheus, logger)
		if err != nil {
			return nil, cleanup, err
		}
		d.Redis = client
		cleanup = func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}
		store := handoff.RedisStore{R: client, TTL: cfg.HandoffTTL}
		d.Handoff = handoff.GuardedStore{
			Store:   store,
			Breaker: &resilience.Breaker{
				Target:  "handoff",
				OpenFor: cfg.HandoffBreakerOpenFor,
				Logger:  logger,
			},
		}
		d.Probes["handoff"] = store
	} else {
		store := handoff.NewMemoryStore(cfg.HandoffTTL)
		d.Handoff = store
		d.Probes["handoff"] = store
	}

	d.CouponLimiter, err = ratelimit.New(cfg.CouponRateLimit, d.Redis, "ratelimit:coupon")
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	notifiers := []events.Notifier{events.LogNotifier{Logger: logger}}
	if obs.EventsTotal != nil {
		notifiers = append(notifiers, events.NewMetricsNotifier(obs.EventsTotal))
	}
	d.Events = &events.Bus{Notifiers: notifiers}
	return d, cleanup, nil
}

// NewRedis connects to Redis and instruments the client with OpenTelemetry.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
