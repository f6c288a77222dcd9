package app

import (
	"context"
	"courier-dispatch-service/internal/adapters/cache"
	"courier-dispatch-service/internal/adapters/gateway"
	"courier-dispatch-service/internal/adapters/geocode"
	"courier-dispatch-service/internal/adapters/repositories"
	"courier-dispatch-service/internal/config"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/db"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/platform/redisclient"
	"courier-dispatch-service/internal/ports"
	"courier-dispatch-service/internal/services"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Wire bundles the connections, adapters and services built from Config.
// DB, Redis and Gateway are nil when their settings are absent.
type Wire struct {
	Config config.Config

	DB    *sql.DB
	Redis *redis.Client

	Resolver *services.Resolver
	Pricing  ports.PricingSource
	Gateway  *gateway.HTTPOrderGateway
}

// Option overrides a dependency NewWire would otherwise build.
type Option func(*wireOptions)

type wireOptions struct {
	geocoder ports.Geocoder
	gateway  *gateway.HTTPOrderGateway
}

// WithGeocoder replaces the HTTP geocoder, e.g. with a geocode.MockGeocoder.
func WithGeocoder(g ports.Geocoder) Option {
	return func(o *wireOptions) { o.geocoder = g }
}

func WithGateway(g *gateway.HTTPOrderGateway) Option {
	return func(o *wireOptions) { o.gateway = g }
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg config.Config, opts ...Option) (_ *Wire, err error) {
	var o wireOptions
	for _, opt := range opts {
		opt(&o)
	}

	w := &Wire{Config: cfg}
	defer func() {
		if err != nil {
			_ = w.Close()
		}
	}()

	log := obs.FromContext(ctx)

	// Optional stores
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		if w.DB, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		log.Info("postgres connected")
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		if w.Redis, err = redisclient.Open(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
		log.Info("redis connected")
	}

	// Geocoding: provider, cache, resolver
	geocoder := o.geocoder
	if geocoder == nil {
		if geocoder, err = geocode.NewHTTPGeocoder(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent); err != nil {
			return nil, fmt.Errorf("new wire: %w", err)
		}
	}

	var geocodeCache ports.GeocodeCache
	switch {
	case w.Redis != nil:
		geocodeCache = cache.NewRedisGeocodeCache(w.Redis, cfg.GeocodeCacheTTL)
	case w.DB != nil:
		geocodeCache = cache.NewSQLGeocodeCache(w.DB)
	}

	ropts := services.DefaultResolverOptions()
	ropts.Interval = cfg.GeocoderInterval
	ropts.MaxAttempts = cfg.GeocoderMaxAttempts
	if w.Resolver, err = services.NewResolver(geocoder, geocodeCache, ropts); err != nil {
		return nil, fmt.Errorf("new wire: %w", err)
	}

	// Pricing
	static := services.StaticPricing{PricePerKg: cfg.DefaultPricePerKg}
	w.Pricing = static
	if w.DB != nil {
		w.Pricing = services.FallbackPricing{
			Primary:  repositories.NewSQLPricingSource(w.DB),
			Fallback: static,
		}
	}

	// Order gateway
	w.Gateway = o.gateway
	if w.Gateway == nil && strings.TrimSpace(cfg.GatewayBaseURL) != "" {
		creds, err := Credentials(cfg)
		if err != nil {
			return nil, fmt.Errorf("new wire: %w", err)
		}
		if w.Gateway, err = gateway.NewHTTPOrderGateway(cfg.GatewayBaseURL, creds); err != nil {
			return nil, fmt.Errorf("new wire: %w", err)
		}
	}

	return w, nil
}

// Credentials prefers a static GATEWAY_TOKEN and otherwise mints tokens
// signed with GATEWAY_JWT_SECRET.
func Credentials(cfg config.Config) (ports.CredentialProvider, error) {
	if strings.TrimSpace(cfg.GatewayToken) != "" {
		return gateway.StaticToken(cfg.GatewayToken), nil
	}
	if cfg.GatewayJWTSecret != "" {
		creds, err := gateway.NewJWTCredentials(cfg.GatewayJWTSecret, cfg.GatewayJWTSubject, gateway.DefaultTokenTTL, nil)
		if err != nil {
			return nil, err
		}
		return creds, nil
	}
	return nil, errors.New("GATEWAY_TOKEN or GATEWAY_JWT_SECRET is required with GATEWAY_BASE_URL")
}

// NewSession returns a fresh quote session on the shared resolver and gateway.
func (w *Wire) NewSession() (*services.QuoteSession, error) {
	deps := services.SessionDeps{
		Resolver:    w.Resolver,
		Pricing:     w.Pricing,
		CountryBias: w.Config.CountryBias,
	}
	if w.Gateway != nil {
		deps.Gateway = w.Gateway
		deps.Couriers = w.Gateway
	}
	return services.NewQuoteSession(deps)
}

// SimulatorOptions returns the configured tracking interval and step.
func (w *Wire) SimulatorOptions(onUpdate func(domain.TrackedDelivery)) []services.SimulatorOption {
	opts := []services.SimulatorOption{
		services.WithInterval(w.Config.TrackingInterval),
		services.WithDistanceStep(w.Config.TrackingDistanceStepKm),
	}
	if onUpdate != nil {
		opts = append(opts, services.WithOnUpdate(onUpdate))
	}
	return opts
}

// Migrate creates the schema and seeds pricing from SEED_PATH.
func (w *Wire) Migrate(ctx context.Context) (seeded int, err error) {
	defer obs.Time(ctx, "app.Migrate")(&err)

	if w.DB == nil {
		return 0, errors.New("migrate: DATABASE_URL is not set")
	}
	if err := repositories.InitSchema(ctx, w.DB); err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	seeded, err = repositories.SeedFromJSON(ctx, w.DB, w.Config.SeedPath)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	return seeded, nil
}

func (w *Wire) Close() error {
	var errs []error
	if w.Redis != nil {
		errs = append(errs, w.Redis.Close())
	}
	if w.DB != nil {
		errs = append(errs, w.DB.Close())
	}
	return errors.Join(errs...)
}
