package main

import (
	"context"
	"courier-dispatch-service/internal/api"
	"courier-dispatch-service/internal/app"
	"courier-dispatch-service/internal/config"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/services"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, geocoder, order gateway)
// behind ports and starts the HTTP server.
func main() {
	if err := run(); err != nil {
		obs.Logger.WithError(err).Fatal("server stopped")
	}
}

func run() error {
	envLoaded := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := obs.Configure(obs.LogOptions{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}); err != nil {
		return err
	}
	if !envLoaded {
		obs.Logger.Info("no .env file found (using environment variables)")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := app.NewWire(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	// Initialize schema and seed pricing on startup for local runs.
	if cfg.AutoMigrate {
		seeded, err := w.Migrate(ctx)
		if err != nil {
			return err
		}
		obs.Logger.WithField("seeded", seeded).Info("schema ready")
	}

	deps := api.Deps{
		NewSession:     w.NewSession,
		QuoteRateLimit: cfg.QuoteRateLimit,
		Redis:          w.Redis,
		CORSOrigins:    cfg.CORSOrigins,
	}

	var registry *services.TrackingRegistry
	if w.Gateway != nil {
		registry, err = services.NewTrackingRegistry(w.Gateway, w.SimulatorOptions(logUpdate)...)
		if err != nil {
			return err
		}
		defer registry.StopAll()

		deps.Couriers = w.Gateway
		deps.Tracking = registry
	} else {
		obs.Logger.Warn("GATEWAY_BASE_URL not set; orders and tracking are disabled")
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		return err
	}

	// Timeouts are tuned for cold-cache quoting (two rate-limited geocoder calls).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		obs.Logger.WithField("addr", srv.Addr).Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	obs.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logUpdate(d domain.TrackedDelivery) {
	obs.Logger.WithFields(logrus.Fields{
		"order_id":     d.OrderID,
		"lat":          d.CurrentLocation.Lat,
		"lng":          d.CurrentLocation.Lng,
		"remaining_km": d.RemainingDistanceKm,
		"eta_min":      d.RemainingEtaMinutes,
	}).Debug("tracking update")
}
