package api

import (
	"courier-dispatch-service/internal/api/handlers"
	"courier-dispatch-service/internal/ports"
	"courier-dispatch-service/internal/services"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// Deps are the services the HTTP layer depends on. Couriers and Tracking
// may be nil when no order gateway is configured.
type Deps struct {
	NewSession func() (*services.QuoteSession, error)
	Couriers   ports.CourierSource
	Tracking   *services.TrackingRegistry

	QuoteRateLimit string
	Redis          *redis.Client
	CORSOrigins    []string
}

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports validation failures under the wire name.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// NewRouter wires HTTP handlers with their dependencies.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.NewSession == nil {
		return nil, errors.New("new router: session factory is nil")
	}

	r := gin.New()
	r.Use(requestID(), accessLog(), recovery(), corsMiddleware(d.CORSOrigins))

	quoteLimit, err := rateLimiter(d.QuoteRateLimit, "quotes", d.Redis)
	if err != nil {
		return nil, err
	}
	orderLimit, err := rateLimiter(d.QuoteRateLimit, "orders", d.Redis)
	if err != nil {
		return nil, err
	}

	quotes := &handlers.QuoteHandler{NewSession: d.NewSession}

	r.GET("/health", handlers.Health)
	r.POST("/quotes", quoteLimit, quotes.Quote)
	r.POST("/orders", orderLimit, quotes.CreateOrder)

	if d.Couriers != nil {
		couriers := &handlers.CourierHandler{Couriers: d.Couriers}
		r.GET("/couriers", couriers.List)
	} else {
		r.GET("/couriers", unavailable("order gateway"))
	}

	orders := r.Group("/orders/:id")
	if d.Tracking != nil {
		tracking := &handlers.TrackingHandler{Registry: d.Tracking}
		orders.POST("/tracking", tracking.Start)
		orders.GET("/tracking", tracking.Get)
		orders.DELETE("/tracking", tracking.Stop)
		orders.PUT("/status", tracking.UpdateStatus)
	} else {
		orders.Any("/tracking", unavailable("order gateway"))
		orders.PUT("/status", unavailable("order gateway"))
	}

	return r, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
