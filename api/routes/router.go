package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/servicecart/api/controllers"
	bookingcontrollers "github.com/angelmondragon/servicecart/api/controllers/bookings"
	cartcontrollers "github.com/angelmondragon/servicecart/api/controllers/cart"
	"github.com/angelmondragon/servicecart/api/middleware"
	"github.com/angelmondragon/servicecart/pkg/config"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/redis"
)

// Deps are the services the router hands to controllers. Redis may be nil, which disables
// rate limiting and idempotent replays.
type Deps struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Carts    cartcontrollers.Carts
	Bookings bookingcontrollers.Service
	// Metrics serves /metrics; promhttp.Handler() is used when nil.
	Metrics http.Handler
	// Heartbeat is the keep-alive interval of the cart event stream.
	Heartbeat time.Duration
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	bookingPolicy := middleware.NewRateLimitPolicy(
		"booking",
		cfg.RateLimit.BookingWindow,
		cfg.RateLimit.BookingLimit,
		cfg.RateLimit.BookingEmailLimit,
	)

	readiness := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Visitor(middleware.VisitorCookie{
			Name:   cfg.Cart.CookieName,
			Secure: cfg.Cart.CookieSecure,
		}, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(deps.Carts, logg))
			r.Delete("/", cartcontrollers.Clear(deps.Carts, logg))
			r.Get("/contains", cartcontrollers.Contains(deps.Carts, logg))
			r.Get("/events", cartcontrollers.Events(deps.Carts, deps.Heartbeat, logg))
			r.Post("/items", cartcontrollers.AddItem(deps.Carts, logg))
			r.Patch("/items/{itemId}", cartcontrollers.UpdateQuantity(deps.Carts, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(deps.Carts, logg))
		})

		r.With(
			middleware.Idempotency(deps.Redis, cfg.RateLimit.IdempotencyTTL, logg),
			middleware.RateLimit(bookingPolicy, deps.Redis, logg),
		).Post("/bookings", bookingcontrollers.Create(deps.Bookings, logg))
	})

	if cfg.App.AdminEnabled() {
		creds := middleware.AdminCredentials{Token: cfg.App.AdminToken, Hash: cfg.App.AdminTokenHash}
		r.Route("/api/admin/v1", func(r chi.Router) {
			r.Use(middleware.AdminAuth(creds, logg))
			r.Get("/bookings", bookingcontrollers.List(deps.Bookings, logg))
			r.Get("/bookings/{bookingId}", bookingcontrollers.Get(deps.Bookings, logg))
			r.Patch("/bookings/{bookingId}/status", bookingcontrollers.UpdateStatus(deps.Bookings, logg))
		})
	}

	return r
}
