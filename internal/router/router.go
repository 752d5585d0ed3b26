package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scanpay/api/internal/config"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/geofence"
	"github.com/scanpay/api/internal/handler"
	mw "github.com/scanpay/api/internal/middleware"
	"github.com/scanpay/api/internal/receipt"
	"github.com/scanpay/api/internal/service"
	"github.com/scanpay/api/internal/ws"
)

// Deps are the long-lived components the routes are built on.
type Deps struct {
	Queries        *database.Queries
	Sessions       *service.Sessions
	Pipeline       *service.Pipeline
	Gateway        handler.IntentCreator
	Receipts       *receipt.Store
	QR             handler.QRCoder
	Hub            *ws.Hub
	Gate           geofence.Gate
	CashierLimiter *mw.UserRateLimiter
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, the store geofence, and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	authHandler := handler.NewAuthHandler(d.Queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	feed := handler.GeofenceFeed(d.Sessions, d.Gate)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, feed, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		locationHandler := handler.NewLocationHandler(d.Sessions, d.Gate)
		locationHandler.RegisterRoutes(r)

		productHandler := handler.NewProductHandler(d.Queries)
		r.Route("/products", productHandler.RegisterRoutes)

		insideStore := mw.RequireInsideStore(d.Gate, func(username string) geofence.Event {
			return d.Sessions.Get(username).Location.Last()
		})
		cartHandler := handler.NewCartHandler(d.Sessions, d.Queries, d.Queries, insideStore)
		r.Route("/cart", cartHandler.RegisterRoutes)

		var lookupLimiter func(http.Handler) http.Handler
		if d.CashierLimiter != nil {
			lookupLimiter = d.CashierLimiter.Middleware
		}
		checkoutHandler := handler.NewCheckoutHandler(d.Sessions, d.Pipeline, lookupLimiter)
		r.Route("/checkout", checkoutHandler.RegisterRoutes)

		paymentHandler := handler.NewPaymentHandler(d.Gateway, cfg.RazorpayKeySecret)
		r.Route("/payments", paymentHandler.RegisterRoutes)

		receiptHandler := handler.NewReceiptHandler(d.Receipts, d.Queries, d.QR)
		r.Route("/receipts", receiptHandler.RegisterRoutes)

		// Admin-only routes, usable from inside the store only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Use(insideStore)
			cashierHandler := handler.NewCashierHandler(d.Queries)
			r.Route("/admin/cashiers", cashierHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
