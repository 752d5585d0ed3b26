package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/scanpay/api/internal/cashier"
	"github.com/scanpay/api/internal/config"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/events"
	"github.com/scanpay/api/internal/geofence"
	mw "github.com/scanpay/api/internal/middleware"
	"github.com/scanpay/api/internal/payment"
	"github.com/scanpay/api/internal/receipt"
	"github.com/scanpay/api/internal/router"
	"github.com/scanpay/api/internal/service"
	"github.com/scanpay/api/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARN: no .env file found, using environment")
	}
	cfg := config.Load()
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		log.Println("WARN: RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set, online checkout will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	queries := database.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("WARN: redis unreachable, receipts fall back to the database: %v", err)
	}
	receipts := receipt.NewStore(rdb, cfg.ReceiptTTL)

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifiers := events.Multi{events.NewHubNotifier(hub)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		log.Printf("Publishing committed orders to kafka topic %s", cfg.KafkaTopic)
	}

	gateway := payment.NewRazorpay(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, &http.Client{Timeout: cfg.CallTimeout})
	pipeline := service.NewPipeline(service.Config{
		Store:         queries,
		Gateway:       gateway,
		GatewaySecret: gateway.KeySecret(),
		Cashiers:      cashier.NewVerifier(queries),
		Receipts:      receipts,
		Notifier:      notifiers,
		CallTimeout:   cfg.CallTimeout,
		Location:      cfg.Location(),
	})

	limiter := mw.NewUserRateLimiter(cfg.CashierLookupRPS, cfg.CashierLookupBurst)
	go limiter.CleanupLoop(ctx, 5*time.Minute)

	r := router.New(cfg, router.Deps{
		Queries:  queries,
		Sessions: service.NewSessions(),
		Pipeline: pipeline,
		Gateway:  gateway,
		Receipts: receipts,
		QR:       receipt.QRGenerator{BaseURL: cfg.PublicBaseURL},
		Hub:      hub,
		Gate: geofence.Gate{
			Anchor:       geofence.Coordinate{Lat: cfg.StoreLat, Lng: cfg.StoreLng},
			RadiusMeters: cfg.GeofenceRadiusM,
		},
		CashierLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
