package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-events/config"
	"campus-events/internal/handlers"
	"campus-events/internal/services"
	"campus-events/internal/services/checkout"
	"campus-events/internal/services/checkout/devpay"
	"campus-events/internal/services/checkout/razorpay"
	"campus-events/monitoring"
	"campus-events/security"
	"campus-events/utils"

	_ "campus-events/migrations"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	// Initialize services
	bookingService := services.NewBookingService(app, redisClient, pn, gateway, cfg)
	checkinService := services.NewCheckinService(pn, cfg.ScanStatusTTL, cfg.ScanSessionTTL)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(app, cfg)
	bookingHandler := handlers.NewBookingHandler(app, bookingService, cfg)
	checkinHandler := handlers.NewCheckinHandler(app, checkinService, cfg)
	dashboardHandler := handlers.NewDashboardHandler(app, cfg)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go checkinService.CleanupIdleSessions(ctx, cfg.CleanupInterval)

	monitor := monitoring.NewMonitor(redisClient)
	go monitor.Collect(ctx)

	if cfg.EnableMetrics {
		go serveMetrics(ctx, cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	limiter := security.NewRateLimiter(redisClient)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncActiveEventsToRedis(app, redisClient)

		e.Router.BindFunc(limiter.RequestLimit())
		e.Router.BindFunc(limiter.AntiBot())

		// Event endpoints
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.POST("/api/v1/events", eventHandler.CreateEvent)
		e.Router.PATCH("/api/v1/events/{eventId}", eventHandler.UpdateEvent)
		e.Router.DELETE("/api/v1/events/{eventId}", eventHandler.DeleteEvent)

		// Booking endpoints
		e.Router.POST("/api/v1/bookings/checkout", bookingHandler.Checkout)
		e.Router.GET("/api/v1/bookings/history", bookingHandler.BookingHistory)

		// Payment callback endpoints
		e.Router.POST("/api/v1/payments/callback", bookingHandler.PaymentCallback)
		e.Router.POST("/api/v1/payments/failed", bookingHandler.PaymentFailed)

		// Check-in endpoints
		e.Router.POST("/api/v1/checkin/sessions", checkinHandler.StartSession)
		e.Router.POST("/api/v1/checkin/sessions/{sessionId}/scan", checkinHandler.Scan)
		e.Router.GET("/api/v1/checkin/sessions/{sessionId}/entries", checkinHandler.ListEntries)
		e.Router.GET("/api/v1/checkin/sessions/{sessionId}/export", checkinHandler.ExportSession)
		e.Router.POST("/api/v1/checkin/sessions/{sessionId}/import", checkinHandler.ImportSession)
		e.Router.DELETE("/api/v1/checkin/sessions/{sessionId}", checkinHandler.CloseSession)

		// Dashboard endpoints
		e.Router.GET("/api/v1/dashboard/stats", dashboardHandler.Stats)
		e.Router.GET("/api/v1/events/{eventId}/attendees", dashboardHandler.Attendees)
		e.Router.GET("/api/v1/events/{eventId}/attendees/export", dashboardHandler.ExportAttendees)
		e.Router.GET("/api/v1/support", dashboardHandler.Support)

		// Test endpoint for payment simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", bookingHandler.SimulatePayment)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app, redisClient)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// newGateway picks the checkout gateway for the configured provider.
// Development defaults to the in-process one when no API key is set.
func newGateway(ctx context.Context, cfg *config.Config) (checkout.Gateway, error) {
	if cfg.Checkout.Provider == string(checkout.ProviderDevpay) ||
		(cfg.Environment == "development" && cfg.Checkout.KeyID == "") {
		slog.Info("using in-process checkout gateway")
		return devpay.New(&devpay.Config{Secret: cfg.Checkout.KeySecret}), nil
	}

	return razorpay.New(ctx, &razorpay.ClientConfig{
		BaseURL:       cfg.Checkout.BaseURL,
		KeyID:         cfg.Checkout.KeyID,
		KeySecret:     cfg.Checkout.KeySecret,
		WebhookSecret: cfg.Checkout.WebhookSecret,
	})
}

func serveMetrics(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics server listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server stopped", "error", err)
	}
}

func syncActiveEventsToRedis(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	var records []dbx.NullStringMap
	if err := app.DB().NewQuery(
		"SELECT id FROM events WHERE status = 'active'",
	).All(&records); err != nil {
		log.Printf("Error fetching active events: %v", err)
		return
	}

	// Clear existing active_events set
	redisClient.Del(ctx, "active_events")

	if len(records) > 0 {
		var eventIDs []interface{}
		for _, record := range records {
			if id := record["id"].String; id != "" {
				eventIDs = append(eventIDs, id)
			}
		}

		if len(eventIDs) > 0 {
			redisClient.SAdd(ctx, "active_events", eventIDs...)
			log.Printf("Synced %d active events to Redis", len(eventIDs))
		}
	}
}

// setupEventHooks keeps the Redis active_events set in step with the
// events collection so the monitor gauge stays accurate.
func setupEventHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		ctx := e.Request.Context()

		eventID := e.Record.Id
		if e.Record.GetString("status") == "active" {
			if err := redisClient.SAdd(ctx, "active_events", eventID).Err(); err != nil {
				// Redis sync is best effort, never fail the request for it.
				slog.Error("Failed to add active event to Redis", "eventID", eventID, "error", err)
			}
		}
		return e.Next()
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		ctx := e.Request.Context()

		eventID := e.Record.Id
		if e.Record.GetString("status") == "active" {
			if err := redisClient.SAdd(ctx, "active_events", eventID).Err(); err != nil {
				slog.Error("Failed to add active event to Redis", "eventID", eventID, "error", err)
			}
		} else {
			if err := redisClient.SRem(ctx, "active_events", eventID).Err(); err != nil {
				slog.Error("Failed to remove inactive event from Redis", "eventID", eventID, "error", err)
			}
		}
		return e.Next()
	})

	app.OnRecordDeleteRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		ctx := e.Request.Context()

		if err := redisClient.SRem(ctx, "active_events", e.Record.Id).Err(); err != nil {
			slog.Error("Failed to remove deleted event from Redis", "eventID", e.Record.Id, "error", err)
		}
		return e.Next()
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
