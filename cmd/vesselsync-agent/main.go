// Package main provides the vesselsync agent executable with HTTP API,
// MQTT propagation, and background outbox sweep.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coregx/vesselsync"
	"github.com/coregx/vesselsync/adapters/relica"
	"github.com/coregx/vesselsync/cmd/vesselsync-agent/internal/api"
	"github.com/coregx/vesselsync/cmd/vesselsync-agent/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements vesselsync.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting VesselSync Agent v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Database: %s (%s:%d)", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port)
	log.Printf("   Broker: %s (TLS: %v, default QoS: %d)", cfg.Broker.URL, cfg.Broker.TLS, cfg.Broker.DefaultQoS)
	log.Printf("   Offline queue capacity: %d", cfg.Sync.QueueMax)
	log.Printf("   Outbox sweep interval: %ds", cfg.Sync.OutboxInterval)

	// Apply the configured default delivery policy before any service starts.
	if err := vesselsync.SetDefaultQoS(byte(cfg.Broker.DefaultQoS)); err != nil {
		log.Fatalf("Failed to set default QoS: %v", err)
	}

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database: %v", closeErr)
		}
	}()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create logger
	logger := &SimpleLogger{}

	// Create repositories using Relica adapters
	var repos *relica.Repositories
	if cfg.Database.Prefix != "" {
		repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = relica.NewRepositories(db, cfg.Database.Driver)
	}
	log.Println("✅ Repositories initialized (Relica adapters)")

	// Create notification service
	var notificationService vesselsync.NotificationService
	if cfg.Sync.EnableNotifications {
		notificationService = vesselsync.NewLoggingNotificationService(logger)
	} else {
		notificationService = &vesselsync.NoOpNotificationService{}
	}

	// Shared counters and offline queue
	metrics := vesselsync.NewMetrics()
	queue := vesselsync.NewOfflineQueue(cfg.Sync.QueueMax)

	// Create ConnectionManager
	connOpts := []vesselsync.ConnectionOption{
		vesselsync.WithBrokerURL(cfg.Broker.URL),
		vesselsync.WithClientIDPrefix(cfg.Broker.ClientIDPrefix),
		vesselsync.WithConnectionLogger(logger),
		vesselsync.WithConnectionMetrics(metrics),
		vesselsync.WithReconnectInterval(time.Duration(cfg.Broker.ReconnectInterval) * time.Second),
		vesselsync.WithConnectTimeout(time.Duration(cfg.Broker.ConnectTimeout) * time.Second),
	}
	if cfg.Broker.TLS && !vesselsync.URLUsesTLS(cfg.Broker.URL) {
		// Flag forced TLS on a plain URL scheme; wire an explicit config.
		connOpts = append(connOpts, vesselsync.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	conn, err := vesselsync.NewConnectionManager(connOpts...)
	if err != nil {
		log.Fatalf("Failed to create connection manager: %v", err)
	}
	log.Println("✅ ConnectionManager created")

	// Create Publisher service
	publisher, err := vesselsync.NewPublisher(
		vesselsync.WithPublisherSession(conn),
		vesselsync.WithPublisherQueue(queue),
		vesselsync.WithPublisherLogger(logger),
		vesselsync.WithPublisherMetrics(metrics),
		vesselsync.WithPublisherNotifications(notificationService),
	)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	log.Println("✅ Publisher service created")

	// Create SubscriptionRegistry service
	registry, err := vesselsync.NewSubscriptionRegistry(
		vesselsync.WithRegistrySession(conn),
		vesselsync.WithRegistryLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create subscription registry: %v", err)
	}
	log.Println("✅ SubscriptionRegistry service created")

	// Create CatchupReplayer service
	replayer, err := vesselsync.NewCatchupReplayer(
		vesselsync.WithCatchupSession(conn),
		vesselsync.WithCatchupChangeFeed(repos.ChangeFeed),
		vesselsync.WithCatchupLogger(logger),
		vesselsync.WithCatchupMetrics(metrics),
	)
	if err != nil {
		log.Fatalf("Failed to create catchup replayer: %v", err)
	}
	log.Println("✅ CatchupReplayer service created")

	// Create EventLog with process-local bus
	bus := vesselsync.NewEventBus()
	eventLog, err := vesselsync.NewEventLog(
		vesselsync.WithEventLogRepositories(repos.Journal, repos.Outbox),
		vesselsync.WithEventLogBus(bus),
		vesselsync.WithEventLogLogger(logger),
		vesselsync.WithEventLogNotifications(notificationService),
		vesselsync.WithDeadLetterThreshold(cfg.Sync.DeadLetterThreshold),
		vesselsync.WithEventLogBatchSize(cfg.Sync.OutboxBatchSize),
	)
	if err != nil {
		log.Fatalf("Failed to create event log: %v", err)
	}
	log.Println("✅ EventLog created")

	// Reconnect hooks: resubscribe everything, then drain the offline queue.
	conn.OnConnect(func() { registry.ResubscribeAll() })
	conn.OnConnect(func() { publisher.Flush() })

	// Start the broker session (succeeds in offline mode when no broker is reachable)
	if err := conn.Start(); err != nil {
		log.Fatalf("Failed to start broker session: %v", err)
	}
	log.Printf("✅ Broker session started (state: %s)", conn.State())

	// Start outbox sweep in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Printf("🔄 Starting outbox sweep (interval: %ds)...", cfg.Sync.OutboxInterval)
		eventLog.Run(ctx, time.Duration(cfg.Sync.OutboxInterval)*time.Second)
	}()

	// Create API handler
	health := vesselsync.NewHealthReporter(conn, queue, registry, metrics)
	handler := api.NewHandler(publisher, replayer, eventLog, health, logger)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/publish", handler.HandlePublish)
	mux.HandleFunc("/api/v1/catchup", handler.HandleCatchup)
	mux.HandleFunc("/api/v1/events/failed", handler.HandleFailedEvents)
	mux.HandleFunc("/api/v1/status", handler.HandleStatus)
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST   /api/v1/publish")
		log.Println("   POST   /api/v1/catchup")
		log.Println("   GET    /api/v1/events/failed")
		log.Println("   GET    /api/v1/status")
		log.Println("   GET    /api/v1/health")
		log.Println()
		log.Println("✅ VesselSync Agent is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down agent...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel()    // Stop outbox sweep
	conn.Stop() // Publish retained offline status, then disconnect
	log.Println("✅ Agent stopped gracefully")
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger vesselsync.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
