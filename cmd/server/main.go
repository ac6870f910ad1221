/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Swasthyam oil budget engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration
  2. Parse command-line flags (override environment)
  3. Initialize SQLite store and harm table
  4. Create engine, API handler, and router
  5. Start the audit scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080 or $PORT)
  -db      SQLite database path (default: ./data/swasthyam.db or $DB_PATH)
           Use ":memory:" for in-memory database
  -harm    Path to a JSON harm table (default: built-in or $HARM_TABLE_PATH)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the audit scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/swasthyam.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with a custom harm table
  ./server -harm="./harm_scores.json"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swasthyam/oil-engine/api"
	"github.com/swasthyam/oil-engine/config"
	"github.com/swasthyam/oil-engine/engine"
	"github.com/swasthyam/oil-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	harmPath := flag.String("harm", cfg.HarmTablePath, "JSON harm table path (empty for built-in)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Harm table: file if given, built-in otherwise
	harm := engine.DefaultHarmTable(cfg.DefaultHarmScore)
	if *harmPath != "" {
		harm, err = engine.LoadHarmTable(*harmPath, cfg.DefaultHarmScore)
		if err != nil {
			log.Fatalf("Failed to load harm table: %v", err)
		}
		log.Printf("Loaded harm table from %s (%d oils)", *harmPath, len(harm.Oils()))
	}

	eng := engine.New(store, harm, engine.DefaultConfig())

	// Initialize handler and router
	handler := api.NewHandler(eng)
	handler.AuditLookbackDays = cfg.AuditLookbackDays
	router := api.NewRouter(handler)

	// Background counter audit
	scheduler := api.NewAuditScheduler(eng)
	scheduler.CheckInterval = cfg.AuditInterval
	scheduler.LookbackDays = cfg.AuditLookbackDays
	scheduler.Enabled = cfg.AuditEnabled
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	scheduler.Stop()
	log.Println("Server stopped")
}
