// Package main provides the unified perp-stats service:
// - Historical trade catch-up (startup): replay agent responses past the watermark
// - Live ingestion (continuous): hub WebSocket aa_response subscription
// - Backfill + realtime stats (hourly cron): snapshot history maintenance
// - HTTP API: weekly/monthly price series queries
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/byteball/perp-stats/internal/api"
	"github.com/byteball/perp-stats/internal/backfill"
	"github.com/byteball/perp-stats/internal/ingestion"
	"github.com/byteball/perp-stats/internal/obyte"
	"github.com/byteball/perp-stats/internal/priceprovider"
	"github.com/byteball/perp-stats/internal/stats"
	"github.com/byteball/perp-stats/internal/storage"
	"github.com/byteball/perp-stats/internal/storage/memory"
	"github.com/byteball/perp-stats/internal/storage/migrations"
	pgstore "github.com/byteball/perp-stats/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	rpcEndpoint string
	wsEndpoint  string
	baseAAs     []string
	vsCurrency  string
	httpAddr    string

	snapshots storage.SnapshotStore
	trades    storage.TradeStore

	logger *log.Logger
}

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("OBYTE_RPC_ENDPOINT"), "Obyte hub JSON-RPC endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("OBYTE_WS_ENDPOINT"), "Obyte hub WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	baseAAs := flag.String("base-aas", os.Getenv("BASE_AAS"), "Comma-separated base agent addresses to track")
	vsCurrency := flag.String("vs-currency", "usd", "Quote currency for market price lookups")
	httpAddr := flag.String("http-addr", ":8080", "HTTP API listen address")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	agentList := splitList(*baseAAs)
	if len(agentList) == 0 {
		logger.Fatal("--base-aas is required")
	}
	logger.Printf("Tracking base agents: %v", agentList)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	snapshots, trades, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		rpcEndpoint: *rpcEndpoint,
		wsEndpoint:  *wsEndpoint,
		baseAAs:     agentList,
		vsCurrency:  *vsCurrency,
		httpAddr:    *httpAddr,
		snapshots:   snapshots,
		trades:      trades,
		logger:      logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !isCanceled(err) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// isCanceled reports whether err is a context cancellation, including
// wrapped ones returned by collaborators.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// splitList splits a comma-separated flag value into trimmed items.
func splitList(raw string) []string {
	var list []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

// createStores creates the snapshot and trade stores and applies
// migrations when Postgres is used.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (storage.SnapshotStore, storage.TradeStore, func(), error) {
	if useMemory {
		return memory.NewSnapshotStore(), memory.NewTradeStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return pgstore.NewSnapshotStore(pool), pgstore.NewTradeStore(pool), pool.Close, nil
}

// Run starts all components and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	client := obyte.NewHTTPClient(s.rpcEndpoint)

	ws, err := obyte.NewWSClient(ctx, s.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	provider := priceprovider.NewCoinGeckoClient()

	orch := backfill.NewOrchestrator(backfill.Options{
		Client:     client,
		Provider:   provider,
		Snapshots:  s.snapshots,
		Trades:     s.trades,
		BaseAAs:    s.baseAAs,
		VsCurrency: s.vsCurrency,
		Logger:     log.New(os.Stdout, "[backfill] ", log.LstdFlags|log.Lshortfile),
	})

	statsJob := stats.NewJob(stats.Options{
		Client:    client,
		Snapshots: s.snapshots,
		BaseAAs:   s.baseAAs,
		Logger:    log.New(os.Stdout, "[stats] ", log.LstdFlags|log.Lshortfile),
	})

	dispatcher := ingestion.NewDispatcher(ingestion.Options{
		Client:     client,
		Subscriber: ws,
		Trades:     s.trades,
		Logger:     log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile),
	})

	errCh := make(chan error, 2)

	// Live ingestion runs for the process lifetime.
	go func() {
		if err := dispatcher.RunLive(ctx); err != nil && !isCanceled(err) {
			errCh <- fmt.Errorf("live ingestion: %w", err)
		}
	}()

	// Historical catch-up runs once at startup, concurrently with the
	// live path; duplicate writes resolve at the store.
	go s.runCatchUp(ctx, client, dispatcher)

	// Hourly jobs. Each run recomputes its watermark from history, so
	// overlapping or restarted runs stay idempotent.
	runJobs := func() {
		if err := orch.Run(ctx); err != nil {
			s.logger.Printf("Backfill pass failed: %v", err)
		}
		if err := statsJob.Run(ctx); err != nil {
			s.logger.Printf("Stats pass failed: %v", err)
		}
	}
	go runJobs()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", runJobs); err != nil {
		return fmt.Errorf("schedule hourly jobs: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP API
	httpServer := &http.Server{
		Addr:    s.httpAddr,
		Handler: api.NewHandler(s.snapshots, log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile)).Router(),
	}

	go func() {
		s.logger.Printf("Starting HTTP server on %s", s.httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runCatchUp replays missed agent responses past the trade watermark.
func (s *Server) runCatchUp(ctx context.Context, client obyte.Client, dispatcher *ingestion.Dispatcher) {
	lastMCI, err := backfill.ResolveLastMCI(ctx, s.trades)
	if err != nil {
		s.logger.Printf("Catch-up skipped: %v", err)
		return
	}

	descriptors, err := client.GetAAsByBaseAAs(ctx, s.baseAAs)
	if err != nil {
		s.logger.Printf("Catch-up skipped: enumerate agents: %v", err)
		return
	}

	addresses := make([]string, 0, len(descriptors))
	for _, agent := range descriptors {
		addresses = append(addresses, agent.Address)
	}

	s.logger.Printf("Starting catch-up for %d agents from MCI %d", len(addresses), lastMCI)
	dispatcher.CatchUp(ctx, addresses, lastMCI)
	s.logger.Println("Catch-up complete")
}
