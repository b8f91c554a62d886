// Command gantryflow serves the toll-road analytics API: raw transaction
// access, section statistics, privacy-protected truck analytics, and the
// natural-language query agents, backed by a sqlite database kept current
// by the hourly flow rollup worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tollgate-data/gantryflow/internal/agent"
	"github.com/tollgate-data/gantryflow/internal/api"
	"github.com/tollgate-data/gantryflow/internal/config"
	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/version"
)

var (
	listen              = flag.String("listen", ":8080", "Listen address")
	dbPath              = flag.String("db", "tollroad.db", "Path to database file")
	configPath          = flag.String("config", "", "Path to JSON config file (optional)")
	devMode             = flag.Bool("dev", false, "Run in dev mode (API key check disabled when no key is configured)")
	disableRollupWorker = flag.Bool("disable-rollup-worker", false, "Do not start the hourly flow rollup worker")
)

func main() {
	flag.Parse()

	// Subcommands that manage the database directly, then exit.
	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "migrate":
			db.RunMigrateCommand(args[1:], *dbPath)
			return
		case "rollup":
			runRollupCommand(args[1:], *dbPath)
			return
		default:
			log.Fatalf("Unknown command: %s (want migrate or rollup)", args[0])
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	apiKey := cfg.GetAPIKey()
	if apiKey == "" && !*devMode {
		log.Printf("⚠️  No API key configured; raw transaction routes are open. Set api_key in the config file or pass -dev to silence this warning.")
	}

	// The agents are optional: without a model key the SQL routes return
	// 503 and the planner answers from its keyword rules.
	var sqlAgent *agent.SQLAgent
	var planner *agent.Planner
	modelClient := agent.NewClient(cfg.GetAgentBaseURL(), cfg.GetAgentModel(), cfg.GetAgentKey(), cfg.GetAgentTimeout(), nil)
	if modelClient.Enabled() {
		sqlAgent = agent.NewSQLAgent(modelClient, database, cfg.GetAgentSQLLimit(), cfg.GetAgentSQLMaxRows())
		log.Printf("SQL agent enabled (model %s)", cfg.GetAgentModel())
	} else {
		log.Printf("No model API key configured; SQL agent routes disabled")
	}
	planner = agent.NewPlanner(modelClient)

	worker := db.NewFlowWorker(database)
	worker.Interval = cfg.GetRollupInterval()
	worker.Window = cfg.GetRollupWindow()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rollup worker goroutine
	if !*disableRollupWorker {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.RunOnce(ctx); err != nil {
				log.Printf("failed to run initial rollup: %v", err)
			}
			worker.Start()
			<-ctx.Done()
			worker.Stop()
			log.Printf("rollup worker stopped")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes alongside the API
		database.AttachAdminRoutes(mux)

		server := api.NewServer(database, apiKey, cfg.GetDefaultK(), sqlAgent, planner)
		mux.Handle("/api/", server.ServeMux())
		mux.Handle("/debug/charts/", server.ServeMux())

		httpServer := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("gantryflow %s listening on %s (db %s)", version.String(), *listen, *dbPath)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// runRollupCommand backfills hourly flow rollups for an explicit window.
func runRollupCommand(args []string, dbPath string) {
	fs := flag.NewFlagSet("rollup", flag.ExitOnError)
	start := fs.String("start", "", "Window start (YYYY-MM-DD, required)")
	end := fs.String("end", "", "Window end (YYYY-MM-DD, required)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse rollup flags: %v", err)
	}
	if *start == "" || *end == "" {
		fmt.Println("Usage: gantryflow rollup -start YYYY-MM-DD -end YYYY-MM-DD [-db path]")
		os.Exit(1)
	}

	startTime, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	endTime, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}
	// Make the end date inclusive.
	endTime = endTime.Add(24*time.Hour - time.Nanosecond)

	database, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	worker := db.NewFlowWorker(database)
	log.Printf("Backfilling rollups for %s to %s...", *start, *end)
	if err := worker.RunRange(context.Background(), startTime, endTime); err != nil {
		log.Fatalf("Rollup backfill failed: %v", err)
	}
	log.Printf("✓ Rollups backfilled for %s to %s", *start, *end)
}
