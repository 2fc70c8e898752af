package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trendwatch/trendwatch/internal/app"
	"github.com/trendwatch/trendwatch/internal/config"
	"github.com/trendwatch/trendwatch/internal/logger"
	"github.com/trendwatch/trendwatch/internal/metrics"
	"github.com/trendwatch/trendwatch/internal/store"
)

func main() {
	var (
		configPath     = flag.String("config", "configs/config.yaml", "path to the YAML config file")
		showPushStatus = flag.Bool("show-push-status", false, "print the push window status and exit")
		showAIStatus   = flag.Bool("show-ai-status", false, "print the AI analysis window status and exit")
		resetPush      = flag.Bool("reset-push-state", false, "clear today's push marker and exit")
		resetAI        = flag.Bool("reset-ai-state", false, "clear today's AI analysis marker and exit")
		forcePush      = flag.Bool("force-push", false, "push this run regardless of the window")
		forceAI        = flag.Bool("force-ai", false, "run AI analysis regardless of the window")
	)
	flag.Parse()

	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	slogger := logger.New(cfg.App.Debug)

	a, err := app.New(cfg, slogger)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *showPushStatus:
		printStatus(ctx, a, true)
		return
	case *showAIStatus:
		printStatus(ctx, a, false)
		return
	case *resetPush:
		if err := a.ResetMarker(ctx, store.MarkerPush); err != nil {
			log.Fatalf("reset push state: %v", err)
		}
		return
	case *resetAI:
		if err := a.ResetMarker(ctx, store.MarkerAIAnalysis); err != nil {
			log.Fatalf("reset ai state: %v", err)
		}
		return
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	if err := a.Run(ctx, app.RunOptions{ForcePush: *forcePush, ForceAI: *forceAI}); err != nil {
		metrics.Global.SetError(err.Error())
		log.Fatalf("run: %v", err)
	}
}

func printStatus(ctx context.Context, a *app.App, push bool) {
	var (
		st  interface{}
		err error
	)
	if push {
		st, err = a.PushStatus(ctx)
	} else {
		st, err = a.AIStatus(ctx)
	}
	if err != nil {
		log.Fatalf("status: %v", err)
	}
	out, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(out))
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Printf("Starting monitoring server on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Monitoring server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
