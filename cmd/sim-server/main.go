// Package main is the entry point for the disaster-response town simulation
// server. It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/machitown/disaster-sim/internal/config"
	"github.com/machitown/disaster-sim/internal/infra/ai"
	"github.com/machitown/disaster-sim/internal/infra/archive"
	"github.com/machitown/disaster-sim/internal/infra/memoir"
	"github.com/machitown/disaster-sim/internal/infra/storage"
	"github.com/machitown/disaster-sim/internal/network"
	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/platform/metrics"
	"github.com/machitown/disaster-sim/internal/sim"
)

// storeSinkAdapter translates simulation events and metrics to storage rows.
type storeSinkAdapter struct {
	store *storage.Store
	svc   *sim.Service
}

func (a *storeSinkAdapter) sessionID() string {
	if s := a.svc.Session(); s != nil {
		return s.ID
	}
	return "unknown"
}

func (a *storeSinkAdapter) AppendEvent(e sim.TimelineEvent) error {
	var meta string
	if e.Meta != nil {
		raw, _ := json.Marshal(e.Meta)
		meta = string(raw)
	}
	err := a.store.InsertEvent(storage.EventRow{
		ID:        e.ID,
		SessionID: a.sessionID(),
		Tick:      e.Tick,
		Type:      string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Message:   e.Message,
		Meta:      meta,
	})
	metrics.Get().RecordEventWrite(err)
	return err
}

func (a *storeSinkAdapter) AppendMetrics(tick int64, m sim.Metrics) error {
	return a.store.InsertMetrics(storage.MetricsRow{
		SessionID:             a.sessionID(),
		Tick:                  tick,
		Confusion:             m.Confusion,
		RumorSpread:           m.RumorSpread,
		OfficialReach:         m.OfficialReach,
		VulnerableReach:       m.VulnerableReach,
		PanicIndex:            m.PanicIndex,
		TrustIndex:            m.TrustIndex,
		MisinfoBelief:         m.MisinfoBelief,
		ResourceMisallocation: m.ResourceMisallocation,
		StabilityScore:        m.StabilityScore,
	})
}

func main() {
	configPath := flag.String("config", "tuning.yaml", "path to the tuning file")
	flag.Parse()

	log.Println("[SIM-SERVER] Initializing town simulation server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.Error("Failed to load config: " + err.Error())
		os.Exit(1)
	}

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memoryClient := memoir.NewClient(cfg.Memory, appLogger)
	var retriever sim.MemoryRetriever
	if memoryClient.Available() {
		appLogger.Info("Memory sidecar configured at " + cfg.Memory.Endpoint)
		retriever = memoryClient
	}

	var provider ai.Provider
	if cfg.Decision.Endpoint != "" {
		appLogger.Info("Decision service configured at " + cfg.Decision.Endpoint)
		provider = ai.NewHTTPProvider(cfg.Decision.Endpoint, cfg.Decision.Model)
	} else {
		appLogger.Warn("No decision service configured; agents run scripted behavior only")
	}

	sinkAdapter := &storeSinkAdapter{store: store}

	onEnd := func(summary *sim.EndSummary) {
		path, err := archive.Write(cfg.ArchiveDir, summary.SessionID, summary)
		if err != nil {
			appLogger.Error("Failed to archive run: " + err.Error())
		} else {
			appLogger.Info("Run archived to " + path)
		}
		memoryClient.Write(summary.SessionID,
			"Simulation "+summary.SessionID+" ended with "+string(summary.Reason)+
				" at tick "+strconv.FormatInt(summary.Tick, 10))
	}

	svc := sim.NewService(cfg, nil, sinkAdapter, provider, retriever, appLogger, onEnd)
	sinkAdapter.svc = svc

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(svc, appLogger)
	go hub.Run(ctx)

	// The service broadcasts through the hub; set after both exist.
	svc.SetBroadcaster(hub)

	http.HandleFunc("/ws", hub.ServeWS)
	http.HandleFunc("/metrics", metrics.Handler())
	http.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"observers": hub.ObserverCount(),
		})
	})

	http.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "session_id required", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := store.EventsForSession(sessionID, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	})

	http.HandleFunc("/api/metrics-series", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "session_id required", http.StatusBadRequest)
			return
		}
		rows, err := store.MetricsSeries(sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	})

	go func() {
		log.Printf("[SIM-SERVER] HTTP API & WS server listening on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[SIM-SERVER] Server running. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[SIM-SERVER] Shutting down...")
	svc.Shutdown()
}
