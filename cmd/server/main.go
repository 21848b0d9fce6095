package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"airfryer.ai/internal/persistence/archive"
	persistlog "airfryer.ai/internal/persistence/log"
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/engine"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/tuning"
	"airfryer.ai/internal/transport/observer"
	"airfryer.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/planet.yaml", "path to planet.yaml (empty for built-in defaults)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides data_dir)")
		addr       = flag.String("addr", "", "http listen address (overrides addr)")
		planetID   = flag.String("planet", "", "planet id (overrides planet_id)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := loadTuning(*configPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		tune.DataDir = v
	}
	if v := strings.TrimSpace(*addr); v != "" {
		tune.Addr = v
	}
	if v := strings.TrimSpace(*planetID); v != "" {
		tune.PlanetID = v
	}
	if *disableDB {
		tune.IndexBackend = "none"
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	planetDir := filepath.Join(tune.DataDir, "planets", tune.PlanetID)
	_ = os.MkdirAll(planetDir, 0o755)
	if meta, gone, err := archive.Destroyed(planetDir); err != nil {
		logger.Fatalf("archive: %v", err)
	} else if gone {
		logger.Fatalf("planet %s was destroyed at seq %d (see %s); pick another planet id", meta.PlanetID, meta.Seq, filepath.Join(planetDir, "archives"))
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(planetDir)
	}

	ai, seq, err := buildAI(tune, snapshotToLoad)
	if err != nil {
		logger.Fatalf("planet: %v", err)
	}
	if snapshotToLoad != "" {
		logger.Printf("resumed from snapshot=%s seq=%d", filepath.Base(snapshotToLoad), seq)
	}

	// Optional: read-model index backend (does not affect planet determinism).
	idx, err := openIndex(planetDir, tune.IndexBackend)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfig(ai.PlanetID(), ai.Config()); err != nil {
			logger.Printf("index backend: upsert config: %v", err)
		}
	}

	planetLogger := log.New(os.Stdout, "[planet] ", log.LstdFlags|log.Lmicroseconds)
	p, err := planet.NewPlanet(ai, tune.RuntimeConfig(), planetLogger)
	if err != nil {
		logger.Fatalf("runtime: %v", err)
	}
	p.SetSeq(seq)

	journal := persistlog.NewJournalLogger(planetDir)
	defer journal.Close()
	obsSrv := observer.NewServer(p, logger)
	if idx != nil {
		p.SetJournal(planet.Journals(journal, idx, obsSrv))
	} else {
		p.SetJournal(planet.Journals(journal, obsSrv))
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	p.SetSnapshotSink(snapCh)

	ctx, cancel := signalContext()
	defer cancel()

	// The planet outlives ctx so a final snapshot can be taken on shutdown.
	runCtx, stopPlanet := context.WithCancel(context.Background())
	defer stopPlanet()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-runCtx.Done():
				return
			case snap := <-snapCh:
				persistSnapshot(planetDir, snap, idx, logger)
			}
		}
	}()

	wsSrv, err := ws.NewServer(p, tune.Queues.Replies, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}
	// Explorers docked before a restart are reached through the hub.
	p.SetReplyRoute(wsSrv.ReplyRoute)
	go func() {
		if err := p.Run(runCtx); err != nil && err != context.Canceled {
			logger.Printf("planet stopped: %v", err)
		}
	}()
	go func() {
		if err := wsSrv.Run(runCtx); err != nil && err != context.Canceled {
			logger.Printf("response pump stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-p.Done():
			http.Error(rw, "planet stopped", http.StatusServiceUnavailable)
		default:
			rw.WriteHeader(200)
			_, _ = rw.Write([]byte("ok"))
		}
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := metricsSnapshot{
			PlanetID:         p.ID(),
			Planet:           p.Stats(),
			Transport:        wsSrv.Stats(),
			Observers:        obsSrv.Subscribers(),
			ObserverDropped:  obsSrv.Dropped(),
			SnapshotsWritten: snapshotsWritten.Load(),
		}
		if idx != nil {
			st := idx.Stats()
			m.Index = &st
		}
		writeMetrics(rw, m)
	})

	if tune.AdminHTTP {
		// Local-only admin endpoints (do not affect planet determinism).
		mux.HandleFunc("/admin/v1/state", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(p, planetDir, idx, logger))
		mux.HandleFunc("/v1/observer", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (admin_http=false)")
	}
	if tune.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/orchestrator", wsSrv.OrchestratorHandler())
	mux.HandleFunc("/v1/explorer", wsSrv.ExplorerHandler())

	srv := &http.Server{
		Addr:              tune.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-p.Done():
			logger.Printf("planet %s is gone, shutting down", p.ID())
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("planet %s listening on %s", p.ID(), tune.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	finalCtx, cancelFinal := context.WithTimeout(context.Background(), 5*time.Second)
	if snap, err := p.RequestSnapshot(finalCtx); err == nil {
		persistSnapshot(planetDir, snap, idx, logger)
	} else if !errors.Is(err, planet.ErrNotRunning) {
		logger.Printf("final snapshot: %v", err)
	}
	cancelFinal()
	stopPlanet()
	<-writerDone
	if err := archiveIfDestroyed(p, planetDir, idx, logger); err != nil {
		logger.Printf("archive: %v", err)
	}
	logger.Printf("stopped at seq %d", p.Stats().Seq)
}

// loadTuning reads planet.yaml; a missing default file falls back to defaults.
func loadTuning(path string) (tuning.Tuning, error) {
	tune, err := tuning.Load(path)
	if err != nil && os.IsNotExist(err) {
		log.Printf("tuning not found (%s); using defaults", path)
		return tuning.Load("")
	}
	return tune, err
}

// buildAI creates a fresh planet or resumes one. The snapshot's captured
// configuration wins over planet.yaml so replays stay comparable.
func buildAI(tune tuning.Tuning, snapPath string) (*planet.AI, uint64, error) {
	if snapPath == "" {
		cfg, err := tune.PlanetConfig()
		if err != nil {
			return nil, 0, err
		}
		ai, err := planet.New(cfg, planetstate.New(cfg.PlanetID), engine.NewForge())
		return ai, 0, err
	}
	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, 0, err
	}
	if snap.Header.PlanetID != tune.PlanetID {
		return nil, 0, errors.New("snapshot planet id mismatch: config=" + tune.PlanetID + " snap=" + snap.Header.PlanetID)
	}
	cfg, err := planet.ConfigFromSnapshot(snap)
	if err != nil {
		return nil, 0, err
	}
	ai, err := planet.Restore(cfg, snap, engine.NewForge())
	if err != nil {
		return nil, 0, err
	}
	return ai, snap.Header.Seq, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
