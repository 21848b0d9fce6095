package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"airfryer.ai/internal/persistence/archive"
	"airfryer.ai/internal/persistence/indexdb"
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/transport/observer"
)

var snapshotsWritten atomic.Uint64

type snapshotSource interface {
	RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error)
}

type finalSource interface {
	FinalSnapshot() (snapshot.SnapshotV1, bool, error)
}

// archiveIfDestroyed persists the state of a killed planet and moves it into
// the destroyed archive. It is a no-op for a planet that was merely stopped.
func archiveIfDestroyed(src finalSource, planetDir string, idx *indexdb.SQLiteIndex, logger *log.Logger) error {
	snap, killed, err := src.FinalSnapshot()
	if err != nil || !killed {
		return err
	}
	path := persistSnapshot(planetDir, snap, idx, logger)
	if path == "" {
		return fmt.Errorf("final snapshot seq %d not written", snap.Header.Seq)
	}
	dst, err := archive.ArchiveDestroyed(planetDir, path, snap)
	if err != nil {
		return err
	}
	logger.Printf("planet %s destroyed at seq %d; archived %s", snap.Header.PlanetID, snap.Header.Seq, dst)
	return nil
}

func snapshotPath(planetDir string, seq uint64) string {
	return filepath.Join(planetDir, "snapshots", snapshot.FileName(seq))
}

// persistSnapshot writes snap and records it in the index. idx may be nil.
func persistSnapshot(planetDir string, snap snapshot.SnapshotV1, idx *indexdb.SQLiteIndex, logger *log.Logger) string {
	path := snapshotPath(planetDir, snap.Header.Seq)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot write: %v", err)
		return ""
	}
	snapshotsWritten.Add(1)
	if idx != nil {
		idx.RecordSnapshot(path, snap)
	}
	return path
}

func latestSnapshot(planetDir string) string {
	dir := filepath.Join(planetDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		seq, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}

// snapshotHandler serves POST /admin/v1/snapshot: take and persist a snapshot now.
func snapshotHandler(src snapshotSource, planetDir string, idx *indexdb.SQLiteIndex, logger *log.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		snap, err := src.RequestSnapshot(ctx)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		path := persistSnapshot(planetDir, snap, idx, logger)
		if path == "" {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "seq": snap.Header.Seq, "error": "write failed"})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "seq": snap.Header.Seq, "path": path})
	}
}
