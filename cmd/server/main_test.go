package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airfryer.ai/internal/persistence/archive"
	"airfryer.ai/internal/persistence/indexdb"
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/tuning"
	"airfryer.ai/internal/transport/ws"
)

func TestLatestSnapshot_PicksHighestSeq(t *testing.T) {
	dir := t.TempDir()
	if got := latestSnapshot(dir); got != "" {
		t.Fatalf("empty dir = %q", got)
	}
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"9.snap.zst", "120.snap.zst", "13.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := latestSnapshot(dir); filepath.Base(got) != "120.snap.zst" {
		t.Fatalf("latest = %q", got)
	}
}

func TestBuildAI_FreshAndResumed(t *testing.T) {
	tune := tuning.Defaults()
	ai, seq, err := buildAI(tune, "")
	if err != nil || seq != 0 {
		t.Fatalf("fresh: seq=%d err=%v", seq, err)
	}
	ai.HandleOrchestrator(planet.StartPlanetAI{})
	ai.HandleOrchestrator(planet.SunrayMsg{})

	dir := t.TempDir()
	path := persistSnapshot(dir, ai.ExportSnapshot(7), nil, log.New(io.Discard, "", 0))
	if path == "" {
		t.Fatalf("persistSnapshot failed")
	}
	resumed, seq, err := buildAI(tune, path)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if seq != 7 || resumed.Digest() != ai.Digest() || !resumed.Started() {
		t.Fatalf("resumed seq=%d started=%v", seq, resumed.Started())
	}

	tune.PlanetID = "OTHER"
	if _, _, err := buildAI(tune, path); err == nil {
		t.Fatalf("expected planet id mismatch")
	}
}

type fakeSource struct {
	snap snapshot.SnapshotV1
	err  error
}

func (f fakeSource) RequestSnapshot(context.Context) (snapshot.SnapshotV1, error) {
	return f.snap, f.err
}

func TestSnapshotHandler(t *testing.T) {
	dir := t.TempDir()
	quiet := log.New(io.Discard, "", 0)
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: snapshot.Version, PlanetID: "P1", Seq: 42}}

	h := snapshotHandler(fakeSource{snap: snap}, dir, nil, quiet)
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"seq":42`) {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(snapshotPath(dir, 42)); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "10.1.1.1:4000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	snapshotHandler(fakeSource{err: errors.New("gone")}, dir, nil, quiet)(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing source code = %d", rec.Code)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	writeMetrics(&buf, metricsSnapshot{
		PlanetID:  "P1",
		Planet:    planet.Stats{Seq: 10, Handled: 8, Ignored: 2, Asteroids: 3, Undefended: 1},
		Transport: ws.Stats{Orchestrators: 1, Explorers: 2},
	})
	out := buf.String()
	for _, want := range []string{
		`airfryer_planet_seq{planet="P1"} 10`,
		`airfryer_planet_asteroids_total{planet="P1",outcome="defended"} 2`,
		`airfryer_planet_asteroids_total{planet="P1",outcome="undefended"} 1`,
		`airfryer_transport_sessions{planet="P1",role="explorer"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "airfryer_index_") {
		t.Fatalf("index metrics without an index")
	}

	buf.Reset()
	writeMetrics(&buf, metricsSnapshot{PlanetID: "P1", Index: &indexdb.Stats{QueueCapacity: 64, DropEntryTotal: 5}})
	if !strings.Contains(buf.String(), `airfryer_index_dropped_total{planet="P1",kind="entry"} 5`) {
		t.Fatalf("index metrics missing:\n%s", buf.String())
	}
}

type fakeFinal struct {
	snap   snapshot.SnapshotV1
	killed bool
}

func (f fakeFinal) FinalSnapshot() (snapshot.SnapshotV1, bool, error) { return f.snap, f.killed, nil }

func TestArchiveIfDestroyed(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: snapshot.Version, PlanetID: "P1", Seq: 12}, Digest: "d"}

	stopped := t.TempDir()
	if err := archiveIfDestroyed(fakeFinal{snap: snap}, stopped, nil, quiet); err != nil {
		t.Fatalf("stopped: %v", err)
	}
	if _, gone, _ := archive.Destroyed(stopped); gone {
		t.Fatalf("stopped planet archived as destroyed")
	}

	killed := t.TempDir()
	if err := archiveIfDestroyed(fakeFinal{snap: snap, killed: true}, killed, nil, quiet); err != nil {
		t.Fatalf("killed: %v", err)
	}
	meta, gone, err := archive.Destroyed(killed)
	if err != nil || !gone || meta.Seq != 12 {
		t.Fatalf("Destroyed = %+v %v %v", meta, gone, err)
	}
	if latestSnapshot(killed) == "" {
		t.Fatalf("final snapshot not persisted")
	}
}
