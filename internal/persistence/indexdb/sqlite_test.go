package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planet"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEntry, entry: planet.JournalEntry{Seq: 1}}

	_ = s.WriteEntry(planet.JournalEntry{Seq: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropEntryTotal != 1 {
		t.Fatalf("DropEntryTotal=%d want=1", st.DropEntryTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_WriteAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "planet.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertConfig("P1", map[string]any{"planet_id": "P1", "basic": []string{"CARBON"}}); err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	entries := []planet.JournalEntry{
		{Seq: 1, Source: planet.SourceOrchestrator, Message: planet.RecordedMessage{Kind: planet.KindStartPlanetAI}, Response: planet.KindStartPlanetAIResult, Digest: "d1"},
		{Seq: 2, Source: planet.SourceOrchestrator, Message: planet.RecordedMessage{Kind: planet.KindAsteroid, AsteroidID: "A1"}, Response: planet.KindAsteroidAck, Outcome: planet.OutcomeUndefended, Digest: "d2"},
		{Seq: 3, Source: planet.SourceExplorer, Message: planet.RecordedMessage{Kind: planet.KindSupportedCombinationRequest, ExplorerID: "E1"}, Response: planet.KindSupportedCombinationResponse, Dropped: true, Digest: "d3"},
	}
	for _, e := range entries {
		if err := idx.WriteEntry(e); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}
	idx.RecordSnapshot("/data/3.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Seq: 3}, Started: true, WarningPending: true, Digest: "d3"})
	// Close drains the queue and commits.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	msgs, err := r.Messages(ctx, "", 10)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Seq != 3 || !msgs[0].Dropped || msgs[0].ExplorerID != "E1" {
		t.Fatalf("messages = %+v", msgs)
	}
	only, err := r.Messages(ctx, string(planet.KindAsteroid), 10)
	if err != nil || len(only) != 1 || only[0].Outcome != planet.OutcomeUndefended {
		t.Fatalf("filtered messages = %+v, %v", only, err)
	}

	ast, err := r.Asteroids(ctx, 10)
	if err != nil || len(ast) != 1 || ast[0].AsteroidID != "A1" || ast[0].Defended {
		t.Fatalf("asteroids = %+v, %v", ast, err)
	}

	snaps, err := r.Snapshots(ctx, 10)
	if err != nil || len(snaps) != 1 || snaps[0].Seq != 3 || !snaps[0].WarningPending || snaps[0].Path != "/data/3.snap.zst" {
		t.Fatalf("snapshots = %+v, %v", snaps, err)
	}

	meta, err := r.Meta(ctx)
	if err != nil || meta["planet_id"] != "P1" || meta["schema_version"] != SchemaVersion || meta["config_digest"] == "" {
		t.Fatalf("meta = %+v, %v", meta, err)
	}
}
