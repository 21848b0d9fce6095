package planet

import (
	"encoding/json"
	"errors"
	"testing"

	"airfryer.ai/internal/sim/engine"
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

func TestRecordedMessage_RebuildsEveryKind(t *testing.T) {
	orch := []OrchestratorMsg{
		SunrayMsg{Sunray: planetstate.Sunray{ID: "S1"}},
		AsteroidMsg{Asteroid: planetstate.Asteroid{ID: "A1"}},
		StartPlanetAI{}, StopPlanetAI{}, KillPlanet{}, InternalStateRequest{},
		IncomingExplorerRequest{ExplorerID: "E1"},
		OutgoingExplorerRequest{ExplorerID: "E1"},
	}
	if len(orch) != len(OrchestratorKinds()) {
		t.Fatalf("test does not cover every orchestrator kind")
	}
	for _, msg := range orch {
		got, err := RecordOrchestrator(msg).Orchestrator()
		if err != nil {
			t.Fatalf("%s: %v", msg.Kind(), err)
		}
		if got != msg {
			t.Fatalf("%s: rebuilt %+v, want %+v", msg.Kind(), got, msg)
		}
	}

	h := resource.FromBasic(resource.Basic{ID: "h", Type: resource.Hydrogen})
	o := resource.FromBasic(resource.Basic{ID: "o", Type: resource.Oxygen})
	expl := []ExplorerMsg{
		SupportedResourceRequest{ExplorerID: "E1"},
		SupportedCombinationRequest{ExplorerID: "E1"},
		GenerateResourceRequest{ExplorerID: "E1", Resource: resource.Carbon},
		CombineResourceRequest{ExplorerID: "E1", Request: resource.CombineRequest{Target: resource.Water, A: h, B: o}},
		AvailableEnergyCellRequest{ExplorerID: "E1"},
	}
	if len(expl) != len(ExplorerKinds()) {
		t.Fatalf("test does not cover every explorer kind")
	}
	for _, msg := range expl {
		b, err := json.Marshal(RecordExplorer(msg))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var rec RecordedMessage
		if err := json.Unmarshal(b, &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got, err := rec.Explorer()
		if err != nil {
			t.Fatalf("%s: %v", msg.Kind(), err)
		}
		if got.Kind() != msg.Kind() || got.Explorer() != "E1" {
			t.Fatalf("%s: rebuilt %+v", msg.Kind(), got)
		}
		if c, ok := got.(CombineResourceRequest); ok {
			if !c.Request.A.Equal(h) || !c.Request.B.Equal(o) || c.Request.Target != resource.Water {
				t.Fatalf("combine payload lost: %+v", c.Request)
			}
		}
	}

	if _, err := (RecordedMessage{Kind: KindSunrayAck}).Orchestrator(); err == nil {
		t.Fatalf("expected error for response kind")
	}
	if _, err := (RecordedMessage{Kind: KindCombineResourceRequest}).Explorer(); err == nil {
		t.Fatalf("expected error for combine without payload")
	}
}

func TestApply_ReproducesDigests(t *testing.T) {
	live := newTestAI(t, nil)
	var entries []JournalEntry
	record := func(src string, rec RecordedMessage) {
		entries = append(entries, JournalEntry{Seq: uint64(len(entries) + 1), Source: src, Message: rec, Digest: live.Digest()})
	}
	for _, msg := range []OrchestratorMsg{
		StartPlanetAI{}, SunrayMsg{}, IncomingExplorerRequest{ExplorerID: "E1"}, AsteroidMsg{}, AsteroidMsg{},
	} {
		live.HandleOrchestrator(msg)
		record(SourceOrchestrator, RecordOrchestrator(msg))
	}
	for _, msg := range []ExplorerMsg{
		SupportedCombinationRequest{ExplorerID: "E1"},
		AvailableEnergyCellRequest{ExplorerID: "E1"},
	} {
		live.HandleExplorer(msg)
		record(SourceExplorer, RecordExplorer(msg))
	}

	replay := newTestAI(t, nil)
	for _, e := range entries {
		got, err := replay.Apply(e)
		if err != nil {
			t.Fatalf("seq %d: %v", e.Seq, err)
		}
		if got != e.Digest {
			t.Fatalf("seq %d digest mismatch", e.Seq)
		}
	}
	if _, err := replay.Apply(JournalEntry{Source: "nobody"}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestSnapshot_ExportRestore(t *testing.T) {
	a := newTestAI(t, func(c *Config) { c.RequireRegisteredExplorer = true })
	a.HandleOrchestrator(StartPlanetAI{})
	a.HandleOrchestrator(IncomingExplorerRequest{ExplorerID: "E1"})
	a.HandleOrchestrator(AsteroidMsg{})
	a.HandleOrchestrator(SunrayMsg{})
	a.HandleOrchestrator(SunrayMsg{})

	snap := a.ExportSnapshot(5)
	if snap.Header.Seq != 5 || !snap.WarningPending || !snap.HasRocket || !snap.CellCharged || snap.ExplorerID != "E1" {
		t.Fatalf("snapshot = %+v", snap)
	}
	cfg, err := ConfigFromSnapshot(snap)
	if err != nil {
		t.Fatalf("ConfigFromSnapshot: %v", err)
	}
	if !cfg.RequireRegisteredExplorer || len(cfg.Combinations) != 6 || cfg.Basic[0] != resource.Carbon {
		t.Fatalf("config = %+v", cfg)
	}
	b, err := Restore(cfg, snap, engine.NewForge())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if b.Digest() != a.Digest() {
		t.Fatalf("restored digest differs")
	}

	snap.Digest = "bogus"
	if _, err := Restore(cfg, snap, engine.NewForge()); err == nil {
		t.Fatalf("expected digest mismatch")
	}
	other := DefaultConfig("P2")
	if _, err := Restore(other, a.ExportSnapshot(5), engine.NewForge()); err == nil {
		t.Fatalf("expected planet id mismatch")
	}
}

func TestSnapshot_RestoreKilledPlanet(t *testing.T) {
	a := newTestAI(t, nil)
	a.HandleOrchestrator(StartPlanetAI{})
	a.HandleOrchestrator(KillPlanet{})
	snap := a.ExportSnapshot(2)
	if !snap.Killed {
		t.Fatalf("snapshot lost kill: %+v", snap)
	}
	cfg, err := ConfigFromSnapshot(snap)
	if err != nil {
		t.Fatalf("ConfigFromSnapshot: %v", err)
	}
	b, err := Restore(cfg, snap, engine.NewForge())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !b.Killed() {
		t.Fatalf("restored planet is alive")
	}
	if _, ok := b.HandleOrchestrator(StartPlanetAI{}); ok {
		t.Fatalf("killed planet answered start")
	}
}

type failJournal struct{ calls int }

func (f *failJournal) WriteEntry(JournalEntry) error {
	f.calls++
	return errors.New("disk full")
}

func TestJournals_WritesAllAndReportsFirstError(t *testing.T) {
	bad := &failJournal{}
	good := &memJournal{}
	j := Journals(bad, nil, good)
	if err := j.WriteEntry(JournalEntry{Seq: 1}); err == nil {
		t.Fatalf("expected error")
	}
	if bad.calls != 1 || len(good.all()) != 1 {
		t.Fatalf("bad calls = %d, good entries = %d", bad.calls, len(good.all()))
	}
}
