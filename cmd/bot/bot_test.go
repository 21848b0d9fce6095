package main

import (
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"testing"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/planet"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func raw(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestOrchestrator_OpeningAndTick(t *testing.T) {
	o := newOrchestrator(rand.New(rand.NewSource(1)), 1, "E1", quiet())
	open := o.Opening()
	if len(open) != 2 {
		t.Fatalf("opening = %+v", open)
	}
	if in := open[1].(protocol.CommandMsg); in.Type != protocol.TypeIncomingExplorer || in.ExplorerID != "E1" {
		t.Fatalf("dock = %+v", in)
	}
	out := o.Tick()
	if len(out) != 2 || out[0].(protocol.CommandMsg).SunrayID == "" || out[1].(protocol.CommandMsg).AsteroidID == "" {
		t.Fatalf("tick = %+v", out)
	}

	calm := newOrchestrator(rand.New(rand.NewSource(1)), 0, "", quiet())
	if len(calm.Opening()) != 1 || len(calm.Tick()) != 1 {
		t.Fatalf("calm orchestrator sent asteroids or docked")
	}
}

func TestOrchestrator_CountsOutcomesAndStops(t *testing.T) {
	o := newOrchestrator(rand.New(rand.NewSource(1)), 0, "", quiet())
	o.OnFrame(string(planet.KindAsteroidAck), raw(t, protocol.EventMsg{Rocket: &protocol.RocketRef{ID: "R1"}}))
	o.OnFrame(string(planet.KindAsteroidAck), raw(t, protocol.EventMsg{}))
	o.OnFrame(string(planet.KindAsteroidAck), raw(t, protocol.EventMsg{}))
	if o.defended != 1 || o.undefended != 2 {
		t.Fatalf("defended=%d undefended=%d", o.defended, o.undefended)
	}
	o.OnFrame(string(planet.KindKillPlanetResult), raw(t, protocol.EventMsg{PlanetID: "P1"}))
	if o.Tick() != nil {
		t.Fatalf("tick after kill")
	}
}

func TestExplorer_DecodesWarningAndBuildsDiamond(t *testing.T) {
	e := newExplorer(quiet())
	e.OnFrame(string(planet.KindSupportedCombinationResponse), raw(t, protocol.ReplyMsg{Combinations: []string{"WATER", "DIAMOND", "LIFE", "ROBOT", "DOLPHIN"}}))
	e.OnFrame(string(planet.KindSupportedCombinationResponse), raw(t, protocol.ReplyMsg{Combinations: []string{"WATER", "DIAMOND", "LIFE", "ROBOT", "DOLPHIN", "AI_PARTNER"}}))
	if e.warnings != 1 {
		t.Fatalf("warnings = %d", e.warnings)
	}

	zero, one := 0, 1
	if out := e.OnFrame(string(planet.KindAvailableEnergyCellResponse), raw(t, protocol.ReplyMsg{Count: &zero})); len(out) != 0 {
		t.Fatalf("generated from an empty cell")
	}
	out := e.OnFrame(string(planet.KindAvailableEnergyCellResponse), raw(t, protocol.ReplyMsg{Count: &one}))
	if len(out) != 1 || out[0].(protocol.RequestMsg).Resource != "CARBON" {
		t.Fatalf("generate = %+v", out)
	}

	if out := e.OnFrame(string(planet.KindGenerateResourceResponse), raw(t, protocol.ReplyMsg{Resource: &protocol.ResourceRef{ID: "c1", Kind: "CARBON"}})); len(out) != 0 {
		t.Fatalf("combined with one carbon")
	}
	out = e.OnFrame(string(planet.KindGenerateResourceResponse), raw(t, protocol.ReplyMsg{Resource: &protocol.ResourceRef{ID: "c2", Kind: "CARBON"}}))
	if len(out) != 1 {
		t.Fatalf("combine = %+v", out)
	}
	c := out[0].(protocol.RequestMsg)
	if c.Target != "DIAMOND" || c.A.ID != "c1" || c.B.ID != "c2" || len(e.carbon) != 0 {
		t.Fatalf("combine request = %+v", c)
	}

	e.OnFrame(string(planet.KindCombineResourceResponse), raw(t, protocol.ReplyMsg{Failure: &protocol.CombineFailureObs{
		Reason: "cell not charged", A: *c.A, B: *c.B,
	}}))
	if len(e.carbon) != 2 {
		t.Fatalf("inputs not returned: %+v", e.carbon)
	}
	e.OnFrame(string(planet.KindCombineResourceResponse), raw(t, protocol.ReplyMsg{Complex: &protocol.ResourceRef{ID: "d1", Kind: "DIAMOND"}}))
	if len(e.diamonds) != 1 {
		t.Fatalf("diamonds = %+v", e.diamonds)
	}
}

func TestExplorer_WarningOnSmallRecipeSet(t *testing.T) {
	e := newExplorer(quiet())
	e.OnFrame(string(planet.KindSupportedCombinationResponse), raw(t, protocol.ReplyMsg{Combinations: []string{"WATER", "AI_PARTNER"}}))
	if e.warnings != 0 {
		t.Fatalf("warning raised with the marker present")
	}
	e.OnFrame(string(planet.KindSupportedCombinationResponse), raw(t, protocol.ReplyMsg{Combinations: []string{"WATER"}}))
	if e.warnings != 1 {
		t.Fatalf("warnings = %d", e.warnings)
	}
}
