package main

import (
	"encoding/json"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/planet"
)

type orchestrator struct {
	rng        *rand.Rand
	asteroidP  float64
	explorerID string
	logger     *log.Logger

	defended   int
	undefended int
	stopped    bool
}

func newOrchestrator(rng *rand.Rand, asteroidP float64, explorerID string, logger *log.Logger) *orchestrator {
	return &orchestrator{rng: rng, asteroidP: asteroidP, explorerID: explorerID, logger: logger}
}

func command(typ string) protocol.CommandMsg {
	return protocol.CommandMsg{Type: typ, ProtocolVersion: protocol.Version}
}

func (o *orchestrator) Opening() []any {
	out := []any{command(protocol.TypeStartPlanetAI)}
	if o.explorerID != "" {
		in := command(protocol.TypeIncomingExplorer)
		in.ExplorerID = o.explorerID
		out = append(out, in)
	}
	return out
}

// Tick sends one sunray and, with probability asteroidP, one asteroid.
func (o *orchestrator) Tick() []any {
	if o.stopped {
		return nil
	}
	sr := command(protocol.TypeSunray)
	sr.SunrayID = uuid.NewString()
	out := []any{sr}
	if o.rng.Float64() < o.asteroidP {
		a := command(protocol.TypeAsteroid)
		a.AsteroidID = uuid.NewString()
		out = append(out, a)
	}
	return out
}

func (o *orchestrator) OnFrame(typ string, raw []byte) []any {
	var ev protocol.EventMsg
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil
	}
	switch planet.Kind(typ) {
	case planet.KindAsteroidAck:
		if ev.Rocket != nil {
			o.defended++
			o.logger.Printf("asteroid deflected by rocket %s (defended=%d undefended=%d)", ev.Rocket.ID, o.defended, o.undefended)
		} else {
			o.undefended++
			o.logger.Printf("asteroid hit %s (defended=%d undefended=%d)", ev.PlanetID, o.defended, o.undefended)
		}
	case planet.KindIncomingExplorerResponse, planet.KindOutgoingExplorerResponse:
		if ev.Error != "" {
			o.logger.Printf("%s %s: %s", typ, ev.ExplorerID, ev.Error)
		}
	case planet.KindStopPlanetAIResult, planet.KindStopped, planet.KindKillPlanetResult:
		o.stopped = true
		o.logger.Printf("%s from %s", typ, ev.PlanetID)
	}
	return nil
}
