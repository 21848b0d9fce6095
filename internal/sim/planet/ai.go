package planet

import (
	"errors"
	"fmt"

	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

// Engine is the production capability the planet delegates to.
type Engine interface {
	Generate(t resource.BasicType, cell *planetstate.EnergyCell) (resource.Basic, error)
	Combine(r resource.Recipe, a, b resource.Generic, cell *planetstate.EnergyCell) (resource.Complex, error)
}

// AI is the planet's decision core. It is a pure request/response object:
// one call per inbound message, at most one response, no goroutines, no I/O
// beyond the synchronous engine call. Callers must serialize access.
type AI struct {
	cfg    Config
	state  *planetstate.State
	engine Engine

	started     bool
	hasExplorer bool
	explorerID  string
	warning     WarningSignal

	// stoppedNoticeSent marks that this stopped period already produced its
	// Stopped notice.
	stoppedNoticeSent bool
	killed            bool

	basic  map[resource.BasicType]bool
	combos map[resource.ComplexType]bool
}

func New(cfg Config, state *planetstate.State, eng Engine) (*AI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("planet config: %w", err)
	}
	if state == nil {
		return nil, errors.New("planet state must not be nil")
	}
	if state.ID() != cfg.PlanetID {
		return nil, fmt.Errorf("planet state id %q does not match config id %q", state.ID(), cfg.PlanetID)
	}
	if eng == nil {
		return nil, errors.New("resource engine must not be nil")
	}
	a := &AI{
		cfg:    cfg,
		state:  state,
		engine: eng,
		basic:  map[resource.BasicType]bool{},
		combos: map[resource.ComplexType]bool{},
	}
	for _, b := range cfg.Basic {
		a.basic[b] = true
	}
	for _, c := range cfg.Combinations {
		a.combos[c] = true
	}
	return a, nil
}

func (a *AI) PlanetID() string          { return a.cfg.PlanetID }
func (a *AI) Config() Config            { return a.cfg }
func (a *AI) State() *planetstate.State { return a.state }
func (a *AI) Started() bool             { return a.started }
func (a *AI) HasExplorer() bool         { return a.hasExplorer }
func (a *AI) ExplorerID() string        { return a.explorerID }
func (a *AI) WarningPending() bool      { return a.warning.Pending() }
func (a *AI) Killed() bool              { return a.killed }

type orchestratorHandler func(a *AI, msg OrchestratorMsg) OrchestratorResponse

type explorerHandler func(a *AI, msg ExplorerMsg) ExplorerResponse

type orchestratorRoute struct {
	// lifecycle routes run even while the AI is stopped.
	lifecycle bool
	handle    orchestratorHandler
}

func onOrchestrator[M OrchestratorMsg](f func(*AI, M) OrchestratorResponse) orchestratorHandler {
	return func(a *AI, msg OrchestratorMsg) OrchestratorResponse {
		m, ok := msg.(M)
		if !ok {
			return nil
		}
		return f(a, m)
	}
}

func onExplorer[M ExplorerMsg](f func(*AI, M) ExplorerResponse) explorerHandler {
	return func(a *AI, msg ExplorerMsg) ExplorerResponse {
		m, ok := msg.(M)
		if !ok {
			return nil
		}
		return f(a, m)
	}
}

var orchestratorRoutes = map[Kind]orchestratorRoute{
	KindStartPlanetAI:        {lifecycle: true, handle: onOrchestrator((*AI).handleStart)},
	KindStopPlanetAI:         {lifecycle: true, handle: onOrchestrator((*AI).handleStop)},
	KindKillPlanet:           {lifecycle: true, handle: onOrchestrator((*AI).handleKill)},
	KindSunray:               {handle: onOrchestrator((*AI).handleSunray)},
	KindAsteroid:             {handle: onOrchestrator((*AI).handleAsteroid)},
	KindInternalStateRequest: {handle: onOrchestrator((*AI).handleInternalState)},
	KindIncomingExplorer:     {handle: onOrchestrator((*AI).handleIncomingExplorer)},
	KindOutgoingExplorer:     {handle: onOrchestrator((*AI).handleOutgoingExplorer)},
}

var explorerRoutes = map[Kind]explorerHandler{
	KindSupportedResourceRequest:    onExplorer((*AI).handleSupportedResources),
	KindSupportedCombinationRequest: onExplorer((*AI).handleSupportedCombinations),
	KindGenerateResourceRequest:     onExplorer((*AI).handleGenerate),
	KindCombineResourceRequest:      onExplorer((*AI).handleCombine),
	KindAvailableEnergyCellRequest:  onExplorer((*AI).handleAvailableEnergyCell),
}

// HandleOrchestrator applies one orchestrator command. ok is false when the
// command is dropped and nothing must be sent back.
func (a *AI) HandleOrchestrator(msg OrchestratorMsg) (resp OrchestratorResponse, ok bool) {
	if msg == nil || a.killed {
		return nil, false
	}
	route, found := orchestratorRoutes[msg.Kind()]
	if !found {
		return nil, false
	}
	if !route.lifecycle && !a.started {
		return nil, false
	}
	resp = route.handle(a, msg)
	return resp, resp != nil
}

// HandleExplorer applies one explorer request. ok is false when the request is
// dropped.
func (a *AI) HandleExplorer(msg ExplorerMsg) (resp ExplorerResponse, ok bool) {
	if msg == nil || a.killed || !a.started {
		return nil, false
	}
	if a.cfg.RequireRegisteredExplorer && (!a.hasExplorer || msg.Explorer() != a.explorerID) {
		return nil, false
	}
	h, found := explorerRoutes[msg.Kind()]
	if !found {
		return nil, false
	}
	resp = h(a, msg)
	return resp, resp != nil
}
