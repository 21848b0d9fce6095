package planet

import (
	"errors"
	"fmt"

	"airfryer.ai/internal/sim/engine"
	"airfryer.ai/internal/sim/resource"
)

func (a *AI) handleStart(StartPlanetAI) OrchestratorResponse {
	if a.started {
		return nil
	}
	a.started = true
	a.hasExplorer = false
	a.explorerID = ""
	a.stoppedNoticeSent = false
	return StartPlanetAIResult{PlanetID: a.cfg.PlanetID}
}

func (a *AI) handleStop(StopPlanetAI) OrchestratorResponse {
	if !a.started {
		if a.stoppedNoticeSent {
			return nil
		}
		a.stoppedNoticeSent = true
		return Stopped{PlanetID: a.cfg.PlanetID}
	}
	a.started = false
	a.hasExplorer = false
	a.explorerID = ""
	a.stoppedNoticeSent = false
	return StopPlanetAIResult{PlanetID: a.cfg.PlanetID}
}

func (a *AI) handleKill(KillPlanet) OrchestratorResponse {
	a.killed = true
	a.started = false
	a.hasExplorer = false
	a.explorerID = ""
	return KillPlanetResult{PlanetID: a.cfg.PlanetID}
}

func (a *AI) handleSunray(m SunrayMsg) OrchestratorResponse {
	st := a.state
	switch {
	case !st.Cell().IsCharged():
		st.ChargeCell(m.Sunray)
	case !st.HasRocket() && a.cfg.SurplusSunrayBuildsRocket:
		if err := st.BuildRocket(); err == nil {
			st.ChargeCell(m.Sunray)
		}
	}
	return SunrayAck{PlanetID: a.cfg.PlanetID}
}

func (a *AI) handleAsteroid(AsteroidMsg) OrchestratorResponse {
	st := a.state
	if r, ok := st.TakeRocket(); ok {
		a.warning.Clear()
		return AsteroidAck{PlanetID: a.cfg.PlanetID, Rocket: r}
	}
	if err := st.BuildRocket(); err == nil {
		if r, ok := st.TakeRocket(); ok {
			a.warning.Clear()
			return AsteroidAck{PlanetID: a.cfg.PlanetID, Rocket: r}
		}
	}
	a.warning.Raise()
	return AsteroidAck{PlanetID: a.cfg.PlanetID}
}

func (a *AI) handleInternalState(InternalStateRequest) OrchestratorResponse {
	return InternalStateResponse{PlanetID: a.cfg.PlanetID, State: a.state.Snapshot()}
}

func (a *AI) handleIncomingExplorer(m IncomingExplorerRequest) OrchestratorResponse {
	resp := IncomingExplorerResponse{PlanetID: a.cfg.PlanetID, ExplorerID: m.ExplorerID}
	if m.ExplorerID == "" {
		resp.Err = "explorer id must not be empty"
		return resp
	}
	a.hasExplorer = true
	a.explorerID = m.ExplorerID
	return resp
}

func (a *AI) handleOutgoingExplorer(m OutgoingExplorerRequest) OrchestratorResponse {
	resp := OutgoingExplorerResponse{PlanetID: a.cfg.PlanetID, ExplorerID: m.ExplorerID}
	if a.explorerID != "" && m.ExplorerID != a.explorerID {
		resp.Err = fmt.Sprintf("explorer %s is not docked", m.ExplorerID)
		return resp
	}
	a.hasExplorer = false
	a.explorerID = ""
	return resp
}

func (a *AI) handleSupportedResources(SupportedResourceRequest) ExplorerResponse {
	out := append([]resource.BasicType(nil), a.cfg.Basic...)
	resource.SortBasic(out)
	return SupportedResourceResponse{Resources: out}
}

func (a *AI) handleSupportedCombinations(SupportedCombinationRequest) ExplorerResponse {
	hide := a.warning.Consume()
	out := make([]resource.ComplexType, 0, len(a.cfg.Combinations))
	for _, c := range a.cfg.Combinations {
		if hide && c == WarningMarker {
			continue
		}
		out = append(out, c)
	}
	resource.SortComplex(out)
	return SupportedCombinationResponse{Combinations: out}
}

func (a *AI) handleGenerate(m GenerateResourceRequest) ExplorerResponse {
	if !a.basic[m.Resource] {
		return GenerateResourceResponse{}
	}
	res, err := a.engine.Generate(m.Resource, a.state.Cell())
	if err != nil {
		return GenerateResourceResponse{}
	}
	return GenerateResourceResponse{Resource: &res}
}

func (a *AI) handleCombine(m CombineResourceRequest) ExplorerResponse {
	req := m.Request
	recipe, ok := resource.RecipeFor(req.Target)
	if !ok || !a.combos[req.Target] {
		return combineFailure(fmt.Sprintf("combination %q not supported", req.Target), req.A, req.B)
	}
	out, err := a.engine.Combine(recipe, req.A, req.B, a.state.Cell())
	if err != nil {
		var ce *engine.CombineError
		if errors.As(err, &ce) {
			return combineFailure(ce.Reason, ce.A, ce.B)
		}
		return combineFailure(err.Error(), req.A, req.B)
	}
	return CombineResourceResponse{Complex: &out}
}

func (a *AI) handleAvailableEnergyCell(AvailableEnergyCellRequest) ExplorerResponse {
	if a.state.Cell().IsCharged() {
		return AvailableEnergyCellResponse{Count: 1}
	}
	return AvailableEnergyCellResponse{Count: 0}
}

func combineFailure(reason string, a, b resource.Generic) ExplorerResponse {
	return CombineResourceResponse{Failure: &CombineFailure{Reason: reason, A: a, B: b}}
}
