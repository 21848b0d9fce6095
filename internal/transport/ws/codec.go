package ws

import (
	"fmt"
	"strings"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

// decodeCommand turns an orchestrator frame into a planet message. reply is
// attached to explorer arrivals.
func decodeCommand(cmd protocol.CommandMsg, reply func(explorerID string) chan<- planet.ExplorerResponse) (planet.OrchestratorMsg, error) {
	switch cmd.Type {
	case protocol.TypeSunray:
		return planet.SunrayMsg{Sunray: planetstate.Sunray{ID: cmd.SunrayID}}, nil
	case protocol.TypeAsteroid:
		return planet.AsteroidMsg{Asteroid: planetstate.Asteroid{ID: cmd.AsteroidID}}, nil
	case protocol.TypeStartPlanetAI:
		return planet.StartPlanetAI{}, nil
	case protocol.TypeStopPlanetAI:
		return planet.StopPlanetAI{}, nil
	case protocol.TypeKillPlanet:
		return planet.KillPlanet{}, nil
	case protocol.TypeInternalStateRequest:
		return planet.InternalStateRequest{}, nil
	case protocol.TypeIncomingExplorer:
		id := strings.TrimSpace(cmd.ExplorerID)
		msg := planet.IncomingExplorerRequest{ExplorerID: id}
		if id != "" && reply != nil {
			msg.Reply = reply(id)
		}
		return msg, nil
	case protocol.TypeOutgoingExplorer:
		return planet.OutgoingExplorerRequest{ExplorerID: strings.TrimSpace(cmd.ExplorerID)}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

// decodeRequest turns an explorer frame into a planet message. The explorer
// id always comes from the session, never from the frame.
func decodeRequest(explorerID string, req protocol.RequestMsg) (planet.ExplorerMsg, error) {
	switch req.Type {
	case protocol.TypeSupportedResourceRequest:
		return planet.SupportedResourceRequest{ExplorerID: explorerID}, nil
	case protocol.TypeSupportedCombinationRequest:
		return planet.SupportedCombinationRequest{ExplorerID: explorerID}, nil
	case protocol.TypeGenerateResourceRequest:
		// Unknown names still reach the planet; it answers with an empty result.
		return planet.GenerateResourceRequest{
			ExplorerID: explorerID,
			Resource:   resource.BasicType(strings.ToUpper(strings.TrimSpace(req.Resource))),
		}, nil
	case protocol.TypeCombineResourceRequest:
		if req.A == nil || req.B == nil {
			return nil, fmt.Errorf("combine request needs both inputs")
		}
		a, err := genericFromRef(*req.A)
		if err != nil {
			return nil, fmt.Errorf("input a: %w", err)
		}
		b, err := genericFromRef(*req.B)
		if err != nil {
			return nil, fmt.Errorf("input b: %w", err)
		}
		return planet.CombineResourceRequest{
			ExplorerID: explorerID,
			Request: resource.CombineRequest{
				Target: resource.ComplexType(strings.ToUpper(strings.TrimSpace(req.Target))),
				A:      a,
				B:      b,
			},
		}, nil
	case protocol.TypeAvailableEnergyCellRequest:
		return planet.AvailableEnergyCellRequest{ExplorerID: explorerID}, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
}

func genericFromRef(ref protocol.ResourceRef) (resource.Generic, error) {
	if b, ok := resource.ParseBasic(ref.Kind); ok {
		return resource.FromBasic(resource.Basic{ID: ref.ID, Type: b}), nil
	}
	if c, ok := resource.ParseComplex(ref.Kind); ok {
		return resource.FromComplex(resource.Complex{ID: ref.ID, Type: c}), nil
	}
	return resource.Generic{}, fmt.Errorf("unknown resource kind %q", ref.Kind)
}

func refFromGeneric(g resource.Generic) protocol.ResourceRef {
	return protocol.ResourceRef{ID: g.ID(), Kind: string(g.Kind())}
}

func encodeEvent(resp planet.OrchestratorResponse) protocol.EventMsg {
	ev := protocol.EventMsg{
		Type:            string(resp.Kind()),
		ProtocolVersion: protocol.Version,
		PlanetID:        resp.Planet(),
	}
	switch r := resp.(type) {
	case planet.AsteroidAck:
		if r.Rocket != nil {
			ev.Rocket = &protocol.RocketRef{ID: r.Rocket.ID}
		}
	case planet.InternalStateResponse:
		ev.State = &protocol.PlanetStateObs{
			EnergyCells:  append([]bool{}, r.State.EnergyCells...),
			ChargedCells: r.State.ChargedCells,
			HasRocket:    r.State.HasRocket,
		}
	case planet.IncomingExplorerResponse:
		ev.ExplorerID = r.ExplorerID
		ev.Error = r.Err
	case planet.OutgoingExplorerResponse:
		ev.ExplorerID = r.ExplorerID
		ev.Error = r.Err
	}
	return ev
}

func encodeReply(resp planet.ExplorerResponse) protocol.ReplyMsg {
	out := protocol.ReplyMsg{Type: string(resp.Kind()), ProtocolVersion: protocol.Version}
	switch r := resp.(type) {
	case planet.SupportedResourceResponse:
		out.Resources = make([]string, 0, len(r.Resources))
		for _, b := range r.Resources {
			out.Resources = append(out.Resources, string(b))
		}
	case planet.SupportedCombinationResponse:
		out.Combinations = make([]string, 0, len(r.Combinations))
		for _, c := range r.Combinations {
			out.Combinations = append(out.Combinations, string(c))
		}
	case planet.GenerateResourceResponse:
		if r.Resource != nil {
			out.Resource = &protocol.ResourceRef{ID: r.Resource.ID, Kind: string(r.Resource.Type)}
		}
	case planet.CombineResourceResponse:
		if r.Complex != nil {
			out.Complex = &protocol.ResourceRef{ID: r.Complex.ID, Kind: string(r.Complex.Type)}
		}
		if r.Failure != nil {
			out.Failure = &protocol.CombineFailureObs{
				Reason: r.Failure.Reason,
				A:      refFromGeneric(r.Failure.A),
				B:      refFromGeneric(r.Failure.B),
			}
		}
	case planet.AvailableEnergyCellResponse:
		n := int(r.Count)
		out.Count = &n
	}
	return out
}
