package main

import (
	"encoding/json"
	"log"
	"slices"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/resource"
)

type explorer struct {
	logger *log.Logger

	carbon   []protocol.ResourceRef
	diamonds []protocol.ResourceRef
	warnings int
}

func newExplorer(logger *log.Logger) *explorer {
	return &explorer{logger: logger}
}

func request(typ string) protocol.RequestMsg {
	return protocol.RequestMsg{Type: typ, ProtocolVersion: protocol.Version}
}

func (e *explorer) Opening() []any {
	return []any{request(protocol.TypeSupportedResourceRequest)}
}

// Tick polls the covert channel and the energy cell.
func (e *explorer) Tick() []any {
	return []any{
		request(protocol.TypeSupportedCombinationRequest),
		request(protocol.TypeAvailableEnergyCellRequest),
	}
}

func (e *explorer) OnFrame(typ string, raw []byte) []any {
	var r protocol.ReplyMsg
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	switch planet.Kind(typ) {
	case planet.KindSupportedResourceResponse:
		e.logger.Printf("planet generates %v", r.Resources)
	case planet.KindSupportedCombinationResponse:
		if !slices.Contains(r.Combinations, string(planet.WarningMarker)) {
			e.warnings++
			e.logger.Printf("WARNING: the planet took an undefended hit (warnings=%d)", e.warnings)
		}
	case planet.KindAvailableEnergyCellResponse:
		if r.Count != nil && *r.Count > 0 {
			g := request(protocol.TypeGenerateResourceRequest)
			g.Resource = string(resource.Carbon)
			return []any{g}
		}
	case planet.KindGenerateResourceResponse:
		if r.Resource == nil {
			return nil
		}
		e.carbon = append(e.carbon, *r.Resource)
		if len(e.carbon) >= 2 {
			a, b := e.carbon[0], e.carbon[1]
			e.carbon = e.carbon[2:]
			c := request(protocol.TypeCombineResourceRequest)
			c.Target = string(resource.Diamond)
			c.A, c.B = &a, &b
			return []any{c}
		}
	case planet.KindCombineResourceResponse:
		switch {
		case r.Complex != nil:
			e.diamonds = append(e.diamonds, *r.Complex)
			e.logger.Printf("combined %s %s (total=%d)", r.Complex.Kind, r.Complex.ID, len(e.diamonds))
		case r.Failure != nil:
			// Inputs come back untouched.
			e.carbon = append(e.carbon, r.Failure.A, r.Failure.B)
			e.logger.Printf("combine refused: %s", r.Failure.Reason)
		}
	}
	return nil
}
