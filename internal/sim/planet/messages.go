package planet

import (
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

// Kind tags every message variant. Handler tables are keyed by Kind.
type Kind string

// Orchestrator -> planet.
const (
	KindSunray               Kind = "SUNRAY"
	KindAsteroid             Kind = "ASTEROID"
	KindStartPlanetAI        Kind = "START_PLANET_AI"
	KindStopPlanetAI         Kind = "STOP_PLANET_AI"
	KindKillPlanet           Kind = "KILL_PLANET"
	KindInternalStateRequest Kind = "INTERNAL_STATE_REQUEST"
	KindIncomingExplorer     Kind = "INCOMING_EXPLORER_REQUEST"
	KindOutgoingExplorer     Kind = "OUTGOING_EXPLORER_REQUEST"
)

// Planet -> orchestrator.
const (
	KindSunrayAck                Kind = "SUNRAY_ACK"
	KindAsteroidAck              Kind = "ASTEROID_ACK"
	KindStartPlanetAIResult      Kind = "START_PLANET_AI_RESULT"
	KindStopPlanetAIResult       Kind = "STOP_PLANET_AI_RESULT"
	KindKillPlanetResult         Kind = "KILL_PLANET_RESULT"
	KindInternalStateResponse    Kind = "INTERNAL_STATE_RESPONSE"
	KindIncomingExplorerResponse Kind = "INCOMING_EXPLORER_RESPONSE"
	KindOutgoingExplorerResponse Kind = "OUTGOING_EXPLORER_RESPONSE"
	KindStopped                  Kind = "STOPPED"
)

// Explorer -> planet.
const (
	KindSupportedResourceRequest    Kind = "SUPPORTED_RESOURCE_REQUEST"
	KindSupportedCombinationRequest Kind = "SUPPORTED_COMBINATION_REQUEST"
	KindGenerateResourceRequest     Kind = "GENERATE_RESOURCE_REQUEST"
	KindCombineResourceRequest      Kind = "COMBINE_RESOURCE_REQUEST"
	KindAvailableEnergyCellRequest  Kind = "AVAILABLE_ENERGY_CELL_REQUEST"
)

// Planet -> explorer.
const (
	KindSupportedResourceResponse    Kind = "SUPPORTED_RESOURCE_RESPONSE"
	KindSupportedCombinationResponse Kind = "SUPPORTED_COMBINATION_RESPONSE"
	KindGenerateResourceResponse     Kind = "GENERATE_RESOURCE_RESPONSE"
	KindCombineResourceResponse      Kind = "COMBINE_RESOURCE_RESPONSE"
	KindAvailableEnergyCellResponse  Kind = "AVAILABLE_ENERGY_CELL_RESPONSE"
)

// OrchestratorKinds lists every orchestrator -> planet variant.
func OrchestratorKinds() []Kind {
	return []Kind{
		KindSunray, KindAsteroid, KindStartPlanetAI, KindStopPlanetAI, KindKillPlanet,
		KindInternalStateRequest, KindIncomingExplorer, KindOutgoingExplorer,
	}
}

// ExplorerKinds lists every explorer -> planet variant.
func ExplorerKinds() []Kind {
	return []Kind{
		KindSupportedResourceRequest, KindSupportedCombinationRequest, KindGenerateResourceRequest,
		KindCombineResourceRequest, KindAvailableEnergyCellRequest,
	}
}

// OrchestratorMsg is the closed set of orchestrator commands.
type OrchestratorMsg interface {
	Kind() Kind
	orchestratorMsg()
}

type SunrayMsg struct{ Sunray planetstate.Sunray }

type AsteroidMsg struct{ Asteroid planetstate.Asteroid }

type StartPlanetAI struct{}

type StopPlanetAI struct{}

type KillPlanet struct{}

type InternalStateRequest struct{}

// IncomingExplorerRequest announces a docking explorer. Reply is where the
// runtime delivers that explorer's responses; the core never touches it.
type IncomingExplorerRequest struct {
	ExplorerID string
	Reply      chan<- ExplorerResponse
}

type OutgoingExplorerRequest struct{ ExplorerID string }

func (SunrayMsg) Kind() Kind               { return KindSunray }
func (AsteroidMsg) Kind() Kind             { return KindAsteroid }
func (StartPlanetAI) Kind() Kind           { return KindStartPlanetAI }
func (StopPlanetAI) Kind() Kind            { return KindStopPlanetAI }
func (KillPlanet) Kind() Kind              { return KindKillPlanet }
func (InternalStateRequest) Kind() Kind    { return KindInternalStateRequest }
func (IncomingExplorerRequest) Kind() Kind { return KindIncomingExplorer }
func (OutgoingExplorerRequest) Kind() Kind { return KindOutgoingExplorer }

func (SunrayMsg) orchestratorMsg()               {}
func (AsteroidMsg) orchestratorMsg()             {}
func (StartPlanetAI) orchestratorMsg()           {}
func (StopPlanetAI) orchestratorMsg()            {}
func (KillPlanet) orchestratorMsg()              {}
func (InternalStateRequest) orchestratorMsg()    {}
func (IncomingExplorerRequest) orchestratorMsg() {}
func (OutgoingExplorerRequest) orchestratorMsg() {}

// OrchestratorResponse is the closed set of planet -> orchestrator messages.
type OrchestratorResponse interface {
	Kind() Kind
	Planet() string
	orchestratorResponse()
}

type SunrayAck struct{ PlanetID string }

// AsteroidAck carries the rocket used as countermeasure, or nil.
type AsteroidAck struct {
	PlanetID string
	Rocket   *planetstate.Rocket
}

type StartPlanetAIResult struct{ PlanetID string }

type StopPlanetAIResult struct{ PlanetID string }

type KillPlanetResult struct{ PlanetID string }

type InternalStateResponse struct {
	PlanetID string
	State    planetstate.Snapshot
}

// IncomingExplorerResponse reports docking; Err is empty on success.
type IncomingExplorerResponse struct {
	PlanetID   string
	ExplorerID string
	Err        string
}

type OutgoingExplorerResponse struct {
	PlanetID   string
	ExplorerID string
	Err        string
}

// Stopped is the terminal notice sent when a stop arrives at a stopped planet.
type Stopped struct{ PlanetID string }

func (SunrayAck) Kind() Kind                { return KindSunrayAck }
func (AsteroidAck) Kind() Kind              { return KindAsteroidAck }
func (StartPlanetAIResult) Kind() Kind      { return KindStartPlanetAIResult }
func (StopPlanetAIResult) Kind() Kind       { return KindStopPlanetAIResult }
func (KillPlanetResult) Kind() Kind         { return KindKillPlanetResult }
func (InternalStateResponse) Kind() Kind    { return KindInternalStateResponse }
func (IncomingExplorerResponse) Kind() Kind { return KindIncomingExplorerResponse }
func (OutgoingExplorerResponse) Kind() Kind { return KindOutgoingExplorerResponse }
func (Stopped) Kind() Kind                  { return KindStopped }

func (m SunrayAck) Planet() string                { return m.PlanetID }
func (m AsteroidAck) Planet() string              { return m.PlanetID }
func (m StartPlanetAIResult) Planet() string      { return m.PlanetID }
func (m StopPlanetAIResult) Planet() string       { return m.PlanetID }
func (m KillPlanetResult) Planet() string         { return m.PlanetID }
func (m InternalStateResponse) Planet() string    { return m.PlanetID }
func (m IncomingExplorerResponse) Planet() string { return m.PlanetID }
func (m OutgoingExplorerResponse) Planet() string { return m.PlanetID }
func (m Stopped) Planet() string                  { return m.PlanetID }

func (SunrayAck) orchestratorResponse()                {}
func (AsteroidAck) orchestratorResponse()              {}
func (StartPlanetAIResult) orchestratorResponse()      {}
func (StopPlanetAIResult) orchestratorResponse()       {}
func (KillPlanetResult) orchestratorResponse()         {}
func (InternalStateResponse) orchestratorResponse()    {}
func (IncomingExplorerResponse) orchestratorResponse() {}
func (OutgoingExplorerResponse) orchestratorResponse() {}
func (Stopped) orchestratorResponse()                  {}

// ExplorerMsg is the closed set of explorer requests.
type ExplorerMsg interface {
	Kind() Kind
	Explorer() string
	explorerMsg()
}

type SupportedResourceRequest struct{ ExplorerID string }

type SupportedCombinationRequest struct{ ExplorerID string }

type GenerateResourceRequest struct {
	ExplorerID string
	Resource   resource.BasicType
}

type CombineResourceRequest struct {
	ExplorerID string
	Request    resource.CombineRequest
}

type AvailableEnergyCellRequest struct{ ExplorerID string }

func (SupportedResourceRequest) Kind() Kind    { return KindSupportedResourceRequest }
func (SupportedCombinationRequest) Kind() Kind { return KindSupportedCombinationRequest }
func (GenerateResourceRequest) Kind() Kind     { return KindGenerateResourceRequest }
func (CombineResourceRequest) Kind() Kind      { return KindCombineResourceRequest }
func (AvailableEnergyCellRequest) Kind() Kind  { return KindAvailableEnergyCellRequest }

func (m SupportedResourceRequest) Explorer() string    { return m.ExplorerID }
func (m SupportedCombinationRequest) Explorer() string { return m.ExplorerID }
func (m GenerateResourceRequest) Explorer() string     { return m.ExplorerID }
func (m CombineResourceRequest) Explorer() string      { return m.ExplorerID }
func (m AvailableEnergyCellRequest) Explorer() string  { return m.ExplorerID }

func (SupportedResourceRequest) explorerMsg()    {}
func (SupportedCombinationRequest) explorerMsg() {}
func (GenerateResourceRequest) explorerMsg()     {}
func (CombineResourceRequest) explorerMsg()      {}
func (AvailableEnergyCellRequest) explorerMsg()  {}

// ExplorerResponse is the closed set of planet -> explorer messages.
type ExplorerResponse interface {
	Kind() Kind
	explorerResponse()
}

type SupportedResourceResponse struct{ Resources []resource.BasicType }

// SupportedCombinationResponse also carries the warning bit in its length.
type SupportedCombinationResponse struct{ Combinations []resource.ComplexType }

// GenerateResourceResponse carries nil when nothing was produced.
type GenerateResourceResponse struct{ Resource *resource.Basic }

// CombineFailure hands both inputs back so the explorer loses nothing.
type CombineFailure struct {
	Reason string
	A      resource.Generic
	B      resource.Generic
}

// CombineResourceResponse holds exactly one of Complex or Failure.
type CombineResourceResponse struct {
	Complex *resource.Complex
	Failure *CombineFailure
}

type AvailableEnergyCellResponse struct{ Count uint32 }

func (SupportedResourceResponse) Kind() Kind    { return KindSupportedResourceResponse }
func (SupportedCombinationResponse) Kind() Kind { return KindSupportedCombinationResponse }
func (GenerateResourceResponse) Kind() Kind     { return KindGenerateResourceResponse }
func (CombineResourceResponse) Kind() Kind      { return KindCombineResourceResponse }
func (AvailableEnergyCellResponse) Kind() Kind  { return KindAvailableEnergyCellResponse }

func (SupportedResourceResponse) explorerResponse()    {}
func (SupportedCombinationResponse) explorerResponse() {}
func (GenerateResourceResponse) explorerResponse()     {}
func (CombineResourceResponse) explorerResponse()      {}
func (AvailableEnergyCellResponse) explorerResponse()  {}
