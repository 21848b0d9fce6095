package protocol

import "encoding/json"

const Version = "1.0"

// Handshake and control types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeError   = "ERROR"
)

// Orchestrator -> planet commands.
const (
	TypeSunray               = "SUNRAY"
	TypeAsteroid             = "ASTEROID"
	TypeStartPlanetAI        = "START_PLANET_AI"
	TypeStopPlanetAI         = "STOP_PLANET_AI"
	TypeKillPlanet           = "KILL_PLANET"
	TypeInternalStateRequest = "INTERNAL_STATE_REQUEST"
	TypeIncomingExplorer     = "INCOMING_EXPLORER_REQUEST"
	TypeOutgoingExplorer     = "OUTGOING_EXPLORER_REQUEST"
)

// Explorer -> planet requests.
const (
	TypeSupportedResourceRequest    = "SUPPORTED_RESOURCE_REQUEST"
	TypeSupportedCombinationRequest = "SUPPORTED_COMBINATION_REQUEST"
	TypeGenerateResourceRequest     = "GENERATE_RESOURCE_REQUEST"
	TypeCombineResourceRequest      = "COMBINE_RESOURCE_REQUEST"
	TypeAvailableEnergyCellRequest  = "AVAILABLE_ENERGY_CELL_REQUEST"
)

// Connection roles.
const (
	RoleOrchestrator = "ORCHESTRATOR"
	RoleExplorer     = "EXPLORER"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
