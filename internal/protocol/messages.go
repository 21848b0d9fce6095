package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Role            string `json:"role"`
	Name            string `json:"name,omitempty"`
	// ExplorerID is required for RoleExplorer.
	ExplorerID string `json:"explorer_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	PlanetID        string `json:"planet_id"`
	Role            string `json:"role"`
	ExplorerID      string `json:"explorer_id,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// CommandMsg is one orchestrator command. Only the fields its type needs are set.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SunrayID        string `json:"sunray_id,omitempty"`
	AsteroidID      string `json:"asteroid_id,omitempty"`
	ExplorerID      string `json:"explorer_id,omitempty"`
}

// RequestMsg is one explorer request. The explorer id comes from the session.
type RequestMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Resource        string       `json:"resource,omitempty"`
	Target          string       `json:"target,omitempty"`
	A               *ResourceRef `json:"a,omitempty"`
	B               *ResourceRef `json:"b,omitempty"`
}

// ResourceRef names one held resource, basic or complex, by kind and id.
type ResourceRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type RocketRef struct {
	ID string `json:"id"`
}

type PlanetStateObs struct {
	EnergyCells  []bool `json:"energy_cells"`
	ChargedCells int    `json:"charged_cells"`
	HasRocket    bool   `json:"has_rocket"`
}

// EventMsg is one planet -> orchestrator response.
type EventMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	PlanetID        string          `json:"planet_id"`
	Rocket          *RocketRef      `json:"rocket,omitempty"`
	State           *PlanetStateObs `json:"state,omitempty"`
	ExplorerID      string          `json:"explorer_id,omitempty"`
	Error           string          `json:"error,omitempty"`
}

type CombineFailureObs struct {
	Reason string      `json:"reason"`
	A      ResourceRef `json:"a"`
	B      ResourceRef `json:"b"`
}

// ReplyMsg is one planet -> explorer response.
type ReplyMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Resources       []string           `json:"resources,omitempty"`
	Combinations    []string           `json:"combinations,omitempty"`
	Resource        *ResourceRef       `json:"resource,omitempty"`
	Complex         *ResourceRef       `json:"complex,omitempty"`
	Failure         *CombineFailureObs `json:"failure,omitempty"`
	Count           *int               `json:"count,omitempty"`
}
