package observerproto

import (
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planet"
)

// Version is the observer protocol version (separate from the planet WS protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeEntry     = "ENTRY"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Sources limits the feed to "orchestrator" and/or "explorer" entries.
	// Empty means both.
	Sources []string `json:"sources,omitempty"`
	// OnlyOutcomes skips entries without an outcome (asteroids, generation, combination).
	OnlyOutcomes bool `json:"only_outcomes,omitempty"`
}

// HTTP response for GET /admin/v1/state.
type BootstrapResponse struct {
	ProtocolVersion string              `json:"protocol_version"`
	PlanetID        string              `json:"planet_id"`
	Seq             uint64              `json:"seq"`
	Snapshot        snapshot.SnapshotV1 `json:"snapshot"`
}

// Server -> Client. One per journaled message.
type EntryMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Entry           planet.JournalEntry `json:"entry"`
}
