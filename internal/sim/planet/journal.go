package planet

import (
	"fmt"

	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

const (
	SourceOrchestrator = "orchestrator"
	SourceExplorer     = "explorer"
)

// Outcome values recorded for messages whose effect is not visible in the
// response kind alone.
const (
	OutcomeDefended   = "defended"
	OutcomeUndefended = "undefended"
	OutcomeProduced   = "produced"
	OutcomeEmpty      = "empty"
	OutcomeRefused    = "refused"
)

// Journal receives one entry per handled message. Implemented in
// internal/persistence/*.
type Journal interface {
	WriteEntry(entry JournalEntry) error
}

// Journals fans one entry out to several journals. Every journal is written
// even when an earlier one fails; the first error is returned.
func Journals(js ...Journal) Journal { return multiJournal(js) }

type multiJournal []Journal

func (m multiJournal) WriteEntry(entry JournalEntry) error {
	var first error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.WriteEntry(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type JournalEntry struct {
	Seq      uint64          `json:"seq"`
	Source   string          `json:"source"`
	Message  RecordedMessage `json:"message"`
	Response Kind            `json:"response,omitempty"`
	Outcome  string          `json:"outcome,omitempty"`
	// Dropped is set when the planet handled the message but the response
	// could not be delivered.
	Dropped bool   `json:"dropped,omitempty"`
	Digest  string `json:"digest"`
}

// RecordedMessage is the serializable form of an inbound message. Reply
// channels are not recorded.
type RecordedMessage struct {
	Kind       Kind                     `json:"kind"`
	ExplorerID string                   `json:"explorer_id,omitempty"`
	SunrayID   string                   `json:"sunray_id,omitempty"`
	AsteroidID string                   `json:"asteroid_id,omitempty"`
	Resource   resource.BasicType       `json:"resource,omitempty"`
	Combine    *resource.CombineRequest `json:"combine,omitempty"`
}

func RecordOrchestrator(msg OrchestratorMsg) RecordedMessage {
	rec := RecordedMessage{Kind: msg.Kind()}
	switch m := msg.(type) {
	case SunrayMsg:
		rec.SunrayID = m.Sunray.ID
	case AsteroidMsg:
		rec.AsteroidID = m.Asteroid.ID
	case IncomingExplorerRequest:
		rec.ExplorerID = m.ExplorerID
	case OutgoingExplorerRequest:
		rec.ExplorerID = m.ExplorerID
	}
	return rec
}

func RecordExplorer(msg ExplorerMsg) RecordedMessage {
	rec := RecordedMessage{Kind: msg.Kind(), ExplorerID: msg.Explorer()}
	switch m := msg.(type) {
	case GenerateResourceRequest:
		rec.Resource = m.Resource
	case CombineResourceRequest:
		req := m.Request
		rec.Combine = &req
	}
	return rec
}

// Orchestrator rebuilds the orchestrator message. Replayed explorer arrivals
// carry no reply channel.
func (r RecordedMessage) Orchestrator() (OrchestratorMsg, error) {
	switch r.Kind {
	case KindSunray:
		return SunrayMsg{Sunray: planetstate.Sunray{ID: r.SunrayID}}, nil
	case KindAsteroid:
		return AsteroidMsg{Asteroid: planetstate.Asteroid{ID: r.AsteroidID}}, nil
	case KindStartPlanetAI:
		return StartPlanetAI{}, nil
	case KindStopPlanetAI:
		return StopPlanetAI{}, nil
	case KindKillPlanet:
		return KillPlanet{}, nil
	case KindInternalStateRequest:
		return InternalStateRequest{}, nil
	case KindIncomingExplorer:
		return IncomingExplorerRequest{ExplorerID: r.ExplorerID}, nil
	case KindOutgoingExplorer:
		return OutgoingExplorerRequest{ExplorerID: r.ExplorerID}, nil
	default:
		return nil, fmt.Errorf("not an orchestrator message: %q", r.Kind)
	}
}

func (r RecordedMessage) Explorer() (ExplorerMsg, error) {
	switch r.Kind {
	case KindSupportedResourceRequest:
		return SupportedResourceRequest{ExplorerID: r.ExplorerID}, nil
	case KindSupportedCombinationRequest:
		return SupportedCombinationRequest{ExplorerID: r.ExplorerID}, nil
	case KindGenerateResourceRequest:
		return GenerateResourceRequest{ExplorerID: r.ExplorerID, Resource: r.Resource}, nil
	case KindCombineResourceRequest:
		if r.Combine == nil {
			return nil, fmt.Errorf("combine request without payload")
		}
		return CombineResourceRequest{ExplorerID: r.ExplorerID, Request: *r.Combine}, nil
	case KindAvailableEnergyCellRequest:
		return AvailableEnergyCellRequest{ExplorerID: r.ExplorerID}, nil
	default:
		return nil, fmt.Errorf("not an explorer message: %q", r.Kind)
	}
}

// Apply replays one recorded entry against a and returns the resulting digest.
func (a *AI) Apply(e JournalEntry) (string, error) {
	switch e.Source {
	case SourceOrchestrator:
		msg, err := e.Message.Orchestrator()
		if err != nil {
			return "", err
		}
		a.HandleOrchestrator(msg)
	case SourceExplorer:
		msg, err := e.Message.Explorer()
		if err != nil {
			return "", err
		}
		a.HandleExplorer(msg)
	default:
		return "", fmt.Errorf("unknown journal source %q", e.Source)
	}
	return a.Digest(), nil
}

func orchestratorOutcome(resp OrchestratorResponse) string {
	if ack, ok := resp.(AsteroidAck); ok {
		if ack.Rocket != nil {
			return OutcomeDefended
		}
		return OutcomeUndefended
	}
	return ""
}

func explorerOutcome(resp ExplorerResponse) string {
	switch r := resp.(type) {
	case GenerateResourceResponse:
		if r.Resource != nil {
			return OutcomeProduced
		}
		return OutcomeEmpty
	case CombineResourceResponse:
		if r.Complex != nil {
			return OutcomeProduced
		}
		return OutcomeRefused
	}
	return ""
}
