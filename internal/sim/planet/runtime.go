package planet

import (
	"context"
	"errors"
	"log"
	"os"
	"sync/atomic"

	"airfryer.ai/internal/persistence/snapshot"
)

var (
	// ErrNotRunning is returned by RequestSnapshot once Run has returned.
	ErrNotRunning   = errors.New("planet loop is not running")
	ErrStillRunning = errors.New("planet loop is still running")
)

type RuntimeConfig struct {
	OrchestratorQueue int
	ExplorerQueue     int
	ResponseQueue     int

	// SnapshotEvery emits a snapshot to the sink after every N handled
	// messages. Zero disables periodic snapshots.
	SnapshotEvery uint64
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		OrchestratorQueue: 256,
		ExplorerQueue:     256,
		ResponseQueue:     256,
		SnapshotEvery:     1000,
	}
}

func (c RuntimeConfig) Validate() error {
	if c.OrchestratorQueue <= 0 || c.ExplorerQueue <= 0 || c.ResponseQueue <= 0 {
		return errors.New("runtime queue sizes must be positive")
	}
	return nil
}

// Stats are counters readable from any goroutine.
type Stats struct {
	Handled       uint64
	Ignored       uint64
	Undelivered   uint64
	Refused       uint64
	Asteroids     uint64
	Undefended    uint64
	SnapshotsSent uint64
	Seq           uint64
}

// ReplyRoute resolves the reply channel of an explorer the planet holds no
// channel for, such as one docked before a restart. Nil means no route.
type ReplyRoute func(explorerID string) chan<- ExplorerResponse

// Planet runs one AI on a single goroutine. Orchestrator and explorer inboxes
// are drained by one select, so exactly one handler runs at a time.
type Planet struct {
	ai     *AI
	cfg    RuntimeConfig
	logger *log.Logger

	orchestrator chan OrchestratorMsg
	explorer     chan ExplorerMsg
	responses    chan OrchestratorResponse
	stateReq     chan chan snapshot.SnapshotV1
	done         chan struct{}

	// replies maps a docked explorer to the channel given at arrival.
	replies map[string]chan<- ExplorerResponse
	route   ReplyRoute

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	journal      Journal
	snapshotSink chan<- snapshot.SnapshotV1

	seq           atomic.Uint64
	handled       atomic.Uint64
	ignored       atomic.Uint64
	undelivered   atomic.Uint64
	refused       atomic.Uint64
	asteroids     atomic.Uint64
	undefended    atomic.Uint64
	snapshotsSent atomic.Uint64
}

func NewPlanet(ai *AI, cfg RuntimeConfig, logger *log.Logger) (*Planet, error) {
	if ai == nil {
		return nil, errors.New("planet ai must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[planet] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Planet{
		ai:           ai,
		cfg:          cfg,
		logger:       logger,
		orchestrator: make(chan OrchestratorMsg, cfg.OrchestratorQueue),
		explorer:     make(chan ExplorerMsg, cfg.ExplorerQueue),
		responses:    make(chan OrchestratorResponse, cfg.ResponseQueue),
		stateReq:     make(chan chan snapshot.SnapshotV1, 8),
		done:         make(chan struct{}),
		replies:      map[string]chan<- ExplorerResponse{},
	}, nil
}

func (p *Planet) SetJournal(j Journal)                          { p.journal = j }
func (p *Planet) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { p.snapshotSink = ch }

// SetReplyRoute must be called before Run.
func (p *Planet) SetReplyRoute(r ReplyRoute) { p.route = r }

// SetSeq continues numbering after a restored snapshot.
func (p *Planet) SetSeq(seq uint64) { p.seq.Store(seq) }

func (p *Planet) ID() string                             { return p.ai.PlanetID() }
func (p *Planet) Orchestrator() chan<- OrchestratorMsg   { return p.orchestrator }
func (p *Planet) Explorer() chan<- ExplorerMsg           { return p.explorer }
func (p *Planet) Responses() <-chan OrchestratorResponse { return p.responses }

// Done is closed when Run returns.
func (p *Planet) Done() <-chan struct{} { return p.done }

func (p *Planet) Stats() Stats {
	return Stats{
		Handled:       p.handled.Load(),
		Ignored:       p.ignored.Load(),
		Undelivered:   p.undelivered.Load(),
		Refused:       p.refused.Load(),
		Asteroids:     p.asteroids.Load(),
		Undefended:    p.undefended.Load(),
		SnapshotsSent: p.snapshotsSent.Load(),
		Seq:           p.seq.Load(),
	}
}

// RequestSnapshot asks the loop for a snapshot of the current state.
func (p *Planet) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	resp := make(chan snapshot.SnapshotV1, 1)
	select {
	case p.stateReq <- resp:
	case <-p.done:
		return snapshot.SnapshotV1{}, ErrNotRunning
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case snap := <-resp:
		return snap, nil
	case <-p.done:
		select {
		case snap := <-resp:
			return snap, nil
		default:
			return snapshot.SnapshotV1{}, ErrNotRunning
		}
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// FinalSnapshot exports the state left behind after Run has returned. killed
// reports whether the loop ended because the planet was destroyed.
func (p *Planet) FinalSnapshot() (snap snapshot.SnapshotV1, killed bool, err error) {
	select {
	case <-p.done:
	default:
		return snapshot.SnapshotV1{}, false, ErrStillRunning
	}
	return p.ai.ExportSnapshot(p.seq.Load()), p.ai.Killed(), nil
}

func (p *Planet) Run(ctx context.Context) error {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.orchestrator:
			if err := p.handleOrchestrator(ctx, msg); err != nil {
				return err
			}
			if p.ai.Killed() {
				p.logger.Printf("planet %s killed at seq %d", p.ai.PlanetID(), p.seq.Load())
				return nil
			}
		case msg := <-p.explorer:
			p.handleExplorer(msg)
		case req := <-p.stateReq:
			req <- p.ai.ExportSnapshot(p.seq.Load())
		}
	}
}

func (p *Planet) handleOrchestrator(ctx context.Context, msg OrchestratorMsg) error {
	if msg == nil {
		return nil
	}
	seq := p.seq.Add(1)
	resp, ok := p.ai.HandleOrchestrator(msg)
	entry := JournalEntry{
		Seq:     seq,
		Source:  SourceOrchestrator,
		Message: RecordOrchestrator(msg),
		Digest:  p.ai.Digest(),
	}
	if !ok {
		p.ignored.Add(1)
		p.finish(entry)
		return nil
	}
	p.handled.Add(1)
	p.trackReplies(msg, resp)
	entry.Response = resp.Kind()
	entry.Outcome = orchestratorOutcome(resp)
	if entry.Outcome != "" {
		p.asteroids.Add(1)
		if entry.Outcome == OutcomeUndefended {
			p.undefended.Add(1)
		}
	}

	select {
	case p.responses <- resp:
	case <-ctx.Done():
		entry.Dropped = true
		p.undelivered.Add(1)
		p.finish(entry)
		return ctx.Err()
	}
	p.finish(entry)
	return nil
}

func (p *Planet) trackReplies(msg OrchestratorMsg, resp OrchestratorResponse) {
	switch r := resp.(type) {
	case IncomingExplorerResponse:
		in, _ := msg.(IncomingExplorerRequest)
		if r.Err == "" && in.Reply != nil {
			p.replies[r.ExplorerID] = in.Reply
			p.logger.Printf("explorer %s docked on %s", r.ExplorerID, r.PlanetID)
		}
	case OutgoingExplorerResponse:
		if r.Err == "" {
			delete(p.replies, r.ExplorerID)
			p.logger.Printf("explorer %s left %s", r.ExplorerID, r.PlanetID)
		}
	case StopPlanetAIResult, KillPlanetResult:
		clear(p.replies)
	}
}

func (p *Planet) handleExplorer(msg ExplorerMsg) {
	if msg == nil {
		return
	}
	// A request nobody can hear the answer to never reaches the AI: the answer
	// may spend the charge, the pending warning or combine inputs.
	reply := p.replyFor(msg.Explorer())
	if reply == nil || len(reply) == cap(reply) {
		p.refused.Add(1)
		p.logger.Printf("refused %s from explorer %q: no reply route", msg.Kind(), msg.Explorer())
		return
	}
	seq := p.seq.Add(1)
	resp, ok := p.ai.HandleExplorer(msg)
	entry := JournalEntry{
		Seq:     seq,
		Source:  SourceExplorer,
		Message: RecordExplorer(msg),
		Digest:  p.ai.Digest(),
	}
	if !ok {
		p.ignored.Add(1)
		p.finish(entry)
		return
	}
	p.handled.Add(1)
	entry.Response = resp.Kind()
	entry.Outcome = explorerOutcome(resp)

	if !sendReply(reply, resp) {
		entry.Dropped = true
		p.undelivered.Add(1)
		p.logger.Printf("dropped %s for explorer %q", resp.Kind(), msg.Explorer())
	}
	p.finish(entry)
}

func (p *Planet) replyFor(explorerID string) chan<- ExplorerResponse {
	if ch := p.replies[explorerID]; ch != nil {
		return ch
	}
	if p.route != nil {
		return p.route(explorerID)
	}
	return nil
}

func (p *Planet) finish(entry JournalEntry) {
	if p.journal != nil {
		if err := p.journal.WriteEntry(entry); err != nil {
			p.logger.Printf("journal write seq %d: %v", entry.Seq, err)
		}
	}
	every := p.cfg.SnapshotEvery
	if p.snapshotSink != nil && every > 0 && entry.Seq%every == 0 {
		snap := p.ai.ExportSnapshot(entry.Seq)
		select {
		case p.snapshotSink <- snap:
			p.snapshotsSent.Add(1)
		default:
			// Drop snapshot if sink is backed up.
			p.logger.Printf("snapshot sink full, skipped seq %d", entry.Seq)
		}
	}
}

// sendReply never blocks the loop. The loop is the only sender on reply
// channels, so it succeeds whenever replyFor found room.
func sendReply(ch chan<- ExplorerResponse, resp ExplorerResponse) bool {
	select {
	case ch <- resp:
		return true
	default:
		return false
	}
}
