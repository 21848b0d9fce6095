package ws

import (
	"sync"

	"airfryer.ai/internal/sim/planet"
)

// hub owns one reply mailbox per explorer id. A mailbox outlives connections,
// so an orchestrator may dock an explorer before it connects and replies wait
// in the mailbox until its queue fills. A mailbox is dropped once its explorer
// is neither docked nor connected.
type hub struct {
	mu        sync.Mutex
	size      int
	mailboxes map[string]chan planet.ExplorerResponse
	attached  map[string]string // explorer id -> session id
	docked    map[string]int    // arrivals not yet matched by a departure
}

func newHub(size int) *hub {
	if size <= 0 {
		size = 64
	}
	return &hub{
		size:      size,
		mailboxes: map[string]chan planet.ExplorerResponse{},
		attached:  map[string]string{},
		docked:    map[string]int{},
	}
}

func (h *hub) mailboxLocked(explorerID string) chan planet.ExplorerResponse {
	mb, ok := h.mailboxes[explorerID]
	if !ok {
		mb = make(chan planet.ExplorerResponse, h.size)
		h.mailboxes[explorerID] = mb
	}
	return mb
}

func (h *hub) dropIdleLocked(explorerID string) {
	if h.docked[explorerID] > 0 {
		return
	}
	if _, busy := h.attached[explorerID]; busy {
		return
	}
	delete(h.docked, explorerID)
	delete(h.mailboxes, explorerID)
}

// reply is handed to the codec for explorer arrivals.
func (h *hub) reply(explorerID string) chan<- planet.ExplorerResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docked[explorerID]++
	return h.mailboxLocked(explorerID)
}

// route serves the planet's reply lookup. It never creates a mailbox.
func (h *hub) route(explorerID string) chan<- planet.ExplorerResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	if mb, ok := h.mailboxes[explorerID]; ok {
		return mb
	}
	return nil
}

// depart undoes one arrival after the planet confirmed the departure or
// refused the arrival.
func (h *hub) depart(explorerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.docked[explorerID] > 0 {
		h.docked[explorerID]--
	}
	h.dropIdleLocked(explorerID)
}

// attach binds a session to an explorer id. Only one session per id.
func (h *hub) attach(explorerID, sessionID string) (<-chan planet.ExplorerResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.attached[explorerID]; busy {
		return nil, false
	}
	h.attached[explorerID] = sessionID
	return h.mailboxLocked(explorerID), true
}

func (h *hub) detach(explorerID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attached[explorerID] == sessionID {
		delete(h.attached, explorerID)
		h.dropIdleLocked(explorerID)
	}
}

func (h *hub) connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.attached)
}

func (h *hub) mailboxCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.mailboxes)
}
