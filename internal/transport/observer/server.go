package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"airfryer.ai/internal/observerproto"
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planet"
)

// StateSource answers point-in-time state queries. *planet.Planet implements it.
type StateSource interface {
	ID() string
	RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error)
}

// Server streams journal entries to loopback observers. It is a planet.Journal:
// install it with planet.Journals next to the durable journals.
type Server struct {
	src StateSource
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber

	dropped atomic.Uint64
}

type subscriber struct {
	out          chan []byte
	sources      map[string]bool
	onlyOutcomes bool
}

func NewServer(src StateSource, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[string]*subscriber{},
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped counts entries lost to slow observers.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// WriteEntry fans the entry out without blocking the planet loop.
func (s *Server) WriteEntry(e planet.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	b, err := json.Marshal(observerproto.EntryMsg{
		Type:            observerproto.TypeEntry,
		ProtocolVersion: observerproto.Version,
		Entry:           e,
	})
	if err != nil {
		return err
	}
	for _, sub := range s.subs {
		if !sub.wants(e) {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (sub *subscriber) wants(e planet.JournalEntry) bool {
	if len(sub.sources) > 0 && !sub.sources[e.Source] {
		return false
	}
	if sub.onlyOutcomes && e.Outcome == "" {
		return false
	}
	return true
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		snap, err := s.src.RequestSnapshot(ctx)
		if err != nil {
			http.Error(rw, fmt.Sprintf("state unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			PlanetID:        s.src.ID(),
			Seq:             snap.Header.Seq,
			Snapshot:        snap,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 1024)
		s.subscribe(sid, out, sub)
		defer s.unsubscribe(sid)
		s.log.Printf("observer %s subscribed", sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				s.subscribe(sid, out, sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) subscribe(sid string, out chan []byte, msg observerproto.SubscribeMsg) {
	sub := &subscriber{out: out, onlyOutcomes: msg.OnlyOutcomes}
	if len(msg.Sources) > 0 {
		sub.sources = map[string]bool{}
		for _, src := range msg.Sources {
			sub.sources[strings.ToLower(strings.TrimSpace(src))] = true
		}
	}
	s.mu.Lock()
	s.subs[sid] = sub
	s.mu.Unlock()
}

func (s *Server) unsubscribe(sid string) {
	s.mu.Lock()
	delete(s.subs, sid)
	s.mu.Unlock()
}

func parseSubscribe(raw []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(raw, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
}

func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
