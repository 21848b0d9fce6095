package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/planet"
)

// Planet is the runtime surface the transport drives. *planet.Planet
// implements it.
type Planet interface {
	ID() string
	Orchestrator() chan<- planet.OrchestratorMsg
	Explorer() chan<- planet.ExplorerMsg
	Responses() <-chan planet.OrchestratorResponse
	Done() <-chan struct{}
}

type Stats struct {
	Orchestrators  int
	Explorers      int
	Mailboxes      int
	EventsSent     uint64
	EventsDropped  uint64
	FramesRejected uint64
}

type Server struct {
	planet    Planet
	log       *log.Logger
	validator *protocol.Validator
	hub       *hub

	upgrader websocket.Upgrader

	mu          sync.Mutex
	orchSession string
	orchOut     chan []byte

	eventsSent     atomic.Uint64
	eventsDropped  atomic.Uint64
	framesRejected atomic.Uint64
}

func NewServer(p Planet, replyQueue int, logger *log.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("ws: planet must not be nil")
	}
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("ws: schemas: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		planet:    p,
		log:       logger,
		validator: v,
		hub:       newHub(replyQueue),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	orch := 0
	if s.orchOut != nil {
		orch = 1
	}
	s.mu.Unlock()
	return Stats{
		Orchestrators:  orch,
		Explorers:      s.hub.connected(),
		Mailboxes:      s.hub.mailboxCount(),
		EventsSent:     s.eventsSent.Load(),
		EventsDropped:  s.eventsDropped.Load(),
		FramesRejected: s.framesRejected.Load(),
	}
}

// ReplyRoute finds the mailbox of an explorer the planet has no reply
// channel for. Install it with planet.Planet.SetReplyRoute.
func (s *Server) ReplyRoute(explorerID string) chan<- planet.ExplorerResponse {
	return s.hub.route(explorerID)
}

// Run pumps planet responses to the connected orchestrator until ctx is done
// or the planet loop exits. The planet blocks on its response queue, so Run
// must be running whenever the planet is.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp := <-s.planet.Responses():
			s.deliverEvent(resp)
		case <-s.planet.Done():
			for {
				select {
				case resp := <-s.planet.Responses():
					s.deliverEvent(resp)
				default:
					return nil
				}
			}
		}
	}
}

func (s *Server) deliverEvent(resp planet.OrchestratorResponse) {
	if out, ok := resp.(planet.OutgoingExplorerResponse); ok && out.Err == "" {
		s.hub.depart(out.ExplorerID)
	}
	b, err := json.Marshal(encodeEvent(resp))
	if err != nil {
		s.log.Printf("encode %s: %v", resp.Kind(), err)
		s.eventsDropped.Add(1)
		return
	}
	s.mu.Lock()
	out := s.orchOut
	s.mu.Unlock()
	if out == nil {
		s.eventsDropped.Add(1)
		s.log.Printf("no orchestrator connected, dropped %s", resp.Kind())
		return
	}
	select {
	case out <- b:
		s.eventsSent.Add(1)
	default:
		s.eventsDropped.Add(1)
		s.log.Printf("orchestrator queue full, dropped %s", resp.Kind())
	}
}

func (s *Server) OrchestratorHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn, protocol.RoleOrchestrator)
		if !ok {
			return
		}
		sessionID := uuid.NewString()
		out := make(chan []byte, 256)
		if !s.claimOrchestrator(sessionID, out) {
			s.reject(conn, protocol.ErrPlanetBusy, "an orchestrator is already connected")
			return
		}
		defer s.releaseOrchestrator(sessionID)
		if err := s.welcome(conn, sessionID, protocol.RoleOrchestrator, ""); err != nil {
			return
		}
		s.log.Printf("orchestrator %q connected session=%s", hello.Name, sessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go writeLoop(ctx, cancel, conn, out, nil)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msg, code, err := s.readCommand(raw)
			if err != nil {
				s.queueError(out, code, err.Error())
				continue
			}
			if code, err := s.forward(func() bool { return trySendOrch(s.planet.Orchestrator(), msg) }); err != nil {
				if in, ok := msg.(planet.IncomingExplorerRequest); ok && in.Reply != nil {
					s.hub.depart(in.ExplorerID)
				}
				s.queueError(out, code, err.Error())
			}
		}
		s.log.Printf("orchestrator session=%s disconnected", sessionID)
	}
}

func (s *Server) ExplorerHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn, protocol.RoleExplorer)
		if !ok {
			return
		}
		explorerID := strings.TrimSpace(hello.ExplorerID)
		if explorerID == "" {
			s.reject(conn, protocol.ErrProtoBadRequest, "explorer_id must not be blank")
			return
		}
		sessionID := uuid.NewString()
		mailbox, ok := s.hub.attach(explorerID, sessionID)
		if !ok {
			s.reject(conn, protocol.ErrExplorerConflict, fmt.Sprintf("explorer %s is already connected", explorerID))
			return
		}
		defer s.hub.detach(explorerID, sessionID)
		if err := s.welcome(conn, sessionID, protocol.RoleExplorer, explorerID); err != nil {
			return
		}
		s.log.Printf("explorer %s connected session=%s", explorerID, sessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, 16)
		go writeLoop(ctx, cancel, conn, out, mailbox)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msg, code, err := s.readRequest(explorerID, raw)
			if err != nil {
				s.queueError(out, code, err.Error())
				continue
			}
			if code, err := s.forward(func() bool { return trySendExpl(s.planet.Explorer(), msg) }); err != nil {
				s.queueError(out, code, err.Error())
			}
		}
		s.log.Printf("explorer %s session=%s disconnected", explorerID, sessionID)
	}
}

var commandTypes = map[string]bool{
	protocol.TypeSunray:               true,
	protocol.TypeAsteroid:             true,
	protocol.TypeStartPlanetAI:        true,
	protocol.TypeStopPlanetAI:         true,
	protocol.TypeKillPlanet:           true,
	protocol.TypeInternalStateRequest: true,
	protocol.TypeIncomingExplorer:     true,
	protocol.TypeOutgoingExplorer:     true,
}

var requestTypes = map[string]bool{
	protocol.TypeSupportedResourceRequest:    true,
	protocol.TypeSupportedCombinationRequest: true,
	protocol.TypeGenerateResourceRequest:     true,
	protocol.TypeCombineResourceRequest:      true,
	protocol.TypeAvailableEnergyCellRequest:  true,
}

// checkFrame runs the checks shared by both roles and returns an error code
// when the frame must be rejected.
func (s *Server) checkFrame(raw []byte, known map[string]bool, schema string) (string, error) {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return protocol.ErrProtoBadRequest, fmt.Errorf("malformed frame: %w", err)
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.ErrProtoVersion, fmt.Errorf("protocol_version %q not supported", base.ProtocolVersion)
	}
	if !known[base.Type] {
		return protocol.ErrUnknownType, fmt.Errorf("unknown type %q", base.Type)
	}
	if err := s.validator.Validate(schema, raw); err != nil {
		return protocol.ErrProtoBadRequest, err
	}
	return "", nil
}

func (s *Server) readCommand(raw []byte) (planet.OrchestratorMsg, string, error) {
	if code, err := s.checkFrame(raw, commandTypes, protocol.SchemaCommand); err != nil {
		s.framesRejected.Add(1)
		return nil, code, err
	}
	var cmd protocol.CommandMsg
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.framesRejected.Add(1)
		return nil, protocol.ErrProtoBadRequest, err
	}
	msg, err := decodeCommand(cmd, s.hub.reply)
	if err != nil {
		s.framesRejected.Add(1)
		return nil, protocol.ErrBadRequest, err
	}
	return msg, "", nil
}

func (s *Server) readRequest(explorerID string, raw []byte) (planet.ExplorerMsg, string, error) {
	if code, err := s.checkFrame(raw, requestTypes, protocol.SchemaRequest); err != nil {
		s.framesRejected.Add(1)
		return nil, code, err
	}
	var req protocol.RequestMsg
	if err := json.Unmarshal(raw, &req); err != nil {
		s.framesRejected.Add(1)
		return nil, protocol.ErrProtoBadRequest, err
	}
	msg, err := decodeRequest(explorerID, req)
	if err != nil {
		s.framesRejected.Add(1)
		return nil, protocol.ErrBadRequest, err
	}
	return msg, "", nil
}

// forward never blocks the connection: a full inbox is reported as busy.
func (s *Server) forward(send func() bool) (string, error) {
	select {
	case <-s.planet.Done():
		return protocol.ErrPlanetGone, errors.New("planet is no longer running")
	default:
	}
	if !send() {
		return protocol.ErrPlanetBusy, errors.New("planet inbox is full")
	}
	return "", nil
}

func trySendOrch(ch chan<- planet.OrchestratorMsg, msg planet.OrchestratorMsg) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func trySendExpl(ch chan<- planet.ExplorerMsg, msg planet.ExplorerMsg) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func (s *Server) claimOrchestrator(sessionID string, out chan []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orchOut != nil {
		return false
	}
	s.orchSession = sessionID
	s.orchOut = out
	return true
}

func (s *Server) releaseOrchestrator(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orchSession == sessionID {
		s.orchSession = ""
		s.orchOut = nil
	}
}

func (s *Server) handshake(conn *websocket.Conn, role string) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}
	base, err := protocol.DecodeBase(raw)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return hello, false
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return hello, false
	}
	if err := s.validator.Validate(protocol.SchemaHello, raw); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, err.Error())
		return hello, false
	}
	if err := json.Unmarshal(raw, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, err.Error())
		return hello, false
	}
	if hello.Role != role {
		s.reject(conn, protocol.ErrProtoBadRole, fmt.Sprintf("endpoint serves %s, got %s", role, hello.Role))
		return hello, false
	}
	return hello, true
}

func (s *Server) welcome(conn *websocket.Conn, sessionID, role, explorerID string) error {
	return writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		PlanetID:        s.planet.ID(),
		Role:            role,
		ExplorerID:      explorerID,
	})
}

// reject sends an ERROR frame and closes the connection.
func (s *Server) reject(conn *websocket.Conn, code, msg string) {
	s.framesRejected.Add(1)
	_ = writeJSON(conn, protocol.NewError(code, msg))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func (s *Server) queueError(out chan<- []byte, code, msg string) {
	b, err := json.Marshal(protocol.NewError(code, msg))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		// Connection is backed up; the error is not worth blocking for.
	}
}

// writeLoop owns all writes after the handshake. mailbox may be nil.
func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte, mailbox <-chan planet.ExplorerResponse) {
	for {
		var b []byte
		select {
		case <-ctx.Done():
			return
		case b = <-out:
		case resp := <-mailbox:
			var err error
			if b, err = json.Marshal(encodeReply(resp)); err != nil {
				continue
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			cancel()
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
