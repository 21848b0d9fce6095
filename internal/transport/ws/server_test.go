package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"airfryer.ai/internal/protocol"
	"airfryer.ai/internal/sim/engine"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/planetstate"
)

func startServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	cfg := planet.DefaultConfig("P1")
	ai, err := planet.New(cfg, planetstate.New(cfg.PlanetID), engine.NewForge())
	if err != nil {
		t.Fatalf("planet.New: %v", err)
	}
	quiet := log.New(io.Discard, "", 0)
	p, err := planet.NewPlanet(ai, planet.DefaultRuntimeConfig(), quiet)
	if err != nil {
		t.Fatalf("NewPlanet: %v", err)
	}
	srv, err := NewServer(p, 8, quiet)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	p.SetReplyRoute(srv.ReplyRoute)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	go func() { _ = srv.Run(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/orchestrator", srv.OrchestratorHandler())
	mux.HandleFunc("/v1/explorer", srv.ExplorerHandler())
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return hs, srv
}

func dial(t *testing.T, hs *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// frame is a superset of every server frame.
type frame struct {
	Type         string                `json:"type"`
	Code         string                `json:"code"`
	SessionID    string                `json:"session_id"`
	PlanetID     string                `json:"planet_id"`
	ExplorerID   string                `json:"explorer_id"`
	Error        string                `json:"error"`
	Rocket       *protocol.RocketRef   `json:"rocket"`
	Combinations []string              `json:"combinations"`
	Resource     *protocol.ResourceRef `json:"resource"`
	Count        *int                  `json:"count"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return f
}

func hello(role, explorerID string) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Role: role, ExplorerID: explorerID}
}

func command(typ, explorerID string) protocol.CommandMsg {
	return protocol.CommandMsg{Type: typ, ProtocolVersion: protocol.Version, ExplorerID: explorerID}
}

func request(typ string) protocol.RequestMsg {
	return protocol.RequestMsg{Type: typ, ProtocolVersion: protocol.Version}
}

func connect(t *testing.T, hs *httptest.Server, path, role, explorerID string) *websocket.Conn {
	t.Helper()
	conn := dial(t, hs, path)
	sendJSON(t, conn, hello(role, explorerID))
	w := readFrame(t, conn)
	if w.Type != protocol.TypeWelcome || w.PlanetID != "P1" || w.SessionID == "" {
		t.Fatalf("welcome = %+v", w)
	}
	return conn
}

func TestServer_CovertWarningEndToEnd(t *testing.T) {
	hs, srv := startServer(t)
	orch := connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")
	expl := connect(t, hs, "/v1/explorer", protocol.RoleExplorer, "E1")

	sendJSON(t, orch, command(protocol.TypeStartPlanetAI, ""))
	if f := readFrame(t, orch); f.Type != string(planet.KindStartPlanetAIResult) {
		t.Fatalf("start = %+v", f)
	}
	sendJSON(t, orch, command(protocol.TypeIncomingExplorer, "E1"))
	if f := readFrame(t, orch); f.Type != string(planet.KindIncomingExplorerResponse) || f.Error != "" || f.ExplorerID != "E1" {
		t.Fatalf("dock = %+v", f)
	}
	sendJSON(t, orch, command(protocol.TypeAsteroid, ""))
	if f := readFrame(t, orch); f.Type != string(planet.KindAsteroidAck) || f.Rocket != nil {
		t.Fatalf("asteroid = %+v", f)
	}

	sendJSON(t, expl, request(protocol.TypeSupportedCombinationRequest))
	if f := readFrame(t, expl); len(f.Combinations) != 5 {
		t.Fatalf("first query = %+v", f)
	}
	sendJSON(t, expl, request(protocol.TypeSupportedCombinationRequest))
	if f := readFrame(t, expl); len(f.Combinations) != 6 {
		t.Fatalf("second query = %+v", f)
	}
	sendJSON(t, expl, request(protocol.TypeAvailableEnergyCellRequest))
	if f := readFrame(t, expl); f.Count == nil || *f.Count != 0 {
		t.Fatalf("cell query = %+v", f)
	}

	if st := srv.Stats(); st.Orchestrators != 1 || st.Explorers != 1 || st.EventsSent != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestServer_RejectsBadFrames(t *testing.T) {
	hs, _ := startServer(t)
	orch := connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")

	sendJSON(t, orch, protocol.CommandMsg{Type: protocol.TypeSunray, ProtocolVersion: "0.9"})
	if f := readFrame(t, orch); f.Type != protocol.TypeError || f.Code != protocol.ErrProtoVersion {
		t.Fatalf("version = %+v", f)
	}
	sendJSON(t, orch, command("LASER", ""))
	if f := readFrame(t, orch); f.Code != protocol.ErrUnknownType {
		t.Fatalf("unknown = %+v", f)
	}
	sendJSON(t, orch, command(protocol.TypeIncomingExplorer, ""))
	if f := readFrame(t, orch); f.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("missing explorer = %+v", f)
	}
	if err := orch.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, orch); f.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("garbage = %+v", f)
	}
}

func TestServer_HandshakeRejections(t *testing.T) {
	hs, _ := startServer(t)
	connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")
	connect(t, hs, "/v1/explorer", protocol.RoleExplorer, "E1")

	cases := []struct {
		name string
		path string
		msg  protocol.HelloMsg
		code string
	}{
		{"second orchestrator", "/v1/orchestrator", hello(protocol.RoleOrchestrator, ""), protocol.ErrPlanetBusy},
		{"duplicate explorer", "/v1/explorer", hello(protocol.RoleExplorer, "E1"), protocol.ErrExplorerConflict},
		{"wrong role", "/v1/orchestrator", hello(protocol.RoleExplorer, "E2"), protocol.ErrProtoBadRole},
		{"explorer without id", "/v1/explorer", hello(protocol.RoleExplorer, ""), protocol.ErrProtoBadRequest},
		{"bad version", "/v1/explorer", protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "2", Role: protocol.RoleExplorer, ExplorerID: "E3"}, protocol.ErrProtoVersion},
	}
	for _, tc := range cases {
		conn := dial(t, hs, tc.path)
		sendJSON(t, conn, tc.msg)
		if f := readFrame(t, conn); f.Type != protocol.TypeError || f.Code != tc.code {
			t.Fatalf("%s: got %+v, want %s", tc.name, f, tc.code)
		}
	}
}

func TestServer_ExplorerReconnectKeepsMailbox(t *testing.T) {
	hs, _ := startServer(t)
	orch := connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")
	sendJSON(t, orch, command(protocol.TypeStartPlanetAI, ""))
	readFrame(t, orch)
	// Docked before the explorer connects.
	sendJSON(t, orch, command(protocol.TypeIncomingExplorer, "E5"))
	readFrame(t, orch)

	first := connect(t, hs, "/v1/explorer", protocol.RoleExplorer, "E5")
	sendJSON(t, first, request(protocol.TypeSupportedResourceRequest))
	if f := readFrame(t, first); f.Type != string(planet.KindSupportedResourceResponse) {
		t.Fatalf("reply = %+v", f)
	}
	_ = first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn := dial(t, hs, "/v1/explorer")
		sendJSON(t, conn, hello(protocol.RoleExplorer, "E5"))
		f := readFrame(t, conn)
		if f.Type == protocol.TypeWelcome {
			sendJSON(t, conn, request(protocol.TypeAvailableEnergyCellRequest))
			if r := readFrame(t, conn); r.Type != string(planet.KindAvailableEnergyCellResponse) {
				t.Fatalf("reply after reconnect = %+v", r)
			}
			return
		}
		// The old session may not have detached yet.
		if time.Now().After(deadline) {
			t.Fatalf("reconnect rejected: %+v", f)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_UndockedExplorerIsAnswered(t *testing.T) {
	hs, _ := startServer(t)
	orch := connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")
	sendJSON(t, orch, command(protocol.TypeStartPlanetAI, ""))
	readFrame(t, orch)

	// Never docked; the reply still reaches its session through the hub.
	expl := connect(t, hs, "/v1/explorer", protocol.RoleExplorer, "E2")
	sendJSON(t, expl, request(protocol.TypeAvailableEnergyCellRequest))
	if f := readFrame(t, expl); f.Type != string(planet.KindAvailableEnergyCellResponse) || f.Count == nil {
		t.Fatalf("reply = %+v", f)
	}
}

func TestServer_DepartureReleasesMailbox(t *testing.T) {
	hs, srv := startServer(t)
	orch := connect(t, hs, "/v1/orchestrator", protocol.RoleOrchestrator, "")
	sendJSON(t, orch, command(protocol.TypeStartPlanetAI, ""))
	readFrame(t, orch)

	sendJSON(t, orch, command(protocol.TypeIncomingExplorer, "E9"))
	readFrame(t, orch)
	if n := srv.Stats().Mailboxes; n != 1 {
		t.Fatalf("mailboxes after arrival = %d", n)
	}
	sendJSON(t, orch, command(protocol.TypeOutgoingExplorer, "E9"))
	if f := readFrame(t, orch); f.Type != string(planet.KindOutgoingExplorerResponse) || f.Error != "" {
		t.Fatalf("departure = %+v", f)
	}
	if n := srv.Stats().Mailboxes; n != 0 {
		t.Fatalf("mailboxes after departure = %d", n)
	}
}
