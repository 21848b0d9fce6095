package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"airfryer.ai/internal/protocol"
)

func main() {
	var (
		baseURL    = flag.String("url", "ws://localhost:8080", "server base url")
		role       = flag.String("role", "orchestrator", "orchestrator|explorer")
		name       = flag.String("name", "bot", "client name")
		explorerID = flag.String("explorer", "E1", "explorer id (explorer role), or explorer to dock (orchestrator role, empty to skip)")
		every      = flag.Duration("every", time.Second, "interval between rounds")
		asteroidP  = flag.Float64("asteroid_p", 0.2, "probability of an asteroid per round (orchestrator role)")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var (
		path  string
		hello protocol.HelloMsg
		brain bot
	)
	switch strings.ToLower(*role) {
	case "orchestrator":
		path = "/v1/orchestrator"
		hello = protocol.HelloMsg{Role: protocol.RoleOrchestrator, Name: *name}
		brain = newOrchestrator(rand.New(rand.NewSource(*seed)), *asteroidP, *explorerID, logger)
	case "explorer":
		path = "/v1/explorer"
		hello = protocol.HelloMsg{Role: protocol.RoleExplorer, Name: *name, ExplorerID: *explorerID}
		brain = newExplorer(logger)
	default:
		logger.Fatalf("unknown role %q", *role)
	}
	hello.Type = protocol.TypeHello
	hello.ProtocolVersion = protocol.Version

	conn, _, err := websocket.DefaultDialer.Dial(strings.TrimRight(*baseURL, "/")+path, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	frames := make(chan []byte, 64)
	go func() {
		defer close(frames)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	send := func(out []any) {
		for _, m := range out {
			if err := conn.WriteJSON(m); err != nil {
				logger.Printf("send: %v", err)
			}
		}
	}

	welcomed := false
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if welcomed {
				send(brain.Tick())
			}
		case msg, ok := <-frames:
			if !ok {
				logger.Printf("connection closed")
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				logger.Printf("WELCOME planet=%s session=%s role=%s", w.PlanetID, w.SessionID, w.Role)
				welcomed = true
				send(brain.Opening())
			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(msg, &e); err != nil {
					continue
				}
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			default:
				send(brain.OnFrame(base.Type, msg))
			}
		}
	}
}

// bot is one role's decision logic. It returns frames to send.
type bot interface {
	Opening() []any
	Tick() []any
	OnFrame(typ string, raw []byte) []any
}
