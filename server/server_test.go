package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

// startTestServer spins up an httptest.Server around a hub with a small
// battle and returns the server, its WebSocket URL, the hub and a cleanup.
func startTestServer(t *testing.T) (*httptest.Server, string, *Hub, func()) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.PerSpeciesCount = 5

	auth := NewAuth(nil, "testpass")
	hub, err := NewHub(cfg, nil, nil, auth)
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	go hub.Run()

	mux := SetupRoutes(hub, "")
	srv := httptest.NewServer(mux)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	return srv, wsURL, hub, func() {
		srv.Close()
		hub.Stop()
	}
}

func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readJSON reads one text frame and decodes the envelope
func readJSON(t *testing.T, conn *websocket.Conn) InEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("expected text frame, got type %d", mt)
	}
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

// readUntil skips frames until one with the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string) InEnvelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := readJSON(t, conn)
		if env.T == want {
			return env
		}
	}
	t.Fatalf("no %q message within 20 frames", want)
	return InEnvelope{}
}

// readBinaryState skips text frames until a binary msgpack snapshot arrives
func readBinaryState(t *testing.T, conn *websocket.Conn) ArenaState {
	t.Helper()
	for i := 0; i < 20; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		var st ArenaState
		if err := msgpack.Unmarshal(raw, &st); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return st
	}
	t.Fatal("no binary state frame within 20 frames")
	return ArenaState{}
}

// ---------- tests ----------

func TestWelcomeOnConnect(t *testing.T) {
	_, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	env := readJSON(t, conn)
	if env.T != MsgWelcome {
		t.Fatalf("expected welcome, got %q", env.T)
	}
	var w WelcomeMsg
	if err := json.Unmarshal(env.D, &w); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	if w.BattleID != hub.Engine().BattleID() {
		t.Error("welcome battle id mismatch")
	}
	if w.ArenaW != DefaultArenaWidth || w.ArenaH != DefaultArenaHeight {
		t.Errorf("arena dims %gx%g", w.ArenaW, w.ArenaH)
	}
	if w.State != "idle" {
		t.Errorf("expected idle battle, got %q", w.State)
	}
}

func TestVoteSpawnsEntity(t *testing.T) {
	_, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	readUntil(t, conn, MsgWelcome)

	before := len(hub.Engine().Snapshot().Entities)

	if err := conn.WriteJSON(Envelope{T: MsgVote, Data: VoteMsg{Species: "rock"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The spawned broadcast and the ack both arrive; order is not fixed
	env := readUntil(t, conn, MsgVoted)
	var ack VotedMsg
	if err := json.Unmarshal(env.D, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Species != "rock" {
		t.Errorf("ack species %q", ack.Species)
	}

	after := len(hub.Engine().Snapshot().Entities)
	if after != before+1 {
		t.Errorf("entity count %d, want %d", after, before+1)
	}

	// Second vote inside the cooldown is refused
	if err := conn.WriteJSON(Envelope{T: MsgVote, Data: VoteMsg{Species: "paper"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env = readUntil(t, conn, MsgError)
	var em ErrorMsg
	json.Unmarshal(env.D, &em)
	if !strings.Contains(em.Msg, "cooldown") {
		t.Errorf("expected cooldown error, got %q", em.Msg)
	}
}

func TestVoteUnknownSpecies(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	readUntil(t, conn, MsgWelcome)

	conn.WriteJSON(Envelope{T: MsgVote, Data: VoteMsg{Species: "lizard"}})
	env := readUntil(t, conn, MsgError)
	var em ErrorMsg
	json.Unmarshal(env.D, &em)
	if !strings.Contains(em.Msg, "unknown species") {
		t.Errorf("expected species error, got %q", em.Msg)
	}
}

func TestAdminControlFlow(t *testing.T) {
	_, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	readUntil(t, conn, MsgWelcome)

	// Control without a token is refused
	conn.WriteJSON(Envelope{T: MsgStart, Data: ControlMsg{Token: "bogus"}})
	readUntil(t, conn, MsgError)
	if hub.Engine().State() != StateIdle {
		t.Fatal("unauthorized start must not run")
	}

	// Wrong password
	conn.WriteJSON(Envelope{T: MsgLogin, Data: LoginMsg{Password: "wrong"}})
	readUntil(t, conn, MsgError)

	// Correct password yields a token
	conn.WriteJSON(Envelope{T: MsgLogin, Data: LoginMsg{Password: "testpass"}})
	env := readUntil(t, conn, MsgAuthOK)
	var ok AuthOKMsg
	if err := json.Unmarshal(env.D, &ok); err != nil || ok.Token == "" {
		t.Fatalf("bad auth_ok: %v %+v", err, ok)
	}

	conn.WriteJSON(Envelope{T: MsgStart, Data: ControlMsg{Token: ok.Token}})
	waitForState(t, hub, StateRunning)

	conn.WriteJSON(Envelope{T: MsgPause, Data: ControlMsg{Token: ok.Token}})
	waitForState(t, hub, StatePaused)

	conn.WriteJSON(Envelope{T: MsgResume, Data: ControlMsg{Token: ok.Token}})
	waitForState(t, hub, StateRunning)

	// Reset swaps in a fresh idle battle
	oldID := hub.Engine().BattleID()
	conn.WriteJSON(Envelope{T: MsgReset, Data: ControlMsg{Token: ok.Token}})
	deadline := time.Now().Add(2 * time.Second)
	for hub.Engine().BattleID() == oldID {
		if time.Now().After(deadline) {
			t.Fatal("reset did not replace the battle")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Engine().State() != StateIdle {
		t.Errorf("reset battle should be idle, got %s", hub.Engine().State())
	}
}

func waitForState(t *testing.T, hub *Hub, want EngineState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Engine().State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("engine never reached %s, stuck at %s", want, hub.Engine().State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBinaryStateBroadcast(t *testing.T) {
	_, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	readUntil(t, conn, MsgWelcome) // registration is complete once this arrives

	hub.broadcastState(hub.Engine())

	st := readBinaryState(t, conn)
	if st.BattleID != hub.Engine().BattleID() {
		t.Error("state battle id mismatch")
	}
	if len(st.Entities) != 15 {
		t.Errorf("expected 15 entities in snapshot, got %d", len(st.Entities))
	}
	if st.State != "idle" {
		t.Errorf("expected idle state, got %q", st.State)
	}
}

func TestOriginCheck(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("cross-origin handshake should fail")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/qr")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("qr status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// Analytics is not wired in this server, so stats 404s
	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stats status %d, want 404", resp.StatusCode)
	}
}

func TestConnectionLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerSpeciesCount = 1
	hub, err := NewHub(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}

	for i := 0; i < maxConnsPerIP; i++ {
		if !hub.CanAccept("10.0.0.1") {
			t.Fatalf("connection %d should be accepted", i)
		}
		hub.TrackConnect("10.0.0.1")
	}
	if hub.CanAccept("10.0.0.1") {
		t.Error("per-address limit not enforced")
	}
	if !hub.CanAccept("10.0.0.2") {
		t.Error("other addresses should still connect")
	}

	hub.TrackDisconnect("10.0.0.1")
	if !hub.CanAccept("10.0.0.1") {
		t.Error("disconnect should free a slot")
	}
}
