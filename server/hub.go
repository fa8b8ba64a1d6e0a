package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 30 // simulation ticks per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = 2 // state broadcasts every Nth tick

	maxConnsPerIP = 5
	maxTotalConns = 500
)

// Hub manages spectator connections and owns the arena battle. It is the
// presentation-layer driver the engine stays passive for: the hub's loop
// calls Advance, and the hub fans engine events out to every client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	engine  *Engine

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	cfg       Config
	db        *DB
	analytics *Analytics
	auth      *Auth

	// Connection limiting (accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub builds a hub with a fresh battle from cfg
func NewHub(cfg Config, db *DB, analytics *Analytics, auth *Auth) (*Hub, error) {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		stop:       make(chan struct{}),
		cfg:        cfg,
		db:         db,
		analytics:  analytics,
		auth:       auth,
		ipConns:    make(map[string]int),
	}
	if err := h.buildEngine(); err != nil {
		return nil, err
	}
	return h, nil
}

// buildEngine constructs a new battle and rewires the sinks. The first
// battle honors the configured seed; resets get a fresh layout.
func (h *Hub) buildEngine() error {
	cfg := h.cfg
	h.mu.RLock()
	rebuilt := h.engine != nil
	h.mu.RUnlock()
	if rebuilt {
		cfg.Seed = time.Now().UnixNano()
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		return err
	}
	engine.AddSink(h)
	if h.analytics != nil {
		h.analytics.SetBattle(engine.BattleID())
		engine.AddSink(h.analytics)
	}

	h.mu.Lock()
	h.engine = engine
	h.mu.Unlock()
	return nil
}

// Engine returns the current battle
func (h *Hub) Engine() *Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

// ResetBattle discards the current battle and builds a fresh Idle one.
// Scheduled conversions die with the old engine instance.
func (h *Hub) ResetBattle() error {
	if err := h.buildEngine(); err != nil {
		return err
	}
	log.Printf("hub: battle reset, new battle %s", h.Engine().BattleID())
	return nil
}

// VoteSpawn injects a crowd-voted entity of the given species at a random
// position, on the species' default team.
func (h *Hub) VoteSpawn(species Species) (int, error) {
	e := h.Engine()
	if e == nil {
		return 0, fmt.Errorf("no battle")
	}
	pos := Vec2{
		SpawnMargin + rand.Float64()*(h.cfg.ArenaWidth-2*SpawnMargin),
		SpawnMargin + rand.Float64()*(h.cfg.ArenaHeight-2*SpawnMargin),
	}
	return e.AddEntity(species, int(species)+1, pos)
}

// CanAccept reports whether a new connection from ip fits the limits
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			engine := h.engine
			h.mu.Unlock()
			if h.analytics != nil {
				h.analytics.SetSpectators(n)
			}
			if engine != nil {
				snap := engine.Snapshot()
				client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
					BattleID: snap.BattleID,
					ArenaW:   snap.ArenaW,
					ArenaH:   snap.ArenaH,
					State:    snap.State,
				}})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			if h.analytics != nil {
				h.analytics.SetSpectators(n)
			}

		case <-h.stop:
			return
		}
	}
}

// RunBattleLoop drives the engine at TickRate with measured elapsed time,
// so simulation thresholds key off time rather than frame count, and
// broadcasts state at a reduced rate.
func (h *Hub) RunBattleLoop() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	last := time.Now()
	var tick uint64
	for {
		select {
		case now := <-ticker.C:
			dtMs := float64(now.Sub(last).Microseconds()) / 1000
			last = now

			engine := h.Engine()
			if engine == nil {
				continue
			}
			engine.Advance(dtMs)

			tick++
			if tick%BroadcastEvery == 0 {
				h.broadcastState(engine)
			}

		case <-h.stop:
			return
		}
	}
}

// Stop terminates the hub loops
func (h *Hub) Stop() {
	close(h.stop)
}

// HandleEvent implements EventSink: engine events go out to all clients
// as JSON envelopes. Called under the engine lock, so it only touches
// client send buffers (non-blocking, drop on overflow).
func (h *Hub) HandleEvent(ev Event) {
	h.broadcastJSON(Envelope{T: MsgEvent, Data: ev.toMsg()})
}

// broadcastState sends the msgpack-encoded snapshot as a binary frame
func (h *Hub) broadcastState(engine *Engine) {
	snap := engine.Snapshot()
	data, err := msgpack.Marshal(snap)
	if err != nil {
		log.Printf("hub: msgpack marshal: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendBinary(data)
	}
}

// broadcastJSON sends a JSON envelope to every client
func (h *Hub) broadcastJSON(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub: marshal: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendRaw(data)
	}
}

// ClientCount returns the number of connected spectators
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
