package main

import (
	"encoding/json"
	"math"
)

// Client -> Server message types
const (
	MsgLogin  = "login"  // admin login (password)
	MsgStart  = "start"  // admin: start battle
	MsgPause  = "pause"  // admin: pause battle
	MsgResume = "resume" // admin: resume battle
	MsgReset  = "reset"  // admin: discard battle, build a fresh one
	MsgVote   = "vote"   // spectator: spawn an entity of a species
	MsgStats  = "stats"  // spectator: request analytics summary
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgState   = "state" // binary msgpack ArenaState, not JSON
	MsgEvent   = "event"
	MsgAuthOK  = "auth_ok"
	MsgVoted   = "voted"
	MsgSummary = "summary"
	MsgError   = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids
// double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// LoginMsg carries the admin password
type LoginMsg struct {
	Password string `json:"pw"`
}

// ControlMsg carries the admin token for battle control commands
type ControlMsg struct {
	Token string `json:"tok"`
}

// VoteMsg spawns one entity of the named species at a random position
type VoteMsg struct {
	Species string `json:"sp"`
}

// VotedMsg acknowledges a vote with the spawned entity id
type VotedMsg struct {
	EntityID int    `json:"id"`
	Species  string `json:"sp"`
}

// AuthOKMsg returns the admin token after a successful login
type AuthOKMsg struct {
	Token string `json:"tok"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// WelcomeMsg is sent on connect
type WelcomeMsg struct {
	BattleID string  `json:"bid"`
	ArenaW   float64 `json:"w"`
	ArenaH   float64 `json:"h"`
	State    string  `json:"st"`
}

// EntityState is one entity in the broadcast snapshot
type EntityState struct {
	ID          int     `json:"id"`
	Species     string  `json:"sp"`
	Team        int     `json:"tm"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	HP          int     `json:"hp"`
	MaxHP       int     `json:"mhp"`
	Alive       bool    `json:"a"`
	Converting  bool    `json:"c"`
	Conversions int     `json:"cv"`
}

// StatsState is the aggregate battle counters in wire form
type StatsState struct {
	TeamCounts       map[int]int    `json:"tc"`
	SpeciesCounts    map[string]int `json:"sc"`
	TotalConversions int            `json:"conv"`
	BattleTimeMs     float64        `json:"ms"`
	ActivePlayers    int            `json:"n"`
	WinnerTeam       int            `json:"win,omitempty"`
}

// ArenaState is the full read-only snapshot broadcast each tick
type ArenaState struct {
	BattleID string        `json:"bid"`
	State    string        `json:"st"`
	Tick     uint64        `json:"tick"`
	ArenaW   float64       `json:"w"`
	ArenaH   float64       `json:"h"`
	Entities []EntityState `json:"e"`
	Stats    StatsState    `json:"s"`
}

// EventMsg is the wire form of an engine event
type EventMsg struct {
	Type       string  `json:"ev"`
	EntityID   int     `json:"id,omitempty"`
	WinnerID   int     `json:"wid,omitempty"`
	LoserID    int     `json:"lid,omitempty"`
	Species    string  `json:"sp,omitempty"`
	WinnerTeam int     `json:"win,omitempty"`
	TimeMs     float64 `json:"ms"`
}

// round1 trims floats to one decimal to keep broadcast frames small
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ToState converts an entity to wire form
func (e *Entity) ToState() EntityState {
	return EntityState{
		ID:          e.ID,
		Species:     e.Species.String(),
		Team:        e.Team,
		X:           round1(e.Pos.X),
		Y:           round1(e.Pos.Y),
		VX:          round1(e.Vel.X),
		VY:          round1(e.Vel.Y),
		HP:          e.Health,
		MaxHP:       e.MaxHealth,
		Alive:       e.Alive,
		Converting:  e.Converting,
		Conversions: e.Conversions,
	}
}

// ToState converts battle stats to wire form
func (s BattleStats) ToState() StatsState {
	return StatsState{
		TeamCounts:       s.TeamCounts,
		SpeciesCounts:    s.SpeciesCounts,
		TotalConversions: s.TotalConversions,
		BattleTimeMs:     s.BattleTimeMs,
		ActivePlayers:    s.ActivePlayers,
		WinnerTeam:       s.WinnerTeam,
	}
}

// toMsg converts an engine event to wire form
func (ev Event) toMsg() EventMsg {
	m := EventMsg{Type: string(ev.Type), TimeMs: ev.TimeMs}
	switch ev.Type {
	case EventConverted:
		m.WinnerID = ev.WinnerID
		m.LoserID = ev.LoserID
		m.Species = ev.Species.String()
	case EventDied:
		m.EntityID = ev.EntityID
	case EventSpawned:
		m.EntityID = ev.EntityID
		m.Species = ev.Species.String()
	case EventBattleEnd:
		m.WinnerTeam = ev.WinnerTeam
	}
	return m
}
