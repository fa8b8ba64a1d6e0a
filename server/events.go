package main

// EventType tags engine lifecycle events
type EventType string

const (
	EventBattleStart EventType = "battle_start"
	EventBattleEnd   EventType = "battle_end"
	EventConverted   EventType = "converted"
	EventDied        EventType = "died"
	EventSpawned     EventType = "spawned"
)

// Event is a structured engine notification. The engine surfaces no other
// output; rendering, commentary and analytics all consume these.
type Event struct {
	Type       EventType
	EntityID   int     // died, spawned
	WinnerID   int     // converted
	LoserID    int     // converted
	Species    Species // converted (new species), spawned
	WinnerTeam int     // battle_end
	TimeMs     float64
	Stats      BattleStats // battle_end final snapshot
}

// EventSink receives engine events. Sinks are called synchronously from the
// tick under the engine lock and must not block or call back into the
// engine; hand off to a channel or buffer for anything slow.
type EventSink interface {
	HandleEvent(Event)
}

// AddSink registers an event consumer
func (g *Engine) AddSink(s EventSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinks = append(g.sinks, s)
}

// emit fans an event out to all sinks. Caller holds the engine lock.
func (g *Engine) emit(ev Event) {
	for _, s := range g.sinks {
		s.HandleEvent(ev)
	}
}
