package main

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// EngineState is the battle lifecycle
type EngineState int

const (
	StateIdle EngineState = iota
	StateRunning
	StatePaused
	StateEnded // terminal
)

var stateNames = [...]string{"idle", "running", "paused", "ended"}

func (s EngineState) String() string {
	if int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Engine simulates one battle. It is passive: an external driver calls
// Advance once per frame and the engine does everything inside that call.
// All methods are safe for concurrent use; the tick itself is single
// threaded under the lock.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	battleID string
	state    EngineState

	entities []*Entity // insertion order, ascending ID
	byID     map[int]*Entity
	nextID   int

	world   *WorldView
	pending []scheduledConversion
	stats   BattleStats
	simTime float64 // ms
	tick    uint64
	rng     *rand.Rand
	sinks   []EventSink

	pairBuf   []entityPair
	maxRadius float64
}

// entityPair is one canonical (lower id first) collision candidate
type entityPair struct {
	a, b   *Entity
	distSq float64
}

// NewEngine validates the config and builds the initial entity pool: one
// team per species, PerSpeciesCount entities each, at random loosely
// non-overlapping positions inside the spawn margins.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	g := &Engine{
		cfg:      cfg,
		battleID: uuid.NewString(),
		state:    StateIdle,
		byID:     make(map[int]*Entity),
		world:    newWorldView(cfg.ArenaWidth, cfg.ArenaHeight),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
	for s := Species(0); s < speciesCount; s++ {
		if r := cfg.SpeciesParams[s].Radius; r > g.maxRadius {
			g.maxRadius = r
		}
	}

	for s := Species(0); s < speciesCount; s++ {
		team := int(s) + 1
		for i := 0; i < cfg.PerSpeciesCount; i++ {
			g.spawn(s, team, g.spawnPosition())
		}
	}
	g.recomputeStats()
	return g, nil
}

// spawnPosition picks a random point inside the margins, retrying a few
// times to keep starting bodies from stacking. Not a hard guarantee; the
// physics resolver separates any remaining overlap on the first ticks.
func (g *Engine) spawnPosition() Vec2 {
	w := g.cfg.ArenaWidth - 2*SpawnMargin
	h := g.cfg.ArenaHeight - 2*SpawnMargin
	minDist := 2 * g.maxRadius
	var pos Vec2
	for attempt := 0; attempt < 16; attempt++ {
		pos = Vec2{SpawnMargin + g.rng.Float64()*w, SpawnMargin + g.rng.Float64()*h}
		clear := true
		for _, e := range g.entities {
			if e.Alive && DistanceSq(e.Pos, pos) < minDist*minDist {
				clear = false
				break
			}
		}
		if clear {
			break
		}
	}
	return pos
}

// spawn creates and registers an entity. Caller holds the lock.
func (g *Engine) spawn(species Species, team int, pos Vec2) *Entity {
	id := g.nextID
	g.nextID++
	e := NewEntity(id, species, team, pos, g.cfg.SpeciesParams[species])
	g.entities = append(g.entities, e)
	g.byID[id] = e
	return e
}

// BattleID returns the unique id of this battle run
func (g *Engine) BattleID() string {
	return g.battleID
}

// State returns the current lifecycle state
func (g *Engine) State() EngineState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Start moves Idle to Running and announces the battle
func (g *Engine) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateIdle {
		return fmt.Errorf("cannot start battle in state %s", g.state)
	}
	g.state = StateRunning
	g.emit(Event{Type: EventBattleStart, TimeMs: g.simTime, Stats: g.statsCopy()})
	return nil
}

// Pause gates whether new ticks run; it never interrupts one mid-flight
func (g *Engine) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateRunning {
		g.state = StatePaused
	}
}

// Resume continues a paused battle
func (g *Engine) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StatePaused {
		g.state = StateRunning
	}
}

// Advance runs one tick of dtMs simulated milliseconds, strictly ordered:
// clock, strategy+movement on the tick-start snapshot, broad-phase pairs,
// physics on non-combat overlaps, conversions, stats, end check. Outside
// the Running state it is a no-op.
func (g *Engine) Advance(dtMs float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateRunning || dtMs <= 0 {
		return
	}
	dt := dtMs / 1000
	g.tick++
	g.simTime += dtMs

	// Decisions read a snapshot taken before anyone moves, so iteration
	// order cannot leak into what an entity perceives.
	g.world.rebuild(g.entities)
	for _, e := range g.entities {
		if !e.Alive {
			continue
		}
		in := decide(e, g.world, g.cfg.SpeciesParams[e.Species], &g.cfg, g.rng, dtMs)
		e.applyIntent(in)
		integrate(e, dt, g.cfg.ArenaWidth, g.cfg.ArenaHeight, g.cfg.Restitution)
		e.SurvivalMs += dtMs
	}

	// Broad phase over post-move positions
	g.world.rebuild(g.entities)
	pairs := g.collectPairs()

	// Conversion eligibility short-circuits the bounce: enemy pairs in
	// conversion range fight, everything else gets separated.
	for _, pr := range pairs {
		if winner, loser, ok := g.conversionEligible(pr); ok {
			g.beginConversion(winner, loser)
		} else if overlapping(pr.a, pr.b) {
			resolveOverlap(pr.a, pr.b, g.cfg.Restitution)
		}
	}

	g.drainConversions()
	g.recomputeStats()
	g.checkEnd()
}

// collectPairs gathers deduplicated candidate pairs from the grid, sorted
// ascending by id pair so downstream processing is reproducible for
// identical input state.
func (g *Engine) collectPairs() []entityPair {
	g.pairBuf = g.pairBuf[:0]
	reach := g.cfg.ConversionRadius
	if d := 2 * g.maxRadius; d > reach {
		reach = d
	}
	for _, e := range g.entities {
		if !e.Alive {
			continue
		}
		g.world.buf = g.world.grid.QueryBuf(e.Pos.X, e.Pos.Y, reach, g.world.buf[:0])
		for _, idx := range g.world.buf {
			v := &g.world.views[idx]
			if v.ID <= e.ID { // canonical ordering dedups (a,b)/(b,a)
				continue
			}
			o := g.byID[v.ID]
			d2 := DistanceSq(e.Pos, o.Pos)
			if d2 > reach*reach {
				continue
			}
			g.pairBuf = append(g.pairBuf, entityPair{a: e, b: o, distSq: d2})
		}
	}
	sort.Slice(g.pairBuf, func(i, j int) bool {
		if g.pairBuf[i].a.ID != g.pairBuf[j].a.ID {
			return g.pairBuf[i].a.ID < g.pairBuf[j].a.ID
		}
		return g.pairBuf[i].b.ID < g.pairBuf[j].b.ID
	})
	return g.pairBuf
}

// conversionEligible checks the combat predicate for a candidate pair:
// different teams, inside the conversion radius, and a dominance winner.
func (g *Engine) conversionEligible(pr entityPair) (winner, loser *Entity, ok bool) {
	if pr.distSq > g.cfg.ConversionRadius*g.cfg.ConversionRadius {
		return nil, nil, false
	}
	return conversionWinner(pr.a, pr.b)
}

// checkEnd transitions to Ended when one team remains or time runs out
func (g *Engine) checkEnd() {
	if g.state != StateRunning {
		return
	}
	if len(g.stats.TeamCounts) > 1 && g.simTime < g.cfg.DurationMs {
		return
	}

	winner := 0
	best := 0
	for team, n := range g.stats.TeamCounts {
		switch {
		case n > best:
			winner, best = team, n
		case n == best:
			winner = 0 // tie on timeout: no winner
		}
	}
	g.state = StateEnded
	g.stats.WinnerTeam = winner
	g.emit(Event{
		Type:       EventBattleEnd,
		WinnerTeam: winner,
		TimeMs:     g.simTime,
		Stats:      g.statsCopy(),
	})
}

// AddEntity injects an entity mid-battle (the crowd-vote path). The
// position clamps into the arena; out-of-range species or team is
// rejected, as is adding to an ended battle or a full arena.
func (g *Engine) AddEntity(species Species, team int, pos Vec2) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateEnded {
		return 0, fmt.Errorf("battle already ended")
	}
	if species >= speciesCount {
		return 0, fmt.Errorf("invalid species %d", species)
	}
	if team <= 0 {
		return 0, fmt.Errorf("invalid team %d", team)
	}
	if len(g.entities) >= MaxEntities {
		return 0, fmt.Errorf("arena full")
	}
	r := g.cfg.SpeciesParams[species].Radius
	pos.X = Clamp(pos.X, r, g.cfg.ArenaWidth-r)
	pos.Y = Clamp(pos.Y, r, g.cfg.ArenaHeight-r)

	e := g.spawn(species, team, pos)
	g.recomputeStats()
	g.emit(Event{Type: EventSpawned, EntityID: e.ID, Species: species, TimeMs: g.simTime})
	return e.ID, nil
}

// DamageEntity applies damage from an external effect and returns whether
// the entity died. Deaths clear any conversion the entity was part of and
// emit a died event.
func (g *Engine) DamageEntity(id, dmg int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.byID[id]
	if e == nil || !e.Alive {
		return false
	}
	if !e.TakeDamage(dmg) {
		return false
	}
	g.onDeath(e)
	return true
}

// onDeath cleans up conversion references on both sides and announces the
// death. Caller holds the lock; e is already marked dead.
func (g *Engine) onDeath(e *Entity) {
	if e.TargetID != NoEntity {
		if t := g.byID[e.TargetID]; t != nil && t.ConverterID == e.ID {
			t.clearConversion()
		}
	}
	if e.Converting {
		if w := g.byID[e.ConverterID]; w != nil && w.TargetID == e.ID {
			w.TargetID = NoEntity
		}
	}
	e.clearConversion()
	g.recomputeStats()
	g.emit(Event{Type: EventDied, EntityID: e.ID, TimeMs: g.simTime})
}

// Snapshot returns a read-only copy of the full battle state, safe to call
// between ticks from any goroutine.
func (g *Engine) Snapshot() ArenaState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := ArenaState{
		BattleID: g.battleID,
		State:    g.state.String(),
		Tick:     g.tick,
		ArenaW:   g.cfg.ArenaWidth,
		ArenaH:   g.cfg.ArenaHeight,
		Entities: make([]EntityState, 0, len(g.entities)),
		Stats:    g.statsCopy().ToState(),
	}
	for _, e := range g.entities {
		st.Entities = append(st.Entities, e.ToState())
	}
	return st
}
