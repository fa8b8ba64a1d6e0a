package main

import (
	"math"
	"math/rand"
)

// IntentAction is what an entity wants to do this tick
type IntentAction uint8

const (
	ActionWait IntentAction = iota
	ActionMove
	ActionAttack
	ActionAvoid
)

var actionNames = [...]string{"wait", "move", "attack", "avoid"}

func (a IntentAction) String() string {
	if int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Intent is the output of one strategy decision: an action, a unit
// direction, a speed multiplier and the entity it concerns (if any).
type Intent struct {
	Action   IntentAction
	Dir      Vec2
	Speed    float64
	TargetID int
}

// EntityView is the read-only per-entity record strategies see. Views are
// snapshotted at tick start, so every entity decides against the same
// consistent world regardless of iteration order.
type EntityView struct {
	ID      int
	Species Species
	Team    int
	Pos     Vec2
}

// WorldView is the immutable world snapshot handed to each strategy call.
// Only live entities appear in it; a reference that died last tick simply
// isn't there, so stale-target lookups degrade to "no target".
type WorldView struct {
	views []EntityView
	grid  *SpatialGrid
	buf   []int // query scratch, reused across calls
}

func newWorldView(width, height float64) *WorldView {
	return &WorldView{grid: NewSpatialGrid(width, height)}
}

// rebuild re-snapshots the live entity pool and re-indexes the grid
func (w *WorldView) rebuild(entities []*Entity) {
	w.views = w.views[:0]
	w.grid.Clear()
	for _, e := range entities {
		if !e.Alive {
			continue
		}
		w.grid.Insert(e.Pos.X, e.Pos.Y, len(w.views))
		w.views = append(w.views, EntityView{
			ID:      e.ID,
			Species: e.Species,
			Team:    e.Team,
			Pos:     e.Pos,
		})
	}
}

// nearest returns the closest view within radius of from that satisfies
// match, excluding selfID. Candidates come from the grid; ties resolve to
// the first found in cell-scan order. Distances compare squared.
func (w *WorldView) nearest(from Vec2, radius float64, selfID int, match func(*EntityView) bool) (EntityView, float64, bool) {
	w.buf = w.grid.QueryBuf(from.X, from.Y, radius, w.buf[:0])
	best := EntityView{}
	bestD2 := radius * radius
	found := false
	for _, idx := range w.buf {
		v := &w.views[idx]
		if v.ID == selfID || !match(v) {
			continue
		}
		d2 := DistanceSq(from, v.Pos)
		if d2 > bestD2 || (found && d2 == bestD2) {
			continue
		}
		bestD2 = d2
		best = *v
		found = true
	}
	return best, bestD2, found
}

// decide runs the priority rules for one entity against the tick-start
// snapshot. First matching rule wins:
//
//  1. attack the nearest prey in perception range
//  2. flee the nearest predator in avoidance range
//  3. apply the species' grouping bias toward/away from the nearest ally
//  4. hunt the nearest enemy of any species in perception range
//  5. wander at reduced speed
func decide(e *Entity, w *WorldView, p SpeciesParams, cfg *Config, rng *rand.Rand, dtMs float64) Intent {
	// An entity on either side of an in-flight conversion holds still
	// until the conversion resolves.
	if e.engaged() {
		return Intent{Action: ActionWait, TargetID: NoEntity}
	}

	prey := e.Species.Prey()
	if v, d2, ok := w.nearest(e.Pos, p.Perception, e.ID, func(v *EntityView) bool {
		return v.Team != e.Team && v.Species == prey
	}); ok {
		dir := v.Pos.Sub(e.Pos).Normalize()
		if d2 <= cfg.ConversionRadius*cfg.ConversionRadius {
			return Intent{Action: ActionAttack, Dir: dir, Speed: 1, TargetID: v.ID}
		}
		return Intent{Action: ActionMove, Dir: dir, Speed: 1, TargetID: v.ID}
	}

	predator := e.Species.Predator()
	if v, _, ok := w.nearest(e.Pos, cfg.AvoidRadius, e.ID, func(v *EntityView) bool {
		return v.Team != e.Team && v.Species == predator
	}); ok {
		return Intent{Action: ActionAvoid, Dir: e.Pos.Sub(v.Pos).Normalize(), Speed: 1, TargetID: v.ID}
	}

	if v, d2, ok := w.nearest(e.Pos, p.Perception, e.ID, func(v *EntityView) bool {
		return v.Team == e.Team
	}); ok {
		d := math.Sqrt(d2)
		if p.GroupBias > 0 && d > p.GroupRange {
			return Intent{Action: ActionMove, Dir: v.Pos.Sub(e.Pos).Normalize(), Speed: 1, TargetID: v.ID}
		}
		if p.GroupBias < 0 && d < p.GroupRange {
			return Intent{Action: ActionMove, Dir: e.Pos.Sub(v.Pos).Normalize(), Speed: 1, TargetID: v.ID}
		}
	}

	if v, _, ok := w.nearest(e.Pos, p.Perception, e.ID, func(v *EntityView) bool {
		return v.Team != e.Team
	}); ok {
		return Intent{Action: ActionMove, Dir: v.Pos.Sub(e.Pos).Normalize(), Speed: 1, TargetID: v.ID}
	}

	e.wanderMs -= dtMs
	if e.wanderMs <= 0 || (e.wanderDir == Vec2{}) {
		angle := rng.Float64() * 2 * math.Pi
		e.wanderDir = Vec2{math.Cos(angle), math.Sin(angle)}
		e.wanderMs = 800 + rng.Float64()*1200
	}
	return Intent{Action: ActionMove, Dir: e.wanderDir, Speed: WanderSpeedMul, TargetID: NoEntity}
}

// applyIntent converts an intent into a velocity. Wait zeroes velocity;
// every other action sets direction times full species speed scaled by the
// intent's speed factor.
func (e *Entity) applyIntent(in Intent) {
	if in.Action == ActionWait {
		e.Vel = Vec2{}
		return
	}
	e.Vel = in.Dir.Scale(BaseSpeed * e.SpeedMul * in.Speed)
}
