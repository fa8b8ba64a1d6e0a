package main

// BattleStats are the aggregate counters for one battle run. Team counts
// are derived, never stored: they are recomputed from the entity pool every
// tick, so their sum always equals the live entity count.
type BattleStats struct {
	TeamCounts       map[int]int
	SpeciesCounts    map[string]int
	TotalConversions int
	BattleTimeMs     float64
	ActivePlayers    int
	WinnerTeam       int
}

// recomputeStats rebuilds the derived counters from the entity pool.
// Caller holds the engine lock.
func (g *Engine) recomputeStats() {
	teams := make(map[int]int)
	species := make(map[string]int)
	active := 0
	for _, e := range g.entities {
		if !e.Alive {
			continue
		}
		teams[e.Team]++
		species[e.Species.String()]++
		active++
	}
	g.stats.TeamCounts = teams
	g.stats.SpeciesCounts = species
	g.stats.ActivePlayers = active
	g.stats.BattleTimeMs = g.simTime
}

// statsCopy returns a snapshot safe to hand outside the lock
func (g *Engine) statsCopy() BattleStats {
	s := g.stats
	s.TeamCounts = make(map[int]int, len(g.stats.TeamCounts))
	for k, v := range g.stats.TeamCounts {
		s.TeamCounts[k] = v
	}
	s.SpeciesCounts = make(map[string]int, len(g.stats.SpeciesCounts))
	for k, v := range g.stats.SpeciesCounts {
		s.SpeciesCounts[k] = v
	}
	return s
}
