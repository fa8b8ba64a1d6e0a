package main

import "log"

// scheduledConversion is a deferred identity rewrite, keyed by simulation
// time rather than wall clock so battles replay identically at any tick
// rate. The winner's species and team are captured at schedule time; the
// rewrite uses those even if the winner changes afterwards.
type scheduledConversion struct {
	winnerID int
	loserID  int
	species  Species
	team     int
	dueMs    float64
}

// conversionWinner resolves the dominance table for a pair. Same-team pairs
// and same-species pairs have no winner; for two distinct species exactly
// one direction holds.
func conversionWinner(a, b *Entity) (winner, loser *Entity, ok bool) {
	if a.Team == b.Team {
		return nil, nil, false
	}
	if a.Species.Beats(b.Species) {
		return a, b, true
	}
	if b.Species.Beats(a.Species) {
		return b, a, true
	}
	return nil, nil, false
}

// beginConversion marks the pair as engaged and schedules the identity
// rewrite after the configured delay. Entities already engaged in a
// conversion are skipped, so a loser cannot be claimed twice.
func (g *Engine) beginConversion(winner, loser *Entity) {
	if !winner.Alive || !loser.Alive || winner.engaged() || loser.engaged() {
		return
	}
	loser.Converting = true
	loser.ConverterID = winner.ID
	winner.TargetID = loser.ID
	g.pending = append(g.pending, scheduledConversion{
		winnerID: winner.ID,
		loserID:  loser.ID,
		species:  winner.Species,
		team:     winner.Team,
		dueMs:    g.simTime + g.cfg.ConversionDelayMs,
	})
}

// drainConversions fires every scheduled conversion whose due time has
// passed, in schedule order. A completion is a no-op when the loser died or
// was claimed by a third party in the meantime; the guard makes double
// scheduling for the same pair apply at most once.
func (g *Engine) drainConversions() {
	kept := g.pending[:0]
	for _, sc := range g.pending {
		if sc.dueMs > g.simTime {
			kept = append(kept, sc)
			continue
		}
		g.completeConversion(sc)
	}
	g.pending = kept
}

func (g *Engine) completeConversion(sc scheduledConversion) {
	winner := g.byID[sc.winnerID]
	loser := g.byID[sc.loserID]

	if loser == nil || !loser.Alive || !loser.Converting || loser.ConverterID != sc.winnerID {
		// Stale timer: target died or was re-converted first
		if winner != nil && winner.TargetID == sc.loserID {
			winner.TargetID = NoEntity
		}
		log.Printf("engine: dropped stale conversion %d -> %d", sc.winnerID, sc.loserID)
		return
	}

	loser.becomeSpecies(sc.species, sc.team, g.cfg.SpeciesParams[sc.species])
	loser.clearConversion()
	if winner != nil {
		if winner.TargetID == sc.loserID {
			winner.TargetID = NoEntity
		}
		winner.Conversions++
	}

	g.stats.TotalConversions++
	g.emit(Event{
		Type:     EventConverted,
		WinnerID: sc.winnerID,
		LoserID:  sc.loserID,
		Species:  sc.species,
		TimeMs:   g.simTime,
	})
}
