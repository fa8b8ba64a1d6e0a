package main

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
)

// Evolvable parameter bounds. Radius and health stay fixed so tuning
// changes behavior, not body size or durability.
const (
	tuneMinPerception = 40.0
	tuneMaxPerception = 200.0
	tuneMinSpeedMul   = 0.5
	tuneMaxSpeedMul   = 2.0
	tuneMinGroupRange = 10.0
	tuneMaxGroupRange = 120.0

	tuneEvalBattles = 3    // seeded battles averaged per genome
	tuneEvalTickMs  = 33.0 // fixed timestep during evaluation
	tuneTournament  = 3
	tuneElite       = 2
	tuneMutateRate  = 0.3
	tuneMutateScale = 0.25
)

// genome is one candidate strategy parameter vector for a species:
// vision, speed, and the grouping behavior knobs.
type genome struct {
	Perception float64
	SpeedMul   float64
	GroupBias  float64
	GroupRange float64
}

func genomeFrom(p SpeciesParams) genome {
	return genome{
		Perception: p.Perception,
		SpeedMul:   p.SpeedMul,
		GroupBias:  p.GroupBias,
		GroupRange: p.GroupRange,
	}
}

// params overlays the genome onto a base parameter set
func (g genome) params(base SpeciesParams) SpeciesParams {
	base.Perception = g.Perception
	base.SpeedMul = g.SpeedMul
	base.GroupBias = g.GroupBias
	base.GroupRange = g.GroupRange
	return base
}

func (g genome) clamp() genome {
	g.Perception = Clamp(g.Perception, tuneMinPerception, tuneMaxPerception)
	g.SpeedMul = Clamp(g.SpeedMul, tuneMinSpeedMul, tuneMaxSpeedMul)
	g.GroupBias = Clamp(g.GroupBias, -1, 1)
	g.GroupRange = Clamp(g.GroupRange, tuneMinGroupRange, tuneMaxGroupRange)
	return g
}

func randomGenome(rng *rand.Rand) genome {
	return genome{
		Perception: tuneMinPerception + rng.Float64()*(tuneMaxPerception-tuneMinPerception),
		SpeedMul:   tuneMinSpeedMul + rng.Float64()*(tuneMaxSpeedMul-tuneMinSpeedMul),
		GroupBias:  -1 + rng.Float64()*2,
		GroupRange: tuneMinGroupRange + rng.Float64()*(tuneMaxGroupRange-tuneMinGroupRange),
	}
}

// mutate perturbs each field with a bound-scaled gaussian step
func (g genome) mutate(rng *rand.Rand) genome {
	if rng.Float64() < tuneMutateRate {
		g.Perception += rng.NormFloat64() * tuneMutateScale * (tuneMaxPerception - tuneMinPerception)
	}
	if rng.Float64() < tuneMutateRate {
		g.SpeedMul += rng.NormFloat64() * tuneMutateScale * (tuneMaxSpeedMul - tuneMinSpeedMul)
	}
	if rng.Float64() < tuneMutateRate {
		g.GroupBias += rng.NormFloat64() * tuneMutateScale * 2
	}
	if rng.Float64() < tuneMutateRate {
		g.GroupRange += rng.NormFloat64() * tuneMutateScale * (tuneMaxGroupRange - tuneMinGroupRange)
	}
	return g.clamp()
}

// crossover picks each field uniformly from one of the parents
func crossover(a, b genome, rng *rand.Rand) genome {
	c := a
	if rng.Intn(2) == 0 {
		c.Perception = b.Perception
	}
	if rng.Intn(2) == 0 {
		c.SpeedMul = b.SpeedMul
	}
	if rng.Intn(2) == 0 {
		c.GroupBias = b.GroupBias
	}
	if rng.Intn(2) == 0 {
		c.GroupRange = b.GroupRange
	}
	return c
}

// Tuner evolves one species' strategy parameters offline. Every genome
// is scored on the same fixed battle seeds, so evaluation is
// deterministic and candidates compare on identical opponents.
type Tuner struct {
	species   Species
	cfg       Config
	pop       int
	rng       *rand.Rand
	evalSeeds [tuneEvalBattles]int64
}

// NewTuner validates the setup and derives the evaluation seeds
func NewTuner(species Species, cfg Config, population int, seed int64) (*Tuner, error) {
	if species >= speciesCount {
		return nil, fmt.Errorf("invalid species %d", species)
	}
	if population <= tuneElite {
		return nil, fmt.Errorf("population %d must exceed the elite count %d", population, tuneElite)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tuner config: %w", err)
	}
	t := &Tuner{
		species: species,
		cfg:     cfg,
		pop:     population,
		rng:     rand.New(rand.NewSource(seed)),
	}
	for i := range t.evalSeeds {
		t.evalSeeds[i] = t.rng.Int63()
	}
	return t, nil
}

// evaluate runs the fixed seeded battles with the candidate parameters
// and scores the species' surviving count, plus a bonus for winning.
func (t *Tuner) evaluate(g genome) float64 {
	total := 0.0
	for _, seed := range t.evalSeeds {
		cfg := t.cfg
		cfg.Seed = seed
		cfg.SpeciesParams[t.species] = g.params(t.cfg.SpeciesParams[t.species])

		eng, err := NewEngine(cfg)
		if err != nil {
			return 0
		}
		if err := eng.Start(); err != nil {
			return 0
		}
		maxTicks := int(cfg.DurationMs/tuneEvalTickMs) + 1
		for n := 0; n < maxTicks && eng.State() == StateRunning; n++ {
			eng.Advance(tuneEvalTickMs)
		}

		snap := eng.Snapshot()
		total += float64(snap.Stats.SpeciesCounts[t.species.String()])
		if snap.Stats.WinnerTeam == int(t.species)+1 {
			total += float64(cfg.PerSpeciesCount)
		}
	}
	return total / tuneEvalBattles
}

type scoredGenome struct {
	g       genome
	fitness float64
}

// tournament selects the fittest of a few random candidates
func (t *Tuner) tournament(pop []scoredGenome) genome {
	best := pop[t.rng.Intn(len(pop))]
	for i := 1; i < tuneTournament; i++ {
		c := pop[t.rng.Intn(len(pop))]
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best.g
}

// Run evolves the population for the given number of generations and
// returns the best parameter set found with its fitness. The current
// defaults seed the population, so the result never scores below them.
func (t *Tuner) Run(generations int) (SpeciesParams, float64) {
	pop := make([]scoredGenome, t.pop)
	pop[0].g = genomeFrom(t.cfg.SpeciesParams[t.species]).clamp()
	for i := 1; i < t.pop; i++ {
		pop[i].g = randomGenome(t.rng)
	}

	for gen := 0; ; gen++ {
		for i := range pop {
			pop[i].fitness = t.evaluate(pop[i].g)
		}
		sort.SliceStable(pop, func(i, j int) bool {
			return pop[i].fitness > pop[j].fitness
		})
		log.Printf("tuner: %s generation %d best fitness %.2f", t.species, gen, pop[0].fitness)
		if gen >= generations {
			break
		}

		next := make([]scoredGenome, 0, t.pop)
		for i := 0; i < tuneElite; i++ {
			next = append(next, scoredGenome{g: pop[i].g, fitness: pop[i].fitness})
		}
		for len(next) < t.pop {
			child := crossover(t.tournament(pop), t.tournament(pop), t.rng).mutate(t.rng)
			next = append(next, scoredGenome{g: child})
		}
		pop = next
	}

	return pop[0].g.params(t.cfg.SpeciesParams[t.species]), pop[0].fitness
}
