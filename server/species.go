package main

// Species identifies one of the three factions
type Species uint8

const (
	Rock Species = iota
	Paper
	Scissors
	speciesCount
)

var speciesNames = [speciesCount]string{"rock", "paper", "scissors"}

func (s Species) String() string {
	if s >= speciesCount {
		return "unknown"
	}
	return speciesNames[s]
}

// ParseSpecies maps a wire name to a Species. Returns false for unknown names.
func ParseSpecies(name string) (Species, bool) {
	for i, n := range speciesNames {
		if n == name {
			return Species(i), true
		}
	}
	return 0, false
}

// speciesPrey[s] is the species s converts on contact
var speciesPrey = [speciesCount]Species{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// speciesPredator[s] is the species that converts s
var speciesPredator = [speciesCount]Species{
	Rock:     Paper,
	Paper:    Scissors,
	Scissors: Rock,
}

// Prey returns the species s converts
func (s Species) Prey() Species {
	return speciesPrey[s]
}

// Predator returns the species s must avoid
func (s Species) Predator() Species {
	return speciesPredator[s]
}

// Beats reports whether s converts o. Exactly one of s.Beats(o), o.Beats(s)
// holds for any two distinct species; a species never beats itself.
func (s Species) Beats(o Species) bool {
	return speciesPrey[s] == o
}

// SpeciesParams holds the per-species tuning that differentiates behavior.
// A single generic strategy reads these instead of branching per species.
type SpeciesParams struct {
	Perception float64 // vision radius for targets and threats
	Radius     float64 // body radius
	SpeedMul   float64 // multiplier on BaseSpeed
	GroupBias  float64 // +1 moves toward allies, -1 keeps distance
	GroupRange float64 // cohesion threshold (bias>0) or personal space (bias<0)
	MaxHealth  int
}

// Default parameter table. Scissors trades vision for speed; Rock herds,
// Paper and Scissors spread out.
var defaultSpeciesParams = [speciesCount]SpeciesParams{
	Rock: {
		Perception: 100,
		Radius:     16,
		SpeedMul:   0.9,
		GroupBias:  1,
		GroupRange: 60,
		MaxHealth:  100,
	},
	Paper: {
		Perception: 120,
		Radius:     14,
		SpeedMul:   1.0,
		GroupBias:  -1,
		GroupRange: 40,
		MaxHealth:  100,
	},
	Scissors: {
		Perception: 80,
		Radius:     12,
		SpeedMul:   1.2,
		GroupBias:  -1,
		GroupRange: 35,
		MaxHealth:  100,
	},
}
