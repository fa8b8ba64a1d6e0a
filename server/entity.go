package main

const (
	BaseSpeed      = 120.0 // units/s before species multiplier
	WanderSpeedMul = 0.4   // reduced speed while idling
	NoEntity       = -1    // empty conversion reference
)

// Entity is one simulated agent. The engine owns the pool; strategies,
// collision and physics only hold transient references within a tick.
type Entity struct {
	ID      int
	Species Species
	Team    int

	Pos      Vec2
	Vel      Vec2
	Radius   float64
	SpeedMul float64

	Health    int
	MaxHealth int
	Alive     bool

	// Conversion state. Converting marks the losing side of an in-flight
	// conversion, with the converter recorded in ConverterID; the winner
	// records its victim in TargetID.
	Converting  bool
	ConverterID int
	TargetID    int

	// Per-battle stats
	Conversions int
	SurvivalMs  float64
	TraveledDst float64

	// Idle wander scratch state, owned by the strategy pass
	wanderDir Vec2
	wanderMs  float64
}

// NewEntity creates a live entity of the given species at pos.
// Radius, speed and health come from the species parameter table.
func NewEntity(id int, species Species, team int, pos Vec2, p SpeciesParams) *Entity {
	return &Entity{
		ID:          id,
		Species:     species,
		Team:        team,
		Pos:         pos,
		Radius:      p.Radius,
		SpeedMul:    p.SpeedMul,
		Health:      p.MaxHealth,
		MaxHealth:   p.MaxHealth,
		Alive:       true,
		ConverterID: NoEntity,
		TargetID:    NoEntity,
	}
}

// TakeDamage reduces health and returns true if the entity died.
// Death is terminal; a dead entity is excluded from every query.
func (e *Entity) TakeDamage(dmg int) bool {
	if !e.Alive {
		return false
	}
	e.Health -= dmg
	if e.Health <= 0 {
		e.Health = 0
		e.Alive = false
		return true
	}
	return false
}

// becomeSpecies atomically rewrites identity after a lost conversion:
// species, team and kinematic parameters change together and health
// resets to the new species' maximum.
func (e *Entity) becomeSpecies(species Species, team int, p SpeciesParams) {
	e.Species = species
	e.Team = team
	e.Radius = p.Radius
	e.SpeedMul = p.SpeedMul
	e.MaxHealth = p.MaxHealth
	e.Health = p.MaxHealth
}

// clearConversion drops any in-flight conversion references on e
func (e *Entity) clearConversion() {
	e.Converting = false
	e.ConverterID = NoEntity
	e.TargetID = NoEntity
}

// engaged reports whether e is on either side of an in-flight conversion
func (e *Entity) engaged() bool {
	return e.Converting || e.TargetID != NoEntity
}
