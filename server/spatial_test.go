package main

import (
	"math/rand"
	"testing"
)

func TestSpatialGridInsertAndQuery(t *testing.T) {
	grid := NewSpatialGrid(DefaultArenaWidth, DefaultArenaHeight)

	grid.Insert(100, 100, 7)

	results := grid.Query(100, 100, 50)
	found := false
	for _, idx := range results {
		if idx == 7 {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected to find index at (100,100)")
	}

	// Query far away should not find it
	results = grid.Query(1500, 900, 50)
	for _, idx := range results {
		if idx == 7 {
			t.Error("should not find index at (1500,900)")
		}
	}
}

func TestSpatialGridClear(t *testing.T) {
	grid := NewSpatialGrid(DefaultArenaWidth, DefaultArenaHeight)

	grid.Insert(500, 500, 0)
	grid.Clear()

	results := grid.Query(500, 500, 100)
	if len(results) != 0 {
		t.Errorf("expected 0 results after clear, got %d", len(results))
	}
}

func TestSpatialGridClampsOutOfBounds(t *testing.T) {
	grid := NewSpatialGrid(DefaultArenaWidth, DefaultArenaHeight)

	// Inserting outside the arena clamps to the edge cells
	grid.Insert(-50, -50, 1)
	grid.Insert(DefaultArenaWidth+100, DefaultArenaHeight+100, 2)

	results := grid.Query(0, 0, CellSize)
	found := false
	for _, idx := range results {
		if idx == 1 {
			found = true
		}
	}
	if !found {
		t.Error("negative position should clamp into the corner cell")
	}

	results = grid.Query(DefaultArenaWidth, DefaultArenaHeight, CellSize)
	found = false
	for _, idx := range results {
		if idx == 2 {
			found = true
		}
	}
	if !found {
		t.Error("over-bounds position should clamp into the far corner cell")
	}
}

// The grid's only contract: a query never misses a point within radius.
// Compare grid query plus exact filtering against the brute-force O(n^2)
// answer for a few radii, including one larger than a cell.
func TestSpatialGridMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	grid := NewSpatialGrid(DefaultArenaWidth, DefaultArenaHeight)

	const n = 200
	points := make([]Vec2, n)
	for i := range points {
		points[i] = Vec2{rng.Float64() * DefaultArenaWidth, rng.Float64() * DefaultArenaHeight}
		grid.Insert(points[i].X, points[i].Y, i)
	}

	for _, radius := range []float64{20, 50, 120} {
		for i := 0; i < n; i++ {
			brute := make(map[int]bool)
			for j := 0; j < n; j++ {
				if j != i && DistanceSq(points[i], points[j]) <= radius*radius {
					brute[j] = true
				}
			}

			viaGrid := make(map[int]bool)
			for _, idx := range grid.Query(points[i].X, points[i].Y, radius) {
				if idx != i && DistanceSq(points[i], points[idx]) <= radius*radius {
					viaGrid[idx] = true
				}
			}

			if len(brute) != len(viaGrid) {
				t.Fatalf("radius %g point %d: brute found %d, grid found %d",
					radius, i, len(brute), len(viaGrid))
			}
			for j := range brute {
				if !viaGrid[j] {
					t.Fatalf("radius %g: grid missed neighbor %d of point %d", radius, j, i)
				}
			}
		}
	}
}
