package main

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3, 4}.Normalize()
	if !almostEqual(v.Length(), 1) {
		t.Errorf("expected unit length, got %g", v.Length())
	}
	if !almostEqual(v.X, 0.6) || !almostEqual(v.Y, 0.8) {
		t.Errorf("unexpected direction (%g, %g)", v.X, v.Y)
	}
}

func TestVec2NormalizeZero(t *testing.T) {
	v := Vec2{}.Normalize()
	if v != (Vec2{}) {
		t.Errorf("zero vector should normalize to zero, got (%g, %g)", v.X, v.Y)
	}
	if math.IsNaN(v.X) || math.IsNaN(v.Y) {
		t.Error("zero normalize produced NaN")
	}
}

func TestVec2Arithmetic(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, -1}
	if got := a.Add(b); got != (Vec2{4, 1}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (Vec2{-2, 3}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Scale(2); got != (Vec2{2, 4}) {
		t.Errorf("Scale = %v", got)
	}
	if got := a.Dot(b); got != 1 {
		t.Errorf("Dot = %g", got)
	}
	if got := Distance(Vec2{0, 0}, Vec2{3, 4}); got != 5 {
		t.Errorf("Distance = %g", got)
	}
	if got := a.Lerp(b, 0.5); got != (Vec2{2, 0.5}) {
		t.Errorf("Lerp = %v", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 10) != 5 {
		t.Error("in-range value should pass through")
	}
	if Clamp(-1, 0, 10) != 0 {
		t.Error("below min should clamp to min")
	}
	if Clamp(11, 0, 10) != 10 {
		t.Error("above max should clamp to max")
	}
}
