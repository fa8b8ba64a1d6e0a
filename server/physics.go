package main

const (
	DefaultRestitution = 0.6 // velocity retained after a bounce
)

// integrate advances an entity's position by one timestep and reflects it
// off the arena walls: the offending velocity component flips scaled by the
// restitution coefficient and the position clamps back inside the bounds.
func integrate(e *Entity, dt, width, height, restitution float64) {
	prev := e.Pos
	e.Pos.X += e.Vel.X * dt
	e.Pos.Y += e.Vel.Y * dt

	if e.Pos.X-e.Radius < 0 {
		e.Pos.X = e.Radius
		e.Vel.X = -e.Vel.X * restitution
	} else if e.Pos.X+e.Radius > width {
		e.Pos.X = width - e.Radius
		e.Vel.X = -e.Vel.X * restitution
	}
	if e.Pos.Y-e.Radius < 0 {
		e.Pos.Y = e.Radius
		e.Vel.Y = -e.Vel.Y * restitution
	} else if e.Pos.Y+e.Radius > height {
		e.Pos.Y = height - e.Radius
		e.Vel.Y = -e.Vel.Y * restitution
	}

	e.TraveledDst += Distance(prev, e.Pos)
}

// overlapping reports whether two entities' bodies intersect
func overlapping(a, b *Entity) bool {
	radSum := a.Radius + b.Radius
	return DistanceSq(a.Pos, b.Pos) <= radSum*radSum
}

// resolveOverlap separates two overlapping bodies with a positional push
// split evenly along the collision normal, then applies an impulse so they
// bounce instead of interpenetrating. Pairs already separating are left
// alone. Coincident centers get an arbitrary fixed normal rather than NaN.
func resolveOverlap(a, b *Entity, restitution float64) {
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Length()
	radSum := a.Radius + b.Radius
	if dist > radSum {
		return
	}

	var normal Vec2
	if dist > 0 {
		normal = delta.Scale(1 / dist)
	} else {
		normal = Vec2{1, 0}
	}

	// Positional correction: each body takes half the overlap
	overlap := radSum - dist
	half := normal.Scale(overlap / 2)
	a.Pos = a.Pos.Sub(half)
	b.Pos = b.Pos.Add(half)

	// Relative velocity along the normal; skip if already separating
	relVel := b.Vel.Sub(a.Vel)
	velAlong := relVel.Dot(normal)
	if velAlong > 0 {
		return
	}

	impulse := normal.Scale(-(1 + restitution) * velAlong / 2)
	a.Vel = a.Vel.Sub(impulse)
	b.Vel = b.Vel.Add(impulse)
}
