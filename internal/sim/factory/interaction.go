package factory

import "math"

const eyeHeight = 1.6

// RayHit is the first solid thing along a view ray: either a terrain block or
// a machine/belt entity at Cell.
type RayHit struct {
	Cell     Vec3i
	Distance float64
	// Normal is the face the ray entered through, derived from the axis of
	// the last DDA step.
	Normal Vec3i

	Machine  *Machine
	Conveyor *Conveyor
}

// PlaceTarget is the empty cell adjacent to the hit face.
func (h RayHit) PlaceTarget() Vec3i { return h.Cell.Add(h.Normal) }

// eyeOrigin is where view rays start.
func (e *Engine) eyeOrigin() Vec3f {
	p := e.player.Pos
	return Vec3f{X: p.X, Y: p.Y + eyeHeight, Z: p.Z}
}

// viewDir converts the player's yaw/pitch to a unit vector. Yaw 0 faces -Z
// and increases clockwise; pitch is positive upward.
func viewDir(yaw, pitch float64) Vec3f {
	yr := yaw * math.Pi / 180
	pr := pitch * math.Pi / 180
	cp := math.Cos(pr)
	return Vec3f{
		X: math.Sin(yr) * cp,
		Y: math.Sin(pr),
		Z: -math.Cos(yr) * cp,
	}
}

// RaycastView casts from the player's eye along the view direction.
func (e *Engine) RaycastView() (RayHit, bool) {
	return e.Raycast(e.eyeOrigin(), viewDir(e.player.Yaw, e.player.Pitch), e.tune.ReachDistance)
}

// Raycast walks voxel cells along the ray in ascending t order (DDA) and
// returns the first cell holding a block or an entity.
func (e *Engine) Raycast(origin, dir Vec3f, maxDist float64) (RayHit, bool) {
	cell := Vec3i{
		X: int(math.Floor(origin.X)),
		Y: int(math.Floor(origin.Y)),
		Z: int(math.Floor(origin.Z)),
	}

	stepX, tMaxX, tDeltaX := ddaAxis(origin.X, dir.X, cell.X)
	stepY, tMaxY, tDeltaY := ddaAxis(origin.Y, dir.Y, cell.Y)
	stepZ, tMaxZ, tDeltaZ := ddaAxis(origin.Z, dir.Z, cell.Z)

	normal := Vec3i{}
	dist := 0.0
	for dist <= maxDist {
		if hit, ok := e.hitAt(cell, dist, normal); ok {
			return hit, true
		}
		switch {
		case tMaxX <= tMaxY && tMaxX <= tMaxZ:
			dist = tMaxX
			tMaxX += tDeltaX
			cell.X += stepX
			normal = Vec3i{X: -stepX}
		case tMaxY <= tMaxZ:
			dist = tMaxY
			tMaxY += tDeltaY
			cell.Y += stepY
			normal = Vec3i{Y: -stepY}
		default:
			dist = tMaxZ
			tMaxZ += tDeltaZ
			cell.Z += stepZ
			normal = Vec3i{Z: -stepZ}
		}
	}
	return RayHit{}, false
}

func (e *Engine) hitAt(cell Vec3i, dist float64, normal Vec3i) (RayHit, bool) {
	if _, ok := e.BlockAt(cell); ok {
		return RayHit{Cell: cell, Distance: dist, Normal: normal}, true
	}
	if m := e.machines[cell]; m != nil {
		return RayHit{Cell: cell, Distance: dist, Normal: normal, Machine: m}, true
	}
	if c := e.conveyors[cell]; c != nil {
		return RayHit{Cell: cell, Distance: dist, Normal: normal, Conveyor: c}, true
	}
	return RayHit{}, false
}

// ddaAxis computes the step sign, the t at the first cell boundary, and the t
// per full cell for one axis. A zero component never wins the min comparison.
func ddaAxis(origin, dir float64, cell int) (step int, tMax, tDelta float64) {
	if dir > 0 {
		return 1, (float64(cell) + 1 - origin) / dir, 1 / dir
	}
	if dir < 0 {
		return -1, (origin - float64(cell)) / -dir, 1 / -dir
	}
	return 0, math.Inf(1), math.Inf(1)
}
