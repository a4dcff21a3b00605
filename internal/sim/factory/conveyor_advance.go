package factory

// Advance moves items toward the exit, farthest first so each item is clamped
// against the one ahead of it after that one has already moved. The head item
// holds at 1.0 when the downstream refuses; the clamp then back-pressures the
// whole chain.
func (c *Conveyor) Advance(dt, speed float64, spacing float64) {
	step := speed * dt
	for i := len(c.Items) - 1; i >= 0; i-- {
		p := c.Items[i].Progress + step
		if p > 1.0 {
			p = 1.0
		}
		if i+1 < len(c.Items) {
			limit := c.Items[i+1].Progress - spacing
			if p > limit {
				p = limit
			}
			if p < c.Items[i].Progress {
				p = c.Items[i].Progress
			}
		}
		c.Items[i].Progress = p
		c.Items[i].LateralOffset = lateralAt(c.Items[i].LateralOffset, p)
	}
}

// lateralAt shrinks a merge offset linearly to zero as the item travels from
// mid-belt to the exit.
func lateralAt(current, progress float64) float64 {
	if current == 0 {
		return 0
	}
	if progress >= 1.0 {
		return 0
	}
	if progress <= 0.5 {
		return current
	}
	// Items merge in at progress 0.5; scale the remaining offset by the
	// remaining half of the run.
	sign := 1.0
	mag := current
	if mag < 0 {
		sign = -1.0
		mag = -mag
	}
	target := 0.5 * (1.0 - progress) / 0.5
	if mag > target {
		mag = target
	}
	return sign * mag
}
