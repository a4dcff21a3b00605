package factory

// tickShapes recomputes every belt's shape from its 4-neighborhood. Shape is
// a pure function of the neighborhood, so running it again on an unchanged
// layout is a no-op; belts whose shape changed are queued for the render
// layer.
func (e *Engine) tickShapes() {
	for _, pos := range e.index.conveyorOrder {
		c := e.conveyors[pos]
		shape, outDir := e.inferShape(c)
		if shape != c.Shape || outDir != c.OutputDir {
			c.Shape = shape
			c.OutputDir = outDir
			e.dirtyBelts[pos] = struct{}{}
		}
	}
}

// TakeDirtyConveyors drains the belts whose shape changed last tick, sorted.
func (e *Engine) TakeDirtyConveyors() []Vec3i {
	if len(e.dirtyBelts) == 0 {
		return nil
	}
	out := make([]Vec3i, 0, len(e.dirtyBelts))
	for p := range e.dirtyBelts {
		out = append(out, p)
	}
	e.dirtyBelts = map[Vec3i]struct{}{}
	sortVec3i(out)
	return out
}

func (e *Engine) inferShape(c *Conveyor) (ConveyorShape, Dir) {
	backPos := c.Pos.Add(c.Facing.Opposite().Unit())
	leftPos := c.Pos.Add(c.Facing.Left().Unit())
	rightPos := c.Pos.Add(c.Facing.Right().Unit())
	frontPos := c.Pos.Add(c.Facing.Unit())

	backIn := e.outputsInto(backPos, c.Pos)
	leftIn := e.outputsInto(leftPos, c.Pos)
	rightIn := e.outputsInto(rightPos, c.Pos)
	frontIn := e.outputsInto(frontPos, c.Pos)

	leftWait := !leftIn && e.canReceiveFrom(leftPos, c.Pos)
	rightWait := !rightIn && e.canReceiveFrom(rightPos, c.Pos)
	frontWait := !frontIn && e.canReceiveFrom(frontPos, c.Pos)

	inputs := 0
	for _, b := range [4]bool{backIn, leftIn, rightIn, frontIn} {
		if b {
			inputs++
		}
	}
	waits := 0
	for _, b := range [3]bool{leftWait, rightWait, frontWait} {
		if b {
			waits++
		}
	}

	switch {
	case inputs >= 2:
		return ShapeTJunction, c.Facing
	case inputs == 1 && backIn:
		switch {
		case waits >= 2:
			return ShapeSplitter, c.Facing
		case rightWait && !frontWait:
			return ShapeCornerRight, c.Facing.Right()
		case leftWait && !frontWait:
			return ShapeCornerLeft, c.Facing.Left()
		default:
			return ShapeStraight, c.Facing
		}
	case inputs == 1 && leftIn:
		switch {
		case frontWait && rightWait:
			return ShapeSplitter, c.Facing
		case rightWait && !frontWait:
			return ShapeCornerRight, c.Facing.Right()
		default:
			return ShapeCornerLeft, c.Facing
		}
	case inputs == 1 && rightIn:
		switch {
		case frontWait && leftWait:
			return ShapeSplitter, c.Facing
		case leftWait && !frontWait:
			return ShapeCornerLeft, c.Facing.Left()
		default:
			return ShapeCornerRight, c.Facing
		}
	default:
		// Front head-on or no inputs at all.
		return ShapeStraight, c.Facing
	}
}

// outputsInto reports whether the entity at pos feeds the cell at target: a
// belt whose output direction points there, or a machine whose output port is
// there.
func (e *Engine) outputsInto(pos, target Vec3i) bool {
	if src := e.index.conveyorAt(pos); src != nil {
		return src.Pos.Add(src.OutputDir.Unit()) == target
	}
	if m := e.index.machineAt(pos); m != nil {
		return m.OutputPort() == target
	}
	return false
}

// canReceiveFrom reports whether the neighbor at pos could in principle take
// an item from the cell at from: a belt whose input geometry (back, left,
// right) aligns, or a machine that accepts on that side.
func (e *Engine) canReceiveFrom(pos, from Vec3i) bool {
	if nb := e.index.conveyorAt(pos); nb != nil {
		_, _, ok := nb.JoinInfo(from)
		return ok
	}
	if m := e.index.machineAt(pos); m != nil {
		return m.acceptSlot(from) != nil
	}
	return false
}
