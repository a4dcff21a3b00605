package factory

import "voxelfactory.io/internal/sim/catalogs"

// tickTransfers moves belt head items (progress 1.0) into whatever sits at
// the exit cell: the next belt, a machine input, or a platform delivery cell.
// Refusal holds the item; it retries next tick.
func (e *Engine) tickTransfers() {
	for _, pos := range e.index.conveyorOrder {
		c := e.conveyors[pos]
		if len(c.Items) == 0 {
			continue
		}
		head := c.Items[len(c.Items)-1]
		if head.Progress < 1.0 {
			continue
		}
		if c.Shape == ShapeSplitter {
			e.transferFromSplitter(c, head.Item)
			continue
		}
		target := c.Pos.Add(c.OutputDir.Unit())
		if e.deliverTo(c, target, head.Item) {
			c.Items = c.Items[:len(c.Items)-1]
		}
	}
}

// transferFromSplitter tries candidates in cursor order starting at
// LastOutputIndex. Success at candidate k moves the cursor to k+1; when every
// candidate refuses the cursor still advances one step so a blocked branch
// cannot starve the others.
func (e *Engine) transferFromSplitter(c *Conveyor, item catalogs.ItemID) {
	outputs := c.SplitterOutputs()
	for k := 0; k < 3; k++ {
		idx := (c.LastOutputIndex + k) % 3
		if e.deliverTo(c, outputs[idx], item) {
			c.Items = c.Items[:len(c.Items)-1]
			c.LastOutputIndex = (idx + 1) % 3
			return
		}
	}
	c.LastOutputIndex = (c.LastOutputIndex + 1) % 3
}

// deliverTo attempts one item handoff into the target cell. It does not
// remove the item from the source; the caller pops on success.
func (e *Engine) deliverTo(c *Conveyor, target Vec3i, item catalogs.ItemID) bool {
	if next := e.index.conveyorAt(target); next != nil {
		if e.tryBeltInsert(next, c.Pos, item) {
			e.emitTransfer(c.Pos, target, e.cats.Items.NameOf(item))
			return true
		}
		return false
	}
	if m := e.index.machineAt(target); m != nil {
		if m.AcceptFrom(c.Pos, item) {
			e.emitTransfer(c.Pos, target, e.cats.Items.NameOf(item))
			return true
		}
		return false
	}
	if _, blocked := e.BlockAt(target); blocked {
		return false
	}
	if e.platform.Contains(target) {
		name := e.cats.Items.NameOf(item)
		e.platform.Deposit(item, 1)
		e.emit(EventItemDelivered, target, name, 1)
		return true
	}
	return false
}

// tryBeltInsert is the single entry point for putting an item onto a belt
// from a neighbor cell, shared by machine output pushes and belt-to-belt
// handoff. It enforces join geometry, capacity/spacing, and the TJunction
// zipper.
func (e *Engine) tryBeltInsert(c *Conveyor, from Vec3i, item catalogs.ItemID) bool {
	prog, lat, ok := c.JoinInfo(from)
	if !ok {
		return false
	}
	side := c.sideOf(from)
	if !e.zipperAllows(c, side) {
		return false
	}
	if !c.CanAcceptItem(prog, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
		return false
	}
	c.InsertItem(item, prog, lat)
	if c.Shape == ShapeTJunction {
		c.LastInputSource = side
	}
	return true
}

// zipperAllows implements the merge preference: a TJunction refuses the side
// that fed last while the other feed still has something to offer, which
// interleaves two sustained feeds 1:1.
func (e *Engine) zipperAllows(c *Conveyor, side machineSide) bool {
	if c.Shape != ShapeTJunction {
		return true
	}
	if c.LastInputSource == sideNone || side != c.LastInputSource {
		return true
	}
	return !e.otherFeederReady(c, side)
}

// otherFeederReady reports whether some other input side has a feeder with an
// item ready for us this tick or the next.
func (e *Engine) otherFeederReady(c *Conveyor, exclude machineSide) bool {
	for _, side := range [3]machineSide{sideBack, sideLeft, sideRight} {
		if side == exclude {
			continue
		}
		pos := c.inputCell(side)
		if m := e.index.machineAt(pos); m != nil {
			if m.OutputPort() == c.Pos && !m.Output.Empty() {
				return true
			}
			continue
		}
		if src := e.index.conveyorAt(pos); src != nil {
			if src.Pos.Add(src.OutputDir.Unit()) == c.Pos && len(src.Items) > 0 {
				return true
			}
		}
	}
	return false
}

func (c *Conveyor) inputCell(side machineSide) Vec3i {
	switch side {
	case sideBack:
		return c.Pos.Add(c.Facing.Opposite().Unit())
	case sideLeft:
		return c.Pos.Add(c.Facing.Left().Unit())
	case sideRight:
		return c.Pos.Add(c.Facing.Right().Unit())
	default:
		return c.Pos.Add(c.Facing.Unit())
	}
}
