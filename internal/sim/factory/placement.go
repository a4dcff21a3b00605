package factory

import (
	"voxelfactory.io/internal/sim/catalogs"
)

// autoOrientDirs is the neighbor scan order for placement inference. Fixed so
// placement is deterministic when several neighbors qualify.
var autoOrientDirs = [4]Dir{North, South, East, West}

// AutoConveyorDirection infers the facing for a belt placed at pos:
// inherit from an adjacent belt that feeds this cell, else face away from an
// adjacent machine, else quantize the player's yaw. The player's rotation
// offset applies on top, after inference.
func (e *Engine) AutoConveyorDirection(pos Vec3i) Dir {
	d := e.inferConveyorDirection(pos)
	for i := 0; i < e.player.RotationOffset%4; i++ {
		d = d.RotateCW()
	}
	return d
}

func (e *Engine) inferConveyorDirection(pos Vec3i) Dir {
	for _, d := range autoOrientDirs {
		nb := pos.Add(d.Unit())
		if c := e.conveyors[nb]; c != nil {
			if c.Pos.Add(c.OutputDir.Unit()) == pos {
				return c.OutputDir
			}
		}
	}
	for _, d := range autoOrientDirs {
		nb := pos.Add(d.Unit())
		if e.machines[nb] != nil {
			// Receive from the machine: point away from it.
			return d.Opposite()
		}
	}
	return YawToDir(e.player.Yaw)
}

// cellFree reports whether pos holds neither a block nor an entity. Machines
// and blocks are disjoint per cell; placement enforces it here.
func (e *Engine) cellFree(pos Vec3i) bool {
	if _, blocked := e.BlockAt(pos); blocked {
		return false
	}
	return e.machines[pos] == nil && e.conveyors[pos] == nil
}

// placeMachine spawns a machine or belt entity at pos. The caller has already
// settled inventory accounting.
func (e *Engine) placeMachine(def catalogs.MachineDef, pos Vec3i, facing Dir) {
	if def.Process == catalogs.ProcessTransfer {
		e.conveyors[pos] = NewConveyor(pos, facing)
		e.dirtyBelts[pos] = struct{}{}
		return
	}
	m := NewMachine(def, pos, facing)
	m.FuelItems = e.fuelItemsFor(def)
	e.machines[pos] = m
}

// fuelItemsFor collects the fuel items named by the station's recipes, in
// recipe-id order, deduplicated.
func (e *Engine) fuelItemsFor(def catalogs.MachineDef) []catalogs.ItemID {
	if !def.RequiresFuel {
		return nil
	}
	var out []catalogs.ItemID
	seen := map[catalogs.ItemID]bool{}
	for _, r := range e.cats.Recipes.ForStation(def.Station) {
		if r.Fuel == nil {
			continue
		}
		id, ok := e.cats.Items.Lookup(r.Fuel.Item)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// PlaceSelected places the selected hotbar item at pos, with auto-orientation
// for belts and yaw-quantized facing for everything else. Returns false with
// a reason when validation refuses.
func (e *Engine) PlaceSelected(pos Vec3i) (bool, string) {
	item, ok := e.player.SelectedItem()
	if !ok && !e.player.Creative {
		return false, "selected slot is empty"
	}
	if !ok {
		return false, "no item selected"
	}
	if !e.cellFree(pos) {
		return false, "cell occupied"
	}
	def, ok := e.cats.Items.DefOf(item)
	if !ok {
		return false, "unknown item"
	}

	if def.Machine != "" {
		mdef, ok := e.cats.Machines.ByID[def.Machine]
		if !ok {
			return false, "unknown machine kind"
		}
		facing := YawToDir(e.player.Yaw)
		if mdef.Process == catalogs.ProcessTransfer {
			facing = e.AutoConveyorDirection(pos)
		}
		e.player.ConsumeSelected()
		e.placeMachine(mdef, pos, facing)
		return true, ""
	}

	if !def.Terrain {
		return false, "item is not placeable"
	}
	e.player.ConsumeSelected()
	e.setBlockCell(pos, cellOf(item))
	return true, ""
}
