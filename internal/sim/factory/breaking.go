package factory

type BreakPhase uint8

const (
	BreakIdle BreakPhase = iota
	BreakAiming
	BreakBreaking
)

// BreakState is the hold-to-break progress machine. Changing targets or
// releasing the button resets progress.
type BreakState struct {
	Phase    BreakPhase
	Target   Vec3i
	Progress float64
	// TotalTime is base hardness times the tool multiplier, fixed when the
	// break starts.
	TotalTime float64
}

func (e *Engine) BreakState() BreakState { return e.breaking }

// SetBreakHeld reflects the host's action button. The engine advances break
// progress during Step while held.
func (e *Engine) SetBreakHeld(held bool) { e.breakHeld = held }

func (e *Engine) tickInteraction(dt float64) {
	hit, ok := e.RaycastView()
	if !ok {
		e.breaking = BreakState{}
		return
	}
	if e.breaking.Phase == BreakIdle || e.breaking.Target != hit.Cell {
		e.breaking = BreakState{Phase: BreakAiming, Target: hit.Cell}
	}
	if !e.breakHeld {
		if e.breaking.Phase == BreakBreaking {
			e.breaking = BreakState{Phase: BreakAiming, Target: hit.Cell}
		}
		return
	}
	if e.breaking.Phase == BreakAiming {
		e.breaking.Phase = BreakBreaking
		e.breaking.Progress = 0
		e.breaking.TotalTime = e.breakTime(hit.Cell)
	}
	if e.player.Creative {
		e.breaking.Progress = 1.0
	} else if e.breaking.TotalTime > 0 {
		e.breaking.Progress += dt / e.breaking.TotalTime
	} else {
		e.breaking.Progress = 1.0
	}
	if e.breaking.Progress >= 1.0 {
		e.breakAt(hit.Cell)
		e.breaking = BreakState{}
	}
}

func (e *Engine) breakTime(pos Vec3i) float64 {
	base := 1.0
	if id, ok := e.BlockAt(pos); ok {
		if def, ok := e.cats.Items.DefOf(id); ok && def.Hardness > 0 {
			base = def.Hardness
		}
	} else if m := e.machines[pos]; m != nil {
		if def, ok := e.cats.Items.Defs[m.Def.Item]; ok && def.Hardness > 0 {
			base = def.Hardness
		}
	}
	return base * e.toolMultiplier()
}

func (e *Engine) toolMultiplier() float64 {
	if item, ok := e.player.SelectedItem(); ok {
		if e.cats.Items.NameOf(item) == "core:stone_pickaxe" {
			return e.tune.PickaxeMultiplier
		}
	}
	return e.tune.BareHandMultiplier
}

// breakAt removes whatever occupies pos and returns its contents to the
// player inventory. Reports false when the cell is empty.
func (e *Engine) breakAt(pos Vec3i) (bool, string) {
	stack := e.cats.Items.StackSizeOf

	if m := e.machines[pos]; m != nil {
		for _, s := range m.DrainContents() {
			e.player.AddItem(s.Item, s.Count, stack(s.Item))
		}
		if id, ok := e.cats.Items.Lookup(m.Def.Item); ok {
			e.player.AddItem(id, 1, stack(id))
		}
		delete(e.machines, pos)
		return true, ""
	}
	if c := e.conveyors[pos]; c != nil {
		for _, it := range c.Items {
			e.player.AddItem(it.Item, 1, stack(it.Item))
		}
		if id, ok := e.cats.Items.Lookup("core:conveyor"); ok {
			e.player.AddItem(id, 1, stack(id))
		}
		delete(e.conveyors, pos)
		return true, ""
	}
	if id, ok := e.BlockAt(pos); ok {
		e.setBlockCell(pos, cellAir)
		e.player.AddItem(id, 1, stack(id))
		return true, ""
	}
	return false, "cell empty"
}
