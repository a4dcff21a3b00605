package factory

import "voxelfactory.io/internal/sim/catalogs"

func (e *Engine) tickMachines(dt float64) {
	for _, pos := range e.index.machineOrder {
		m := e.machines[pos]
		m.TickCount++
		switch m.Def.Process {
		case catalogs.ProcessAutoGenerate:
			e.tickAutoGenerate(m, dt)
		case catalogs.ProcessRecipe:
			e.tickRecipe(m, dt)
		case catalogs.ProcessTransfer:
			// Belts are handled by the conveyor phases.
		}
		e.pushToBelt(m)
	}
}

func (e *Engine) tickAutoGenerate(m *Machine, dt float64) {
	if m.Def.ProcessTime <= 0 {
		return
	}
	m.Progress += dt / m.Def.ProcessTime
	if m.Progress < 1.0 {
		return
	}
	name, ok := e.biomes.MineAt(m.Pos, m.TickCount)
	if !ok {
		m.Progress = 1.0
		return
	}
	id, ok := e.cats.Items.Lookup(name)
	if !ok {
		m.Progress = 1.0
		return
	}
	if !m.Output.CanAccept(id, 1, m.Def.BufferSize) {
		// Output full: freeze at the boundary and retry next tick.
		m.Progress = 1.0
		return
	}
	m.Output.Add(id, 1, m.Def.BufferSize)
	m.Progress = 0
	e.emit(EventItemProduced, m.Pos, name, 1)
}

func (e *Engine) tickRecipe(m *Machine, dt float64) {
	in := &m.Inputs[0]
	if in.Empty() {
		m.Progress = 0
		return
	}
	recipe, ok := e.cats.Recipes.Find(m.Def.Station, e.cats.Items.NameOf(in.Item))
	if !ok {
		return
	}
	if m.Def.RequiresFuel && recipe.Fuel != nil {
		fuelID, ok := e.cats.Items.Lookup(recipe.Fuel.Item)
		if !ok {
			return
		}
		if m.Fuel.Empty() || m.Fuel.Item != fuelID || m.Fuel.Count < recipe.Fuel.Amount {
			return
		}
	}
	if !e.recipeInputsSatisfied(m, recipe) {
		return
	}
	outID, outCount, ok := e.recipeOutput(recipe)
	if !ok || !m.Output.CanAccept(outID, outCount, m.Def.BufferSize) {
		return
	}

	m.Progress += dt / recipe.CraftTime
	if m.Progress < 1.0 {
		return
	}
	m.Progress = 0

	for i, rin := range recipe.Inputs {
		if i >= len(m.Inputs) {
			break
		}
		taken := m.Inputs[i].Remove(rin.Count)
		e.emit(EventItemConsumed, m.Pos, rin.Item, taken)
	}
	if m.Def.RequiresFuel && recipe.Fuel != nil {
		// Saturating: a malformed recipe must not underflow the fuel count.
		m.Fuel.Remove(recipe.Fuel.Amount)
	}
	m.Output.Add(outID, outCount, m.Def.BufferSize)
	e.emit(EventItemProduced, m.Pos, recipe.Outputs[0].Item, outCount)
}

// recipeInputsSatisfied checks every recipe input against its machine slot:
// input i maps to Inputs[i].
func (e *Engine) recipeInputsSatisfied(m *Machine, recipe catalogs.RecipeDef) bool {
	if len(recipe.Inputs) > len(m.Inputs) {
		return false
	}
	for i, rin := range recipe.Inputs {
		id, ok := e.cats.Items.Lookup(rin.Item)
		if !ok {
			return false
		}
		s := &m.Inputs[i]
		if s.Empty() || s.Item != id || s.Count < rin.Count {
			return false
		}
	}
	return true
}

func (e *Engine) recipeOutput(recipe catalogs.RecipeDef) (catalogs.ItemID, int, bool) {
	out := recipe.Outputs[0]
	id, ok := e.cats.Items.Lookup(out.Item)
	if !ok {
		return 0, 0, false
	}
	return id, out.Count, true
}

// pushToBelt moves one finished item onto the conveyor at the output port,
// entering at the join progress the belt computes for our side.
func (e *Engine) pushToBelt(m *Machine) {
	if m.Output.Empty() {
		return
	}
	c := e.index.conveyorAt(m.OutputPort())
	if c == nil {
		return
	}
	item := m.Output.Item
	if !e.tryBeltInsert(c, m.Pos, item) {
		return
	}
	m.Output.Remove(1)
	e.emitTransfer(m.Pos, c.Pos, e.cats.Items.NameOf(item))
}
