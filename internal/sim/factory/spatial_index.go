package factory

import "sort"

// spatialIndex is the per-tick flat view over entities: O(1) neighbor lookup
// plus stable iteration orders. Rebuilt at the start of every tick instead of
// maintained incrementally, which keeps entity add/remove paths trivial.
type spatialIndex struct {
	machines  map[Vec3i]*Machine
	conveyors map[Vec3i]*Conveyor

	machineOrder  []Vec3i
	conveyorOrder []Vec3i
}

func (e *Engine) rebuildIndex() {
	e.index.machines = e.machines
	e.index.conveyors = e.conveyors

	e.index.machineOrder = e.index.machineOrder[:0]
	for p := range e.machines {
		e.index.machineOrder = append(e.index.machineOrder, p)
	}
	sort.Slice(e.index.machineOrder, func(i, j int) bool {
		return lessVec3i(e.index.machineOrder[i], e.index.machineOrder[j])
	})

	e.index.conveyorOrder = e.index.conveyorOrder[:0]
	for p := range e.conveyors {
		e.index.conveyorOrder = append(e.index.conveyorOrder, p)
	}
	sort.Slice(e.index.conveyorOrder, func(i, j int) bool {
		return lessVec3i(e.index.conveyorOrder[i], e.index.conveyorOrder[j])
	})
}

func (x *spatialIndex) machineAt(pos Vec3i) *Machine   { return x.machines[pos] }
func (x *spatialIndex) conveyorAt(pos Vec3i) *Conveyor { return x.conveyors[pos] }
