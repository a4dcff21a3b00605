package factory

import "voxelfactory.io/internal/sim/catalogs"

// Machine is a tile actor keyed by its grid position. It never moves; it is
// created by placement or command and destroyed only on break.
//
// Port geometry relative to Facing: the primary input is behind the machine,
// the output is in front. Fuel (furnaces) enters from either side; recipe
// machines without fuel take their secondary input from the sides instead.
type Machine struct {
	Def    catalogs.MachineDef
	Pos    Vec3i
	Facing Dir

	Progress  float64
	TickCount uint32

	Inputs [2]Slot
	Output Slot
	Fuel   Slot

	// FuelItems are the only items the side fuel ports accept, resolved from
	// the station's recipes at creation. Anything else stays on the belt.
	FuelItems []catalogs.ItemID
}

func NewMachine(def catalogs.MachineDef, pos Vec3i, facing Dir) *Machine {
	return &Machine{Def: def, Pos: pos, Facing: facing}
}

func (m *Machine) InputPort() Vec3i  { return m.Pos.Add(m.Facing.Opposite().Unit()) }
func (m *Machine) OutputPort() Vec3i { return m.Pos.Add(m.Facing.Unit()) }

// machineSide classifies a neighbor cell relative to the machine's facing.
type machineSide uint8

const (
	sideNone machineSide = iota
	sideBack
	sideLeft
	sideRight
	sideFront
)

func (m *Machine) sideOf(neighbor Vec3i) machineSide {
	nd := Vec3i{neighbor.X - m.Pos.X, neighbor.Y - m.Pos.Y, neighbor.Z - m.Pos.Z}
	switch nd {
	case m.Facing.Opposite().Unit():
		return sideBack
	case m.Facing.Left().Unit():
		return sideLeft
	case m.Facing.Right().Unit():
		return sideRight
	case m.Facing.Unit():
		return sideFront
	default:
		return sideNone
	}
}

// acceptSlot resolves which slot an insertion from the given neighbor cell
// targets, or nil when the geometry refuses.
func (m *Machine) acceptSlot(from Vec3i) *Slot {
	if m.Def.Process == catalogs.ProcessAutoGenerate || m.Def.Process == catalogs.ProcessTransfer {
		return nil
	}
	switch m.sideOf(from) {
	case sideBack:
		return &m.Inputs[0]
	case sideLeft, sideRight:
		if m.Def.RequiresFuel {
			return &m.Fuel
		}
		return &m.Inputs[1]
	default:
		return nil
	}
}

func (m *Machine) fuelOK(item catalogs.ItemID) bool {
	for _, id := range m.FuelItems {
		if id == item {
			return true
		}
	}
	return false
}

// CanAcceptFrom reports whether one item can be deposited from a neighbor cell.
func (m *Machine) CanAcceptFrom(from Vec3i, item catalogs.ItemID) bool {
	s := m.acceptSlot(from)
	if s == nil {
		return false
	}
	if s == &m.Fuel && !m.fuelOK(item) {
		return false
	}
	return s.CanAccept(item, 1, m.Def.BufferSize)
}

// AcceptFrom deposits one item from a neighbor cell. Returns false when the
// geometry, the fuel filter, or capacity refuses; state is unchanged then.
func (m *Machine) AcceptFrom(from Vec3i, item catalogs.ItemID) bool {
	s := m.acceptSlot(from)
	if s == nil {
		return false
	}
	if s == &m.Fuel && !m.fuelOK(item) {
		return false
	}
	return s.Add(item, 1, m.Def.BufferSize) == 1
}

// DrainContents empties every slot and returns the stacks, for returning to
// the breaking player's inventory.
func (m *Machine) DrainContents() []Slot {
	var out []Slot
	for i := range m.Inputs {
		if !m.Inputs[i].Empty() {
			out = append(out, m.Inputs[i])
			m.Inputs[i] = Slot{}
		}
	}
	if !m.Output.Empty() {
		out = append(out, m.Output)
		m.Output = Slot{}
	}
	if !m.Fuel.Empty() {
		out = append(out, m.Fuel)
		m.Fuel = Slot{}
	}
	return out
}
