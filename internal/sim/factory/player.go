package factory

import "voxelfactory.io/internal/sim/catalogs"

const (
	InventorySlots = 40
	HotbarSlots    = 10
)

// Player is the host-facing player record: transform, inventory, hotbar
// selection. The core only touches it through commands and the break/place
// hooks.
type Player struct {
	Pos   Vec3f
	Yaw   float64
	Pitch float64

	Slots        [InventorySlots]Slot
	SelectedSlot int

	Creative bool

	// RotationOffset is the user-controlled quarter-turn count applied after
	// auto-orientation on placement.
	RotationOffset int
}

func NewPlayer(creative bool) *Player {
	return &Player{Creative: creative}
}

// AddItem distributes count into the inventory, stacking onto existing slots
// first. Returns the remainder that did not fit.
func (p *Player) AddItem(item catalogs.ItemID, count, stackSize int) int {
	if count <= 0 {
		return 0
	}
	for i := range p.Slots {
		if p.Slots[i].Empty() || p.Slots[i].Item != item {
			continue
		}
		count -= p.Slots[i].Add(item, count, stackSize)
		if count == 0 {
			return 0
		}
	}
	for i := range p.Slots {
		if !p.Slots[i].Empty() {
			continue
		}
		count -= p.Slots[i].Add(item, count, stackSize)
		if count == 0 {
			return 0
		}
	}
	return count
}

// RemoveItem takes count of item from anywhere in the inventory and returns
// how many were actually removed.
func (p *Player) RemoveItem(item catalogs.ItemID, count int) int {
	removed := 0
	for i := range p.Slots {
		if p.Slots[i].Empty() || p.Slots[i].Item != item {
			continue
		}
		removed += p.Slots[i].Remove(count - removed)
		if removed == count {
			break
		}
	}
	return removed
}

func (p *Player) CountItem(item catalogs.ItemID) int {
	n := 0
	for i := range p.Slots {
		if !p.Slots[i].Empty() && p.Slots[i].Item == item {
			n += p.Slots[i].Count
		}
	}
	return n
}

// SelectedItem returns the item in the selected hotbar slot.
func (p *Player) SelectedItem() (catalogs.ItemID, bool) {
	s := &p.Slots[p.SelectedSlot]
	if s.Empty() {
		return 0, false
	}
	return s.Item, true
}

// ConsumeSelected removes one item from the selected slot. Creative mode
// never consumes.
func (p *Player) ConsumeSelected() {
	if p.Creative {
		return
	}
	p.Slots[p.SelectedSlot].Remove(1)
}
