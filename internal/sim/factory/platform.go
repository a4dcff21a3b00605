package factory

import (
	"sort"

	"voxelfactory.io/internal/sim/catalogs"
)

// Platform is the delivery area near spawn: a PLATFORM_SIZE square at one
// level above the ground. Belts that run off their chain over a platform cell
// drop their head item into the platform inventory, which quests and scoring
// read.
type Platform struct {
	MinX, MinZ int
	Size       int

	inventory map[catalogs.ItemID]int
}

func NewPlatform(centerX, centerZ, size int) *Platform {
	return &Platform{
		MinX:      centerX - size/2,
		MinZ:      centerZ - size/2,
		Size:      size,
		inventory: map[catalogs.ItemID]int{},
	}
}

// Contains reports whether pos is a delivery cell.
func (p *Platform) Contains(pos Vec3i) bool {
	if pos.Y != GroundLevel+1 {
		return false
	}
	return pos.X >= p.MinX && pos.X < p.MinX+p.Size &&
		pos.Z >= p.MinZ && pos.Z < p.MinZ+p.Size
}

func (p *Platform) Deposit(item catalogs.ItemID, count int) {
	if count <= 0 {
		return
	}
	p.inventory[item] += count
}

func (p *Platform) Count(item catalogs.ItemID) int { return p.inventory[item] }

// Inventory returns the delivered totals keyed by item, in deterministic
// item order.
func (p *Platform) Inventory() []Slot {
	ids := make([]catalogs.ItemID, 0, len(p.inventory))
	for id := range p.inventory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Slot, 0, len(ids))
	for _, id := range ids {
		out = append(out, Slot{Item: id, Count: p.inventory[id]})
	}
	return out
}

func (p *Platform) setCount(item catalogs.ItemID, count int) {
	if count <= 0 {
		delete(p.inventory, item)
		return
	}
	p.inventory[item] = count
}
