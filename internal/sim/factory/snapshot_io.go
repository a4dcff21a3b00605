package factory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"voxelfactory.io/internal/persistence/snapshot"
)

// ExportSnapshot captures the full logical state as a versioned save. Call
// only between ticks. Terrain is stored as the modified-cell overlay; the
// procedural base regenerates from the seed on load.
func (e *Engine) ExportSnapshot() snapshot.SnapshotV2 {
	snap := snapshot.SnapshotV2{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			Timestamp: time.Now().Unix(),
			Tick:      e.tick.Load(),
		},
		Seed:     e.cfg.Seed,
		TickRate: e.tune.TickRateHz,
		Creative: e.cfg.Creative,
	}

	p := e.player
	snap.Player = snapshot.PlayerV2{
		Pos:          [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
		Yaw:          p.Yaw,
		Pitch:        p.Pitch,
		SelectedSlot: p.SelectedSlot,
		Slots:        make([]snapshot.SlotV2, len(p.Slots)),
	}
	for i, s := range p.Slots {
		snap.Player.Slots[i] = e.slotOut(s)
	}

	plat := e.platform.Inventory()
	if len(plat) > 0 {
		snap.PlatformInventory = make(map[string]int, len(plat))
		for _, s := range plat {
			snap.PlatformInventory[e.cats.Items.NameOf(s.Item)] = s.Count
		}
	}

	if len(e.modified) > 0 {
		snap.ModifiedBlocks = make(map[string]string, len(e.modified))
		for pos, cell := range e.modified {
			name := ""
			if id, ok := itemOfCell(cell); ok {
				name = e.cats.Items.NameOf(id)
			}
			snap.ModifiedBlocks[blockKey(pos)] = name
		}
	}

	e.Machines(func(m *Machine) {
		rec := snapshot.MachineV2{
			Kind:      m.Def.ID,
			Pos:       m.Pos.ToArray(),
			Facing:    m.Facing.String(),
			Progress:  m.Progress,
			TickCount: m.TickCount,
			Output:    e.slotOut(m.Output),
			Fuel:      e.slotOut(m.Fuel),
		}
		for _, s := range m.Inputs {
			rec.Inputs = append(rec.Inputs, e.slotOut(s))
		}
		snap.Machines = append(snap.Machines, rec)
	})

	e.Conveyors(func(c *Conveyor) {
		rec := snapshot.ConveyorV2{
			Pos:             c.Pos.ToArray(),
			Facing:          c.Facing.String(),
			OutputDir:       c.OutputDir.String(),
			Shape:           c.Shape.String(),
			LastOutputIndex: c.LastOutputIndex,
			LastInputSource: uint8(c.LastInputSource),
		}
		for _, it := range c.Items {
			rec.Items = append(rec.Items, snapshot.ConveyorItemV2{
				Item:          e.cats.Items.NameOf(it.Item),
				Progress:      it.Progress,
				LateralOffset: it.LateralOffset,
			})
		}
		snap.Conveyors = append(snap.Conveyors, rec)
	})

	return snap
}

// ImportSnapshot restores a save into a freshly constructed engine. The
// engine must have been created with the snapshot's seed so the procedural
// base terrain lines up with the modified-cell overlay.
func (e *Engine) ImportSnapshot(snap snapshot.SnapshotV2) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.Seed != e.cfg.Seed {
		return fmt.Errorf("snapshot seed %d does not match engine seed %d", snap.Seed, e.cfg.Seed)
	}

	e.tick.Store(snap.Header.Tick)

	p := e.player
	p.Pos = Vec3f{X: snap.Player.Pos[0], Y: snap.Player.Pos[1], Z: snap.Player.Pos[2]}
	p.Yaw = snap.Player.Yaw
	p.Pitch = snap.Player.Pitch
	p.SelectedSlot = snap.Player.SelectedSlot
	p.Slots = [InventorySlots]Slot{}
	for i, s := range snap.Player.Slots {
		if i >= InventorySlots {
			break
		}
		slot, ok := e.slotIn(s)
		if !ok {
			continue
		}
		p.Slots[i] = slot
	}

	for name, count := range snap.PlatformInventory {
		id, ok := e.cats.Items.Lookup(name)
		if !ok {
			continue
		}
		e.platform.setCount(id, count)
	}

	for key, name := range snap.ModifiedBlocks {
		pos, err := parseBlockKey(key)
		if err != nil {
			return fmt.Errorf("modified block %q: %w", key, err)
		}
		cell := uint16(0)
		if name != "" {
			id, ok := e.cats.Items.Lookup(name)
			if !ok {
				continue
			}
			cell = cellOf(id)
		}
		e.setBlockCell(pos, cell)
	}

	for _, rec := range snap.Machines {
		def, ok := e.cats.Machines.ByID[rec.Kind]
		if !ok {
			return fmt.Errorf("unknown machine kind %q", rec.Kind)
		}
		facing, ok := DirFromString(rec.Facing)
		if !ok {
			return fmt.Errorf("machine at %v: bad facing %q", rec.Pos, rec.Facing)
		}
		m := NewMachine(def, Vec3i{X: rec.Pos[0], Y: rec.Pos[1], Z: rec.Pos[2]}, facing)
		m.FuelItems = e.fuelItemsFor(def)
		m.Progress = rec.Progress
		m.TickCount = rec.TickCount
		for i, s := range rec.Inputs {
			if i >= len(m.Inputs) {
				break
			}
			if slot, ok := e.slotIn(s); ok {
				m.Inputs[i] = slot
			}
		}
		if slot, ok := e.slotIn(rec.Output); ok {
			m.Output = slot
		}
		if slot, ok := e.slotIn(rec.Fuel); ok {
			m.Fuel = slot
		}
		e.machines[m.Pos] = m
	}

	for _, rec := range snap.Conveyors {
		facing, ok := DirFromString(rec.Facing)
		if !ok {
			return fmt.Errorf("conveyor at %v: bad facing %q", rec.Pos, rec.Facing)
		}
		outDir, ok := DirFromString(rec.OutputDir)
		if !ok {
			return fmt.Errorf("conveyor at %v: bad output direction %q", rec.Pos, rec.OutputDir)
		}
		shape, ok := ShapeFromString(rec.Shape)
		if !ok {
			return fmt.Errorf("conveyor at %v: bad shape %q", rec.Pos, rec.Shape)
		}
		c := NewConveyor(Vec3i{X: rec.Pos[0], Y: rec.Pos[1], Z: rec.Pos[2]}, facing)
		c.OutputDir = outDir
		c.Shape = shape
		c.LastOutputIndex = rec.LastOutputIndex
		c.LastInputSource = machineSide(rec.LastInputSource)
		for _, it := range rec.Items {
			id, ok := e.cats.Items.Lookup(it.Item)
			if !ok {
				continue
			}
			c.Items = append(c.Items, ConveyorItem{
				Item:          id,
				Progress:      it.Progress,
				LateralOffset: it.LateralOffset,
			})
		}
		e.conveyors[c.Pos] = c
	}

	e.rebuildIndex()
	return nil
}

func (e *Engine) slotOut(s Slot) snapshot.SlotV2 {
	if s.Empty() {
		return snapshot.SlotV2{}
	}
	return snapshot.SlotV2{Item: e.cats.Items.NameOf(s.Item), Count: s.Count}
}

// slotIn resolves a stored slot; unknown item names are dropped rather than
// failing the whole load.
func (e *Engine) slotIn(s snapshot.SlotV2) (Slot, bool) {
	if s.Item == "" || s.Count <= 0 {
		return Slot{}, true
	}
	id, ok := e.cats.Items.Lookup(s.Item)
	if !ok {
		return Slot{}, false
	}
	return Slot{Item: id, Count: s.Count}, true
}

func blockKey(pos Vec3i) string {
	return fmt.Sprintf("%d,%d,%d", pos.X, pos.Y, pos.Z)
}

func parseBlockKey(key string) (Vec3i, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return Vec3i{}, fmt.Errorf("malformed position")
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Vec3i{}, err
		}
		v[i] = n
	}
	return Vec3i{X: v[0], Y: v[1], Z: v[2]}, nil
}
