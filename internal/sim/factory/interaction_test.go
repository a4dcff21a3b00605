package factory

import (
	"math"
	"testing"
)

func standAt(e *Engine, x, z float64) {
	e.player.Pos = Vec3f{X: x, Y: float64(entityY), Z: z}
}

func TestRaycastHitsGroundBelow(t *testing.T) {
	e := newTestEngine(t, 12345)
	standAt(e, 8.5, 8.5)
	e.player.Pitch = -89 // almost straight down

	hit, ok := e.RaycastView()
	if !ok {
		t.Fatalf("no hit looking at the ground")
	}
	want := Vec3i{X: 8, Y: GroundLevel, Z: 8}
	if hit.Cell != want {
		t.Fatalf("hit cell: got %v, want %v", hit.Cell, want)
	}
	if hit.Normal != (Vec3i{Y: 1}) {
		t.Fatalf("hit normal: got %v, want +Y", hit.Normal)
	}
	if hit.PlaceTarget() != (Vec3i{X: 8, Y: GroundLevel + 1, Z: 8}) {
		t.Fatalf("place target: got %v", hit.PlaceTarget())
	}
}

func TestRaycastRespectsReach(t *testing.T) {
	e := newTestEngine(t, 12345)
	standAt(e, 8.5, 8.5)
	e.player.Pitch = 0 // horizontal over open air

	if hit, ok := e.RaycastView(); ok {
		t.Fatalf("unexpected hit within reach: %+v", hit)
	}

	// The same ground cell is out of range when reach shrinks.
	e.player.Pitch = -89
	if _, ok := e.Raycast(e.eyeOrigin(), viewDir(e.player.Yaw, e.player.Pitch), 0.5); ok {
		t.Fatalf("hit beyond the allowed distance")
	}
}

func TestRaycastSeesEntities(t *testing.T) {
	e := newTestEngine(t, 12345)
	standAt(e, 8.5, 8.5)
	e.player.Yaw = 90 // +X
	e.player.Pitch = -30

	pos := Vec3i{X: 10, Y: entityY, Z: 8}
	spawnTestMachine(t, e, "core:furnace", pos, East)

	hit, ok := e.RaycastView()
	if !ok || hit.Machine == nil {
		t.Fatalf("machine not hit: ok=%v hit=%+v", ok, hit)
	}
	if hit.Cell != pos {
		t.Fatalf("hit cell: got %v, want %v", hit.Cell, pos)
	}
}

func TestHoldToBreakReturnsBlock(t *testing.T) {
	e := newTestEngine(t, 12345)
	standAt(e, 8.5, 8.5)
	e.player.Pitch = -89
	grass := mustItem(t, e, "core:grass")

	e.SetBreakHeld(true)
	// Grass hardness 0.8 at the bare-hand multiplier 2.0 is 1.6s, 32 ticks.
	stepN(e, 2)
	if bs := e.BreakState(); bs.Phase != BreakBreaking {
		t.Fatalf("break phase after hold: got %v", bs.Phase)
	}
	stepN(e, 40)

	if _, solid := e.BlockAt(Vec3i{X: 8, Y: GroundLevel, Z: 8}); solid {
		t.Fatalf("block survived the hold")
	}
	if got := e.player.CountItem(grass); got != 1 {
		t.Fatalf("grass in inventory: got %d, want 1", got)
	}
}

func TestReleasingResetsBreakProgress(t *testing.T) {
	e := newTestEngine(t, 12345)
	standAt(e, 8.5, 8.5)
	e.player.Pitch = -89

	e.SetBreakHeld(true)
	stepN(e, 10)
	mid := e.BreakState()
	if mid.Phase != BreakBreaking || mid.Progress <= 0 {
		t.Fatalf("expected partial progress, got %+v", mid)
	}

	e.SetBreakHeld(false)
	stepN(e, 1)
	if bs := e.BreakState(); bs.Phase != BreakAiming || bs.Progress != 0 {
		t.Fatalf("release should reset progress, got %+v", bs)
	}

	// Holding again starts over rather than resuming.
	e.SetBreakHeld(true)
	stepN(e, 1)
	if bs := e.BreakState(); bs.Progress >= mid.Progress {
		t.Fatalf("restart resumed earlier progress: %+v", bs)
	}
	if _, solid := e.BlockAt(Vec3i{X: 8, Y: GroundLevel, Z: 8}); !solid {
		t.Fatalf("block broke without a completed hold")
	}
}

func TestPickaxeBreaksFasterThanBareHands(t *testing.T) {
	e := newTestEngine(t, 12345)
	pick := mustItem(t, e, "core:stone_pickaxe")

	// Defaults seed a pickaxe into the inventory; find its slot.
	slot := -1
	for i := 0; i < HotbarSlots; i++ {
		if e.player.Slots[i].Item == pick && !e.player.Slots[i].Empty() {
			slot = i
			break
		}
	}
	if slot < 0 {
		t.Fatalf("no pickaxe in the hotbar")
	}

	bare := e.breakTime(Vec3i{X: 8, Y: GroundLevel, Z: 8})
	e.player.SelectedSlot = slot
	tooled := e.breakTime(Vec3i{X: 8, Y: GroundLevel, Z: 8})
	if !(tooled < bare) {
		t.Fatalf("pickaxe not faster: tooled=%v bare=%v", tooled, bare)
	}
	if math.Abs(bare/tooled-2.0) > 1e-9 {
		t.Fatalf("multiplier ratio: got %v, want 2", bare/tooled)
	}
}

func TestBreakMachineRestoresContents(t *testing.T) {
	e := newTestEngine(t, 12345)
	pos := Vec3i{X: 30, Y: entityY, Z: 30}
	m := spawnTestMachine(t, e, "core:furnace", pos, East)

	ore := mustItem(t, e, "core:iron_ore")
	coal := mustItem(t, e, "core:coal")
	furnaceItem := mustItem(t, e, "core:furnace")
	m.Inputs[0].Add(ore, 3, m.Def.BufferSize)
	m.Fuel.Add(coal, 2, m.Def.BufferSize)

	beforeCoal := e.player.CountItem(coal)
	beforeFurnace := e.player.CountItem(furnaceItem)
	if ok, msg := e.breakAt(pos); !ok {
		t.Fatalf("break failed: %s", msg)
	}

	if e.machines[pos] != nil {
		t.Fatalf("machine still present after break")
	}
	if got := e.player.CountItem(ore); got != 3 {
		t.Fatalf("ore returned: got %d, want 3", got)
	}
	if got := e.player.CountItem(coal); got != beforeCoal+2 {
		t.Fatalf("coal returned: got %d, want %d", got, beforeCoal+2)
	}
	if got := e.player.CountItem(furnaceItem); got != beforeFurnace+1 {
		t.Fatalf("furnace item returned: got %d, want %d", got, beforeFurnace+1)
	}
}

func TestPlaceAndBreakRoundTripsInventory(t *testing.T) {
	e := newTestEngine(t, 12345)
	conveyorItem := mustItem(t, e, "core:conveyor")

	slot := -1
	for i := 0; i < HotbarSlots; i++ {
		if !e.player.Slots[i].Empty() && e.player.Slots[i].Item == conveyorItem {
			slot = i
			break
		}
	}
	if slot < 0 {
		t.Fatalf("no conveyors in the hotbar")
	}
	e.player.SelectedSlot = slot
	before := e.player.CountItem(conveyorItem)

	pos := Vec3i{X: 40, Y: entityY, Z: 40}
	if ok, msg := e.PlaceSelected(pos); !ok {
		t.Fatalf("place failed: %s", msg)
	}
	if e.conveyors[pos] == nil {
		t.Fatalf("no belt at %v after placement", pos)
	}
	if got := e.player.CountItem(conveyorItem); got != before-1 {
		t.Fatalf("count after place: got %d, want %d", got, before-1)
	}

	if ok, msg := e.breakAt(pos); !ok {
		t.Fatalf("break failed: %s", msg)
	}
	if got := e.player.CountItem(conveyorItem); got != before {
		t.Fatalf("count after break: got %d, want %d", got, before)
	}
}
