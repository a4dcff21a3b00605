package factory

import (
	"reflect"
	"testing"
)

// captureLog collects tick log entries in memory.
type captureLog struct {
	entries []TickLogEntry
}

func (l *captureLog) WriteTick(entry TickLogEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func runCommand(t *testing.T, e *Engine, cmd Command) CommandResult {
	t.Helper()
	id := e.EnqueueCommand(cmd)
	e.Step(testDT)
	res, ok := e.TakeResult(id)
	if !ok {
		t.Fatalf("no result for request %d", id)
	}
	return res
}

func TestGiveCommand(t *testing.T) {
	e := newTestEngine(t, 1)
	if res := runCommand(t, e, GiveCmd{Item: "core:iron_ore", Count: 5}); !res.OK {
		t.Fatalf("give failed: %s", res.Message)
	}
	if got := e.player.CountItem(mustItem(t, e, "core:iron_ore")); got != 5 {
		t.Fatalf("inventory count: got %d, want 5", got)
	}
	if res := runCommand(t, e, GiveCmd{Item: "core:unknown", Count: 1}); res.OK {
		t.Fatalf("give of unknown item should fail")
	}
}

func TestSetSlotBoundsChecked(t *testing.T) {
	e := newTestEngine(t, 1)
	if res := runCommand(t, e, SetSlotCmd{Index: 3}); !res.OK {
		t.Fatalf("set_slot failed: %s", res.Message)
	}
	if e.player.SelectedSlot != 3 {
		t.Fatalf("selected slot: got %d, want 3", e.player.SelectedSlot)
	}
	if res := runCommand(t, e, SetSlotCmd{Index: HotbarSlots}); res.OK {
		t.Fatalf("out-of-range slot accepted")
	}
}

func TestInventoryMoveMergesAndSwaps(t *testing.T) {
	e := newTestEngine(t, 1)
	ore := mustItem(t, e, "core:iron_ore")
	coal := mustItem(t, e, "core:coal")
	e.player.Slots = [InventorySlots]Slot{}
	e.player.Slots[0] = Slot{Item: ore, Count: 10}
	e.player.Slots[1] = Slot{Item: ore, Count: 1}
	e.player.Slots[2] = Slot{Item: coal, Count: 4}

	if res := runCommand(t, e, InventoryMoveCmd{From: 0, To: 1, Amount: 3}); !res.OK {
		t.Fatalf("merge move failed: %s", res.Message)
	}
	if e.player.Slots[0].Count != 7 || e.player.Slots[1].Count != 4 {
		t.Fatalf("after merge: %+v %+v", e.player.Slots[0], e.player.Slots[1])
	}

	// Incompatible stacks swap wholesale.
	if res := runCommand(t, e, InventoryMoveCmd{From: 0, To: 2}); !res.OK {
		t.Fatalf("swap move failed: %s", res.Message)
	}
	if e.player.Slots[0].Item != coal || e.player.Slots[2].Item != ore {
		t.Fatalf("after swap: %+v %+v", e.player.Slots[0], e.player.Slots[2])
	}

	if res := runCommand(t, e, InventoryMoveCmd{From: 5, To: 6}); res.OK {
		t.Fatalf("move from empty slot accepted")
	}
}

func TestSpawnMachineCommandRefusesOccupiedCell(t *testing.T) {
	e := newTestEngine(t, 1)
	pos := Vec3i{X: 3, Y: entityY, Z: 3}
	if res := runCommand(t, e, SpawnMachineCmd{Pos: pos, Machine: "core:miner", Facing: East}); !res.OK {
		t.Fatalf("spawn failed: %s", res.Message)
	}
	if e.machines[pos] == nil {
		t.Fatalf("no machine after spawn")
	}
	if res := runCommand(t, e, SpawnMachineCmd{Pos: pos, Machine: "core:furnace", Facing: East}); res.OK {
		t.Fatalf("spawn into occupied cell accepted")
	}
}

func TestCommandsRecordedForReplay(t *testing.T) {
	e := newTestEngine(t, 1)
	log := &captureLog{}
	e.SetTickLogger(log)

	yaw := 90.0
	sent := []Command{
		TeleportCmd{Pos: Vec3f{X: 1.5, Y: 8, Z: 2.5}, Yaw: &yaw},
		GiveCmd{Item: "core:coal", Count: 2},
		SetBlockCmd{Pos: Vec3i{X: 1, Y: 9, Z: 1}, Item: "core:stone"},
		SpawnMachineCmd{Pos: Vec3i{X: 4, Y: entityY, Z: 4}, Machine: "core:conveyor", Facing: South},
		BreakBlockCmd{Pos: Vec3i{X: 1, Y: 9, Z: 1}},
	}
	for _, cmd := range sent {
		e.EnqueueCommand(cmd)
	}
	e.Step(testDT)

	if len(log.entries) != 1 {
		t.Fatalf("log entries: got %d, want 1", len(log.entries))
	}
	rec := log.entries[0].Commands
	if len(rec) != len(sent) {
		t.Fatalf("recorded commands: got %d, want %d", len(rec), len(sent))
	}
	for i, r := range rec {
		decoded, err := DecodeCommand(r.Name, r.Params)
		if err != nil {
			t.Fatalf("decode %s: %v", r.Name, err)
		}
		if !reflect.DeepEqual(decoded, sent[i]) {
			t.Fatalf("round trip %s: got %#v, want %#v", r.Name, decoded, sent[i])
		}
		if !r.OK {
			t.Fatalf("command %s recorded as failed", r.Name)
		}
	}
}

func TestDecodeCommandRejectsUnknown(t *testing.T) {
	if _, err := DecodeCommand("warp_reality", nil); err == nil {
		t.Fatalf("unknown command name accepted")
	}
	if _, err := DecodeCommand("teleport", []byte(`{"pos":"nope"}`)); err == nil {
		t.Fatalf("malformed params accepted")
	}
}

func TestCommandQueueFullFailsFast(t *testing.T) {
	e := newTestEngine(t, 1)
	// Capacity is 256; the first overflowing enqueue must fail immediately
	// with a result instead of blocking.
	var lastID uint64
	for i := 0; i < 300; i++ {
		lastID = e.EnqueueCommand(SetSlotCmd{Index: 0})
	}
	res, ok := e.TakeResult(lastID)
	if !ok || res.OK {
		t.Fatalf("overflow result: ok=%v res=%+v", ok, res)
	}
}
