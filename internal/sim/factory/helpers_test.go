package factory

import (
	"testing"

	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/tuning"
)

// testDT is one tick at the default 20 Hz rate.
const testDT = 0.05

func loadTestCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := New(Config{Seed: seed}, tuning.Defaults(), loadTestCatalogs(t))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func stepN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step(testDT)
	}
}

func mustItem(t *testing.T, e *Engine, name string) catalogs.ItemID {
	t.Helper()
	id, ok := e.cats.Items.Lookup(name)
	if !ok {
		t.Fatalf("item not in catalog: %s", name)
	}
	return id
}

func mustMachineDef(t *testing.T, e *Engine, id string) catalogs.MachineDef {
	t.Helper()
	def, ok := e.cats.Machines.ByID[id]
	if !ok {
		t.Fatalf("machine not in catalog: %s", id)
	}
	return def
}

func spawnTestMachine(t *testing.T, e *Engine, kind string, pos Vec3i, facing Dir) *Machine {
	t.Helper()
	e.placeMachine(mustMachineDef(t, e, kind), pos, facing)
	m := e.machines[pos]
	if m == nil {
		t.Fatalf("no machine at %v after placement", pos)
	}
	return m
}

func spawnTestBelt(e *Engine, pos Vec3i, facing Dir) *Conveyor {
	c := NewConveyor(pos, facing)
	e.conveyors[pos] = c
	e.dirtyBelts[pos] = struct{}{}
	return c
}

// entityY is the layer entities occupy: one cell above the grass surface.
const entityY = GroundLevel + 1

func countEvents(evs []Event, kind EventKind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
