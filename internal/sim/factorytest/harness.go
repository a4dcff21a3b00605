package factorytest

import (
	"testing"

	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/factory"
	"voxelfactory.io/internal/sim/tuning"
)

// Harness drives an engine through its exported surface only: commands in,
// events and snapshots out. Tests that need to poke internals belong in the
// factory package instead.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	Tune tuning.Tuning
	Eng  *factory.Engine

	Events []factory.Event
}

func NewHarness(t *testing.T, seed int64) *Harness {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tune := tuning.Defaults()
	eng, err := factory.New(factory.Config{Seed: seed}, tune, cats)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return &Harness{T: t, Cats: cats, Tune: tune, Eng: eng}
}

// Command enqueues, runs one tick, and returns the command's result.
func (h *Harness) Command(cmd factory.Command) factory.CommandResult {
	h.T.Helper()
	id := h.Eng.EnqueueCommand(cmd)
	h.StepTicks(1)
	res, ok := h.Eng.TakeResult(id)
	if !ok {
		h.T.Fatalf("no result for request %d", id)
	}
	return res
}

// MustCommand is Command but fails the test on a refused command.
func (h *Harness) MustCommand(cmd factory.Command) {
	h.T.Helper()
	if res := h.Command(cmd); !res.OK {
		h.T.Fatalf("command refused: %s", res.Message)
	}
}

func (h *Harness) StepTicks(n int) {
	dt := h.Tune.TickDT()
	for i := 0; i < n; i++ {
		h.Eng.Step(dt)
		h.Events = append(h.Events, h.Eng.DrainEvents()...)
	}
}

func (h *Harness) Delivered(item string) int {
	h.T.Helper()
	id, ok := h.Cats.Items.Lookup(item)
	if !ok {
		h.T.Fatalf("item not in catalog: %s", item)
	}
	return h.Eng.Platform().Count(id)
}

func (h *Harness) CountEvents(kind factory.EventKind) int {
	n := 0
	for _, ev := range h.Events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
