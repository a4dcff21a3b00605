package factory

import "testing"

func TestSplitterDistributesRoundRobin(t *testing.T) {
	e := newTestEngine(t, 12345)
	p := Vec3i{X: 5, Y: entityY, Z: 5}
	feeder := spawnTestBelt(e, Vec3i{X: 4, Y: entityY, Z: 5}, East)
	spawnTestBelt(e, p, East)
	front := spawnTestBelt(e, Vec3i{X: 6, Y: entityY, Z: 5}, East)
	left := spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 4}, North)
	right := spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 6}, South)

	ore := mustItem(t, e, "core:iron_ore")
	inserted := 0
	for tick := 0; tick < 2000 && inserted < 12; tick++ {
		if feeder.CanAcceptItem(0.0, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
			feeder.InsertItem(ore, 0.0, 0)
			inserted++
		}
		e.Step(testDT)
	}
	if inserted != 12 {
		t.Fatalf("failed to insert 12 items, got %d", inserted)
	}
	stepN(e, 400) // flush: everything settles onto the three outlets

	counts := [3]int{len(front.Items), len(left.Items), len(right.Items)}
	if counts != [3]int{4, 4, 4} {
		t.Fatalf("splitter distribution: got %v, want [4 4 4]", counts)
	}
}

func TestJunctionInterleavesTwoFeeds(t *testing.T) {
	e := newTestEngine(t, 12345)
	// Junction at the platform edge so merged items register as deliveries,
	// keyed by which feeder they came from.
	jp := Vec3i{X: 19, Y: entityY, Z: 12}
	backFeed := spawnTestBelt(e, Vec3i{X: 18, Y: entityY, Z: 12}, East)
	sideFeed := spawnTestBelt(e, Vec3i{X: 19, Y: entityY, Z: 11}, South)
	spawnTestBelt(e, jp, East)

	iron := mustItem(t, e, "core:iron_ore")
	copper := mustItem(t, e, "core:copper_ore")

	for tick := 0; tick < 1200; tick++ {
		if backFeed.CanAcceptItem(0.0, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
			backFeed.InsertItem(iron, 0.0, 0)
		}
		if sideFeed.CanAcceptItem(0.0, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
			sideFeed.InsertItem(copper, 0.0, 0)
		}
		e.Step(testDT)
	}
	stepN(e, 200) // drain what is already on the belts

	a := e.platform.Count(iron)
	b := e.platform.Count(copper)
	if a+b < 10 {
		t.Fatalf("too few deliveries to judge fairness: iron=%d copper=%d", a, b)
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 {
		t.Fatalf("merge not interleaving: iron=%d copper=%d", a, b)
	}
}

func TestBackpressureHoldsChain(t *testing.T) {
	e := newTestEngine(t, 12345)
	belt := spawnTestBelt(e, Vec3i{X: 0, Y: entityY, Z: 0}, East)
	// Wall directly downstream.
	e.setBlockCell(Vec3i{X: 1, Y: entityY, Z: 0}, cellOf(mustItem(t, e, "core:stone")))

	ore := mustItem(t, e, "core:iron_ore")
	inserted := 0
	for tick := 0; tick < 600 && inserted < 4; tick++ {
		if belt.CanAcceptItem(0.0, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
			belt.InsertItem(ore, 0.0, 0)
			inserted++
		}
		e.Step(testDT)
	}
	stepN(e, 200)

	if len(belt.Items) != 4 {
		t.Fatalf("blocked belt item count: got %d, want 4", len(belt.Items))
	}
	if head := belt.Items[3]; head.Progress != 1.0 {
		t.Fatalf("head should hold at the exit, got %v", head.Progress)
	}
	for i := 1; i < 4; i++ {
		gap := belt.Items[i].Progress - belt.Items[i-1].Progress
		if gap < e.tune.ConveyorItemSpacing-1e-9 {
			t.Fatalf("spacing violated between %d and %d: gap %v", i-1, i, gap)
		}
	}
	if belt.CanAcceptItem(0.0, e.tune.ConveyorMaxItems, e.tune.ConveyorItemSpacing) {
		t.Fatalf("full belt should refuse a fifth item")
	}

	// Nothing leaks while blocked.
	stepN(e, 100)
	if len(belt.Items) != 4 {
		t.Fatalf("items lost while blocked: %d", len(belt.Items))
	}
}

func TestBeltDeliversOntoPlatform(t *testing.T) {
	e := newTestEngine(t, 12345)
	// Platform spans x [20,32), z [10,22) at one above ground.
	belt := spawnTestBelt(e, Vec3i{X: 19, Y: entityY, Z: 14}, East)

	ore := mustItem(t, e, "core:iron_ore")
	belt.InsertItem(ore, 0.9, 0)
	stepN(e, 10)

	if got := e.platform.Count(ore); got != 1 {
		t.Fatalf("platform count: got %d, want 1", got)
	}
	if len(belt.Items) != 0 {
		t.Fatalf("delivered item still on belt: %+v", belt.Items)
	}
	if got := countEvents(e.DrainEvents(), EventItemDelivered); got != 1 {
		t.Fatalf("delivered events: got %d, want 1", got)
	}
}

func TestBeltRefusesDeliveryOutsidePlatform(t *testing.T) {
	e := newTestEngine(t, 12345)
	belt := spawnTestBelt(e, Vec3i{X: 0, Y: entityY, Z: 0}, East)
	belt.InsertItem(mustItem(t, e, "core:iron_ore"), 0.9, 0)

	stepN(e, 50)
	if len(belt.Items) != 1 {
		t.Fatalf("item left the belt with nothing downstream: %+v", belt.Items)
	}
	if belt.Items[0].Progress != 1.0 {
		t.Fatalf("undeliverable item should hold at the exit, got %v", belt.Items[0].Progress)
	}
}
