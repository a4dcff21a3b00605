package factory

import "testing"

func TestShapeStraightLineStaysStraight(t *testing.T) {
	e := newTestEngine(t, 12345)
	a := spawnTestBelt(e, Vec3i{X: 0, Y: entityY, Z: 0}, East)
	b := spawnTestBelt(e, Vec3i{X: 1, Y: entityY, Z: 0}, East)

	stepN(e, 1)
	if a.Shape != ShapeStraight || b.Shape != ShapeStraight {
		t.Fatalf("shapes: %v, %v, want both straight", a.Shape, b.Shape)
	}

	// Re-running reconciliation on an unchanged layout changes nothing.
	e.TakeDirtyConveyors()
	stepN(e, 1)
	if dirty := e.TakeDirtyConveyors(); len(dirty) != 0 {
		t.Fatalf("unchanged layout re-marked dirty: %v", dirty)
	}
}

func TestShapeCornerFromSideFeed(t *testing.T) {
	e := newTestEngine(t, 12345)
	// Feeder runs east into a north-facing belt; the feed arrives on the
	// turn's left side.
	spawnTestBelt(e, Vec3i{X: 0, Y: entityY, Z: 0}, East)
	turn := spawnTestBelt(e, Vec3i{X: 1, Y: entityY, Z: 0}, North)

	stepN(e, 1)
	if turn.Shape != ShapeCornerLeft {
		t.Fatalf("shape: got %v, want corner_left", turn.Shape)
	}
	if turn.OutputDir != North {
		t.Fatalf("output dir: got %v, want north", turn.OutputDir)
	}
}

func TestShapeSplitterFromThreeOutlets(t *testing.T) {
	e := newTestEngine(t, 12345)
	p := Vec3i{X: 5, Y: entityY, Z: 5}
	spawnTestBelt(e, Vec3i{X: 4, Y: entityY, Z: 5}, East) // feeder
	hub := spawnTestBelt(e, p, East)
	spawnTestBelt(e, Vec3i{X: 6, Y: entityY, Z: 5}, East)  // front outlet
	spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 4}, North) // left outlet
	spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 6}, South) // right outlet

	stepN(e, 1)
	if hub.Shape != ShapeSplitter {
		t.Fatalf("shape: got %v, want splitter", hub.Shape)
	}
}

func TestShapeTJunctionFromTwoFeeds(t *testing.T) {
	e := newTestEngine(t, 12345)
	p := Vec3i{X: 5, Y: entityY, Z: 5}
	spawnTestBelt(e, Vec3i{X: 4, Y: entityY, Z: 5}, East)  // back feed
	spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 4}, South) // left feed
	junction := spawnTestBelt(e, p, East)

	stepN(e, 1)
	if junction.Shape != ShapeTJunction {
		t.Fatalf("shape: got %v, want t_junction", junction.Shape)
	}
	if junction.OutputDir != East {
		t.Fatalf("output dir: got %v, want east", junction.OutputDir)
	}
}

func TestShapeRevertsWhenNeighborRemoved(t *testing.T) {
	e := newTestEngine(t, 12345)
	side := Vec3i{X: 5, Y: entityY, Z: 4}
	spawnTestBelt(e, Vec3i{X: 4, Y: entityY, Z: 5}, East)
	spawnTestBelt(e, side, South)
	junction := spawnTestBelt(e, Vec3i{X: 5, Y: entityY, Z: 5}, East)

	stepN(e, 1)
	if junction.Shape != ShapeTJunction {
		t.Fatalf("setup shape: got %v, want t_junction", junction.Shape)
	}

	delete(e.conveyors, side)
	stepN(e, 1)
	if junction.Shape != ShapeStraight {
		t.Fatalf("shape after neighbor removal: got %v, want straight", junction.Shape)
	}
}
