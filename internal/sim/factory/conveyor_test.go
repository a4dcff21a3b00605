package factory

import (
	"math"
	"testing"
)

func TestConveyorCapacityAndSpacing(t *testing.T) {
	c := NewConveyor(Vec3i{}, East)
	c.InsertItem(1, 0.5, 0)

	if c.CanAcceptItem(0.4, 4, 0.25) {
		t.Fatalf("accepted item within spacing of an existing one")
	}
	if !c.CanAcceptItem(0.0, 4, 0.25) {
		t.Fatalf("refused item outside spacing")
	}

	c.InsertItem(1, 0.0, 0)
	c.InsertItem(1, 0.25, 0)
	c.InsertItem(1, 1.0, 0)
	if c.CanAcceptItem(0.75, 4, 0.25) {
		t.Fatalf("accepted fifth item past capacity")
	}
}

func TestConveyorInsertKeepsProgressOrder(t *testing.T) {
	c := NewConveyor(Vec3i{}, East)
	c.InsertItem(1, 0.7, 0)
	c.InsertItem(2, 0.1, 0)
	c.InsertItem(3, 0.4, 0)

	for i := 1; i < len(c.Items); i++ {
		if c.Items[i-1].Progress > c.Items[i].Progress {
			t.Fatalf("items out of order: %v", c.Items)
		}
	}
	if c.Items[0].Item != 2 || c.Items[2].Item != 1 {
		t.Fatalf("unexpected item order: %v", c.Items)
	}
}

func TestConveyorAdvanceClampsBehindLeader(t *testing.T) {
	c := NewConveyor(Vec3i{}, East)
	c.InsertItem(1, 0.0, 0)
	c.InsertItem(1, 0.9, 0)

	// Head reaches 1.0 and holds; the follower piles up behind it but never
	// closer than one spacing.
	for i := 0; i < 100; i++ {
		c.Advance(testDT, 1.0, 0.25)
	}
	head := c.Items[1]
	back := c.Items[0]
	if head.Progress != 1.0 {
		t.Fatalf("head progress: got %v, want 1.0", head.Progress)
	}
	if got, want := back.Progress, 0.75; math.Abs(got-want) > 1e-9 {
		t.Fatalf("follower progress: got %v, want %v", got, want)
	}
}

func TestConveyorLateralOffsetDecaysToZero(t *testing.T) {
	c := NewConveyor(Vec3i{}, East)
	c.InsertItem(1, 0.5, 0.5)

	last := 0.5
	for i := 0; i < 20; i++ {
		c.Advance(testDT, 1.0, 0.25)
		off := c.Items[0].LateralOffset
		if off < 0 || off > last+1e-9 {
			t.Fatalf("lateral offset not shrinking: %v then %v", last, off)
		}
		last = off
	}
	if c.Items[0].Progress != 1.0 {
		t.Fatalf("item did not reach the exit: %v", c.Items[0].Progress)
	}
	if last != 0 {
		t.Fatalf("lateral offset at exit: got %v, want 0", last)
	}
}

func TestConveyorJoinGeometry(t *testing.T) {
	c := NewConveyor(Vec3i{X: 5, Y: entityY, Z: 5}, East)

	back := Vec3i{X: 4, Y: entityY, Z: 5}
	left := Vec3i{X: 5, Y: entityY, Z: 4}
	right := Vec3i{X: 5, Y: entityY, Z: 6}
	front := Vec3i{X: 6, Y: entityY, Z: 5}

	if p, l, ok := c.JoinInfo(back); !ok || p != 0.0 || l != 0.0 {
		t.Fatalf("back join: got (%v,%v,%v)", p, l, ok)
	}
	if p, l, ok := c.JoinInfo(left); !ok || p != 0.5 || l != 0.5 {
		t.Fatalf("left join: got (%v,%v,%v)", p, l, ok)
	}
	if p, l, ok := c.JoinInfo(right); !ok || p != 0.5 || l != -0.5 {
		t.Fatalf("right join: got (%v,%v,%v)", p, l, ok)
	}
	if _, _, ok := c.JoinInfo(front); ok {
		t.Fatalf("front join should refuse")
	}
}
