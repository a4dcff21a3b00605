package factory

import "voxelfactory.io/internal/sim/catalogs"

type ConveyorShape uint8

const (
	ShapeStraight ConveyorShape = iota
	ShapeCornerLeft
	ShapeCornerRight
	ShapeTJunction
	ShapeSplitter
)

func (s ConveyorShape) String() string {
	switch s {
	case ShapeCornerLeft:
		return "corner_left"
	case ShapeCornerRight:
		return "corner_right"
	case ShapeTJunction:
		return "t_junction"
	case ShapeSplitter:
		return "splitter"
	default:
		return "straight"
	}
}

func ShapeFromString(s string) (ConveyorShape, bool) {
	switch s {
	case "straight":
		return ShapeStraight, true
	case "corner_left":
		return ShapeCornerLeft, true
	case "corner_right":
		return ShapeCornerRight, true
	case "t_junction":
		return ShapeTJunction, true
	case "splitter":
		return ShapeSplitter, true
	default:
		return ShapeStraight, false
	}
}

// ConveyorItem rides a belt. Progress 0 is the input edge, 1 the output edge.
// LateralOffset is the visual merge lane; it has no gameplay effect.
type ConveyorItem struct {
	Item          catalogs.ItemID
	Progress      float64
	LateralOffset float64
}

// Conveyor is a one-cell belt. Items stays sorted by ascending Progress, so
// the head item (closest to the exit) is the last element.
type Conveyor struct {
	Pos       Vec3i
	Facing    Dir
	OutputDir Dir
	Shape     ConveyorShape
	Items     []ConveyorItem

	// LastOutputIndex is the splitter's round-robin cursor over
	// [front, left, right].
	LastOutputIndex int
	// LastInputSource is the zipper cursor: the side that fed last.
	LastInputSource machineSide
}

func NewConveyor(pos Vec3i, facing Dir) *Conveyor {
	return &Conveyor{Pos: pos, Facing: facing, OutputDir: facing, Shape: ShapeStraight}
}

// CanAcceptItem reports whether an item can enter at the given progress
// without violating capacity or spacing.
func (c *Conveyor) CanAcceptItem(atProgress float64, maxItems int, spacing float64) bool {
	if len(c.Items) >= maxItems {
		return false
	}
	for i := range c.Items {
		d := c.Items[i].Progress - atProgress
		if d < 0 {
			d = -d
		}
		if d < spacing {
			return false
		}
	}
	return true
}

// InsertItem places an item keeping the ascending progress order. The caller
// must have checked CanAcceptItem.
func (c *Conveyor) InsertItem(item catalogs.ItemID, progress, lateral float64) {
	at := len(c.Items)
	for i := range c.Items {
		if c.Items[i].Progress > progress {
			at = i
			break
		}
	}
	c.Items = append(c.Items, ConveyorItem{})
	copy(c.Items[at+1:], c.Items[at:])
	c.Items[at] = ConveyorItem{Item: item, Progress: progress, LateralOffset: lateral}
}

// sideOf classifies a neighbor cell relative to the belt's facing.
func (c *Conveyor) sideOf(neighbor Vec3i) machineSide {
	nd := Vec3i{neighbor.X - c.Pos.X, neighbor.Y - c.Pos.Y, neighbor.Z - c.Pos.Z}
	switch nd {
	case c.Facing.Opposite().Unit():
		return sideBack
	case c.Facing.Left().Unit():
		return sideLeft
	case c.Facing.Right().Unit():
		return sideRight
	case c.Facing.Unit():
		return sideFront
	default:
		return sideNone
	}
}

// JoinInfo resolves the insertion progress and lateral offset for a source at
// the given neighbor cell. Behind enters at the input edge; sides merge at
// mid-belt with an offset toward their lane. Front (and diagonal) refuse.
func (c *Conveyor) JoinInfo(from Vec3i) (progress, lateral float64, ok bool) {
	switch c.sideOf(from) {
	case sideBack:
		return 0.0, 0.0, true
	case sideLeft:
		return 0.5, 0.5, true
	case sideRight:
		return 0.5, -0.5, true
	default:
		return 0, 0, false
	}
}

// SplitterOutputs lists the candidate exit cells in cursor order:
// [front, left, right] relative to facing.
func (c *Conveyor) SplitterOutputs() [3]Vec3i {
	return [3]Vec3i{
		c.Pos.Add(c.Facing.Unit()),
		c.Pos.Add(c.Facing.Left().Unit()),
		c.Pos.Add(c.Facing.Right().Unit()),
	}
}

func (c *Conveyor) splitterOutputDir(index int) Dir {
	switch index {
	case 1:
		return c.Facing.Left()
	case 2:
		return c.Facing.Right()
	default:
		return c.Facing
	}
}
