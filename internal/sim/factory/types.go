package factory

import (
	"encoding/json"
	"fmt"
)

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

func lessVec3i(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

type Vec3f struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dir is a cardinal facing on the XZ plane.
type Dir uint8

const (
	North Dir = iota // -Z
	South            // +Z
	East             // +X
	West             // -X
)

func (d Dir) Unit() Vec3i {
	switch d {
	case North:
		return Vec3i{0, 0, -1}
	case South:
		return Vec3i{0, 0, 1}
	case East:
		return Vec3i{1, 0, 0}
	default:
		return Vec3i{-1, 0, 0}
	}
}

// RotateCW rotates 90 degrees clockwise viewed from above.
func (d Dir) RotateCW() Dir {
	switch d {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	default:
		return North
	}
}

func (d Dir) Left() Dir {
	switch d {
	case North:
		return West
	case East:
		return North
	case South:
		return East
	default:
		return South
	}
}

func (d Dir) Right() Dir { return d.RotateCW() }

func (d Dir) Opposite() Dir {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

func (d Dir) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	default:
		return "west"
	}
}

func (d Dir) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Dir) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := DirFromString(s)
	if !ok {
		return fmt.Errorf("bad direction %q", s)
	}
	*d = v
	return nil
}

func DirFromString(s string) (Dir, bool) {
	switch s {
	case "north":
		return North, true
	case "south":
		return South, true
	case "east":
		return East, true
	case "west":
		return West, true
	default:
		return North, false
	}
}

// YawToDir snaps a yaw angle in degrees to the nearest cardinal. Yaw 0 faces
// -Z and increases clockwise, so 90 faces +X.
func YawToDir(yaw float64) Dir {
	y := int(yaw) % 360
	if y < 0 {
		y += 360
	}
	switch ((y + 45) / 90) % 4 {
	case 0:
		return North
	case 1:
		return East
	case 2:
		return South
	default:
		return West
	}
}
