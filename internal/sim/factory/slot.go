package factory

import "voxelfactory.io/internal/sim/catalogs"

// Slot holds a single item stack. The empty state is Count == 0; Item is
// meaningless then and kept zeroed so digests stay canonical.
type Slot struct {
	Item  catalogs.ItemID
	Count int
}

func (s *Slot) Empty() bool { return s.Count == 0 }

// CanAccept reports whether n of item fit under cap. Mixing item ids in one
// slot is refused.
func (s *Slot) CanAccept(item catalogs.ItemID, n, cap int) bool {
	if n <= 0 {
		return false
	}
	if s.Count == 0 {
		return n <= cap
	}
	return s.Item == item && s.Count+n <= cap
}

// Add inserts up to n of item and returns how many were accepted.
func (s *Slot) Add(item catalogs.ItemID, n, cap int) int {
	if n <= 0 {
		return 0
	}
	if s.Count > 0 && s.Item != item {
		return 0
	}
	room := cap - s.Count
	if room <= 0 {
		return 0
	}
	take := n
	if take > room {
		take = room
	}
	s.Item = item
	s.Count += take
	return take
}

// Remove takes up to n items out and returns how many were removed. The slot
// zeroes itself when drained.
func (s *Slot) Remove(n int) int {
	if n <= 0 || s.Count == 0 {
		return 0
	}
	take := n
	if take > s.Count {
		take = s.Count
	}
	s.Count -= take
	if s.Count == 0 {
		*s = Slot{}
	}
	return take
}
