package engine

import "fenrir/internal/common"

// Handle is an opaque, generational reference into the order arena.
// The generation check means a freed slot that gets reused for a new
// order can never be mistaken for the order that used to live there.
type Handle struct {
	index      uint32
	generation uint32
}

type slot struct {
	order      common.Order
	generation uint32
	occupied   bool
}

// arena owns every resting Order record. Price-level queues and the
// (id, revision) index only ever hold Handles into it; the arena itself
// holds no back-pointers to either.
type arena struct {
	slots []slot
	free  []uint32
}

func newArena() *arena {
	return &arena{}
}

// insert stores order and returns a fresh handle for it.
func (a *arena) insert(order common.Order) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.order = order
		s.occupied = true
		return Handle{index: idx, generation: s.generation}
	}

	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot{order: order, occupied: true})
	return Handle{index: idx, generation: 0}
}

// get resolves a handle to its live order. Returns false if the handle
// is stale (the slot has been freed and possibly reused).
func (a *arena) get(h Handle) (*common.Order, bool) {
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return nil, false
	}
	return &s.order, true
}

// remove frees the slot referenced by h, bumping its generation so any
// copy of h left lying around in a stale index entry can never resolve
// again. Returns the removed order.
func (a *arena) remove(h Handle) (common.Order, bool) {
	if int(h.index) >= len(a.slots) {
		return common.Order{}, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return common.Order{}, false
	}
	removed := s.order
	s.occupied = false
	s.order = common.Order{}
	s.generation++
	a.free = append(a.free, h.index)
	return removed, true
}
