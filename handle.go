package feather2d

// handle addresses a slot of an arena. The generation changes every time the slot is
// reused, so a handle kept after its object was destroyed is detected as stale.
// The zero handle never matches a live object.
type handle struct {
	index      int32
	generation uint32
}

// BodyID references a body owned by a World
type BodyID handle

// ContactID references a contact owned by a World
type ContactID handle

// JointID references a joint owned by a World
type JointID handle

// IsZero reports whether the id was never assigned
func (id BodyID) IsZero() bool { return id.generation == 0 }

// IsZero reports whether the id was never assigned
func (id ContactID) IsZero() bool { return id.generation == 0 }

// IsZero reports whether the id was never assigned
func (id JointID) IsZero() bool { return id.generation == 0 }

type slot[T any] struct {
	value      T
	generation uint32
	alive      bool
}

// arena is a dense slot storage with a free list. Slots are reused after removal.
type arena[T any] struct {
	slots []slot[T]
	free  []int32
	count int
}

func (a *arena[T]) insert(value T) handle {
	var index int32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = int32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[index]
	s.value = value
	s.generation++
	s.alive = true
	a.count++

	return handle{index: index, generation: s.generation}
}

// get returns a pointer to the live value addressed by h, or nil
func (a *arena[T]) get(h handle) *T {
	if h.index < 0 || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.alive || s.generation != h.generation {
		return nil
	}

	return &s.value
}

// at returns the value of a live slot by index, or nil
func (a *arena[T]) at(index int32) *T {
	s := &a.slots[index]
	if !s.alive {
		return nil
	}

	return &s.value
}

func (a *arena[T]) handleOf(index int32) handle {
	return handle{index: index, generation: a.slots[index].generation}
}

func (a *arena[T]) remove(h handle) bool {
	if a.get(h) == nil {
		return false
	}

	var zero T
	s := &a.slots[h.index]
	s.value = zero
	s.alive = false
	a.free = append(a.free, h.index)
	a.count--

	return true
}

// len returns the number of slots, live or not
func (a *arena[T]) len() int {
	return len(a.slots)
}
