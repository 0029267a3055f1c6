package feather2d

import "testing"

func TestArena_InsertGet(t *testing.T) {
	var a arena[string]

	first := a.insert("first")
	second := a.insert("second")

	if first.generation == 0 || second.generation == 0 {
		t.Errorf("generations start at zero: %v %v", first, second)
	}
	if got := a.get(first); got == nil || *got != "first" {
		t.Errorf("get(first) = %v", got)
	}
	if got := a.get(second); got == nil || *got != "second" {
		t.Errorf("get(second) = %v", got)
	}
	if a.count != 2 || a.len() != 2 {
		t.Errorf("count = %d, len = %d, want 2 and 2", a.count, a.len())
	}
}

func TestArena_RemoveReusesSlot(t *testing.T) {
	var a arena[int]

	h := a.insert(1)
	a.insert(2)

	if !a.remove(h) {
		t.Fatalf("remove() = false")
	}
	if a.remove(h) {
		t.Errorf("second remove() = true")
	}
	if a.get(h) != nil {
		t.Errorf("removed handle still resolves")
	}
	if a.at(h.index) != nil {
		t.Errorf("removed slot still live")
	}

	reused := a.insert(3)
	if reused.index != h.index {
		t.Errorf("slot %d not reused, got %d", h.index, reused.index)
	}
	if reused.generation == h.generation {
		t.Errorf("reused slot kept generation %d", h.generation)
	}
	if a.get(h) != nil {
		t.Errorf("stale handle resolves to the new value")
	}
	if got := a.get(reused); got == nil || *got != 3 {
		t.Errorf("get(reused) = %v", got)
	}
	if a.handleOf(reused.index) != reused {
		t.Errorf("handleOf(%d) = %v, want %v", reused.index, a.handleOf(reused.index), reused)
	}
	if a.count != 2 || a.len() != 2 {
		t.Errorf("count = %d, len = %d, want 2 and 2", a.count, a.len())
	}
}

func TestArena_InvalidHandles(t *testing.T) {
	var a arena[int]
	a.insert(1)

	tests := []struct {
		name string
		h    handle
	}{
		{"zero handle", handle{}},
		{"negative index", handle{index: -1, generation: 1}},
		{"out of range", handle{index: 5, generation: 1}},
		{"wrong generation", handle{index: 0, generation: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a.get(tt.h) != nil {
				t.Errorf("get(%v) resolved", tt.h)
			}
			if a.remove(tt.h) {
				t.Errorf("remove(%v) = true", tt.h)
			}
		})
	}
}

func TestIDs_IsZero(t *testing.T) {
	if !(BodyID{}).IsZero() || !(ContactID{}).IsZero() || !(JointID{}).IsZero() {
		t.Errorf("zero ids are not reported as zero")
	}

	var a arena[int]
	if BodyID(a.insert(1)).IsZero() {
		t.Errorf("assigned id reported as zero")
	}
}
