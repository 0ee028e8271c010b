// Package idtable implements a generational slot map: a table keyed by a
// stable, opaque ID that survives removal and re-insertion of other
// entries without aliasing (spec §4.4, §9 "entity tables use generational
// slot-maps"). Islands, agents, characters and links are all stored this
// way so external callers can hold an ID across ticks safely.
package idtable

import assert "github.com/arl/assertgo"

// ID is an opaque handle into a Table. The zero ID never refers to a live
// entry.
type ID struct {
	index uint32
	gen   uint32
}

// Valid reports whether id could possibly refer to something (it does not
// check liveness against a particular table).
func (id ID) Valid() bool { return id.gen != 0 }

type slot struct {
	gen   uint32
	alive bool
}

// Table stores values of type T keyed by generational ID.
type Table[T any] struct {
	slots  []slot
	values []T
	free   []uint32
}

// New returns an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{}
}

// Insert stores v and returns its new stable ID.
func (t *Table[T]) Insert(v T) ID {
	if len(t.free) > 0 {
		idx := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.slots[idx].alive = true
		t.values[idx] = v
		return ID{index: idx, gen: t.slots[idx].gen}
	}
	idx := uint32(len(t.slots))
	t.slots = append(t.slots, slot{gen: 1, alive: true})
	t.values = append(t.values, v)
	assert.True(len(t.slots) == len(t.values), "slots and values must stay in lockstep, len(slots)=%d, len(values)=%d", len(t.slots), len(t.values))
	return ID{index: idx, gen: 1}
}

// Remove deletes the entry for id, bumping its generation so the ID cannot
// be reused to reach whatever entry is later inserted into the freed slot
// (spec §6 "after entity X is removed, its ID must not be reused").
func (t *Table[T]) Remove(id ID) bool {
	if !t.isLive(id) {
		return false
	}
	var zero T
	t.slots[id.index].alive = false
	t.slots[id.index].gen++
	t.values[id.index] = zero
	t.free = append(t.free, id.index)
	return true
}

// Get returns the value for id and whether it is currently live.
func (t *Table[T]) Get(id ID) (*T, bool) {
	if !t.isLive(id) {
		return nil, false
	}
	return &t.values[id.index], true
}

func (t *Table[T]) isLive(id ID) bool {
	if int(id.index) >= len(t.slots) {
		return false
	}
	s := t.slots[id.index]
	return s.alive && s.gen == id.gen
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	n := 0
	for _, s := range t.slots {
		if s.alive {
			n++
		}
	}
	return n
}

// Each calls fn for every live entry. fn must not mutate the table.
func (t *Table[T]) Each(fn func(ID, *T)) {
	for i := range t.slots {
		if t.slots[i].alive {
			fn(ID{index: uint32(i), gen: t.slots[i].gen}, &t.values[i])
		}
	}
}

// IDs returns the IDs of all live entries.
func (t *Table[T]) IDs() []ID {
	out := make([]ID, 0, t.Len())
	for i := range t.slots {
		if t.slots[i].alive {
			out = append(out, ID{index: uint32(i), gen: t.slots[i].gen})
		}
	}
	return out
}
