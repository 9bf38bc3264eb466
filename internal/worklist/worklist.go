// Package worklist provides the duplicate-free work set that drives the
// optimizer's fixpoint loops.
//
// Items are identified by a small dense integer key so membership is a bit
// test. The pop order is a policy: FIFO and LIFO are deterministic, Random
// draws from a seeded generator so a failing order can be replayed by seed.
// The fixpoint result must not depend on the policy; tests run many seeds
// to check that.
package worklist

import (
	"fmt"
	"math/rand/v2"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 123

// Keyed is anything with a dense non-negative identity.
type Keyed interface {
	Key() int
}

// Policy selects which pending item Pop returns.
type Policy int

const (
	// Random pops a uniformly random pending item.
	Random Policy = iota
	// FIFO pops the oldest pending item.
	FIFO
	// LIFO pops the newest pending item.
	LIFO
)

func (p Policy) String() string {
	switch p {
	case Random:
		return "random"
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses a policy name as printed by String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "random", "":
		return Random, nil
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	}
	return Random, fmt.Errorf("unknown pop policy %q (want random, fifo or lifo)", s)
}

// List is a set of pending items with policy-driven removal.
// The zero value is not usable; call New.
type List[T Keyed] struct {
	items  []T
	head   int // FIFO read position
	on     []uint64
	policy Policy
	seed   uint64
	rng    *rand.Rand
	pushes int64
}

// New creates an empty list.
func New[T Keyed](policy Policy, seed uint64) *List[T] {
	w := &List[T]{policy: policy, seed: seed}
	w.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	return w
}

// Push adds x unless it is already pending. It reports whether x was added.
func (w *List[T]) Push(x T) bool {
	k := x.Key()
	if w.test(k) {
		return false
	}
	w.set(k)
	w.items = append(w.items, x)
	w.pushes++
	return true
}

// PushAll pushes every item of xs.
func (w *List[T]) PushAll(xs []T) {
	for _, x := range xs {
		w.Push(x)
	}
}

// Pop removes and returns a pending item. ok is false when the list is empty.
func (w *List[T]) Pop() (x T, ok bool) {
	n := len(w.items) - w.head
	if n == 0 {
		return x, false
	}
	switch w.policy {
	case FIFO:
		x = w.items[w.head]
		var zero T
		w.items[w.head] = zero
		w.head++
		if w.head == len(w.items) {
			w.items = w.items[:0]
			w.head = 0
		}
	case LIFO:
		last := len(w.items) - 1
		x = w.items[last]
		var zero T
		w.items[last] = zero
		w.items = w.items[:last]
	default:
		// Swap the chosen slot with the last one and shrink.
		i := w.rng.IntN(len(w.items))
		last := len(w.items) - 1
		x = w.items[i]
		w.items[i] = w.items[last]
		var zero T
		w.items[last] = zero
		w.items = w.items[:last]
	}
	w.clr(x.Key())
	return x, true
}

// On reports whether x is pending.
func (w *List[T]) On(x T) bool { return w.test(x.Key()) }

// Len returns the number of pending items.
func (w *List[T]) Len() int { return len(w.items) - w.head }

// Pushes returns the number of successful pushes since the last Clear.
func (w *List[T]) Pushes() int64 { return w.pushes }

// Seed returns the configured seed.
func (w *List[T]) Seed() uint64 { return w.seed }

// Policy returns the configured pop policy.
func (w *List[T]) Policy() Policy { return w.policy }

// Clear empties the list and restarts the random sequence from the seed, so
// a cleared list pops in the same order as a fresh one.
func (w *List[T]) Clear() {
	clear(w.items)
	w.items = w.items[:0]
	w.head = 0
	clear(w.on)
	w.pushes = 0
	w.rng = rand.New(rand.NewPCG(w.seed, w.seed^0x9E3779B97F4A7C15))
}

func (w *List[T]) test(k int) bool {
	i := k >> 6
	return i < len(w.on) && w.on[i]&(1<<(uint(k)&63)) != 0
}

func (w *List[T]) set(k int) {
	i := k >> 6
	for i >= len(w.on) {
		w.on = append(w.on, 0)
	}
	w.on[i] |= 1 << (uint(k) & 63)
}

func (w *List[T]) clr(k int) {
	if i := k >> 6; i < len(w.on) {
		w.on[i] &^= 1 << (uint(k) & 63)
	}
}
