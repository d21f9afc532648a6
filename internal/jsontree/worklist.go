package jsontree

import "math/rand/v2"

// Action writes one pending value into one container slot.
type Action struct {
	// Depth is the depth the written value will sit at; elements of the
	// document's data array are at depth 1.
	Depth int
	// Sticky actions stay in the worklist after being taken.
	Sticky bool

	write func(v any)
}

// Apply writes v into the action's slot.
func (a Action) Apply(v any) {
	a.write(v)
}

// Worklist is the set of pending writes. Takes are uniformly random.
type Worklist struct {
	items []Action
}

// NewWorklist returns an empty worklist with room for capacity actions.
func NewWorklist(capacity int) *Worklist {
	return &Worklist{items: make([]Action, 0, capacity)}
}

func (w *Worklist) Push(a Action) {
	w.items = append(w.items, a)
}

func (w *Worklist) Len() int { return len(w.items) }

// Take picks a random action. Non-sticky actions are removed by swapping the
// last action into their place. Take panics on an empty worklist.
func (w *Worklist) Take(rng *rand.Rand) Action {
	i := rng.IntN(len(w.items))
	a := w.items[i]
	if a.Sticky {
		return a
	}
	last := len(w.items) - 1
	w.items[i] = w.items[last]
	w.items[last] = Action{}
	w.items = w.items[:last]
	return a
}

// Pending counts the non-sticky actions still waiting for a value.
func (w *Worklist) Pending() int {
	n := 0
	for _, a := range w.items {
		if !a.Sticky {
			n++
		}
	}
	return n
}
