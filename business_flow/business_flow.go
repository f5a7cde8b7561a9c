package businessflow

import (
	"math/rand/v2"
	"sync"
)

// Picker draws an index in [0, n)
type Picker interface {
	Intn(n int) int
}

// lockedRand is a goroutine-safe Picker
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomPicker returns a Picker seeded from the runtime
func NewRandomPicker() Picker {
	return &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededPicker returns a deterministic Picker
func NewSeededPicker(seed uint64) Picker {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
