package app

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// PrefetchState is the slot state of the prefetch buffer.
type PrefetchState int

const (
	PrefetchEmpty PrefetchState = iota
	PrefetchPopulating
	PrefetchReady
)

// preparedSet is a fully shuffled question set plus the unshuffled spares the
// skip lifeline draws from.
type preparedSet struct {
	questions []domain.Question
	spares    []domain.Question
}

// PrefetchBuffer holds at most one pre-shuffled question set for the next
// playthrough. Populate is a no-op unless the slot is Empty, so half-populated
// data can never be consumed; TakeReady consumes only from Ready and resets
// the slot to Empty.
type PrefetchBuffer struct {
	mu    sync.Mutex
	state PrefetchState
	set   preparedSet
}

func NewPrefetchBuffer() *PrefetchBuffer {
	return &PrefetchBuffer{}
}

// State reports the slot state.
func (b *PrefetchBuffer) State() PrefetchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Populate fills the slot via fill if it is Empty. A failed fill returns the
// slot to Empty for the next opportunity.
func (b *PrefetchBuffer) Populate(ctx context.Context, fill func(ctx context.Context) (preparedSet, error)) error {
	b.mu.Lock()
	if b.state != PrefetchEmpty {
		b.mu.Unlock()
		return nil
	}
	b.state = PrefetchPopulating
	b.mu.Unlock()

	set, err := fill(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = PrefetchEmpty
		return err
	}
	b.set = set
	b.state = PrefetchReady
	return nil
}

// TakeReady consumes the prepared set if one is Ready.
func (b *PrefetchBuffer) TakeReady() (preparedSet, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != PrefetchReady {
		return preparedSet{}, false
	}
	set := b.set
	b.set = preparedSet{}
	b.state = PrefetchEmpty
	return set, true
}
