package ib

import (
	"sync"

	"ib-history/internal/model"
)

// barBuffer accumulates the bars of the single in-flight request.
// reqID 0 means idle: every callback is stale.
type barBuffer struct {
	mu       sync.Mutex
	reqID    int
	bars     []model.Bar
	err      error
	complete bool
	done     chan struct{}
}

// reset clears the buffer for reqID and returns the channel closed on completion.
func (b *barBuffer) reset(reqID int) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reqID = reqID
	b.bars = nil
	b.err = nil
	b.complete = false
	b.done = make(chan struct{})
	return b.done
}

func (b *barBuffer) append(reqID int, bar model.Bar) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reqID == 0 || reqID != b.reqID || b.complete {
		return false
	}
	b.bars = append(b.bars, bar)
	return true
}

// finish marks reqID complete. err is reported by drain.
func (b *barBuffer) finish(reqID int, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reqID == 0 || reqID != b.reqID || b.complete {
		return false
	}
	b.complete = true
	b.err = err
	close(b.done)
	return true
}

// drain returns what was collected and puts the buffer back to idle.
func (b *barBuffer) drain() ([]model.Bar, error) {
	b.mu.Lock()
	bars, err := b.bars, b.err
	b.mu.Unlock()
	b.reset(0)
	return bars, err
}
