package chatws

import (
	"context"
	"sync"
)

type PendingState int

const (
	// PendingConnecting means neither open nor error has been signalled yet. It may last forever.
	PendingConnecting PendingState = iota
	PendingEstablished
	PendingFailed
)

func (s PendingState) String() string {
	switch s {
	case PendingConnecting:
		return "connecting"
	case PendingEstablished:
		return "established"
	case PendingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is the outcome of a connection attempt. It settles at most once and has no timeout
// of its own; use Wait with a deadline-bound context to give up waiting.
type Pending struct {
	mu    sync.Mutex
	state PendingState
	err   error
	done  chan struct{}
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func failedPending(err error) *Pending {
	p := newPending()
	p.fail(err)
	return p
}

// Done is closed once the attempt is settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

func (p *Pending) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Err returns the failure cause, or nil while connecting or once established.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Wait blocks until the attempt settles or ctx is done. Giving up on ctx leaves the attempt untouched.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) resolve() bool {
	return p.settle(PendingEstablished, nil)
}

func (p *Pending) fail(err error) bool {
	return p.settle(PendingFailed, err)
}

func (p *Pending) settle(state PendingState, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PendingConnecting {
		return false
	}
	p.state = state
	p.err = err
	close(p.done)
	return true
}
