// Package channel provides generic channel interfaces for decoupled communication.
package channel

import "sync"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	// Done is closed once the channel is closed.
	Done() <-chan struct{}
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	// Send delivers v and reports false if the channel was closed first.
	Send(v T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// pipe never closes its data channel, so a Send racing with Close cannot
// panic. Readers select on Done to stop.
type pipe[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewBuffered creates a channel with the given buffer size.
func NewBuffered[T any](size int) Channel[T] {
	return &pipe[T]{ch: make(chan T, size), done: make(chan struct{})}
}

// NewUnbuffered creates a channel whose Send blocks until received.
func NewUnbuffered[T any]() Channel[T] {
	return &pipe[T]{ch: make(chan T), done: make(chan struct{})}
}

func (p *pipe[T]) Send(v T) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.ch <- v:
		return true
	case <-p.done:
		return false
	}
}

func (p *pipe[T]) Receive() <-chan T { return p.ch }

func (p *pipe[T]) Done() <-chan struct{} { return p.done }

// Len returns the number of buffered items. Always 0 when unbuffered.
func (p *pipe[T]) Len() int { return len(p.ch) }

// Close is idempotent.
func (p *pipe[T]) Close() {
	p.once.Do(func() { close(p.done) })
}
