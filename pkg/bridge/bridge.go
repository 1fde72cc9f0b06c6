// Package bridge decouples the goroutine that produces response events
// from the caller that consumes them.
//
// Each request gets one bounded channel. The producer side ([Sink]) is owned
// by exactly one goroutine, which is the only writer and the only one
// allowed to close it. The consumer side ([ResponseStream]) is owned by the
// caller, who pulls events at its own pace. Closing the ResponseStream is
// the cancellation signal: it cancels the producer's context, and every
// subsequent send fails so the producer stops all further work.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rhuss/modelstream/pkg/api"
)

// DefaultCapacity smooths short bursts without unbounded buffering.
const DefaultCapacity = 16

// ErrTruncated is returned by Next when the producer stopped before sending
// Completed or an error, for example because the request context was
// cancelled mid-turn. It wraps the producer context's cause, or
// io.ErrUnexpectedEOF when the producer context is still live.
var ErrTruncated = errors.New("response stream ended without completion")

// Result is one element of a response stream: an event or the error that
// ended the stream.
type Result struct {
	Event api.ResponseEvent
	Err   error
}

// New creates a bounded channel of the given capacity (DefaultCapacity
// when <= 0). The returned context is derived from ctx and is cancelled
// when the consumer closes the stream; the producer must use it for all of
// its network operations.
func New(ctx context.Context, capacity int) (context.Context, *Sink, *ResponseStream) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Result, capacity)
	return ctx,
		&Sink{ch: ch, ctx: ctx},
		&ResponseStream{rx: ch, ctx: ctx, cancel: cancel}
}

// Sink is the producing end of a response stream.
type Sink struct {
	ch         chan<- Result
	ctx        context.Context
	terminated bool
	closed     bool
}

// Send delivers an event, blocking while the channel is full. It returns
// false when the consumer has gone away or a terminal event was already
// sent; the producer must then stop.
func (s *Sink) Send(ev api.ResponseEvent) bool {
	if !s.send(Result{Event: ev}) {
		return false
	}
	if ev.IsTerminal() {
		s.terminated = true
	}
	return true
}

// Fail delivers err as the terminal element of the stream.
func (s *Sink) Fail(err error) bool {
	if !s.send(Result{Err: err}) {
		return false
	}
	s.terminated = true
	return true
}

// Done returns a channel closed when the consumer has gone away.
func (s *Sink) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close closes the channel. Safe to call more than once.
func (s *Sink) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Sink) send(r Result) bool {
	if s.terminated || s.closed || s.ctx.Err() != nil {
		return false
	}
	select {
	case s.ch <- r:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// ResponseStream is the consumer end of a response stream. It yields zero
// or more output items followed by exactly one Completed event or one
// error. It is not safe for concurrent use by multiple consumers.
type ResponseStream struct {
	rx        <-chan Result
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	dropped   atomic.Bool
	exhausted bool
}

// Next returns the next event. It returns io.EOF once the stream has
// delivered its terminal event or after the consumer closed it. A producer
// that stops without a terminal element yields one ErrTruncated. ctx bounds
// only this wait; cancelling it does not stop the producer.
func (s *ResponseStream) Next(ctx context.Context) (api.ResponseEvent, error) {
	if s.exhausted {
		return api.ResponseEvent{}, io.EOF
	}
	select {
	case r, ok := <-s.rx:
		if !ok {
			s.exhausted = true
			if s.dropped.Load() {
				return api.ResponseEvent{}, io.EOF
			}
			return api.ResponseEvent{}, s.truncated()
		}
		if r.Err != nil || r.Event.IsTerminal() {
			s.exhausted = true
			s.Close()
		}
		return r.Event, r.Err
	case <-ctx.Done():
		return api.ResponseEvent{}, ctx.Err()
	}
}

// All iterates over the stream until it is exhausted. The iteration stops
// after the first error, which is yielded. Breaking out of the loop closes
// the stream.
func (s *ResponseStream) All(ctx context.Context) iter.Seq2[api.ResponseEvent, error] {
	return func(yield func(api.ResponseEvent, error) bool) {
		for {
			ev, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close drops the consumer. The producer observes the drop on its next
// send, or immediately through its context.
func (s *ResponseStream) Close() {
	s.dropped.Store(true)
	s.closeOnce.Do(s.cancel)
}

func (s *ResponseStream) truncated() error {
	cause := context.Cause(s.ctx)
	if cause == nil {
		cause = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", ErrTruncated, cause)
}

// Forward copies every element of src into a new stream until src is
// exhausted or the new stream's consumer goes away, then closes src. It
// starts exactly one goroutine.
func Forward(ctx context.Context, src interface {
	Next(context.Context) (api.ResponseEvent, error)
	Close()
}) *ResponseStream {
	fctx, sink, out := New(ctx, DefaultCapacity)
	go func() {
		defer sink.Close()
		defer src.Close()
		for {
			ev, err := src.Next(fctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				if fctx.Err() == nil {
					sink.Fail(err)
				}
				return
			}
			if !sink.Send(ev) {
				return
			}
		}
	}()
	return out
}
