// Package livequery models standing queries whose result sets are pushed to the
// subscriber every time the underlying data changes.
//
// Every Subscription must be released with Cancel, or by cancelling the context it was
// started with.
package livequery

import (
	"context"
	"errors"
	"sync"

	"github.com/anonto42/buddyfeed/internal/observability"
)

// ErrClosed is returned by Next once the subscription has been released.
var ErrClosed = errors.New("subscription closed")

// Snapshot is one full result set of a live query. A snapshot carrying Err is the
// last one delivered.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Source produces result sets until ctx is done. It calls emit with the full result
// every time it changes; emit returns false when the subscriber is gone and the source
// should return.
type Source[T any] func(ctx context.Context, emit func([]T) bool) error

// Subscription is a cancellable stream of snapshots.
type Subscription[T any] struct {
	updates chan Snapshot[T]
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

// Start runs src in its own goroutine. stream names the query in logs and metrics;
// derived subscriptions pass an empty name.
func Start[T any](ctx context.Context, stream string, src Source[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan Snapshot[T]),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	if stream != "" {
		observability.LiveSubscriptions.WithLabelValues(stream).Inc()
		observability.LogSubscriptionStart(ctx, stream, nil)
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer func() {
			if stream != "" {
				observability.LiveSubscriptions.WithLabelValues(stream).Dec()
				observability.LogSubscriptionEnd(context.WithoutCancel(ctx), stream, nil)
			}
		}()

		emit := func(items []T) bool {
			select {
			case s.updates <- Snapshot[T]{Items: items}:
				if stream != "" {
					observability.SnapshotsDelivered.WithLabelValues(stream).Inc()
				}
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := src(ctx, emit)
		if err == nil || ctx.Err() != nil {
			return
		}
		if stream != "" {
			observability.LogSubscriptionError(ctx, stream, err)
		}
		select {
		case s.updates <- Snapshot[T]{Err: err}:
		case <-ctx.Done():
		}
	}()

	return s
}

// Updates delivers snapshots until the subscription ends, then is closed.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Done is closed once the producing goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel releases the live query and waits for its goroutine to exit. Safe to call
// more than once.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Next blocks for the next snapshot. It returns ErrClosed when the subscription has
// ended and ctx.Err() when ctx is done first.
func (s *Subscription[T]) Next(ctx context.Context) ([]T, error) {
	select {
	case snap, ok := <-s.updates:
		if !ok {
			return nil, ErrClosed
		}
		if snap.Err != nil {
			return nil, snap.Err
		}
		return snap.Items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Map derives a subscription whose snapshots are fn applied to the parent's.
// Cancelling the derived subscription releases the parent.
func Map[T, U any](parent *Subscription[T], fn func([]T) []U) *Subscription[U] {
	return Start(context.Background(), "", func(ctx context.Context, emit func([]U) bool) error {
		defer parent.Cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-parent.Updates():
				if !ok {
					return nil
				}
				if snap.Err != nil {
					return snap.Err
				}
				if !emit(fn(snap.Items)) {
					return nil
				}
			}
		}
	})
}

// Transform is Map for a result that is not a list, such as a comment thread.
func Transform[T, U any](parent *Subscription[T], fn func([]T) U) *Subscription[U] {
	return Map(parent, func(items []T) []U {
		return []U{fn(items)}
	})
}
