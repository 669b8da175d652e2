// Package session tracks who is signed in and decides whether a guarded surface may
// render.
package session

import (
	"context"
	"sync"

	"github.com/anonto42/buddyfeed/internal/auth"
	"github.com/anonto42/buddyfeed/internal/models"
)

// State is the auth state observed by a session.
type State struct {
	Loading bool
	User    *models.Identity
}

// Resolved is the state of a session whose identity is already known.
func Resolved(user *models.Identity) State {
	return State{User: user}
}

// Provider holds the current identity for the lifetime of an application. It starts
// loading and settles on the first notification from the auth provider.
//
// A notifier that never fires leaves the provider loading forever; there is no timeout.
type Provider struct {
	notifier auth.StateNotifier

	mu          sync.RWMutex
	state       State
	ready       chan struct{}
	readyOnce   sync.Once
	watchers    map[int]chan State
	nextWatcher int
	unsubscribe func()
}

// NewProvider creates a loading Provider fed by notifier. Call Start to subscribe.
func NewProvider(notifier auth.StateNotifier) *Provider {
	return &Provider{
		notifier: notifier,
		state:    State{Loading: true},
		ready:    make(chan struct{}),
		watchers: make(map[int]chan State),
	}
}

// Start registers with the notifier. Calling it more than once has no effect.
func (p *Provider) Start() {
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.mu.Unlock()
		return
	}
	p.unsubscribe = func() {}
	p.mu.Unlock()

	unsubscribe := p.notifier.OnAuthStateChanged(p.set)

	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()
}

func (p *Provider) set(user *models.Identity) {
	p.mu.Lock()
	p.state = State{User: user}
	state := p.state
	for _, ch := range p.watchers {
		// Keep only the latest state for slow watchers.
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })
}

// State returns a copy of the current state.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the signed-in identity, or nil.
func (p *Provider) Current() *models.Identity {
	return p.State().User
}

// IsLoading reports whether the first notification is still outstanding.
func (p *Provider) IsLoading() bool {
	return p.State().Loading
}

// Wait blocks until the provider has settled or ctx is done.
func (p *Provider) Wait(ctx context.Context) (*models.Identity, error) {
	select {
	case <-p.ready:
		return p.Current(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Changes delivers every state change after the call. Release it with the returned func.
func (p *Provider) Changes() (<-chan State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextWatcher
	p.nextWatcher++
	ch := make(chan State, 1)
	p.watchers[id] = ch
	return ch, func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

// Close unregisters from the notifier.
func (p *Provider) Close() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
