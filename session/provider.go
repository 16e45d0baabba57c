// Package session publishes sign-in and sign-out events to interested components.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

type Identity struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

type Event struct {
	Kind     EventKind
	Identity Identity
	At       time.Time
}

type Provider struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewProvider() *Provider {
	return &Provider{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every future event. The returned func removes it and may be called more than once.
func (p *Provider) Subscribe(fn func(Event)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Publish delivers e synchronously to subscribers in registration order.
func (p *Provider) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	p.mu.RLock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

func (p *Provider) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
