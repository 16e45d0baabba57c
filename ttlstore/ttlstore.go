// Package ttlstore keeps short-lived string keys, in process or in Redis.
package ttlstore

import (
	"context"
	"sync"
	"time"
)

// Store holds keys until they expire. A ttl of zero or less never expires.
type Store interface {
	Set(ctx context.Context, key string, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

const sweepEvery = 128

type Memory struct {
	mu     sync.Mutex
	m      map[string]time.Time
	writes int
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]time.Time), now: time.Now}
}

func (s *Memory) Set(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.m[key] = exp

	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweep()
	}
	return nil
}

func (s *Memory) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.m[key]
	if !ok {
		return false, nil
	}
	if !exp.IsZero() && !s.now().Before(exp) {
		delete(s.m, key)
		return false, nil
	}
	return true, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// sweep drops expired keys. Callers hold mu.
func (s *Memory) sweep() {
	now := s.now()
	for k, exp := range s.m {
		if !exp.IsZero() && !now.Before(exp) {
			delete(s.m, k)
		}
	}
}
