// Package memory provides an in-process session store. It implements
// the same contract as the Redis store, including change broadcast, so
// multi-context behavior is testable without infrastructure.
package memory

import (
	"context"
	"sync"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/session"
)

type Store struct {
	mu      sync.Mutex
	session *domain.Session
	subs    map[int]chan session.Change
	next    int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan session.Change)}
}

func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	return &cp, nil
}

func (s *Store) Save(ctx context.Context, sess *domain.Session, origin string) error {
	s.mu.Lock()
	cp := *sess
	s.session = &cp
	s.mu.Unlock()
	s.broadcast(session.Change{Kind: session.ChangeUpdated, Origin: origin})
	return nil
}

func (s *Store) Clear(ctx context.Context, origin string) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.broadcast(session.Change{Kind: session.ChangeCleared, Origin: origin})
	return nil
}

func (s *Store) Watch(ctx context.Context) (<-chan session.Change, error) {
	ch := make(chan session.Change, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *Store) broadcast(change session.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// Slow subscriber; drop rather than block the writer.
		}
	}
}
