package pipeline

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RunStore is a bounded, thread-safe run registry whose entries expire
// after ttl.
type RunStore struct {
	lru *expirable.LRU[string, *Run]
}

func NewRunStore(size int, ttl time.Duration) *RunStore {
	if size <= 0 {
		size = 256
	}
	return &RunStore{lru: expirable.NewLRU[string, *Run](size, nil, ttl)}
}

func (s *RunStore) Put(run *Run) {
	s.lru.Add(run.ID, run)
}

// Get returns the run with id, or nil when unknown or expired.
func (s *RunStore) Get(id string) *Run {
	run, ok := s.lru.Get(id)
	if !ok {
		return nil
	}
	return run
}

func (s *RunStore) Len() int {
	return s.lru.Len()
}
