package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/nikolayk812/coursecart/internal/port"
)

type memoryStorage struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewMemoryStorage() port.CartStorage {
	return &memoryStorage{}
}

func (s *memoryStorage) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return nil, port.ErrNotFound
	}

	return slices.Clone(s.data), nil
}

func (s *memoryStorage) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = slices.Clone(data)
	s.set = true

	return nil
}
