package memstore

import (
	"sync"

	"github.com/bazrganidrwst/warehouse-client/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps values in memory for the life of the process.
type Store struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Set(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Remove(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
