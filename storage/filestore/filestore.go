package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/storage"
)

var _ storage.Store = (*Store)(nil)

const DefaultFileName = "storage.json"

// Store persists a flat JSON object to a single file. Every write rewrites
// the file through a temp file and rename.
type Store struct {
	path   string
	values map[string]string
	lock   sync.RWMutex
}

// Open loads path, creating its folder when needed. A missing or unreadable
// file starts empty.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.Open] create folder")
	}
	s := &Store{path: path, values: make(map[string]string)}

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "[filestore.Open] read")
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("storage file is corrupt, starting empty")
		s.values = make(map[string]string)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
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
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *Store) Remove(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

func (s *Store) flush() error {
	b, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[Store.flush] marshal")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*.tmp")
	if err != nil {
		return errors.Wrap(err, "[Store.flush] create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[Store.flush] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[Store.flush] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[Store.flush] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "[Store.flush] rename")
}
