// Package nvs is the persistent key/value store holding station
// configuration across restarts. Keys are "namespace/name".
package nvs

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("nvs: key not found")
	ErrClosed   = errors.New("nvs: store not open")
	ErrKey      = errors.New("nvs: key must be namespace/name")
)

// Store is opened once during network bring-up and closed on shutdown.
type Store interface {
	Open() error
	Get(key string) ([]byte, error)
	Put(key string, val []byte) error
	Close() error
}

func splitKey(key string) (ns, name string, err error) {
	i := strings.IndexByte(key, '/')
	if i <= 0 || i == len(key)-1 {
		return "", "", ErrKey
	}
	return key[:i], key[i+1:], nil
}

// Mem keeps values in RAM. Used on boards without a flash filesystem and in
// tests. Values survive Close/Open on the same Mem.
type Mem struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error

	mu   sync.Mutex
	open bool
	m    map[string][]byte
}

func NewMem() *Mem { return &Mem{m: map[string][]byte{}} }

func (s *Mem) Open() error {
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

func (s *Mem) Get(key string) ([]byte, error) {
	if _, _, err := splitKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrClosed
	}
	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Mem) Put(key string, val []byte) error {
	if _, _, err := splitKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrClosed
	}
	s.m[key] = append([]byte(nil), val...)
	return nil
}

func (s *Mem) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}
