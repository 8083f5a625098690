//go:build !tinygo

package nvs

import (
	"log/slog"
	"sync"
	"time"

	"satpoint-go/x/logx"

	"go.etcd.io/bbolt"
)

// Bolt persists to a bbolt file, one bucket per namespace.
type Bolt struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
	db *bbolt.DB
}

// NewBolt returns a store backed by the file at path. The file is created
// on Open. l may be nil.
func NewBolt(path string, l *slog.Logger) *Bolt {
	return &Bolt{path: path, log: logx.Tag(l, logx.TagStore)}
}

func (s *Bolt) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := bbolt.Open(s.path, 0o666, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		s.log.Error("open failed", "path", s.path, "err", err)
		return err
	}
	s.db = db
	s.log.Info("opened", "path", s.path)
	return nil
}

func (s *Bolt) handle() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *Bolt) Get(key string) ([]byte, error) {
	ns, name, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(name))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *Bolt) Put(key string, val []byte) error {
	ns, name, err := splitKey(key)
	if err != nil {
		return err
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), val)
	})
}

func (s *Bolt) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Info("closed", "path", s.path)
	return err
}
