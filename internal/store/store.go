// Package store persists name -> ID lookups between runs so that resolving team, state, project
// and user names does not need a request every time.  Keys are grouped into namespaces
// (eg "team" or "state/<teamID>") which can be invalidated as a whole.
package store

// store.go wraps a badger database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when there is no (unexpired) entry for the key
var ErrNotFound = errors.New("not found")

const separator = "/"

type (
	// Config for opening a Store
	Config struct {
		Path     string        // directory of the database (ignored if InMemory)
		InMemory bool          // keep everything in memory (for tests)
		TTL      time.Duration // lifetime of entries (0 = never expire)
		Logger   zerolog.Logger
	}

	// Store is a persistent map of namespace+name to ID - safe for concurrent use
	Store struct {
		db     *badger.DB
		ttl    time.Duration
		logger zerolog.Logger
	}
)

// Open opens (or creates) the database
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLoggingLevel(badger.ERROR).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w opening store %q", err, cfg.Path)
	}

	s := &Store{
		db:     db,
		ttl:    cfg.TTL,
		logger: cfg.Logger.With().Str("component", "store").Logger(),
	}
	s.logger.Debug().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Dur("ttl", cfg.TTL).Msg("store opened")
	return s, nil
}

// Close flushes and closes the database
func (s *Store) Close() error {
	s.logger.Debug().Msg("store closed")
	return s.db.Close()
}

func key(namespace, name string) []byte {
	return []byte(namespace + separator + name)
}

// Get returns the ID stored for name in namespace, or ErrNotFound
func (s *Store) Get(namespace, name string) (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(namespace, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w reading %s%s%s", err, namespace, separator, name)
	}
	return id, nil
}

// Put stores the ID for name in namespace
func (s *Store) Put(namespace, name, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(namespace, name), []byte(id))
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Names returns all (unexpired) names in a namespace with their IDs
func (s *Store) Names(namespace string) (map[string]string, error) {
	prefix := []byte(namespace + separator)
	r := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), string(prefix))
			if strings.Contains(name, separator) {
				continue // belongs to a nested namespace
			}
			if err := item.Value(func(val []byte) error {
				r[name] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return r, err
}

// DeleteNamespace removes every entry of a namespace (and of namespaces nested under it)
func (s *Store) DeleteNamespace(namespace string) error {
	return s.deletePrefix([]byte(namespace + separator))
}

// Clear removes everything
func (s *Store) Clear() error {
	return s.deletePrefix(nil)
}

// deletePrefix removes all keys starting with prefix using a write batch, so that it works for
// any number of keys (a single transaction has a size limit)
func (s *Store) deletePrefix(prefix []byte) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}
