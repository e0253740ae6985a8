package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog/log"

	"playreviews/internal/domain"
)

const statePrefix = "syncstate:"

func makeStateKey(k string) []byte { return []byte(statePrefix + k) }

// StateStore keeps each sync state entry under its own key in a local badger
// directory, for single-host deployments without MySQL.
type StateStore struct {
	db *badger.DB
}

type zerologAdapter struct{}

var _ badger.Logger = zerologAdapter{}

func (zerologAdapter) Errorf(msg string, items ...any)   { log.Error().Msgf(msg, items...) }
func (zerologAdapter) Warningf(msg string, items ...any) { log.Warn().Msgf(msg, items...) }
func (zerologAdapter) Infof(msg string, items ...any)    { log.Debug().Msgf(msg, items...) }
func (zerologAdapter) Debugf(msg string, items ...any)   { log.Trace().Msgf(msg, items...) }

// Open opens dir, creating it if needed. An empty dir opens an in-memory store.
func Open(dir string) (*StateStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = zerologAdapter{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error { return s.db.Close() }

func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	st := domain.State{}
	err := s.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(statePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(bytes.TrimPrefix(item.Key(), prefix))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !json.Valid(val) {
				return fmt.Errorf("state entry %q is not JSON", key)
			}
			st[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Save replaces the stored mapping atomically.
func (s *StateStore) Save(ctx context.Context, st domain.State) error {
	return s.db.Update(func(tx *badger.Txn) error {
		var stale [][]byte
		it := tx.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		prefix := []byte(statePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := string(bytes.TrimPrefix(it.Item().Key(), prefix))
			if _, ok := st[k]; !ok {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, k := range stale {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		for k, v := range st {
			if err := tx.Set(makeStateKey(k), append([]byte(nil), v...)); err != nil {
				return err
			}
		}
		return nil
	})
}
