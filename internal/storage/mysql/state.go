package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"playreviews/internal/domain"
)

// StateStore keeps one sync_state row per state key.
type StateStore struct{ db *sql.DB }

func NewStateStore(db *sql.DB) *StateStore { return &StateStore{db: db} }

func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_key, payload FROM sync_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := domain.State{}
	for rows.Next() {
		var (
			key     string
			payload []byte
		)
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}
		if !json.Valid(payload) {
			return nil, fmt.Errorf("sync_state %q: payload is not JSON", key)
		}
		st[key] = payload
	}
	return st, rows.Err()
}

// Save writes the whole mapping in one transaction; keys missing from st are removed.
func (s *StateStore) Save(ctx context.Context, st domain.State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	keys := make([]any, 0, len(st))
	for k, v := range st {
		if _, err = tx.ExecContext(ctx, upsertStateSQL, k, string(v)); err != nil {
			return fmt.Errorf("upsert sync_state %q: %w", k, err)
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sync_state`)
	} else {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		_, err = tx.ExecContext(ctx, `DELETE FROM sync_state WHERE state_key NOT IN (`+ph+`)`, keys...)
	}
	if err != nil {
		return fmt.Errorf("prune sync_state: %w", err)
	}
	return tx.Commit()
}
