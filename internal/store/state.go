package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	stateKeyLastSyncAt       = "last_sync_at"
	stateKeyCacheRefreshedAt = "cache_refreshed_at"
)

// LastSyncAt returns the timestamp of the last successful sync pass, or a
// zero time if no pass has ever completed.
func (s *Store) LastSyncAt(ctx context.Context) (time.Time, error) {
	return s.stateTime(ctx, stateKeyLastSyncAt)
}

// SetLastSyncAt stamps the completion of a sync pass. The sync engine is
// the only caller.
func (s *Store) SetLastSyncAt(ctx context.Context, t time.Time) error {
	return s.setState(ctx, stateKeyLastSyncAt, t.UTC().Format(time.RFC3339Nano))
}

func (s *Store) setState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

func (s *Store) stateTime(ctx context.Context, key string) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read state %s: %w", key, err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse state %s: %w", key, err)
	}
	return t, nil
}
