package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigil/pkg/incident/types"
)

// CacheIncidents overwrites the stored incident snapshot wholesale and
// stamps the refresh time. Last write wins; there is no merging.
func (s *Store) CacheIncidents(ctx context.Context, incidents []types.Incident) error {
	return retryableStoreOperation(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_incidents`); err != nil {
			return fmt.Errorf("failed to clear incident cache: %w", err)
		}

		for i, incident := range incidents {
			payload, err := json.Marshal(incident)
			if err != nil {
				return fmt.Errorf("failed to marshal incident: %w", err)
			}
			encrypted, err := s.encryptor.EncryptIfEnabled(string(payload))
			if err != nil {
				return fmt.Errorf("failed to encrypt incident payload: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cached_incidents (position, payload) VALUES (?, ?)`,
				i, encrypted,
			); err != nil {
				return fmt.Errorf("failed to insert cached incident: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sync_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			stateKeyCacheRefreshedAt, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to stamp cache refresh time: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit incident cache: %w", err)
		}
		return nil
	}, "cache incidents")
}

// CachedIncidents returns the last-known-good snapshot, or an empty slice
// if nothing has been cached yet. The snapshot is read-only fallback data;
// it is only ever replaced wholesale by CacheIncidents.
func (s *Store) CachedIncidents(ctx context.Context) ([]types.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM cached_incidents ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query incident cache: %w", err)
	}
	defer rows.Close()

	incidents := []types.Incident{}
	for rows.Next() {
		var encrypted string
		if err := rows.Scan(&encrypted); err != nil {
			return nil, fmt.Errorf("failed to scan cached incident: %w", err)
		}
		payload, err := s.encryptor.DecryptIfEnabled(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt incident payload: %w", err)
		}
		var incident types.Incident
		if err := json.Unmarshal([]byte(payload), &incident); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incident cache: %w", err)
	}

	return incidents, nil
}

// CacheRefreshedAt returns when the snapshot was last overwritten, or a
// zero time if it never was.
func (s *Store) CacheRefreshedAt(ctx context.Context) (time.Time, error) {
	return s.stateTime(ctx, stateKeyCacheRefreshedAt)
}
