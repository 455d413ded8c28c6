package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vigil/internal/models"
)

// EnqueueIncident records a report created while offline. It assigns a
// local identifier, stamps the creation time and appends the item after
// everything already queued. The stored record is returned so the caller
// can surface it immediately.
func (s *Store) EnqueueIncident(ctx context.Context, draft models.IncidentDraft) (*models.PendingIncident, error) {
	pending := models.PendingIncident{
		LocalID:     models.NewLocalID(),
		Title:       draft.Title,
		Description: draft.Description,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		Severity:    draft.Severity,
		Status:      models.StatusPendingSync,
		CreatedAt:   time.Now().UTC(),
	}

	encryptedTitle, err := s.encryptor.EncryptIfEnabled(pending.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt title: %w", err)
	}
	encryptedDescription, err := s.encryptor.EncryptIfEnabled(pending.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt description: %w", err)
	}

	query := `
		INSERT INTO pending_incidents (
			local_id, title, description, latitude, longitude,
			severity, status, created_at, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM pending_incidents))
	`

	err = retryableStoreOperation(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			string(pending.LocalID),
			encryptedTitle,
			encryptedDescription,
			pending.Latitude,
			pending.Longitude,
			pending.Severity,
			pending.Status,
			pending.CreatedAt.Format(time.RFC3339Nano),
		)
		return execErr
	}, "enqueue incident")
	if err != nil {
		return nil, err
	}

	return &pending, nil
}

// PendingIncidents returns the full queue in enqueue order without
// removing anything. The sync engine iterates this snapshot so a failure
// mid-pass cannot lose items it has not attempted yet.
func (s *Store) PendingIncidents(ctx context.Context) ([]models.PendingIncident, error) {
	query := `
		SELECT local_id, title, description, latitude, longitude,
		       severity, status, created_at
		FROM pending_incidents
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending incidents: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingIncident
	for rows.Next() {
		item, err := s.scanPending(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending incidents: %w", err)
	}

	return pending, nil
}

// PendingCount reports the queue depth.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_incidents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending incidents: %w", err)
	}
	return count, nil
}

// RemovePending deletes one item after confirmed remote acceptance.
func (s *Store) RemovePending(ctx context.Context, localID models.LocalID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_incidents WHERE local_id = ?`, string(localID))
	if err != nil {
		return fmt.Errorf("failed to remove pending incident: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no pending incident with local ID: %s", localID)
	}

	return nil
}

// ReplacePending atomically persists whatever remains after a sync pass.
// Items keep their original relative order and are stored verbatim, so a
// failed item looks exactly as it did when enqueued and never jumps ahead
// of newer reports.
func (s *Store) ReplacePending(ctx context.Context, items []models.PendingIncident) error {
	return retryableStoreOperation(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_incidents`); err != nil {
			return fmt.Errorf("failed to clear pending incidents: %w", err)
		}

		insert := `
			INSERT INTO pending_incidents (
				local_id, title, description, latitude, longitude,
				severity, status, created_at, position
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for i, item := range items {
			encryptedTitle, err := s.encryptor.EncryptIfEnabled(item.Title)
			if err != nil {
				return fmt.Errorf("failed to encrypt title: %w", err)
			}
			encryptedDescription, err := s.encryptor.EncryptIfEnabled(item.Description)
			if err != nil {
				return fmt.Errorf("failed to encrypt description: %w", err)
			}

			if _, err := tx.ExecContext(ctx, insert,
				string(item.LocalID),
				encryptedTitle,
				encryptedDescription,
				item.Latitude,
				item.Longitude,
				item.Severity,
				item.Status,
				item.CreatedAt.Format(time.RFC3339Nano),
				i,
			); err != nil {
				return fmt.Errorf("failed to insert pending incident: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit pending incidents: %w", err)
		}
		return nil
	}, "replace pending incidents")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanPending(row rowScanner) (*models.PendingIncident, error) {
	var item models.PendingIncident
	var localID, encryptedTitle, encryptedDescription, createdAt string

	err := row.Scan(
		&localID,
		&encryptedTitle,
		&encryptedDescription,
		&item.Latitude,
		&item.Longitude,
		&item.Severity,
		&item.Status,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending incident: %w", err)
	}

	item.LocalID = models.LocalID(localID)

	item.Title, err = s.encryptor.DecryptIfEnabled(encryptedTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt title: %w", err)
	}
	item.Description, err = s.encryptor.DecryptIfEnabled(encryptedDescription)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt description: %w", err)
	}

	item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &item, nil
}
