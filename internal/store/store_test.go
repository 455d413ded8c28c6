package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vigil/internal/models"
	"vigil/pkg/incident/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "vigil.db")
	s, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestNew_InvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"null byte", "vigil\x00.db"},
		{"directory traversal", "../../../etc/vigil.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestEnqueueIncident_PreservesOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	titles := []string{"flood", "fire", "accident"}
	for _, title := range titles {
		_, err := s.EnqueueIncident(ctx, models.IncidentDraft{
			Title:    title,
			Severity: models.SeverityHigh,
		})
		require.NoError(t, err)
	}

	pending, err := s.PendingIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, title := range titles {
		assert.Equal(t, title, pending[i].Title)
		assert.Equal(t, models.StatusPendingSync, pending[i].Status)
		assert.NotEmpty(t, pending[i].LocalID)
	}
}

func TestEnqueueIncident_AssignsDistinctLocalIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.EnqueueIncident(ctx, models.IncidentDraft{Title: "one"})
	require.NoError(t, err)
	second, err := s.EnqueueIncident(ctx, models.IncidentDraft{Title: "two"})
	require.NoError(t, err)

	assert.NotEqual(t, first.LocalID, second.LocalID)
}

func TestPendingCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = s.EnqueueIncident(ctx, models.IncidentDraft{Title: "one"})
	require.NoError(t, err)

	count, err = s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRemovePending(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	pending, err := s.EnqueueIncident(ctx, models.IncidentDraft{Title: "one"})
	require.NoError(t, err)

	require.NoError(t, s.RemovePending(ctx, pending.LocalID))

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = s.RemovePending(ctx, pending.LocalID)
	assert.Error(t, err)
}

func TestReplacePending_RetainsItemsVerbatim(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.EnqueueIncident(ctx, models.IncidentDraft{
			Title:     title,
			Latitude:  47.5,
			Longitude: -18.9,
			Severity:  models.SeverityCritical,
		})
		require.NoError(t, err)
	}

	snapshot, err := s.PendingIncidents(ctx)
	require.NoError(t, err)

	// Simulate a pass where only the middle item failed.
	retained := []models.PendingIncident{snapshot[1]}
	require.NoError(t, s.ReplacePending(ctx, retained))

	after, err := s.PendingIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, snapshot[1], after[0])
}

func TestReplacePending_Empty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.EnqueueIncident(ctx, models.IncidentDraft{Title: "a"})
	require.NoError(t, err)

	require.NoError(t, s.ReplacePending(ctx, nil))

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCacheIncidents_OverwritesSnapshot(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := []types.Incident{
		{ID: 1, Title: "flood", Severity: models.SeverityHigh},
		{ID: 2, Title: "fire", Severity: models.SeverityLow},
	}
	require.NoError(t, s.CacheIncidents(ctx, first))

	second := []types.Incident{
		{ID: 3, Title: "accident", Severity: models.SeverityMedium},
	}
	require.NoError(t, s.CacheIncidents(ctx, second))

	cached, err := s.CachedIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, int64(3), cached[0].ID)
	assert.Equal(t, "accident", cached[0].Title)

	refreshedAt, err := s.CacheRefreshedAt(ctx)
	require.NoError(t, err)
	assert.False(t, refreshedAt.IsZero())
}

func TestCachedIncidents_EmptyCache(t *testing.T) {
	s := setupTestStore(t)

	cached, err := s.CachedIncidents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestLastSyncAt_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	lastSync, err := s.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, lastSync.IsZero())

	stamp := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSyncAt(ctx, stamp))

	lastSync, err = s.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(lastSync))
}

func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vigil.db")
	ctx := context.Background()

	s, err := New(dbPath)
	require.NoError(t, err)
	queued, err := s.EnqueueIncident(ctx, models.IncidentDraft{Title: "flood"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	pending, err := reopened.PendingIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, queued.LocalID, pending[0].LocalID)
}
