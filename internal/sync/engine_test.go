package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	vigilerrors "vigil/internal/errors"
	"vigil/internal/models"
	"vigil/pkg/incident"
	"vigil/pkg/incident/types"
	"vigil/pkg/reward"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueueStore struct {
	items        []models.PendingIncident
	lastSync     time.Time
	pendingErr   error
	replaceErr   error
	replaceCalls int
}

func (f *fakeQueueStore) PendingIncidents(ctx context.Context) ([]models.PendingIncident, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	snapshot := make([]models.PendingIncident, len(f.items))
	copy(snapshot, f.items)
	return snapshot, nil
}

func (f *fakeQueueStore) ReplacePending(ctx context.Context, items []models.PendingIncident) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaceCalls++
	f.items = items
	return nil
}

func (f *fakeQueueStore) LastSyncAt(ctx context.Context) (time.Time, error) {
	return f.lastSync, nil
}

func (f *fakeQueueStore) SetLastSyncAt(ctx context.Context, t time.Time) error {
	f.lastSync = t
	return nil
}

type fakeIncidentAPI struct {
	incident.Client

	failTitles map[string]bool
	created    []types.CreateIncidentRequest
	nextID     int64
}

func (f *fakeIncidentAPI) CreateIncident(ctx context.Context, req types.CreateIncidentRequest) (*types.Incident, error) {
	if f.failTitles[req.Title] {
		return nil, fmt.Errorf("incident API error: status 500")
	}
	f.created = append(f.created, req)
	f.nextID++
	return &types.Incident{
		ID:         f.nextID,
		Title:      req.Title,
		Severity:   req.Severity,
		ReportedBy: 42,
	}, nil
}

type stubChecker struct {
	connected bool
}

func (c stubChecker) Check(ctx context.Context) bool { return c.connected }

type fakeRewardClient struct {
	calls []string
	err   error
}

func (f *fakeRewardClient) AddPoints(ctx context.Context, userID int64, actionType string) error {
	f.calls = append(f.calls, actionType)
	return f.err
}

func pendingItem(title string) models.PendingIncident {
	return models.PendingIncident{
		LocalID:   models.NewLocalID(),
		Title:     title,
		Severity:  models.SeverityMedium,
		Status:    models.StatusPendingSync,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestEngine(store *fakeQueueStore, api *fakeIncidentAPI, token string, rewards *fakeRewardClient, connected bool) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	var rewardClient reward.Client
	if rewards != nil {
		rewardClient = rewards
	}
	return NewEngine(store, api, incident.StaticToken(token), rewardClient, stubChecker{connected: connected}, logger)
}

func TestSyncPendingIncidents_AllSucceed(t *testing.T) {
	store := &fakeQueueStore{items: []models.PendingIncident{
		pendingItem("flood"), pendingItem("fire"), pendingItem("accident"),
	}}
	api := &fakeIncidentAPI{}
	rewards := &fakeRewardClient{}
	engine := newTestEngine(store, api, "token", rewards, true)

	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, store.items)
	assert.False(t, store.lastSync.IsZero())
	assert.Len(t, rewards.calls, 3)
}

func TestSyncPendingIncidents_FailedItemRetainedVerbatim(t *testing.T) {
	items := []models.PendingIncident{
		pendingItem("flood"), pendingItem("fire"), pendingItem("accident"),
	}
	store := &fakeQueueStore{items: items}
	api := &fakeIncidentAPI{failTitles: map[string]bool{"fire": true}}
	engine := newTestEngine(store, api, "token", nil, true)

	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, store.items, 1)
	assert.Equal(t, items[1], store.items[0])
}

func TestSyncPendingIncidents_OrderPreservedAcrossFailures(t *testing.T) {
	items := []models.PendingIncident{
		pendingItem("a"), pendingItem("b"), pendingItem("c"), pendingItem("d"),
	}
	store := &fakeQueueStore{items: items}
	api := &fakeIncidentAPI{failTitles: map[string]bool{"a": true, "c": true}}
	engine := newTestEngine(store, api, "token", nil, true)

	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, store.items, 2)
	assert.Equal(t, "a", store.items[0].Title)
	assert.Equal(t, "c", store.items[1].Title)
}

func TestSyncPendingIncidents_EmptyQueueStillAdvancesStamp(t *testing.T) {
	store := &fakeQueueStore{}
	engine := newTestEngine(store, &fakeIncidentAPI{}, "token", nil, true)

	before := store.lastSync
	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncResult{}, result)
	assert.True(t, store.lastSync.After(before))
	assert.Equal(t, 0, store.replaceCalls)
}

func TestSyncPendingIncidents_Offline(t *testing.T) {
	store := &fakeQueueStore{items: []models.PendingIncident{pendingItem("flood")}}
	engine := newTestEngine(store, &fakeIncidentAPI{}, "token", nil, false)

	_, err := engine.SyncPendingIncidents(context.Background())
	require.Error(t, err)
	assert.True(t, vigilerrors.IsNoConnectivity(err))
	assert.Len(t, store.items, 1)
	assert.True(t, store.lastSync.IsZero())
}

func TestSyncPendingIncidents_MissingCredentialAborts(t *testing.T) {
	store := &fakeQueueStore{items: []models.PendingIncident{pendingItem("flood")}}
	api := &fakeIncidentAPI{}
	engine := newTestEngine(store, api, "", nil, true)

	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncResult{}, result)
	assert.Empty(t, api.created)
	assert.Len(t, store.items, 1)
	assert.True(t, store.lastSync.IsZero())
}

func TestSyncPendingIncidents_RewardFailureDoesNotAffectResult(t *testing.T) {
	store := &fakeQueueStore{items: []models.PendingIncident{pendingItem("flood")}}
	rewards := &fakeRewardClient{err: errors.New("reward service down")}
	engine := newTestEngine(store, &fakeIncidentAPI{}, "token", rewards, true)

	result, err := engine.SyncPendingIncidents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Empty(t, store.items)
	assert.Len(t, rewards.calls, 1)
}

func TestSyncPendingIncidents_SnapshotError(t *testing.T) {
	store := &fakeQueueStore{pendingErr: errors.New("disk gone")}
	engine := newTestEngine(store, &fakeIncidentAPI{}, "token", nil, true)

	_, err := engine.SyncPendingIncidents(context.Background())
	require.Error(t, err)
	assert.Equal(t, vigilerrors.ErrCodeStoreQuery, vigilerrors.GetCode(err))
}
