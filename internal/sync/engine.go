package sync

import (
	"context"
	"sync"
	"time"

	vigilerrors "vigil/internal/errors"
	"vigil/internal/metrics"
	"vigil/internal/models"
	"vigil/pkg/incident"
	"vigil/pkg/incident/types"
	"vigil/pkg/reward"

	"github.com/sirupsen/logrus"
)

// QueueStore is the slice of the local store the engine drains.
type QueueStore interface {
	PendingIncidents(ctx context.Context) ([]models.PendingIncident, error)
	ReplacePending(ctx context.Context, items []models.PendingIncident) error
	LastSyncAt(ctx context.Context) (time.Time, error)
	SetLastSyncAt(ctx context.Context, t time.Time) error
}

// Engine drains the pending incident queue against the incident service.
// Passes are strictly sequential and in enqueue order; a failed item is
// retained verbatim for the next pass rather than retried within this
// one, so a stuck item can never starve or reorder newer reports.
type Engine struct {
	store   QueueStore
	api     incident.Client
	tokens  incident.TokenSource
	rewards reward.Client
	checker Checker
	logger  *logrus.Logger
	now     func() time.Time

	// One pass at a time; a tick that fires while a slow pass is still
	// draining must not interleave queue mutations with it.
	mu sync.Mutex
}

func NewEngine(store QueueStore, api incident.Client, tokens incident.TokenSource, rewards reward.Client, checker Checker, logger *logrus.Logger) *Engine {
	return &Engine{
		store:   store,
		api:     api,
		tokens:  tokens,
		rewards: rewards,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

// SyncPendingIncidents runs one full pass over the queue snapshot.
//
// A missing credential aborts the whole pass with a zero result and the
// queue untouched: submitting under no identity would be rejected item by
// item anyway, and the caller re-triggers once a credential exists. Any
// per-item error, transport or rejection alike, counts as failed and the
// item is kept for the next pass.
func (e *Engine) SyncPendingIncidents(ctx context.Context) (models.SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.checker.Check(ctx) {
		return models.SyncResult{}, vigilerrors.ErrNoConnectivity
	}

	snapshot, err := e.store.PendingIncidents(ctx)
	if err != nil {
		return models.SyncResult{}, vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to snapshot pending queue")
	}

	if len(snapshot) == 0 {
		if err := e.store.SetLastSyncAt(ctx, e.now()); err != nil {
			return models.SyncResult{}, vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to stamp sync time")
		}
		return models.SyncResult{}, nil
	}

	if e.tokens.Token() == "" {
		e.logger.Warn("Sync pass aborted: no auth credential available")
		return models.SyncResult{}, nil
	}

	var result models.SyncResult
	retained := make([]models.PendingIncident, 0, len(snapshot))

	for _, item := range snapshot {
		draft := item.Draft()
		created, err := e.api.CreateIncident(ctx, incidentCreateRequest(draft))
		if err != nil {
			result.Failed++
			retained = append(retained, item)
			e.logger.WithFields(logrus.Fields{
				"local_id": item.LocalID,
				"error":    err,
			}).Warn("Failed to sync pending incident, retaining for next pass")
			continue
		}

		result.Synced++
		e.logger.WithFields(logrus.Fields{
			"local_id":    item.LocalID,
			"incident_id": created.ID,
		}).Info("Pending incident synced")

		e.triggerReward(ctx, created.ReportedBy)
	}

	if err := e.store.ReplacePending(ctx, retained); err != nil {
		return result, vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to persist retained queue")
	}
	if err := e.store.SetLastSyncAt(ctx, e.now()); err != nil {
		return result, vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to stamp sync time")
	}

	metrics.AddToCounter("sync_incidents_synced_total", float64(result.Synced), nil, "Pending incidents accepted by the incident service")
	metrics.AddToCounter("sync_incidents_failed_total", float64(result.Failed), nil, "Pending incidents retained after a failed submission")

	return result, nil
}

// triggerReward awards points for a successful submission. Reward
// failures never affect the sync outcome.
func (e *Engine) triggerReward(ctx context.Context, userID int64) {
	if e.rewards == nil {
		return
	}
	if err := e.rewards.AddPoints(ctx, userID, reward.ActionReportIncident); err != nil {
		e.logger.WithError(err).Warn("Failed to record reward points")
	}
}

func incidentCreateRequest(draft models.IncidentDraft) types.CreateIncidentRequest {
	return types.CreateIncidentRequest{
		Title:       draft.Title,
		Description: draft.Description,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		Severity:    draft.Severity,
	}
}
