package report

import (
	"context"

	vigilerrors "vigil/internal/errors"
	"vigil/internal/models"
	syncpkg "vigil/internal/sync"
	"vigil/pkg/incident"
	"vigil/pkg/incident/types"
	"vigil/pkg/reward"

	"github.com/sirupsen/logrus"
)

// QueueStore is the slice of the local store the reporter appends to.
type QueueStore interface {
	EnqueueIncident(ctx context.Context, draft models.IncidentDraft) (*models.PendingIncident, error)
}

// Reporter is the report-incident entry point: a direct remote write
// first, the durable queue as fallback. Being offline is never a hard
// error here; the only error surfaced is a local storage failure.
type Reporter struct {
	store   QueueStore
	api     incident.Client
	rewards reward.Client
	checker syncpkg.Checker
	logger  *logrus.Logger
}

// Outcome describes where a report ended up: accepted by the server
// (Incident set) or queued locally (Pending set). Exactly one is set.
type Outcome struct {
	Incident *types.Incident         `json:"incident,omitempty"`
	Pending  *models.PendingIncident `json:"pending,omitempty"`
}

// Queued reports whether the incident went into the offline queue.
func (o *Outcome) Queued() bool {
	return o.Pending != nil
}

func NewReporter(store QueueStore, api incident.Client, rewards reward.Client, checker syncpkg.Checker, logger *logrus.Logger) *Reporter {
	return &Reporter{
		store:   store,
		api:     api,
		rewards: rewards,
		checker: checker,
		logger:  logger,
	}
}

func (r *Reporter) Report(ctx context.Context, draft models.IncidentDraft) (*Outcome, error) {
	if draft.Severity == "" {
		draft.Severity = models.SeverityMedium
	}

	if r.checker.Check(ctx) {
		created, err := r.api.CreateIncident(ctx, types.CreateIncidentRequest{
			Title:       draft.Title,
			Description: draft.Description,
			Latitude:    draft.Latitude,
			Longitude:   draft.Longitude,
			Severity:    draft.Severity,
		})
		if err == nil {
			r.logger.WithField("incident_id", created.ID).Info("Incident reported")
			r.triggerReward(ctx, created.ReportedBy)
			return &Outcome{Incident: created}, nil
		}
		r.logger.WithError(err).Warn("Direct incident submission failed, queueing offline")
	} else {
		r.logger.Info("Device offline, queueing incident report")
	}

	pending, err := r.store.EnqueueIncident(ctx, draft)
	if err != nil {
		return nil, vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to queue incident report")
	}

	r.logger.WithField("local_id", pending.LocalID).Info("Incident queued for sync")
	return &Outcome{Pending: pending}, nil
}

func (r *Reporter) triggerReward(ctx context.Context, userID int64) {
	if r.rewards == nil {
		return
	}
	if err := r.rewards.AddPoints(ctx, userID, reward.ActionReportIncident); err != nil {
		r.logger.WithError(err).Warn("Failed to record reward points")
	}
}
