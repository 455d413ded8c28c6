package sync

import (
	"context"

	vigilerrors "vigil/internal/errors"
	"vigil/pkg/incident"
	"vigil/pkg/incident/types"

	"github.com/sirupsen/logrus"
)

// CacheStore is the slice of the local store holding the incident
// snapshot.
type CacheStore interface {
	CacheIncidents(ctx context.Context, incidents []types.Incident) error
	CachedIncidents(ctx context.Context) ([]types.Incident, error)
}

// Refresher keeps the incident cache warm and serves reads through it.
// The cache makes no staleness judgment of its own; it is a last-known-
// good snapshot and nothing more.
type Refresher struct {
	store     CacheStore
	api       incident.Client
	latitude  float64
	longitude float64
	radiusKm  float64
	logger    *logrus.Logger
}

func NewRefresher(store CacheStore, api incident.Client, latitude, longitude, radiusKm float64, logger *logrus.Logger) *Refresher {
	return &Refresher{
		store:     store,
		api:       api,
		latitude:  latitude,
		longitude: longitude,
		radiusKm:  radiusKm,
		logger:    logger,
	}
}

// Refresh fetches the nearby incident set and overwrites the cache.
func (r *Refresher) Refresh(ctx context.Context) error {
	incidents, err := r.api.NearbyIncidents(ctx, r.latitude, r.longitude, r.radiusKm)
	if err != nil {
		return vigilerrors.Wrap(err, vigilerrors.ErrCodeIncidentAPI, "failed to fetch nearby incidents")
	}

	if err := r.store.CacheIncidents(ctx, incidents); err != nil {
		return vigilerrors.Wrap(err, vigilerrors.ErrCodeStoreQuery, "failed to cache incidents")
	}

	r.logger.WithField("count", len(incidents)).Debug("Incident cache refreshed")
	return nil
}

// NearbyIncidents serves the live incident set, falling back to the
// cached snapshot when the remote fetch fails. The boolean reports
// whether the result came from cache so the caller can surface that.
// When the fetch fails and the cache is empty too, the fetch error is
// returned: there is genuinely nothing to show.
func (r *Refresher) NearbyIncidents(ctx context.Context) ([]types.Incident, bool, error) {
	incidents, err := r.api.NearbyIncidents(ctx, r.latitude, r.longitude, r.radiusKm)
	if err == nil {
		if cacheErr := r.store.CacheIncidents(ctx, incidents); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to update incident cache after fetch")
		}
		return incidents, false, nil
	}

	r.logger.WithError(err).Warn("Nearby incident fetch failed, trying cache")

	cached, cacheErr := r.store.CachedIncidents(ctx)
	if cacheErr != nil {
		return nil, false, vigilerrors.Wrap(cacheErr, vigilerrors.ErrCodeStoreQuery, "failed to read incident cache")
	}
	if len(cached) == 0 {
		return nil, false, vigilerrors.Wrap(err, vigilerrors.ErrCodeIncidentAPI, "nearby incidents unavailable and cache is empty")
	}

	return cached, true, nil
}
