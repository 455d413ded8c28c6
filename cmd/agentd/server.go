package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"vigil/internal/constants"
	vigilerrors "vigil/internal/errors"
	"vigil/internal/metrics"
	"vigil/internal/models"
	"vigil/internal/report"
	"vigil/internal/store"
	syncpkg "vigil/internal/sync"
	"vigil/pkg/incident"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// server is the device-local HTTP API the mobile UI talks to. It never
// faces the network; everything remote goes through the sync engine and
// the incident client.
type server struct {
	cfg       *models.Config
	reporter  *report.Reporter
	refresher *syncpkg.Refresher
	engine    *syncpkg.Engine
	monitor   *syncpkg.Monitor
	state     *syncpkg.ConnectivityState
	store     *store.Store
	api       incident.Client
	logger    *logrus.Logger
}

func newServer(cfg *models.Config, reporter *report.Reporter, refresher *syncpkg.Refresher, engine *syncpkg.Engine, monitor *syncpkg.Monitor, state *syncpkg.ConnectivityState, db *store.Store, api incident.Client, logger *logrus.Logger) *server {
	return &server{
		cfg:       cfg,
		reporter:  reporter,
		refresher: refresher,
		engine:    engine,
		monitor:   monitor,
		state:     state,
		store:     db,
		api:       api,
		logger:    logger,
	}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	r.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/incidents", s.handleNearbyIncidents).Methods(http.MethodGet)
	r.HandleFunc("/incidents/{id:[0-9]+}", s.handleGetIncident).Methods(http.MethodGet)
	r.HandleFunc("/incidents/{id:[0-9]+}/chat", s.handleChatHistory).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	return r
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	var draft models.IncidentDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if draft.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	outcome, err := s.reporter.Report(r.Context(), draft)
	if err != nil {
		s.logger.WithError(err).Error("Failed to handle incident report")
		writeError(w, http.StatusInternalServerError, vigilerrors.GetUserMessage(err))
		return
	}

	status := http.StatusCreated
	if outcome.Queued() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

// handleSync triggers a sync pass on demand, outside the monitor's
// schedule.
func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.SyncPendingIncidents(r.Context())
	if err != nil {
		if vigilerrors.IsNoConnectivity(err) {
			writeError(w, http.StatusServiceUnavailable, "device is offline")
			return
		}
		s.logger.WithError(err).Error("Manual sync pass failed")
		writeError(w, http.StatusInternalServerError, vigilerrors.GetUserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleNearbyIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, fromCache, err := s.refresher.NearbyIncidents(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, vigilerrors.GetUserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"incidents":  incidents,
		"from_cache": fromCache,
	})
}

func (s *server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid incident ID")
		return
	}

	inc, err := s.api.GetIncident(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch incident")
		writeError(w, http.StatusBadGateway, "incident service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid incident ID")
		return
	}

	limit := constants.DefaultChatHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := s.api.ChatHistory(r.Context(), id, limit)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch chat history")
		writeError(w, http.StatusBadGateway, "incident service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.PendingCount(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count pending incidents")
		writeError(w, http.StatusInternalServerError, "local store unavailable")
		return
	}

	lastSync, err := s.store.LastSyncAt(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to read last sync time")
		writeError(w, http.StatusInternalServerError, "local store unavailable")
		return
	}

	status := map[string]interface{}{
		"connected":     s.state.Connected(),
		"pending_count": pending,
		"monitor":       s.monitor.IsRunning(),
	}
	if !lastSync.IsZero() {
		status["last_sync_at"] = lastSync.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.GetAllMetrics())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
