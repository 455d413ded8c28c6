package main

import (
	"encoding/json"
	"net/http"

	"vigil/internal/metrics"
	"vigil/internal/relay"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type server struct {
	hub    *relay.Hub
	logger *logrus.Logger
}

func newServer(hub *relay.Hub, logger *logrus.Logger) *server {
	return &server{hub: hub, logger: logger}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.hub.HandleWebSocket)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	return r
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.hub.SessionCount(),
		"rooms":    s.hub.RoomCount(),
	})
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
