package main

import (
	"encoding/json"
	"net/http"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type readingSource interface {
	GetLatestReading() *types.Reading
}

type solarSource interface {
	ReadSolarData() (int32, error)
}

type server struct {
	readings readingSource
	solar    solarSource
	metrics  http.Handler
	hub      *hub
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func newServer(readings readingSource, solar solarSource, metrics http.Handler, h *hub, logger logrus.FieldLogger) *server {
	return &server{
		readings: readings,
		solar:    solar,
		metrics:  metrics,
		hub:      h,
		log:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Readings are public on the local network
			},
		},
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatus)
	mux.HandleFunc("/latest", s.handleLatest)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/solar", s.handleSolar)
	mux.Handle("/metrics", s.metrics)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "P1 Meter API",
		"status":      "running",
		"has_reading": s.readings.GetLatestReading() != nil,
		"clients":     s.hub.Count(),
	})
}

func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading := s.readings.GetLatestReading()
	if reading == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No readings available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	// Send current reading immediately if available
	if reading := s.readings.GetLatestReading(); reading != nil {
		if err := conn.WriteMessage(websocket.TextMessage, reading.ToJsonBytes()); err != nil {
			conn.Close()
			return
		}
	}
	s.hub.Add(conn)

	// Keep connection alive, control frames are handled by ReadMessage
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.Remove(conn)
			return
		}
	}
}

// May be fast or slow depending on cached response from inverter.
func (s *server) handleSolar(w http.ResponseWriter, r *http.Request) {
	power, err := s.solar.ReadSolarData()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int32{
		"currentProduction": power,
	})
}
