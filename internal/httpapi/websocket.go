package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/events"
)

type wsMessage struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	URL       string    `json:"url,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket bridges a Job's RabbitMQ event queue to a websocket
// client, grounded on the teacher's handlers/websocket.go connect-queue-
// then-stream loop.
//
// @Summary Live job updates
// @Param id path string true "Job ID"
// @Router /ws/{id} [get]
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if s.bus == nil {
		respondError(w, http.StatusServiceUnavailable, "event bus not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("httpapi: websocket upgrade failed")
		return
	}
	defer conn.Close()

	queueName, err := s.bus.JobQueue(jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("httpapi: failed to create job queue")
		conn.WriteJSON(wsMessage{Type: "error", JobID: jobID, Error: "failed to create event queue", Timestamp: time.Now()})
		return
	}

	conn.WriteJSON(wsMessage{Type: "connected", JobID: jobID, Message: "connected to live updates", Timestamp: time.Now()})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	eventChan, err := s.bus.Consume(ctx, queueName)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("httpapi: failed to consume job queue")
		conn.WriteJSON(wsMessage{Type: "error", JobID: jobID, Error: "failed to start event consumption", Timestamp: time.Now()})
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range eventChan {
		msg := wsMessage{Type: ev.Type, JobID: ev.JobID, URL: ev.URL, Message: ev.Message, Error: ev.Error, Timestamp: ev.Timestamp}
		if err := conn.WriteJSON(msg); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("httpapi: websocket write failed")
			return
		}
		if ev.Type == events.TypeCompleted {
			return
		}
	}
}
