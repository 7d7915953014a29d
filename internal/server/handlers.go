package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"profilescout/pkg/storage"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.jobs.start(req); err != nil {
		if errors.Is(err, ErrJobRunning) {
			s.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.WithError(err).Error("Failed to start job")
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, s.jobs.status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.jobs.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.stop(); err != nil {
		s.respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusAccepted, s.jobs.status())
}

func (s *Server) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	result, _, err := s.jobs.lastResult()
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="linkedin_profiles.csv"`)
	if err := storage.WriteCSV(w, result.Profiles); err != nil {
		s.logger.WithError(err).Error("Failed to write CSV response")
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, finished, err := s.jobs.lastResult()
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := storage.WriteSummary(w, result.Summary, finished); err != nil {
		s.logger.WithError(err).Error("Failed to write summary response")
	}
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"server": "healthy"}
	healthy := true
	for name, p := range s.health {
		if err := p.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			s.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal response")
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
