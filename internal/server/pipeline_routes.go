package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupPipelineRoutes configures pipeline and scheduler operations
func (s *Server) setupPipelineRoutes(r chi.Router) {
	r.Post("/pipeline/run", s.handlePipelineRun)

	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/status", s.handleSchedulerStatus)
		r.Post("/jobs/{name}/trigger", s.handleJobTrigger)
		r.Post("/jobs/{name}/pause", s.handleJobPause)
		r.Post("/jobs/{name}/resume", s.handleJobResume)
	})
}

// handlePipelineRun executes one pipeline pass synchronously and returns
// its full result. The pipeline serializes runs internally, so a manual
// trigger racing the scheduler just waits its turn.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	res := s.pipeline.Run(r.Context())
	s.writeJSON(w, http.StatusOK, res)
}

// handleSchedulerStatus lists all registered jobs and their run state
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": s.scheduler.List(),
	})
}

func (s *Server) handleJobTrigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.scheduler.TriggerNow(name); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
}

func (s *Server) handleJobPause(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.scheduler.Pause(name); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused", "job": name})
}

func (s *Server) handleJobResume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.scheduler.Resume(name); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed", "job": name})
}
