package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string   `json:"status"`
	Uptime int64    `json:"uptime"`
	Runs   []string `json:"runs"`
}

// SeedResponse is the body of POST .../template.
type SeedResponse struct {
	Created []runsheet.Cue `json:"created"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	SendJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: int64(time.Since(s.started).Seconds()),
		Runs:   s.loadedRuns(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	SendJSON(w, http.StatusOK, map[string][]string{"runs": s.loadedRuns()})
}

func (s *Server) loadedRuns() []string {
	loaded := s.runs.Loaded()
	ids := make([]string, len(loaded))
	for i, c := range loaded {
		ids[i] = c.RunID()
	}
	return ids
}

// controller resolves {run}, creating the run if needed; it writes the error
// response itself and returns nil on failure.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) *runsheet.Controller {
	c, err := s.runs.Controller(r.Context(), mux.Vars(r)["run"])
	if err != nil {
		SendRunsheetError(w, err)
		return nil
	}
	return c
}

// existing resolves {run} like controller but answers 404 for a run with no cues.
func (s *Server) existing(w http.ResponseWriter, r *http.Request) *runsheet.Controller {
	c, err := s.runs.Existing(r.Context(), mux.Vars(r)["run"])
	if err != nil {
		SendRunsheetError(w, err)
		return nil
	}
	return c
}

func (s *Server) handleListCues(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	SendJSON(w, http.StatusOK, c.List())
}

func (s *Server) handleCreateCue(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}

	var in runsheet.CueInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		SendError(w, http.StatusBadRequest, runsheet.CodeInvalidRequest, fmt.Sprintf("invalid cue body: %v", err))
		return
	}

	cue, err := c.CreateCue(r.Context(), in)
	if err != nil {
		SendRunsheetError(w, err)
		return
	}
	SendJSON(w, http.StatusCreated, cue)
}

func (s *Server) handleGetCue(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	cue, err := c.Get(mux.Vars(r)["id"])
	if err != nil {
		SendRunsheetError(w, err)
		return
	}
	SendJSON(w, http.StatusOK, cue)
}

func (s *Server) handleDeleteCue(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteCue(r.Context(), mux.Vars(r)["id"]); err != nil {
		SendRunsheetError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCueCommand(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	vars := mux.Vars(r)
	cmd, err := runsheet.ParseCommand(vars["command"])
	if err != nil {
		SendError(w, http.StatusBadRequest, runsheet.CodeInvalidRequest, err.Error())
		return
	}
	cue, err := c.Apply(r.Context(), vars["id"], cmd)
	if err != nil {
		SendRunsheetError(w, err)
		return
	}
	SendJSON(w, http.StatusOK, cue)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	if err := c.ResetAll(r.Context()); err != nil {
		SendRunsheetError(w, err)
		return
	}
	SendJSON(w, http.StatusOK, c.Stats())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	SendJSON(w, http.StatusOK, c.Stats())
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	c := s.existing(w, r)
	if c == nil {
		return
	}
	SendJSON(w, http.StatusOK, c.Board())
}

func (s *Server) handleSeedTemplate(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		SendError(w, http.StatusNotFound, runsheet.CodeNotFound, "no template configured")
		return
	}
	c := s.controller(w, r)
	if c == nil {
		return
	}
	created, err := c.SeedTemplate(r.Context(), s.loader)
	if err != nil {
		SendRunsheetError(w, err)
		return
	}
	SendJSON(w, http.StatusCreated, SeedResponse{Created: created})
}
