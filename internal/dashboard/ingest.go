package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/statkeeper/statkeeper/internal/report"
	"github.com/statkeeper/statkeeper/internal/tracker"
)

type deathRequest struct {
	Victim       string `json:"victim"`
	VictimRole   string `json:"victim_role"`
	Attacker     string `json:"attacker"`
	AttackerRole string `json:"attacker_role"`
	Cause        string `json:"cause"`
}

func (s *Server) requireTracker(w http.ResponseWriter) bool {
	if s.tracker == nil {
		http.Error(w, "tracking not enabled", http.StatusNotFound)
		return false
	}
	return true
}

// handleJoin starts a play session.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracker(w) {
		return
	}
	s.tracker.Joined(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleLeave ends a play session and reports the credited time.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracker(w) {
		return
	}
	played := s.tracker.Left(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{
		"played": int64(played),
		"text":   report.FormatDuration(played),
	})
}

// handleDeath records one death.
func (s *Server) handleDeath(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracker(w) {
		return
	}
	var req deathRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Victim == "" {
		http.Error(w, "victim is required", http.StatusBadRequest)
		return
	}
	s.tracker.Died(tracker.Death{
		Victim:       req.Victim,
		VictimRole:   tracker.Role(req.VictimRole),
		Attacker:     req.Attacker,
		AttackerRole: tracker.Role(req.AttackerRole),
		Cause:        req.Cause,
	})
	w.WriteHeader(http.StatusNoContent)
}
