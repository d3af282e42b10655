package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tolkBack/internal/models"
	"tolkBack/internal/repositories"
)

// DistanceHandler takes the admin distance feed: travel distance/time plus the
// admin bookkeeping fields on a job.
type DistanceHandler struct {
	Distances *repositories.DistanceRepository
	Jobs      *repositories.JobRepository
}

// Feed validates and applies one distance-feed row. A flagged job must carry
// an admin comment; without one the row is rejected with 422.
func (h *DistanceHandler) Feed(w http.ResponseWriter, r *http.Request) {
	var req models.DistanceFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.JobID == 0 {
		writeJSON(w, http.StatusUnprocessableEntity,
			failEnvelope{Status: "fail", Message: "Du måste ange jobb-id", FieldName: "jobid"})
		return
	}
	if req.Flagged == models.YesFlag && req.AdminComment == "" {
		writeJSON(w, http.StatusUnprocessableEntity,
			failEnvelope{Status: "fail", Message: "Du måste lämna en kommentar för flaggade bokningar", FieldName: "admincomment"})
		return
	}

	if req.Distance != "" || req.Time != "" {
		if err := h.Distances.Upsert(r.Context(), models.Distance{
			JobID:    req.JobID,
			Distance: req.Distance,
			Time:     req.Time,
		}); err != nil {
			log.Printf("Error saving distance for job %d: %v", req.JobID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	if err := h.Jobs.UpdateAdminFields(r.Context(), req.JobID,
		req.SessionTime, req.AdminComment, req.Flagged, req.ManuallyHandled, req.ByAdmin); err != nil {
		log.Printf("Error updating admin fields for job %d: %v", req.JobID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Message: "Record updated!", Data: []interface{}{}})
}
