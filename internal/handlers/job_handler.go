package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"tolkBack/internal/models"
	"tolkBack/internal/repositories"
	"tolkBack/internal/services"
	"tolkBack/internal/timeutil"
)

// JobHandler exposes the booking lifecycle over HTTP. Responses follow the
// {message, data} envelope; business validation failures come back as 200
// with a fail status so clients branch on the body, not the HTTP code.
type JobHandler struct {
	Bookings      *services.BookingService
	JobRepo       *repositories.JobRepository
	Matcher       *services.MatchingService
	Notifications *services.NotificationService
	ErrorLog      *log.Logger
}

type envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type failEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	FieldName string `json:"field_name,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func notFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, envelope{Message: message, Data: []interface{}{}})
}

// respondError maps service errors onto the three response tiers.
func (h *JobHandler) respondError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusOK, failEnvelope{Status: "fail", Message: ve.Message, FieldName: ve.FieldName})
	case errors.Is(err, models.ErrJobAlreadyTaken):
		writeJSON(w, http.StatusOK, failEnvelope{Status: "fail", Message: "Bokningen är redan tillsatt"})
	case errors.Is(err, models.ErrTranslatorBooked):
		writeJSON(w, http.StatusOK, failEnvelope{Status: "fail", Message: "Du har redan en bokning under denna tid"})
	case errors.Is(err, models.ErrCancellationClosed):
		writeJSON(w, http.StatusOK, failEnvelope{Status: "fail", Message: services.MsgCancelViaPhone})
	case errors.Is(err, models.ErrSessionTimeRequired):
		writeJSON(w, http.StatusOK, failEnvelope{Status: "fail", Message: "Du måste ange tolkningens längd", FieldName: "session_time"})
	case errors.Is(err, models.ErrJobNotFound), errors.Is(err, models.ErrNoRecord),
		errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrRelationNotFound):
		notFound(w, "No record found")
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrJobNotPending):
		writeJSON(w, http.StatusConflict, envelope{Message: "Invalid status transition", Data: []interface{}{}})
	default:
		h.ErrorLog.Printf("job handler: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ListJobs returns the caller's active jobs, or the role-filtered admin view
// when no user_id is given.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if userID, _ := strconv.Atoi(q.Get("user_id")); userID != 0 {
		jobs, err := h.Bookings.JobsForUser(r.Context(), userID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if len(jobs) == 0 {
			notFound(w, "No jobs found")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Message: "Jobs retrieved", Data: jobs})
		return
	}

	filter := filterFromQuery(q)
	jobs, total, err := h.JobRepo.AllJobsFiltered(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Jobs retrieved",
		"data":    jobs,
		"total":   total,
	})
}

func filterFromQuery(q map[string][]string) models.JobFilter {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	f := models.JobFilter{
		Statuses:        q["status"],
		CustomerEmail:   get("customer_email"),
		TranslatorEmail: get("translator_email"),
		Limit:           50,
	}
	for _, raw := range q["language"] {
		if id, err := strconv.Atoi(raw); err == nil {
			f.LanguageIDs = append(f.LanguageIDs, id)
		}
	}
	parse := func(key string) *time.Time {
		raw := get(key)
		if raw == "" {
			return nil
		}
		t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, timeutil.Location())
		if err != nil {
			return nil
		}
		return &t
	}
	f.From = parse("from")
	f.To = parse("to")
	f.ExpireFrom = parse("expire_from")
	f.ExpireTo = parse("expire_to")
	if limit, err := strconv.Atoi(get("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}
	if offset, err := strconv.Atoi(get("offset")); err == nil && offset > 0 {
		f.Offset = offset
	}
	return f
}

// GetJob returns the job detail with language, active translator and distance
// eager-loaded.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}
	job, err := h.JobRepo.GetJobDetail(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job retrieved", Data: job})
}

func (h *JobHandler) StoreJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.Bookings.Store(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Booking created", Data: job})
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}
	var req models.JobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	actorID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))

	if _, err := h.Bookings.UpdateJob(r.Context(), id, req, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Updated", Data: []string{"Updated"}})
}

// ImmediateJobEmail is the guest flow: the booking is adjusted by email
// address instead of an authenticated account.
func (h *JobHandler) ImmediateJobEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID     int    `json:"job_id"`
		UserEmail string `json:"user_email_job_id"`
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.Bookings.StoreJobEmail(r.Context(), req.JobID, req.UserEmail, req.Reference)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) || errors.Is(err, models.ErrUserNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"fail": true, "message": "No record found"})
			return
		}
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Booking updated", Data: job})
}

// History is the paginated finished-jobs view.
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID == 0 {
		notFound(w, "No user_id given")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	jobs, total, numPages, err := h.Bookings.History(r.Context(), userID, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "History retrieved",
		"data":     jobs,
		"total":    total,
		"numpages": numPages,
	})
}

func (h *JobHandler) AcceptJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID  int `json:"job_id"`
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.Bookings.AcceptJob(r.Context(), req.JobID, req.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job accepted", Data: job})
}

// AcceptJobWithID takes the job id from the path instead of the body.
func (h *JobHandler) AcceptJobWithID(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}
	var req struct {
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.Bookings.AcceptJob(r.Context(), jobID, req.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job accepted", Data: job})
}

func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID  int `json:"job_id"`
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	status, err := h.Bookings.CancelJob(r.Context(), req.JobID, req.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job cancelled", Data: map[string]string{"status": status}})
}

func (h *JobHandler) EndJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID       int    `json:"job_id"`
		UserID      int    `json:"user_id"`
		SessionTime string `json:"session_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.Bookings.EndJob(r.Context(), req.JobID, req.SessionTime, req.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job ended", Data: []interface{}{}})
}

func (h *JobHandler) CustomerNotCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID  int `json:"job_id"`
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.Bookings.CustomerNotCall(r.Context(), req.JobID, req.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Job closed", Data: []interface{}{}})
}

func (h *JobHandler) ReopenJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID  int `json:"jobid"`
		UserID int `json:"userid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.Bookings.Reopen(r.Context(), req.JobID, req.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Tolk cancelled!", Data: job})
}

// ResendNotifications re-runs the push/SMS fan-out for a job.
func (h *JobHandler) ResendNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID int `json:"jobid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.Bookings.ResendNotifications(r.Context(), req.JobID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Push sent", Data: []interface{}{}})
}

func (h *JobHandler) ResendSMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID int `json:"jobid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	job, err := h.JobRepo.GetJobByID(r.Context(), req.JobID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	translators, err := h.Matcher.PotentialTranslators(r.Context(), job)
	if err != nil {
		h.respondError(w, err)
		return
	}
	sent := h.Notifications.ResendSMS(r.Context(), job, translators)
	writeJSON(w, http.StatusOK, envelope{Message: "SMS sent", Data: map[string]int{"count": sent}})
}
