package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
	"tolkBack/internal/timeutil"
)

// StatusOutcome reports whether a requested status change was applied. A
// transition whose precondition is missing (admin comment, session time) is
// not an error, it simply did not happen.
type StatusOutcome struct {
	Changed   bool
	OldStatus string
}

type translatorChange struct {
	oldRelation *models.TranslatorJobRelation
	newID       int
}

// detectTranslatorChange decides whether the request actually reassigns the
// job. The second return value is the verdict; zero means "field untouched".
func detectTranslatorChange(active *models.TranslatorJobRelation, requested int) (translatorChange, bool) {
	if requested == 0 {
		return translatorChange{}, false
	}
	if active == nil {
		return translatorChange{newID: requested}, true
	}
	if active.UserID != requested {
		return translatorChange{oldRelation: active, newID: requested}, true
	}
	return translatorChange{}, false
}

// UpdateJob is the admin edit endpoint: it diffs the request against the
// stored job, applies date/language/translator/status changes, logs every
// field change and fires the matching notifications for future bookings.
// The returned slice names the fields that actually changed.
func (s *BookingService) UpdateJob(ctx context.Context, jobID int, req models.JobUpdateRequest, actorID int) ([]string, error) {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	customer, err := s.Users.GetUserByID(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	now := timeutil.Now()
	var changed []string
	logChange := func(field, oldVal, newVal string) {
		changed = append(changed, field)
		entry := models.JobChangeLog{
			JobID: jobID, ActorID: actorID,
			Field: field, OldValue: oldVal, NewValue: newVal,
			CreatedAt: now,
		}
		if err := s.Jobs.InsertChangeLog(ctx, entry); err != nil {
			s.Logger.Errorf("booking: change log for job %d (%s) failed: %v", jobID, field, err)
		}
	}

	// due is compared as the raw string so a resubmitted identical timestamp
	// never counts as a change
	dateChanged := false
	oldDue := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04:05")
	if req.Due != "" && req.Due != oldDue {
		due, err := time.ParseInLocation("2006-01-02 15:04:05", req.Due, timeutil.Location())
		if err != nil {
			return nil, models.NewValidationError("due", "Ogiltigt datumformat")
		}
		job.Due = due
		job.WillExpireAt = timeutil.WillExpireAt(due, now)
		logChange("due", oldDue, req.Due)
		dateChanged = true
	}

	languageChanged := false
	var oldLanguage string
	if req.FromLanguageID != 0 && req.FromLanguageID != job.FromLanguageID {
		oldLanguage, _ = s.Notifier.LanguageName(ctx, job.FromLanguageID)
		logChange("from_language_id",
			strconv.Itoa(job.FromLanguageID), strconv.Itoa(req.FromLanguageID))
		job.FromLanguageID = req.FromLanguageID
		languageChanged = true
	}

	var active *models.TranslatorJobRelation
	if rel, err := s.Relations.ActiveByJobID(ctx, jobID); err == nil {
		active = &rel
	}
	trChange, trChanged := detectTranslatorChange(active, req.TranslatorID)
	if trChanged {
		if err := s.applyTranslatorChange(ctx, jobID, trChange, now, logChange); err != nil {
			return nil, err
		}
	}

	outcome, err := s.changeStatus(ctx, &job, req, trChanged, customer)
	if err != nil {
		return nil, err
	}
	if outcome.Changed {
		logChange("status", outcome.OldStatus, job.Status)
	}

	// comments and reference are persisted regardless of whether the status
	// transition went through
	if req.AdminComments != "" && req.AdminComments != job.AdminComments {
		logChange("admin_comments", job.AdminComments, req.AdminComments)
		job.AdminComments = req.AdminComments
	}
	if req.SessionTime != "" && req.SessionTime != job.SessionTime {
		job.SessionTime = req.SessionTime
	}
	if req.Reference != "" && req.Reference != job.Reference {
		logChange("reference", job.Reference, req.Reference)
		job.Reference = req.Reference
	}
	if err := s.Jobs.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	// change notifications go out only when the session, at its (possibly just
	// moved) due time, is still ahead
	if job.Due.After(now) {
		if dateChanged {
			s.Notifier.JobChangedDate(ctx, job, customer, oldDue)
		}
		if trChanged {
			if translator, err := s.Users.GetUserByID(ctx, trChange.newID); err == nil {
				s.Notifier.JobChangedTranslator(ctx, job, customer, translator)
			}
		}
		if languageChanged {
			s.Notifier.JobChangedLanguage(ctx, job, customer, oldLanguage)
		}
	}
	return changed, nil
}

func (s *BookingService) applyTranslatorChange(ctx context.Context, jobID int, change translatorChange, now time.Time, logChange func(field, oldVal, newVal string)) error {
	oldVal := ""
	if change.oldRelation != nil {
		oldVal = fmt.Sprintf("%s (%s)", change.oldRelation.TranslatorName, change.oldRelation.TranslatorEmail)
		if err := s.Relations.CancelActive(ctx, jobID, now); err != nil {
			return err
		}
	}
	if _, err := s.Relations.Create(ctx, jobID, change.newID); err != nil {
		return err
	}
	newVal := strconv.Itoa(change.newID)
	if translator, err := s.Users.GetUserByID(ctx, change.newID); err == nil {
		newVal = fmt.Sprintf("%s (%s)", translator.Name, translator.Email)
	}
	logChange("translator", oldVal, newVal)
	return nil
}

// changeStatus routes the requested transition to the handler for the job's
// current status. Handlers mutate job.Status on success.
func (s *BookingService) changeStatus(ctx context.Context, job *models.Job, req models.JobUpdateRequest, trChanged bool, customer models.User) (StatusOutcome, error) {
	requested := req.Status
	if requested == "" || requested == job.Status {
		return StatusOutcome{}, nil
	}
	if !fsm.IsValid(requested) {
		return StatusOutcome{}, models.NewValidationError("status", "okänd status")
	}
	if !fsm.CanTransition(job.Status, requested) {
		return StatusOutcome{}, models.ErrInvalidTransition
	}

	switch job.Status {
	case fsm.StatusPending:
		return s.changeFromPending(ctx, job, requested, trChanged, customer)
	case fsm.StatusAssigned:
		return s.changeFromAssigned(ctx, job, requested, customer)
	case fsm.StatusStarted:
		return s.changeFromStarted(ctx, job, requested, req.SessionTime, customer)
	case fsm.StatusCompleted:
		return s.changeFromCompleted(ctx, job, requested, req.AdminComments)
	case fsm.StatusTimedOut:
		return s.changeFromTimedOut(ctx, job, requested, trChanged)
	case fsm.StatusWithdrawAfter24:
		return s.changeFromWithdrawAfter24(ctx, job, requested, req.AdminComments)
	default:
		return StatusOutcome{}, models.ErrInvalidTransition
	}
}

func (s *BookingService) apply(ctx context.Context, job *models.Job, to string) (StatusOutcome, error) {
	old := job.Status
	if err := s.Jobs.ChangeStatus(ctx, job.ID, old, to); err != nil {
		return StatusOutcome{}, err
	}
	job.Status = to
	return StatusOutcome{Changed: true, OldStatus: old}, nil
}

func (s *BookingService) changeFromPending(ctx context.Context, job *models.Job, requested string, trChanged bool, customer models.User) (StatusOutcome, error) {
	old := job.Status
	outcome, err := s.apply(ctx, job, requested)
	if err != nil {
		return StatusOutcome{}, err
	}
	if requested == fsm.StatusAssigned && trChanged {
		if rel, err := s.Relations.ActiveByJobID(ctx, job.ID); err == nil {
			if translator, err := s.Users.GetUserByID(ctx, rel.UserID); err == nil {
				s.Notifier.JobAccepted(ctx, *job, customer, translator)
			}
		}
	} else {
		s.Notifier.StatusChanged(ctx, *job, old, customer)
	}
	return outcome, nil
}

func (s *BookingService) changeFromAssigned(ctx context.Context, job *models.Job, requested string, customer models.User) (StatusOutcome, error) {
	old := job.Status
	outcome, err := s.apply(ctx, job, requested)
	if err != nil {
		return StatusOutcome{}, err
	}
	switch requested {
	case fsm.StatusWithdrawBefore24, fsm.StatusWithdrawAfter24:
		now := timeutil.Now()
		if err := s.Jobs.SetWithdrawAt(ctx, job.ID, now); err != nil {
			return StatusOutcome{}, err
		}
		var translator *models.User
		if rel, err := s.Relations.ActiveByJobID(ctx, job.ID); err == nil {
			if u, err := s.Users.GetUserByID(ctx, rel.UserID); err == nil {
				translator = &u
			}
			if err := s.Relations.CancelActive(ctx, job.ID, now); err != nil {
				return StatusOutcome{}, err
			}
		}
		s.Notifier.JobWithdrawn(ctx, *job, customer, translator)
	case fsm.StatusTimedOut:
		s.Notifier.StatusChanged(ctx, *job, old, customer)
	}
	return outcome, nil
}

func (s *BookingService) changeFromStarted(ctx context.Context, job *models.Job, requested, sessionTime string, customer models.User) (StatusOutcome, error) {
	if requested == fsm.StatusCompleted && strings.TrimSpace(sessionTime) == "" {
		// completion without a session time is silently skipped
		return StatusOutcome{}, nil
	}
	outcome, err := s.apply(ctx, job, requested)
	if err != nil {
		return StatusOutcome{}, err
	}
	now := timeutil.Now()
	if requested == fsm.StatusCompleted {
		if err := s.Jobs.SetSessionEnd(ctx, job.ID, sessionTime, now); err != nil {
			return StatusOutcome{}, err
		}
		job.SessionTime = sessionTime
		duration := sessionDurationText(sessionTime)
		s.Notifier.SessionEnded(ctx, *job, customer, "faktura", duration)
		if rel, err := s.Relations.ActiveByJobID(ctx, job.ID); err == nil {
			if translator, err := s.Users.GetUserByID(ctx, rel.UserID); err == nil {
				s.Notifier.SessionEnded(ctx, *job, translator, "lön", duration)
			}
			if err := s.Relations.Complete(ctx, job.ID, now, rel.UserID); err != nil {
				return StatusOutcome{}, err
			}
		}
	}
	return outcome, nil
}

func (s *BookingService) changeFromCompleted(ctx context.Context, job *models.Job, requested, adminComments string) (StatusOutcome, error) {
	// completed -> timedout is an audit correction and needs a reason
	if strings.TrimSpace(adminComments) == "" {
		return StatusOutcome{}, nil
	}
	return s.apply(ctx, job, requested)
}

func (s *BookingService) changeFromTimedOut(ctx context.Context, job *models.Job, requested string, trChanged bool) (StatusOutcome, error) {
	switch requested {
	case fsm.StatusPending:
		now := timeutil.Now()
		outcome, err := s.apply(ctx, job, requested)
		if err != nil {
			return StatusOutcome{}, err
		}
		if err := s.Jobs.ResetForReopen(ctx, job.ID, now, timeutil.WillExpireAt(job.Due, now)); err != nil {
			return StatusOutcome{}, err
		}
		s.notifyTranslators(ctx, *job)
		return outcome, nil
	case fsm.StatusAssigned:
		if !trChanged {
			return StatusOutcome{}, nil
		}
		return s.apply(ctx, job, requested)
	}
	return StatusOutcome{}, models.ErrInvalidTransition
}

func (s *BookingService) changeFromWithdrawAfter24(ctx context.Context, job *models.Job, requested, adminComments string) (StatusOutcome, error) {
	if requested == fsm.StatusTimedOut && strings.TrimSpace(adminComments) == "" {
		return StatusOutcome{}, nil
	}
	return s.apply(ctx, job, requested)
}

// sessionDurationText turns an "HH:MM:SS" session time into the human form
// used in the summary mails.
func sessionDurationText(sessionTime string) string {
	parts := strings.Split(sessionTime, ":")
	if len(parts) < 2 {
		return sessionTime
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return sessionTime
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return sessionTime
	}
	if h == 0 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%d tim %d min", h, m)
}
