package services

import (
	"context"
	"strings"
	"time"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
	"tolkBack/internal/timeutil"
)

// MsgCancelViaPhone is the fixed message translators get when trying to cancel
// inside the 24 hour window.
const MsgCancelViaPhone = "Du kan inte avboka en bokning som sker inom 24 timmar via webben. Vänligen ring kundtjänst på +46 10 123 45 67 och gör din avbokning över telefonen. Tack!"

const immediateLeadTime = 5 * time.Minute

// Logger is a minimal logger interface required by the booking service.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type JobsRepository interface {
	GetJobByID(ctx context.Context, id int) (models.Job, error)
	GetJobDetail(ctx context.Context, id int) (models.Job, error)
	CreateJob(ctx context.Context, job models.Job) (models.Job, error)
	UpdateJob(ctx context.Context, job models.Job) error
	ChangeStatus(ctx context.Context, jobID int, fromStatus, toStatus string) error
	AcceptJob(ctx context.Context, jobID, translatorID int, due time.Time, duration int) error
	ResetForReopen(ctx context.Context, jobID int, now, willExpireAt time.Time) error
	ClonePending(ctx context.Context, src models.Job, now, willExpireAt time.Time) (models.Job, error)
	SetSessionEnd(ctx context.Context, jobID int, sessionTime string, endAt time.Time) error
	SetWithdrawAt(ctx context.Context, jobID int, at time.Time) error
	SetEmailSent(ctx context.Context, jobID int, sent bool) error
	InsertChangeLog(ctx context.Context, entry models.JobChangeLog) error
	JobsForCustomer(ctx context.Context, userID int) ([]models.Job, error)
	JobsForTranslator(ctx context.Context, translatorID int) ([]models.Job, error)
	AllJobsFiltered(ctx context.Context, f models.JobFilter) ([]models.Job, int, error)
	HistoryForCustomer(ctx context.Context, userID, limit, offset int) ([]models.Job, int, error)
	HistoryForTranslator(ctx context.Context, translatorID, limit, offset int) ([]models.Job, int, error)
}

type RelationsRepository interface {
	ActiveByJobID(ctx context.Context, jobID int) (models.TranslatorJobRelation, error)
	Create(ctx context.Context, jobID, userID int) (models.TranslatorJobRelation, error)
	CreateCancelled(ctx context.Context, jobID, userID int, at time.Time) error
	CancelActive(ctx context.Context, jobID int, at time.Time) error
	Complete(ctx context.Context, jobID int, at time.Time, completedBy int) error
}

type UsersRepository interface {
	GetUserByID(ctx context.Context, id int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	MetaByUserID(ctx context.Context, userID int) (models.UserMeta, error)
}

// TranslatorMatcher runs both sides of the matching: candidate translators
// for a job, and open jobs for a translator.
type TranslatorMatcher interface {
	PotentialTranslators(ctx context.Context, job models.Job) ([]models.User, error)
	PotentialJobs(ctx context.Context, translatorID int) ([]models.Job, error)
}

// BookingNotifier is the side-effect channel of the lifecycle manager.
type BookingNotifier interface {
	FanOutNewJob(ctx context.Context, job models.Job, translators []models.User)
	JobAccepted(ctx context.Context, job models.Job, customer, translator models.User)
	StatusChanged(ctx context.Context, job models.Job, oldStatus string, customer models.User)
	JobWithdrawn(ctx context.Context, job models.Job, customer models.User, translator *models.User)
	TranslatorDropped(ctx context.Context, job models.Job, customer models.User)
	SessionEnded(ctx context.Context, job models.Job, recipient models.User, forText, duration string)
	JobChangedDate(ctx context.Context, job models.Job, customer models.User, oldDue string)
	JobChangedTranslator(ctx context.Context, job models.Job, customer models.User, newTranslator models.User)
	JobChangedLanguage(ctx context.Context, job models.Job, customer models.User, oldLanguage string)
	BookingReceived(ctx context.Context, job models.Job, customer models.User)
	LanguageName(ctx context.Context, id int) (string, error)
}

// OfferBroadcaster pushes fresh jobs to translators connected over WebSocket.
type OfferBroadcaster interface {
	OfferJob(translatorID int, job models.Job)
}

// BookingService owns the job lifecycle: creation, accept, cancel, end,
// reopen and the admin update path with its per-status transition handlers.
type BookingService struct {
	Jobs      JobsRepository
	Relations RelationsRepository
	Users     UsersRepository
	Matcher   TranslatorMatcher
	Notifier  BookingNotifier
	Offers    OfferBroadcaster
	Logger    Logger
}

// Store creates a booking from a customer request. Business validation
// failures come back as *models.ValidationError, not as transport errors.
func (s *BookingService) Store(ctx context.Context, req models.CreateJobRequest) (models.Job, error) {
	customer, err := s.Users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return models.Job{}, err
	}
	if customer.UserType != models.RoleCustomer {
		return models.Job{}, models.NewValidationError("user_id", "Translator can not create booking")
	}
	meta, err := s.Users.MetaByUserID(ctx, req.UserID)
	if err != nil {
		return models.Job{}, err
	}

	if req.FromLanguageID == 0 {
		return models.Job{}, models.NewValidationError("from_language_id", "Du måste fylla i alla fält")
	}

	now := timeutil.Now()
	var due time.Time
	if req.Immediate == models.YesFlag {
		due = now.Add(immediateLeadTime)
		req.CustomerPhoneType = models.YesFlag
	} else {
		if req.Due == "" {
			return models.Job{}, models.NewValidationError("due_date", "Du måste fylla i alla fält")
		}
		due, err = time.ParseInLocation("2006-01-02 15:04:05", req.Due, timeutil.Location())
		if err != nil {
			return models.Job{}, models.NewValidationError("due_date", "Ogiltigt datumformat")
		}
		if !due.After(now) {
			return models.Job{}, models.NewValidationError("due_date", "Can't create booking in the past")
		}
	}
	if req.Duration <= 0 {
		return models.Job{}, models.NewValidationError("duration", "Du måste fylla i alla fält")
	}

	// job_type is derived from the customer's consumer type exactly once,
	// at creation.
	jobType := models.JobTypePaid
	switch meta.ConsumerType {
	case "rwsconsumer":
		jobType = models.JobTypeRWS
	case "ngo":
		jobType = models.JobTypeUnpaid
	}

	job := models.Job{
		UserID:               customer.ID,
		FromLanguageID:       req.FromLanguageID,
		Due:                  due,
		Duration:             req.Duration,
		Immediate:            flagOr(req.Immediate, models.NoFlag),
		Status:               fsm.StatusPending,
		Gender:               optional(req.Gender),
		Certified:            optional(req.Certified),
		JobType:              jobType,
		CustomerPhoneType:    flagOr(req.CustomerPhoneType, models.NoFlag),
		CustomerPhysicalType: flagOr(req.CustomerPhysicalType, models.NoFlag),
		Town:                 townOr(req.Town, meta.City),
		CustomerEmail:        customer.Email,
		Reference:            req.Reference,
		Flagged:              models.NoFlag,
		ByAdmin:              flagOr(req.ByAdmin, models.NoFlag),
		ManuallyHandled:      models.NoFlag,
		CreatedAt:            now,
		WillExpireAt:         timeutil.WillExpireAt(due, now),
	}

	job, err = s.Jobs.CreateJob(ctx, job)
	if err != nil {
		return models.Job{}, err
	}
	s.Logger.Infof("booking: job %d created by customer %d (type %s)", job.ID, customer.ID, jobType)

	s.Notifier.BookingReceived(ctx, job, customer)
	s.notifyTranslators(ctx, job)

	return job, nil
}

// notifyTranslators runs a fresh matching round and fans the job out.
func (s *BookingService) notifyTranslators(ctx context.Context, job models.Job) {
	translators, err := s.Matcher.PotentialTranslators(ctx, job)
	if err != nil {
		s.Logger.Errorf("booking: matching for job %d failed: %v", job.ID, err)
		return
	}
	s.Notifier.FanOutNewJob(ctx, job, translators)
	if s.Offers != nil {
		for _, tr := range translators {
			s.Offers.OfferJob(tr.ID, job)
		}
	}
	if err := s.Jobs.SetEmailSent(ctx, job.ID, true); err != nil {
		s.Logger.Errorf("booking: marking job %d notified failed: %v", job.ID, err)
	}
}

// AcceptJob assigns a pending job to a translator. The repository runs the
// overlap check and the pending->assigned swap atomically, so two racing
// translators produce exactly one assignment.
func (s *BookingService) AcceptJob(ctx context.Context, jobID, translatorID int) (models.Job, error) {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	now := timeutil.Now()
	if !job.Due.After(now) {
		return models.Job{}, models.ErrJobAlreadyTaken
	}

	if err := s.Jobs.AcceptJob(ctx, jobID, translatorID, job.Due, job.Duration); err != nil {
		return models.Job{}, err
	}
	s.Logger.Infof("booking: job %d accepted by translator %d", jobID, translatorID)

	customer, err := s.Users.GetUserByID(ctx, job.UserID)
	if err != nil {
		s.Logger.Errorf("booking: customer lookup for job %d failed: %v", jobID, err)
	}
	translator, err := s.Users.GetUserByID(ctx, translatorID)
	if err != nil {
		s.Logger.Errorf("booking: translator lookup for job %d failed: %v", jobID, err)
	}
	job.Status = fsm.StatusAssigned
	s.Notifier.JobAccepted(ctx, job, customer, translator)

	return s.Jobs.GetJobDetail(ctx, jobID)
}

// CancelJob handles both cancellation sides. The returned status is the job's
// new status on success.
func (s *BookingService) CancelJob(ctx context.Context, jobID, actorID int) (string, error) {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	actor, err := s.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return "", err
	}
	now := timeutil.Now()

	if actor.ID == job.UserID || actor.UserType == models.RoleAdmin || actor.UserType == models.RoleSuperAdmin {
		return s.cancelByCustomer(ctx, job, now)
	}
	return s.cancelByTranslator(ctx, job, actor, now)
}

func (s *BookingService) cancelByCustomer(ctx context.Context, job models.Job, now time.Time) (string, error) {
	target := fsm.StatusWithdrawAfter24
	if job.Due.Sub(now) > 24*time.Hour {
		target = fsm.StatusWithdrawBefore24
	}
	// TODO: withdrawafter24 should carry a cancellation charge once the
	// billing rule is decided; both branches are identical until then.
	if !fsm.CanTransition(job.Status, target) {
		return "", models.ErrInvalidTransition
	}
	if err := s.Jobs.ChangeStatus(ctx, job.ID, job.Status, target); err != nil {
		return "", err
	}
	if err := s.Jobs.SetWithdrawAt(ctx, job.ID, now); err != nil {
		return "", err
	}

	var translator *models.User
	if rel, err := s.Relations.ActiveByJobID(ctx, job.ID); err == nil {
		if u, err := s.Users.GetUserByID(ctx, rel.UserID); err == nil {
			translator = &u
		}
		if err := s.Relations.CancelActive(ctx, job.ID, now); err != nil {
			return "", err
		}
	}

	customer, err := s.Users.GetUserByID(ctx, job.UserID)
	if err != nil {
		s.Logger.Errorf("booking: customer lookup for job %d failed: %v", job.ID, err)
	}
	job.Status = target
	s.Notifier.JobWithdrawn(ctx, job, customer, translator)
	s.Logger.Infof("booking: job %d withdrawn by customer (%s)", job.ID, target)
	return target, nil
}

func (s *BookingService) cancelByTranslator(ctx context.Context, job models.Job, actor models.User, now time.Time) (string, error) {
	// only the translator holding the active assignment may drop it
	rel, err := s.Relations.ActiveByJobID(ctx, job.ID)
	if err != nil {
		return "", models.ErrRelationNotFound
	}
	if rel.UserID != actor.ID {
		return "", models.ErrRelationNotFound
	}
	if job.Due.Sub(now) <= 24*time.Hour {
		return "", models.ErrCancellationClosed
	}
	if !fsm.CanTransition(job.Status, fsm.StatusPending) {
		return "", models.ErrInvalidTransition
	}

	// cancel, never delete: the dropped assignment stays in the audit trail
	if err := s.Relations.CancelActive(ctx, job.ID, now); err != nil {
		return "", err
	}
	if err := s.Jobs.ChangeStatus(ctx, job.ID, job.Status, fsm.StatusPending); err != nil {
		return "", err
	}
	if err := s.Jobs.SetEmailSent(ctx, job.ID, false); err != nil {
		return "", err
	}
	s.Logger.Infof("booking: translator %d dropped job %d, searching again", actor.ID, job.ID)

	customer, err := s.Users.GetUserByID(ctx, job.UserID)
	if err == nil {
		job.Status = fsm.StatusPending
		s.Notifier.TranslatorDropped(ctx, job, customer)
	}
	s.notifyTranslators(ctx, job)
	return fsm.StatusPending, nil
}

// EndJob completes a started session and mails the invoice/payroll summaries.
func (s *BookingService) EndJob(ctx context.Context, jobID int, sessionTime string, completedByID int) error {
	if strings.TrimSpace(sessionTime) == "" {
		return models.ErrSessionTimeRequired
	}
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !fsm.CanTransition(job.Status, fsm.StatusCompleted) {
		return models.ErrInvalidTransition
	}
	if err := s.Jobs.ChangeStatus(ctx, jobID, job.Status, fsm.StatusCompleted); err != nil {
		return err
	}

	now := timeutil.Now()
	if err := s.Jobs.SetSessionEnd(ctx, jobID, sessionTime, now); err != nil {
		return err
	}

	duration := sessionDurationText(sessionTime)
	job.Status = fsm.StatusCompleted
	job.SessionTime = sessionTime

	if customer, err := s.Users.GetUserByID(ctx, job.UserID); err == nil {
		s.Notifier.SessionEnded(ctx, job, customer, "faktura", duration)
	}
	if rel, err := s.Relations.ActiveByJobID(ctx, jobID); err == nil {
		if translator, err := s.Users.GetUserByID(ctx, rel.UserID); err == nil {
			s.Notifier.SessionEnded(ctx, job, translator, "lön", duration)
		}
		if err := s.Relations.Complete(ctx, jobID, now, completedByID); err != nil {
			return err
		}
	}
	s.Logger.Infof("booking: job %d completed, session time %s", jobID, sessionTime)
	return nil
}

// CustomerNotCall closes a session the customer never showed up for.
func (s *BookingService) CustomerNotCall(ctx context.Context, jobID, actorID int) error {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !fsm.CanTransition(job.Status, fsm.StatusNotCarriedOutCustomer) {
		return models.ErrInvalidTransition
	}
	if err := s.Jobs.ChangeStatus(ctx, jobID, job.Status, fsm.StatusNotCarriedOutCustomer); err != nil {
		return err
	}
	now := timeutil.Now()
	if err := s.Jobs.SetSessionEnd(ctx, jobID, job.SessionTime, now); err != nil {
		return err
	}
	if err := s.Relations.Complete(ctx, jobID, now, actorID); err != nil {
		return err
	}
	s.Logger.Infof("booking: job %d closed as not carried out by customer", jobID)
	return nil
}

// Reopen turns a cancelled or timed-out booking back into a pending one. A
// timed-out job is cloned into a brand-new record so its history stays intact;
// everything else is rewound in place.
func (s *BookingService) Reopen(ctx context.Context, jobID, actorID int) (models.Job, error) {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	now := timeutil.Now()
	willExpire := timeutil.WillExpireAt(job.Due, now)

	if err := s.Relations.CancelActive(ctx, jobID, now); err != nil {
		return models.Job{}, err
	}
	// placeholder relation marking who reopened the booking
	if err := s.Relations.CreateCancelled(ctx, jobID, actorID, now); err != nil {
		return models.Job{}, err
	}

	var reopened models.Job
	if job.Status == fsm.StatusTimedOut {
		reopened, err = s.Jobs.ClonePending(ctx, job, now, willExpire)
		if err != nil {
			return models.Job{}, err
		}
		s.Logger.Infof("booking: job %d reopened as new job %d", jobID, reopened.ID)
	} else {
		if !fsm.CanTransition(job.Status, fsm.StatusPending) {
			return models.Job{}, models.ErrInvalidTransition
		}
		if err := s.Jobs.ChangeStatus(ctx, jobID, job.Status, fsm.StatusPending); err != nil {
			return models.Job{}, err
		}
		if err := s.Jobs.ResetForReopen(ctx, jobID, now, willExpire); err != nil {
			return models.Job{}, err
		}
		reopened, err = s.Jobs.GetJobByID(ctx, jobID)
		if err != nil {
			return models.Job{}, err
		}
		s.Logger.Infof("booking: job %d reopened in place", jobID)
	}

	s.notifyTranslators(ctx, reopened)
	return reopened, nil
}

// StoreJobEmail is the guest flow: adjust contact data on a fresh booking and
// confirm it by mail.
func (s *BookingService) StoreJobEmail(ctx context.Context, jobID int, userEmail, reference string) (models.Job, error) {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return models.Job{}, err
	}
	if userEmail != "" {
		job.CustomerEmail = userEmail
	}
	if reference != "" {
		job.Reference = reference
	}
	if err := s.Jobs.UpdateJob(ctx, job); err != nil {
		return models.Job{}, err
	}

	customer, err := s.Users.GetUserByID(ctx, job.UserID)
	if err != nil {
		return models.Job{}, err
	}
	if job.CustomerEmail != "" {
		customer.Email = job.CustomerEmail
	}
	s.Notifier.BookingReceived(ctx, job, customer)
	return job, nil
}

// ResendNotifications re-runs the translator fan-out for a job.
func (s *BookingService) ResendNotifications(ctx context.Context, jobID int) error {
	job, err := s.Jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	s.notifyTranslators(ctx, job)
	return nil
}

// JobsForUser lists active jobs for a customer or translator dashboard. A
// translator sees their accepted assignments followed by the pending jobs
// they are eligible to take.
func (s *BookingService) JobsForUser(ctx context.Context, userID int) ([]models.Job, error) {
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.UserType == models.RoleTranslator {
		assigned, err := s.Jobs.JobsForTranslator(ctx, userID)
		if err != nil {
			return nil, err
		}
		open, err := s.Matcher.PotentialJobs(ctx, userID)
		if err != nil {
			return nil, err
		}
		return append(assigned, open...), nil
	}
	return s.Jobs.JobsForCustomer(ctx, userID)
}

// History returns the paginated finished-jobs view: customers see everything,
// translators only what they completed.
func (s *BookingService) History(ctx context.Context, userID, page int) ([]models.Job, int, int, error) {
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	const perPage = 15
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	var jobs []models.Job
	var total int
	if user.UserType == models.RoleTranslator {
		jobs, total, err = s.Jobs.HistoryForTranslator(ctx, userID, perPage, offset)
	} else {
		jobs, total, err = s.Jobs.HistoryForCustomer(ctx, userID, perPage, offset)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	numPages := (total + perPage - 1) / perPage
	return jobs, total, numPages, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func flagOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func townOr(town, city string) string {
	if town != "" {
		return town
	}
	return city
}
