package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
	"tolkBack/internal/timeutil"
)

// fakeStore backs both the jobs and the relations repository interfaces with
// in-memory state guarded by one mutex, so the accept CAS behaves like the
// conditional UPDATE it stands in for.
type fakeStore struct {
	mu        sync.Mutex
	jobs      map[int]models.Job
	rels      []models.TranslatorJobRelation
	logs      []models.JobChangeLog
	nextJobID int
	nextRelID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[int]models.Job{}, nextJobID: 1, nextRelID: 1}
}

func (f *fakeStore) putJob(job models.Job) models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.ID == 0 {
		job.ID = f.nextJobID
		f.nextJobID++
	} else if job.ID >= f.nextJobID {
		f.nextJobID = job.ID + 1
	}
	f.jobs[job.ID] = job
	return job
}

func (f *fakeStore) GetJobByID(ctx context.Context, id int) (models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return models.Job{}, models.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) GetJobDetail(ctx context.Context, id int) (models.Job, error) {
	return f.GetJobByID(ctx, id)
}

func (f *fakeStore) CreateJob(ctx context.Context, job models.Job) (models.Job, error) {
	return f.putJob(job), nil
}

// UpdateJob copies only the columns the real UPDATE statement writes, so a
// field dropped from the statement goes missing here too.
func (f *fakeStore) UpdateJob(ctx context.Context, job models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.jobs[job.ID]
	if !ok {
		return models.ErrJobNotFound
	}
	stored.FromLanguageID = job.FromLanguageID
	stored.Due = job.Due
	stored.WillExpireAt = job.WillExpireAt
	stored.Duration = job.Duration
	stored.Gender = job.Gender
	stored.Certified = job.Certified
	stored.Town = job.Town
	stored.Reference = job.Reference
	stored.AdminComments = job.AdminComments
	stored.SessionTime = job.SessionTime
	stored.Flagged = job.Flagged
	stored.ByAdmin = job.ByAdmin
	stored.ManuallyHandled = job.ManuallyHandled
	f.jobs[job.ID] = stored
	return nil
}

func (f *fakeStore) ChangeStatus(ctx context.Context, jobID int, fromStatus, toStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.Status != fromStatus {
		return models.ErrJobNotPending
	}
	job.Status = toStatus
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) AcceptJob(ctx context.Context, jobID, translatorID int, due time.Time, duration int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.Status != fsm.StatusPending {
		return models.ErrJobAlreadyTaken
	}
	job.Status = fsm.StatusAssigned
	f.jobs[jobID] = job
	f.rels = append(f.rels, models.TranslatorJobRelation{
		ID: f.nextRelID, UserID: translatorID, JobID: jobID, CreatedAt: time.Now(),
	})
	f.nextRelID++
	return nil
}

func (f *fakeStore) ResetForReopen(ctx context.Context, jobID int, now, willExpireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	job.EmailSent = false
	job.WillExpireAt = willExpireAt
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) ClonePending(ctx context.Context, src models.Job, now, willExpireAt time.Time) (models.Job, error) {
	clone := src
	clone.ID = 0
	clone.Status = fsm.StatusPending
	clone.EmailSent = false
	clone.CreatedAt = now
	clone.WillExpireAt = willExpireAt
	return f.putJob(clone), nil
}

func (f *fakeStore) SetSessionEnd(ctx context.Context, jobID int, sessionTime string, endAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[jobID]
	job.SessionTime = sessionTime
	job.EndAt = &endAt
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) SetWithdrawAt(ctx context.Context, jobID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[jobID]
	job.WithdrawAt = &at
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) SetEmailSent(ctx context.Context, jobID int, sent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[jobID]
	job.EmailSent = sent
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) InsertChangeLog(ctx context.Context, entry models.JobChangeLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeStore) JobsForCustomer(ctx context.Context, userID int) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeStore) JobsForTranslator(ctx context.Context, translatorID int) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := []models.Job{}
	for _, rel := range f.rels {
		if rel.UserID == translatorID && rel.CancelAt == nil && rel.CompletedAt == nil {
			if job, ok := f.jobs[rel.JobID]; ok {
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

func (f *fakeStore) AllJobsFiltered(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) HistoryForCustomer(ctx context.Context, userID, limit, offset int) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) HistoryForTranslator(ctx context.Context, translatorID, limit, offset int) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ActiveByJobID(ctx context.Context, jobID int) (models.TranslatorJobRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rel := range f.rels {
		if rel.JobID == jobID && rel.CancelAt == nil && rel.CompletedAt == nil {
			return rel, nil
		}
	}
	return models.TranslatorJobRelation{}, models.ErrRelationNotFound
}

func (f *fakeStore) Create(ctx context.Context, jobID, userID int) (models.TranslatorJobRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel := models.TranslatorJobRelation{ID: f.nextRelID, UserID: userID, JobID: jobID, CreatedAt: time.Now()}
	f.nextRelID++
	f.rels = append(f.rels, rel)
	return rel, nil
}

func (f *fakeStore) CreateCancelled(ctx context.Context, jobID, userID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rels = append(f.rels, models.TranslatorJobRelation{
		ID: f.nextRelID, UserID: userID, JobID: jobID, CancelAt: &at, CreatedAt: at,
	})
	f.nextRelID++
	return nil
}

func (f *fakeStore) CancelActive(ctx context.Context, jobID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rel := range f.rels {
		if rel.JobID == jobID && rel.CancelAt == nil && rel.CompletedAt == nil {
			cancelAt := at
			f.rels[i].CancelAt = &cancelAt
		}
	}
	return nil
}

func (f *fakeStore) Complete(ctx context.Context, jobID int, at time.Time, completedBy int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rel := range f.rels {
		if rel.JobID == jobID && rel.CancelAt == nil && rel.CompletedAt == nil {
			completedAt := at
			f.rels[i].CompletedAt = &completedAt
			f.rels[i].CompletedBy = &completedBy
		}
	}
	return nil
}

func (f *fakeStore) activeRelCount(jobID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rel := range f.rels {
		if rel.JobID == jobID && rel.CancelAt == nil && rel.CompletedAt == nil {
			count++
		}
	}
	return count
}

type fakeUsers struct {
	users map[int]models.User
	metas map[int]models.UserMeta
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, nil
}

func (f *fakeUsers) MetaByUserID(ctx context.Context, userID int) (models.UserMeta, error) {
	return f.metas[userID], nil
}

type fakeMatcher struct {
	translators []models.User
	jobs        []models.Job
}

func (f *fakeMatcher) PotentialTranslators(ctx context.Context, job models.Job) ([]models.User, error) {
	return f.translators, nil
}

func (f *fakeMatcher) PotentialJobs(ctx context.Context, translatorID int) ([]models.Job, error) {
	return f.jobs, nil
}

// fakeNotifier records which notifications fired, by name.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeNotifier) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeNotifier) FanOutNewJob(ctx context.Context, job models.Job, translators []models.User) {
	f.record("FanOutNewJob")
}
func (f *fakeNotifier) JobAccepted(ctx context.Context, job models.Job, customer, translator models.User) {
	f.record("JobAccepted")
}
func (f *fakeNotifier) StatusChanged(ctx context.Context, job models.Job, oldStatus string, customer models.User) {
	f.record("StatusChanged")
}
func (f *fakeNotifier) JobWithdrawn(ctx context.Context, job models.Job, customer models.User, translator *models.User) {
	f.record("JobWithdrawn")
}
func (f *fakeNotifier) TranslatorDropped(ctx context.Context, job models.Job, customer models.User) {
	f.record("TranslatorDropped")
}
func (f *fakeNotifier) SessionEnded(ctx context.Context, job models.Job, recipient models.User, forText, duration string) {
	f.record("SessionEnded " + forText)
}
func (f *fakeNotifier) JobChangedDate(ctx context.Context, job models.Job, customer models.User, oldDue string) {
	f.record("JobChangedDate")
}
func (f *fakeNotifier) JobChangedTranslator(ctx context.Context, job models.Job, customer models.User, newTranslator models.User) {
	f.record("JobChangedTranslator")
}
func (f *fakeNotifier) JobChangedLanguage(ctx context.Context, job models.Job, customer models.User, oldLanguage string) {
	f.record("JobChangedLanguage")
}
func (f *fakeNotifier) BookingReceived(ctx context.Context, job models.Job, customer models.User) {
	f.record("BookingReceived")
}
func (f *fakeNotifier) LanguageName(ctx context.Context, id int) (string, error) {
	return "arabiska", nil
}

type nopLogger struct{}

func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

func newTestService(store *fakeStore, users *fakeUsers, notifier *fakeNotifier) *BookingService {
	return &BookingService{
		Jobs:      store,
		Relations: store,
		Users:     users,
		Matcher:   &fakeMatcher{},
		Notifier:  notifier,
		Logger:    nopLogger{},
	}
}

func testUsers() *fakeUsers {
	return &fakeUsers{
		users: map[int]models.User{
			1: {ID: 1, UserType: models.RoleCustomer, Name: "Anna", Email: "anna@example.com"},
			5: {ID: 5, UserType: models.RoleTranslator, Name: "Omar", Email: "omar@example.com"},
			6: {ID: 6, UserType: models.RoleTranslator, Name: "Sara", Email: "sara@example.com"},
			9: {ID: 9, UserType: models.RoleAdmin, Name: "Admin", Email: "admin@example.com"},
		},
		metas: map[int]models.UserMeta{
			1: {UserID: 1, ConsumerType: "rwsconsumer", City: "Stockholm"},
		},
	}
}

func TestAcceptJobSingleWinner(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusPending,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, translatorID := range []int{5, 6} {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			_, results[i] = svc.AcceptJob(context.Background(), job.ID, id)
		}(i, translatorID)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrJobAlreadyTaken):
			losses++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("want exactly one winner and one loser, got %d wins, %d losses", wins, losses)
	}
	if store.activeRelCount(job.ID) != 1 {
		t.Fatalf("want exactly one active relation, got %d", store.activeRelCount(job.ID))
	}
}

func TestTranslatorCancelInside24Hours(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(5 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	_, err := svc.CancelJob(context.Background(), job.ID, 5)
	if !errors.Is(err, models.ErrCancellationClosed) {
		t.Fatalf("want ErrCancellationClosed, got %v", err)
	}

	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusAssigned {
		t.Errorf("status must stay assigned, got %s", after.Status)
	}
	if store.activeRelCount(job.ID) != 1 {
		t.Error("relation must stay active after a rejected cancellation")
	}
}

func TestTranslatorCancelOutside24Hours(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(72 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	status, err := svc.CancelJob(context.Background(), job.ID, 5)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if status != fsm.StatusPending {
		t.Errorf("job should return to pending, got %s", status)
	}
	if store.activeRelCount(job.ID) != 0 {
		t.Error("old relation must be cancelled")
	}
	if !notifier.called("TranslatorDropped") {
		t.Error("customer must be told the translator dropped")
	}
	if !notifier.called("FanOutNewJob") {
		t.Error("translators must be re-notified")
	}
}

func TestTranslatorCancelRequiresOwnRelation(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(72 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	// translator 6 holds no relation on this job
	_, err := svc.CancelJob(context.Background(), job.ID, 6)
	if !errors.Is(err, models.ErrRelationNotFound) {
		t.Fatalf("want ErrRelationNotFound, got %v", err)
	}

	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusAssigned {
		t.Errorf("status must stay assigned, got %s", after.Status)
	}
	if store.activeRelCount(job.ID) != 1 {
		t.Error("the assigned translator's relation must survive")
	}
	rel, _ := store.ActiveByJobID(context.Background(), job.ID)
	if rel.UserID != 5 {
		t.Errorf("active relation should still belong to translator 5, got %d", rel.UserID)
	}
}

func TestCustomerCancelOutside24Hours(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(72 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	status, err := svc.CancelJob(context.Background(), job.ID, 1)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if status != fsm.StatusWithdrawBefore24 {
		t.Errorf("want withdrawbefore24, got %s", status)
	}
	if store.activeRelCount(job.ID) != 0 {
		t.Error("relation must be cancelled, not kept active")
	}
	if !notifier.called("JobWithdrawn") {
		t.Error("both parties must get the withdrawal mail")
	}
}

func TestCompletedToTimedoutWithoutCommentIsNoOp(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{UserID: 1, Status: fsm.StatusCompleted, Due: timeutil.Now().Add(-time.Hour)})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	changed, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{Status: fsm.StatusTimedOut}, 9)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	for _, field := range changed {
		if field == "status" {
			t.Error("status must not change without an admin comment")
		}
	}

	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusCompleted {
		t.Errorf("status must stay completed, got %s", after.Status)
	}
}

func TestCompletedToTimedoutWithComment(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{UserID: 1, Status: fsm.StatusCompleted, Due: timeutil.Now().Add(-time.Hour)})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	_, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{Status: fsm.StatusTimedOut, AdminComments: "fel session, kunden ringde aldrig"}, 9)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusTimedOut {
		t.Errorf("want timedout, got %s", after.Status)
	}
	if after.AdminComments == "" {
		t.Error("admin comment must be persisted")
	}
}

func TestReopenTimedOutCreatesNewJob(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusTimedOut,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	reopened, err := svc.Reopen(context.Background(), job.ID, 9)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if reopened.ID == job.ID {
		t.Error("a timedout job must be reopened as a new record")
	}
	if reopened.Status != fsm.StatusPending {
		t.Errorf("reopened job must be pending, got %s", reopened.Status)
	}
	if store.activeRelCount(job.ID) != 0 {
		t.Error("prior relations on the original job must be cancelled")
	}

	// the audit placeholder names the admin who reopened
	var foundPlaceholder bool
	for _, rel := range store.rels {
		if rel.JobID == job.ID && rel.UserID == 9 && rel.CancelAt != nil {
			foundPlaceholder = true
		}
	}
	if !foundPlaceholder {
		t.Error("reopen must leave a cancelled placeholder relation for the acting user")
	}
}

func TestReopenWithdrawnInPlace(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusWithdrawBefore24,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	reopened, err := svc.Reopen(context.Background(), job.ID, 9)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if reopened.ID != job.ID {
		t.Error("a withdrawn job must be reopened in place")
	}
	if reopened.Status != fsm.StatusPending {
		t.Errorf("want pending, got %s", reopened.Status)
	}
}

func TestUpdateJobReassignTranslator(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	_, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{TranslatorID: 6}, 9)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	if store.activeRelCount(job.ID) != 1 {
		t.Fatalf("reassignment must leave exactly one active relation, got %d", store.activeRelCount(job.ID))
	}
	rel, err := store.ActiveByJobID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rel.UserID != 6 {
		t.Errorf("active relation should belong to translator 6, got %d", rel.UserID)
	}
	if !notifier.called("JobChangedTranslator") {
		t.Error("customer must be told about the new translator")
	}
}

func TestUpdateJobSameTranslatorIsNoChange(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	_, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{TranslatorID: 5}, 9)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if notifier.called("JobChangedTranslator") {
		t.Error("resubmitting the same translator must not count as a change")
	}
	rel, _ := store.ActiveByJobID(context.Background(), job.ID)
	if rel.ID != 1 {
		t.Error("the original relation must stay untouched")
	}
}

func TestUpdateJobRescheduleIntoFutureNotifies(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusPending,
		Due: timeutil.Now().Add(-2 * time.Hour), Duration: 60,
	})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	newDue := timeutil.InStockholm(timeutil.Now().Add(48 * time.Hour)).Format("2006-01-02 15:04:05")
	_, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{Due: newDue}, 9)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if !notifier.called("JobChangedDate") {
		t.Error("moving a booking to a future due must notify the date change")
	}
}

func TestUpdateJobDuePersistsRecomputedExpiry(t *testing.T) {
	store := newFakeStore()
	now := timeutil.Now()
	job := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusPending,
		Due: now.Add(4 * time.Hour), Duration: 60,
		CreatedAt: now, WillExpireAt: now.Add(90 * time.Minute),
	})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	newDueStr := timeutil.InStockholm(now.Add(30 * 24 * time.Hour)).Format("2006-01-02 15:04:05")
	newDue, err := time.ParseInLocation("2006-01-02 15:04:05", newDueStr, timeutil.Location())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateJob(context.Background(), job.ID,
		models.JobUpdateRequest{Due: newDueStr}, 9); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	after, _ := store.GetJobByID(context.Background(), job.ID)
	if !after.Due.Equal(newDue) {
		t.Errorf("due must be persisted, got %v want %v", after.Due, newDue)
	}
	// a month out the expiry sits 48 hours before the session
	want := newDue.Add(-48 * time.Hour)
	if !after.WillExpireAt.Equal(want) {
		t.Errorf("will_expire_at must follow the new due, got %v want %v", after.WillExpireAt, want)
	}
}

func TestJobsForTranslatorIncludesOpenJobs(t *testing.T) {
	store := newFakeStore()
	assigned := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusAssigned,
		Due: timeutil.Now().Add(24 * time.Hour), Duration: 60,
	})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: assigned.ID})
	open := store.putJob(models.Job{
		UserID: 1, Status: fsm.StatusPending,
		Due: timeutil.Now().Add(48 * time.Hour), Duration: 60,
	})
	svc := newTestService(store, testUsers(), &fakeNotifier{})
	svc.Matcher = &fakeMatcher{jobs: []models.Job{open}}

	jobs, err := svc.JobsForUser(context.Background(), 5)
	if err != nil {
		t.Fatalf("JobsForUser: %v", err)
	}
	var gotAssigned, gotOpen bool
	for _, j := range jobs {
		if j.ID == assigned.ID {
			gotAssigned = true
		}
		if j.ID == open.ID {
			gotOpen = true
		}
	}
	if !gotAssigned {
		t.Error("translator list must contain the accepted assignment")
	}
	if !gotOpen {
		t.Error("translator list must contain the eligible pending job")
	}
}

func TestStoreImmediateJob(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	job, err := svc.Store(context.Background(), models.CreateJobRequest{
		UserID:         1,
		FromLanguageID: 4,
		Immediate:      models.YesFlag,
		Duration:       30,
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if job.Status != fsm.StatusPending {
		t.Errorf("new job must be pending, got %s", job.Status)
	}
	if job.CustomerPhoneType != models.YesFlag {
		t.Error("immediate jobs are always phone jobs")
	}
	if job.JobType != models.JobTypeRWS {
		t.Errorf("rwsconsumer customer must yield an rws job, got %s", job.JobType)
	}
	// lead time under 90 minutes, so the expiry is the due time itself
	if !job.WillExpireAt.Equal(job.Due) {
		t.Errorf("immediate job should expire at due, got %v for due %v", job.WillExpireAt, job.Due)
	}
	if !notifier.called("BookingReceived") {
		t.Error("customer must get the booking confirmation")
	}
	if !notifier.called("FanOutNewJob") {
		t.Error("translators must be notified")
	}
}

func TestStoreRejectsPastDue(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	past := timeutil.Now().Add(-2 * time.Hour).Format("2006-01-02 15:04:05")
	_, err := svc.Store(context.Background(), models.CreateJobRequest{
		UserID: 1, FromLanguageID: 4, Due: past, Duration: 60,
	})
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.FieldName != "due_date" {
		t.Errorf("want field due_date, got %s", ve.FieldName)
	}
}

func TestEndJobRequiresSessionTime(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{UserID: 1, Status: fsm.StatusStarted, Due: timeutil.Now().Add(-time.Hour)})
	svc := newTestService(store, testUsers(), &fakeNotifier{})

	if err := svc.EndJob(context.Background(), job.ID, "", 5); !errors.Is(err, models.ErrSessionTimeRequired) {
		t.Fatalf("want ErrSessionTimeRequired, got %v", err)
	}
	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusStarted {
		t.Error("status must not change without a session time")
	}
}

func TestEndJobMailsBothParties(t *testing.T) {
	store := newFakeStore()
	job := store.putJob(models.Job{UserID: 1, Status: fsm.StatusStarted, Due: timeutil.Now().Add(-time.Hour)})
	store.rels = append(store.rels, models.TranslatorJobRelation{ID: 1, UserID: 5, JobID: job.ID})
	notifier := &fakeNotifier{}
	svc := newTestService(store, testUsers(), notifier)

	if err := svc.EndJob(context.Background(), job.ID, "01:30:00", 5); err != nil {
		t.Fatalf("EndJob: %v", err)
	}
	after, _ := store.GetJobByID(context.Background(), job.ID)
	if after.Status != fsm.StatusCompleted {
		t.Errorf("want completed, got %s", after.Status)
	}
	if !notifier.called("SessionEnded faktura") {
		t.Error("customer must get the invoice summary")
	}
	if !notifier.called("SessionEnded lön") {
		t.Error("translator must get the payroll summary")
	}
	if store.activeRelCount(job.ID) != 0 {
		t.Error("relation must be completed")
	}
}

func TestSessionDurationText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"01:30:00", "1 tim 30 min"},
		{"00:45:00", "45 min"},
		{"02:05:00", "2 tim 5 min"},
		{"garbage", "garbage"},
	}
	for _, c := range cases {
		if got := sessionDurationText(c.in); got != c.want {
			t.Errorf("sessionDurationText(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}
