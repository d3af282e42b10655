package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
)

type JobRepository struct {
	DB *sql.DB
}

const jobColumns = `j.id, j.user_id, j.from_language_id, j.due, j.duration, j.immediate, j.status,
       j.gender, j.certified, j.job_type, j.customer_phone_type, j.customer_physical_type,
       j.town, j.customer_email, j.reference, j.admin_comments, j.flagged, j.session_time,
       j.by_admin, j.manually_handled, j.specific_job, j.emailsent,
       j.created_at, j.will_expire_at, j.end_at, j.withdraw_at`

func scanJob(row interface{ Scan(...interface{}) error }) (models.Job, error) {
	var j models.Job
	var adminComments, reference, sessionTime sql.NullString
	err := row.Scan(
		&j.ID, &j.UserID, &j.FromLanguageID, &j.Due, &j.Duration, &j.Immediate, &j.Status,
		&j.Gender, &j.Certified, &j.JobType, &j.CustomerPhoneType, &j.CustomerPhysicalType,
		&j.Town, &j.CustomerEmail, &reference, &adminComments, &j.Flagged, &sessionTime,
		&j.ByAdmin, &j.ManuallyHandled, &j.SpecificJob, &j.EmailSent,
		&j.CreatedAt, &j.WillExpireAt, &j.EndAt, &j.WithdrawAt,
	)
	if err != nil {
		return models.Job{}, err
	}
	j.Reference = reference.String
	j.AdminComments = adminComments.String
	j.SessionTime = sessionTime.String
	return j, nil
}

func (r *JobRepository) CreateJob(ctx context.Context, job models.Job) (models.Job, error) {
	query := `
INSERT INTO jobs (user_id, from_language_id, due, duration, immediate, status, gender, certified,
                  job_type, customer_phone_type, customer_physical_type, town, customer_email,
                  reference, admin_comments, flagged, by_admin, manually_handled, specific_job,
                  emailsent, created_at, will_expire_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.DB.ExecContext(ctx, query,
		job.UserID, job.FromLanguageID, job.Due, job.Duration, job.Immediate, job.Status,
		job.Gender, job.Certified, job.JobType, job.CustomerPhoneType, job.CustomerPhysicalType,
		job.Town, job.CustomerEmail, job.Reference, job.AdminComments, job.Flagged,
		job.ByAdmin, job.ManuallyHandled, job.SpecificJob, job.EmailSent,
		job.CreatedAt, job.WillExpireAt,
	)
	if err != nil {
		return models.Job{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.Job{}, err
	}
	job.ID = int(id)
	return job, nil
}

func (r *JobRepository) GetJobByID(ctx context.Context, id int) (models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.id = ?`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, models.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// GetJobDetail eager-loads the active translator relation and the language name.
func (r *JobRepository) GetJobDetail(ctx context.Context, id int) (models.Job, error) {
	job, err := r.GetJobByID(ctx, id)
	if err != nil {
		return models.Job{}, err
	}

	if err := r.DB.QueryRowContext(ctx,
		`SELECT language FROM languages WHERE id = ?`, job.FromLanguageID,
	).Scan(&job.LanguageName); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, err
	}

	var rel models.TranslatorJobRelation
	err = r.DB.QueryRowContext(ctx, `
SELECT t.id, t.user_id, t.job_id, t.cancel_at, t.completed_at, t.completed_by, t.created_at,
       u.name, u.email
FROM translator_job_rel t
JOIN users u ON u.id = t.user_id
WHERE t.job_id = ? AND t.cancel_at IS NULL AND t.completed_at IS NULL
	`, id).Scan(&rel.ID, &rel.UserID, &rel.JobID, &rel.CancelAt, &rel.CompletedAt, &rel.CompletedBy,
		&rel.CreatedAt, &rel.TranslatorName, &rel.TranslatorEmail)
	if err == nil {
		job.Translator = &rel
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, err
	}

	var dist models.Distance
	err = r.DB.QueryRowContext(ctx,
		`SELECT job_id, distance, time FROM distances WHERE job_id = ?`, id,
	).Scan(&dist.JobID, &dist.Distance, &dist.Time)
	if err == nil {
		job.Distance = &dist
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, err
	}

	return job, nil
}

func (r *JobRepository) UpdateJob(ctx context.Context, job models.Job) error {
	query := `
UPDATE jobs
SET from_language_id = ?, due = ?, will_expire_at = ?, duration = ?, gender = ?, certified = ?,
    town = ?, reference = ?, admin_comments = ?, session_time = ?,
    flagged = ?, by_admin = ?, manually_handled = ?
WHERE id = ?
	`
	_, err := r.DB.ExecContext(ctx, query,
		job.FromLanguageID, job.Due, job.WillExpireAt, job.Duration, job.Gender, job.Certified,
		job.Town, job.Reference, job.AdminComments, job.SessionTime,
		job.Flagged, job.ByAdmin, job.ManuallyHandled, job.ID,
	)
	return err
}

// ChangeStatus performs the compare-and-swap transition inside a transaction.
// A concurrent writer that already moved the job away from fromStatus makes the
// update match zero rows, which surfaces as ErrJobNotPending.
func (r *JobRepository) ChangeStatus(ctx context.Context, jobID int, fromStatus, toStatus string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fsm.Apply(ctx, tx, jobID, fromStatus, toStatus); err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrJobNotPending
		}
		return err
	}
	return tx.Commit()
}

// AcceptJob is the guarded accept path: overlap check plus CAS pending->assigned
// plus relation insert, all in one transaction. Exactly one of two racing
// translators wins; the loser gets ErrJobAlreadyTaken.
func (r *JobRepository) AcceptJob(ctx context.Context, jobID, translatorID int, due time.Time, duration int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var overlapping int
	err = tx.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM translator_job_rel t
JOIN jobs j ON j.id = t.job_id
WHERE t.user_id = ? AND t.cancel_at IS NULL AND t.completed_at IS NULL
  AND j.due < ? AND DATE_ADD(j.due, INTERVAL j.duration MINUTE) > ?
	`, translatorID, due.Add(time.Duration(duration)*time.Minute), due).Scan(&overlapping)
	if err != nil {
		tx.Rollback()
		return err
	}
	if overlapping > 0 {
		tx.Rollback()
		return models.ErrTranslatorBooked
	}

	if err := fsm.Apply(ctx, tx, jobID, fsm.StatusPending, fsm.StatusAssigned); err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrJobAlreadyTaken
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO translator_job_rel (user_id, job_id, created_at) VALUES (?, ?, NOW())`,
		translatorID, jobID,
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ResetForReopen rewinds a job to a freshly created pending booking.
func (r *JobRepository) ResetForReopen(ctx context.Context, jobID int, now, willExpireAt time.Time) error {
	query := `
UPDATE jobs
SET status = ?, created_at = ?, will_expire_at = ?, emailsent = 0, end_at = NULL, withdraw_at = NULL, admin_comments = ?
WHERE id = ?
	`
	_, err := r.DB.ExecContext(ctx, query, fsm.StatusPending, now, willExpireAt, "", jobID)
	return err
}

// ClonePending copies a job into a brand-new pending record. Used when
// reopening a timed-out booking, which must keep its history untouched.
func (r *JobRepository) ClonePending(ctx context.Context, src models.Job, now, willExpireAt time.Time) (models.Job, error) {
	clone := src
	clone.Status = fsm.StatusPending
	clone.AdminComments = ""
	clone.SessionTime = ""
	clone.EmailSent = false
	clone.CreatedAt = now
	clone.WillExpireAt = willExpireAt
	clone.EndAt = nil
	clone.WithdrawAt = nil
	return r.CreateJob(ctx, clone)
}

func (r *JobRepository) SetSessionEnd(ctx context.Context, jobID int, sessionTime string, endAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE jobs SET session_time = ?, end_at = ? WHERE id = ?`,
		sessionTime, endAt, jobID,
	)
	return err
}

func (r *JobRepository) SetWithdrawAt(ctx context.Context, jobID int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE jobs SET withdraw_at = ? WHERE id = ?`, at, jobID)
	return err
}

func (r *JobRepository) SetEmailSent(ctx context.Context, jobID int, sent bool) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE jobs SET emailsent = ? WHERE id = ?`, sent, jobID)
	return err
}

// UpdateAdminFields serves the distance-feed admin form.
func (r *JobRepository) UpdateAdminFields(ctx context.Context, jobID int, sessionTime, adminComments, flagged, manuallyHandled, byAdmin string) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE jobs
SET session_time = ?, admin_comments = ?, flagged = ?, manually_handled = ?, by_admin = ?
WHERE id = ?
	`, sessionTime, adminComments, flagged, manuallyHandled, byAdmin, jobID)
	return err
}

func (r *JobRepository) JobsForCustomer(ctx context.Context, userID int) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.user_id = ? AND j.status IN (?, ?, ?) ORDER BY j.due ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID, fsm.StatusPending, fsm.StatusAssigned, fsm.StatusStarted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *JobRepository) JobsForTranslator(ctx context.Context, translatorID int) ([]models.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs j
JOIN translator_job_rel t ON t.job_id = j.id
WHERE t.user_id = ? AND t.cancel_at IS NULL AND t.completed_at IS NULL
ORDER BY j.due ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, translatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// PendingJobs returns the jobs a fresh translator search runs against.
func (r *JobRepository) PendingJobs(ctx context.Context) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.status = ? AND j.due > NOW() ORDER BY j.due ASC`
	rows, err := r.DB.QueryContext(ctx, query, fsm.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// AllJobsFiltered builds the admin dashboard listing.
func (r *JobRepository) AllJobsFiltered(ctx context.Context, f models.JobFilter) ([]models.Job, int, error) {
	var conds []string
	var args []interface{}

	if len(f.Statuses) > 0 {
		conds = append(conds, "j.status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if len(f.LanguageIDs) > 0 {
		conds = append(conds, "j.from_language_id IN ("+placeholders(len(f.LanguageIDs))+")")
		for _, id := range f.LanguageIDs {
			args = append(args, id)
		}
	}
	if f.CustomerEmail != "" {
		conds = append(conds, "j.user_id IN (SELECT id FROM users WHERE email = ?)")
		args = append(args, f.CustomerEmail)
	}
	if f.TranslatorEmail != "" {
		conds = append(conds, `j.id IN (
			SELECT t.job_id FROM translator_job_rel t JOIN users u ON u.id = t.user_id
			WHERE u.email = ? AND t.cancel_at IS NULL AND t.completed_at IS NULL)`)
		args = append(args, f.TranslatorEmail)
	}
	if f.From != nil {
		conds = append(conds, "j.due >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "j.due <= ?")
		args = append(args, *f.To)
	}
	if f.ExpireFrom != nil {
		conds = append(conds, "j.will_expire_at >= ?")
		args = append(args, *f.ExpireFrom)
	}
	if f.ExpireTo != nil {
		conds = append(conds, "j.will_expire_at <= ?")
		args = append(args, *f.ExpireTo)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs j"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 15
	}
	query := fmt.Sprintf("SELECT "+jobColumns+" FROM jobs j%s ORDER BY j.created_at DESC LIMIT %d OFFSET %d", where, limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// HistoryForCustomer lists every finished booking of a customer, newest first.
func (r *JobRepository) HistoryForCustomer(ctx context.Context, userID, limit, offset int) ([]models.Job, int, error) {
	finished := []interface{}{
		fsm.StatusCompleted, fsm.StatusWithdrawBefore24, fsm.StatusWithdrawAfter24,
		fsm.StatusTimedOut, fsm.StatusNotCarriedOutCustomer,
	}
	args := append([]interface{}{userID}, finished...)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM jobs j WHERE j.user_id = ? AND j.status IN ("+placeholders(len(finished))+")",
		args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT "+jobColumns+" FROM jobs j WHERE j.user_id = ? AND j.status IN (%s) ORDER BY j.due DESC LIMIT %d OFFSET %d",
		placeholders(len(finished)), limit, offset,
	)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// HistoryForTranslator lists only the bookings the translator completed.
func (r *JobRepository) HistoryForTranslator(ctx context.Context, translatorID, limit, offset int) ([]models.Job, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM jobs j
JOIN translator_job_rel t ON t.job_id = j.id
WHERE t.user_id = ? AND j.status = ?
	`, translatorID, fsm.StatusCompleted).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
SELECT `+jobColumns+`
FROM jobs j
JOIN translator_job_rel t ON t.job_id = j.id
WHERE t.user_id = ? AND j.status = ?
ORDER BY j.due DESC LIMIT %d OFFSET %d
	`, limit, offset)
	rows, err := r.DB.QueryContext(ctx, query, translatorID, fsm.StatusCompleted)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ExpireOverdue times out pending jobs whose expiry window has passed.
func (r *JobRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE status = ? AND will_expire_at <= ?`,
		fsm.StatusTimedOut, fsm.StatusPending, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *JobRepository) InsertChangeLog(ctx context.Context, entry models.JobChangeLog) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO job_change_logs (job_id, actor_id, field, old_value, new_value, created_at)
VALUES (?, ?, ?, ?, ?, ?)
	`, entry.JobID, entry.ActorID, entry.Field, entry.OldValue, entry.NewValue, entry.CreatedAt)
	return err
}

func collectJobs(rows *sql.Rows) ([]models.Job, error) {
	jobs := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
