package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tolkBack/internal/models"
)

type RelationRepository struct {
	DB *sql.DB
}

// ActiveByJobID returns the single relation with neither cancel_at nor
// completed_at set, joined with the translator's identity.
func (r *RelationRepository) ActiveByJobID(ctx context.Context, jobID int) (models.TranslatorJobRelation, error) {
	var rel models.TranslatorJobRelation
	err := r.DB.QueryRowContext(ctx, `
SELECT t.id, t.user_id, t.job_id, t.cancel_at, t.completed_at, t.completed_by, t.created_at,
       u.name, u.email
FROM translator_job_rel t
JOIN users u ON u.id = t.user_id
WHERE t.job_id = ? AND t.cancel_at IS NULL AND t.completed_at IS NULL
	`, jobID).Scan(&rel.ID, &rel.UserID, &rel.JobID, &rel.CancelAt, &rel.CompletedAt, &rel.CompletedBy,
		&rel.CreatedAt, &rel.TranslatorName, &rel.TranslatorEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TranslatorJobRelation{}, models.ErrRelationNotFound
	}
	if err != nil {
		return models.TranslatorJobRelation{}, err
	}
	return rel, nil
}

func (r *RelationRepository) Create(ctx context.Context, jobID, userID int) (models.TranslatorJobRelation, error) {
	now := time.Now()
	result, err := r.DB.ExecContext(ctx,
		`INSERT INTO translator_job_rel (user_id, job_id, created_at) VALUES (?, ?, ?)`,
		userID, jobID, now,
	)
	if err != nil {
		return models.TranslatorJobRelation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.TranslatorJobRelation{}, err
	}
	return models.TranslatorJobRelation{ID: int(id), UserID: userID, JobID: jobID, CreatedAt: now}, nil
}

// CreateCancelled inserts a relation that is cancelled from the start. Used
// when reopening a booking, so the audit trail records who triggered it.
func (r *RelationRepository) CreateCancelled(ctx context.Context, jobID, userID int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO translator_job_rel (user_id, job_id, cancel_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, jobID, at, at,
	)
	return err
}

// CancelActive stamps cancel_at on the active relation. Rows are never deleted,
// the history stays auditable.
func (r *RelationRepository) CancelActive(ctx context.Context, jobID int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE translator_job_rel
SET cancel_at = ?
WHERE job_id = ? AND cancel_at IS NULL AND completed_at IS NULL
	`, at, jobID)
	return err
}

func (r *RelationRepository) Complete(ctx context.Context, jobID int, at time.Time, completedBy int) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE translator_job_rel
SET completed_at = ?, completed_by = ?
WHERE job_id = ? AND cancel_at IS NULL AND completed_at IS NULL
	`, at, completedBy, jobID)
	return err
}

func (r *RelationRepository) ListByJobID(ctx context.Context, jobID int) ([]models.TranslatorJobRelation, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT t.id, t.user_id, t.job_id, t.cancel_at, t.completed_at, t.completed_by, t.created_at,
       u.name, u.email
FROM translator_job_rel t
JOIN users u ON u.id = t.user_id
WHERE t.job_id = ?
ORDER BY t.created_at ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rels := []models.TranslatorJobRelation{}
	for rows.Next() {
		var rel models.TranslatorJobRelation
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.JobID, &rel.CancelAt, &rel.CompletedAt,
			&rel.CompletedBy, &rel.CreatedAt, &rel.TranslatorName, &rel.TranslatorEmail); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}
