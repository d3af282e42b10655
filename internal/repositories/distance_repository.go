package repositories

import (
	"context"
	"database/sql"
	"errors"

	"tolkBack/internal/models"
)

type DistanceRepository struct {
	DB *sql.DB
}

func (r *DistanceRepository) Upsert(ctx context.Context, d models.Distance) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO distances (job_id, distance, time)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE distance = VALUES(distance), time = VALUES(time)
	`, d.JobID, d.Distance, d.Time)
	return err
}

func (r *DistanceRepository) GetByJobID(ctx context.Context, jobID int) (models.Distance, error) {
	var d models.Distance
	err := r.DB.QueryRowContext(ctx,
		`SELECT job_id, distance, time FROM distances WHERE job_id = ?`, jobID,
	).Scan(&d.JobID, &d.Distance, &d.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Distance{}, models.ErrNoRecord
	}
	if err != nil {
		return models.Distance{}, err
	}
	return d, nil
}
