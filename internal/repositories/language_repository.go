package repositories

import (
	"context"
	"database/sql"
	"errors"

	"tolkBack/internal/models"
)

type LanguageRepository struct {
	DB *sql.DB
}

func (r *LanguageRepository) GetByID(ctx context.Context, id int) (models.Language, error) {
	var l models.Language
	err := r.DB.QueryRowContext(ctx, `SELECT id, language FROM languages WHERE id = ?`, id).
		Scan(&l.ID, &l.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Language{}, models.ErrLanguageNotFound
	}
	if err != nil {
		return models.Language{}, err
	}
	return l, nil
}

func (r *LanguageRepository) List(ctx context.Context) ([]models.Language, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, language FROM languages ORDER BY language`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	langs := []models.Language{}
	for rows.Next() {
		var l models.Language
		if err := rows.Scan(&l.ID, &l.Language); err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}
