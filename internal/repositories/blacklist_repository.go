package repositories

import (
	"context"
	"database/sql"
)

type BlacklistRepository struct {
	DB *sql.DB
}

// TranslatorIDsForCustomer returns the translators this customer excluded.
func (r *BlacklistRepository) TranslatorIDsForCustomer(ctx context.Context, customerID int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT translator_id FROM users_blacklist WHERE user_id = ?`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CustomerIDsExcluding returns the customers that blacklisted this translator.
func (r *BlacklistRepository) CustomerIDsExcluding(ctx context.Context, translatorID int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id FROM users_blacklist WHERE translator_id = ?`, translatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
