package repositories

import (
	"context"
	"database/sql"
)

type TokenRepository struct {
	DB *sql.DB
}

// TokensForEmail resolves a push audience predicate ("email equals X") to the
// device tokens registered for that user.
func (r *TokenRepository) TokensForEmail(ctx context.Context, email string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT t.token
FROM notify_tokens t
JOIN users u ON u.id = t.user_id
WHERE u.email = ?
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *TokenRepository) Insert(ctx context.Context, userID int, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notify_tokens (user_id, token) VALUES (?, ?)`, userID, token)
	return err
}

func (r *TokenRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM notify_tokens WHERE token = ?`, token)
	return err
}
