package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tolkBack/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_type, name, email, phone, status, created_at
FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.UserType, &u.Name, &u.Email, &u.Phone, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_type, name, email, phone, password, status, created_at
FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.UserType, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, nil
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	result, err := r.DB.ExecContext(ctx, `
INSERT INTO users (user_type, name, email, phone, password, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, NOW())
	`, user.UserType, user.Name, user.Email, user.Phone, user.Password, user.Status)
	if err != nil {
		return models.User{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	user.ID = int(id)

	if user.Meta != nil {
		meta := user.Meta
		if _, err := r.DB.ExecContext(ctx, `
INSERT INTO user_meta (user_id, consumer_type, customer_type, city, gender, translator_type,
                       translator_level, not_get_notification, not_get_nighttime, not_get_emergency)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, user.ID, meta.ConsumerType, meta.CustomerType, meta.City, meta.Gender, meta.TranslatorType,
			meta.TranslatorLevel, meta.NotGetNotification, meta.NotGetNighttime, meta.NotGetEmergency); err != nil {
			return models.User{}, err
		}
	}
	for _, langID := range user.Languages {
		if _, err := r.DB.ExecContext(ctx,
			`INSERT INTO user_languages (user_id, lang_id) VALUES (?, ?)`, user.ID, langID); err != nil {
			return models.User{}, err
		}
	}
	return user, nil
}

func (r *UserRepository) MetaByUserID(ctx context.Context, userID int) (models.UserMeta, error) {
	var m models.UserMeta
	var certPath sql.NullString
	err := r.DB.QueryRowContext(ctx, `
SELECT user_id, consumer_type, customer_type, city, gender, translator_type, translator_level,
       certificate_doc_path, not_get_notification, not_get_nighttime, not_get_emergency
FROM user_meta WHERE user_id = ?
	`, userID).Scan(&m.UserID, &m.ConsumerType, &m.CustomerType, &m.City, &m.Gender, &m.TranslatorType,
		&m.TranslatorLevel, &certPath, &m.NotGetNotification, &m.NotGetNighttime, &m.NotGetEmergency)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserMeta{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.UserMeta{}, err
	}
	m.CertificateDocPath = certPath.String
	return m, nil
}

func (r *UserRepository) LanguagesByUserID(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT lang_id FROM user_languages WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	langs := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		langs = append(langs, id)
	}
	return langs, rows.Err()
}

// Translators runs the candidate query of the matching engine: active users of
// the requested translator type who registered the job's language, optionally
// filtered by gender and level, minus the customer's blacklist.
func (r *UserRepository) Translators(ctx context.Context, translatorType string, langID int, gender string, levels []string, excluded []int) ([]models.User, error) {
	query := `
SELECT DISTINCT u.id, u.user_type, u.name, u.email, u.phone, u.status, u.created_at
FROM users u
JOIN user_meta m ON m.user_id = u.id
JOIN user_languages ul ON ul.user_id = u.id
WHERE u.user_type = ? AND u.status = 'active' AND m.translator_type = ? AND ul.lang_id = ?
  AND m.not_get_notification = 0
	`
	args := []interface{}{models.RoleTranslator, translatorType, langID}

	if gender != "" {
		query += " AND m.gender = ?"
		args = append(args, gender)
	}
	if len(levels) > 0 {
		query += " AND m.translator_level IN (" + placeholders(len(levels)) + ")"
		for _, l := range levels {
			args = append(args, l)
		}
	}
	if len(excluded) > 0 {
		query += " AND u.id NOT IN (" + placeholders(len(excluded)) + ")"
		for _, id := range excluded {
			args = append(args, id)
		}
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.UserType, &u.Name, &u.Email, &u.Phone, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateCertificateDoc(ctx context.Context, userID int, path string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE user_meta SET certificate_doc_path = ? WHERE user_id = ?`, path, userID)
	return err
}

func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (models.Session, error) {
	var s models.Session
	err := r.DB.QueryRowContext(ctx, `
SELECT user_id, role, refresh_token, expires_at FROM sessions WHERE refresh_token = ?
	`, refreshToken).Scan(&s.UserID, &s.Role, &s.RefreshToken, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (r *UserRepository) SaveSession(ctx context.Context, s models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO sessions (user_id, role, refresh_token, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE refresh_token = VALUES(refresh_token), expires_at = VALUES(expires_at)
	`, s.UserID, s.Role, s.RefreshToken, s.ExpiresAt)
	return err
}

func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	return err
}
