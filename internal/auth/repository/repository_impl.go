package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/comanda/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() (domain.Repository, domain.SessionRepository) {
	r := &repo{}
	return r, &sessionRepo{}
}

const userColumns = `SELECT id, username, display_name, role, password_hash, active, last_password_changed, created_at, updated_at FROM users`

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users`).Scan(&count).Error
	return count, err
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, username, display_name, role, password_hash, active, last_password_changed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.LastPasswordChanged,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Raw(userColumns+` WHERE id = ?`, id).Scan(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Raw(userColumns+` WHERE username = ?`, username).Scan(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var items []domain.User
	if err := db.WithContext(ctx).Raw(userColumns + ` ORDER BY username ASC`).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, user *domain.User) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET display_name = ?, role = ?, password_hash = ?, active = ?, last_password_changed = ?, updated_at = ?
		 WHERE id = ?`,
		user.DisplayName,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.LastPasswordChanged,
		user.UpdatedAt,
		user.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM users WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM users`).Error
}

type sessionRepo struct{}

func (r *sessionRepo) Insert(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	).Error
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, revoked_at, created_at, last_seen_at
		 FROM sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) Touch(ctx context.Context, db *gorm.DB, id int64, lastSeen time.Time) error {
	return db.WithContext(ctx).Exec(`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, lastSeen, id).Error
}

func (r *sessionRepo) Revoke(ctx context.Context, db *gorm.DB, id int64, revokedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		revokedAt,
		id,
	).Error
}

func (r *sessionRepo) RevokeForUser(ctx context.Context, db *gorm.DB, userID int64, revokedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		revokedAt,
		userID,
	).Error
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM sessions WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)`,
		cutoff,
		cutoff,
	)
	return res.RowsAffected, res.Error
}

func (r *sessionRepo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sessions`).Error
}
