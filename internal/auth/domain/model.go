// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleRoot    Role = "root"
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
)

// ParseRole normalizes raw. Root is never assignable through the API and is
// rejected here unless allowRoot is set.
func ParseRole(raw string, allowRoot bool) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleCashier, RoleWaiter:
		return r, nil
	case RoleRoot:
		if allowRoot {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// User is a terminal operator.
type User struct {
	ID                  int64      `gorm:"primaryKey"`
	Username            string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	DisplayName         string     `gorm:"type:text;not null;default:''"`
	Role                Role       `gorm:"type:text;not null"`
	PasswordHash        string     `gorm:"type:text;not null"`
	Active              bool       `gorm:"not null;default:true"`
	LastPasswordChanged *time.Time `gorm:"column:last_password_changed"`
	CreatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session. Only the token hash is stored.
type Session struct {
	ID         int64      `gorm:"primaryKey"`
	UserID     int64      `gorm:"column:user_id;not null;index"`
	TokenHash  string     `gorm:"column:token_hash;type:varchar(64);not null;uniqueIndex:ux_sessions_token_hash"`
	UserAgent  string     `gorm:"column:user_agent;type:text;not null;default:''"`
	IPAddress  string     `gorm:"column:ip_address;type:text;not null;default:''"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null;index"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    int64
	Username  string
	Role      Role
	SessionID int64
}
