package domain

import "time"

type License struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Key         string     `json:"key" gorm:"column:license_key;type:text;not null"`
	Lifetime    bool       `json:"lifetime" gorm:"not null;default:false"`
	ActivatedAt time.Time  `json:"activated_at" gorm:"not null"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (License) TableName() string { return "licenses" }

type State string

const (
	StateNone    State = "none"
	StateActive  State = "active"
	StateExpired State = "expired"
)

// StateAt evaluates a license at now. A nil license is StateNone.
func StateAt(l *License, now time.Time) State {
	if l == nil {
		return StateNone
	}
	if l.Lifetime || l.ExpiresAt == nil {
		return StateActive
	}
	if now.Before(*l.ExpiresAt) {
		return StateActive
	}
	return StateExpired
}

// DaysLeft rounds the remaining time up to whole days. Lifetime licenses
// report -1.
func DaysLeft(l *License, now time.Time) int {
	if l == nil {
		return 0
	}
	if l.Lifetime || l.ExpiresAt == nil {
		return -1
	}
	remaining := l.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
