package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Status(ctx context.Context) (*Response, error)
	// Activate replaces the current license with the plan registered under
	// the key.
	Activate(ctx context.Context, req ActivateRequest) (*Response, error)
	IsActive(ctx context.Context) (bool, error)
}

type ActivateRequest struct {
	Key string `json:"key"`
}

type Response struct {
	State       State      `json:"state"`
	Plan        string     `json:"plan,omitempty"`
	Lifetime    bool       `json:"lifetime"`
	DaysLeft    int        `json:"days_left"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

var ErrInvalidKey = errors.New("invalid_license_key")
