package domain

import (
	"context"
	"errors"
	"time"
)

type Mode string

const (
	// ModePartial deletes sales and open orders and frees every table.
	ModePartial Mode = "partial"
	// ModeFull wipes the catalog, tables, users and settings as well. The
	// license is kept.
	ModeFull Mode = "full"
)

var ErrInvalidMode = errors.New("invalid_reset_mode")

type Service interface {
	Reset(ctx context.Context, req ResetRequest) (*ResetResponse, error)
}

type ResetRequest struct {
	Mode    string `json:"mode"`
	ActorID int64  `json:"-"`
}

type ResetResponse struct {
	Mode    Mode      `json:"mode"`
	ResetAt time.Time `json:"reset_at"`
}
