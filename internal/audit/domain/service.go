package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/comanda/pkg/db/pagination"
)

type Service interface {
	// Record appends an entry. The actor is taken from the request context.
	Record(ctx context.Context, req RecordRequest) error
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type RecordRequest struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListRequest struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	From       string `form:"from"`
	To         string `form:"to"`
}

type ListResponse struct {
	AuditLogs []AuditLog          `json:"audit_logs"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidAction    = errors.New("invalid_audit_action")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
