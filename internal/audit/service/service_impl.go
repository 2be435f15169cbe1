package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/audit/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	obscontext "github.com/smallbiznis/comanda/internal/observability/context"
	"github.com/smallbiznis/comanda/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) error {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(req.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	if terminal := obscontext.TerminalFromContext(ctx); terminal != "" {
		payload["terminal_id"] = terminal
	}

	entry := domain.AuditLog{
		ID:         s.genID.Generate().Int64(),
		ActorRole:  domain.ActorSystem,
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(req.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  optional(req.IPAddress),
		UserAgent:  optional(req.UserAgent),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if role, id := obscontext.ActorFromContext(ctx); role != "" {
		entry.ActorRole = role
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil && parsed != 0 {
			entry.ActorID = &parsed
		}
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
	}

	from, _, err := parseBound(req.From)
	if err != nil {
		return nil, err
	}
	to, dateOnly, err := parseBound(req.To)
	if err != nil {
		return nil, err
	}
	if to != nil && dateOnly {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, domain.ErrInvalidTimeRange
	}
	filter.From = from
	filter.To = to

	limit := req.Limit()
	if token := strings.TrimSpace(req.PageToken); token != "" {
		before, err := decodePosition(token)
		if err != nil {
			return nil, err
		}
		filter.Before = before
	}
	filter.Limit = limit + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	items, info, err := pagination.Page(items, limit, func(entry domain.AuditLog) pagination.Cursor {
		return pagination.Cursor{
			ID:        strconv.FormatInt(entry.ID, 10),
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.AuditLog{}
	}
	return &domain.ListResponse{AuditLogs: items, PageInfo: info}, nil
}

func parseBound(value string) (*time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, false, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return nil, false, domain.ErrInvalidTimeRange
	}
	return &t, true, nil
}

func decodePosition(token string) (*domain.Position, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	return &domain.Position{CreatedAt: createdAt, ID: id}, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
