package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/table/domain"
	"github.com/smallbiznis/comanda/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	POSCfg *config.POSConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	clock  clock.Clock
	posCfg *config.POSConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("table.service"),
		repo:   p.Repo,
		genID:  p.GenID,
		clock:  p.Clock,
		posCfg: p.POSCfg,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	number := domain.NormalizeNumber(req.Number)
	if number == "" {
		suggested, err := s.SuggestNumber(ctx)
		if err != nil {
			return nil, err
		}
		number = suggested
	}
	return s.insert(ctx, number, domain.TypeTable)
}

// OpenExternal opens a takeaway or delivery tab with a generated label.
func (s *Service) OpenExternal(ctx context.Context, req domain.OpenExternalRequest) (*domain.Response, error) {
	if !req.Type.Valid() || !req.Type.IsExternal() {
		return nil, domain.ErrInvalidType
	}
	numbers, err := s.repo.ListNumbers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	prefix := "EXT"
	if s.posCfg != nil {
		prefix = s.posCfg.Get().ExternalTabPrefix
	}
	return s.insert(ctx, domain.SuggestExternalLabel(prefix, numbers), req.Type)
}

func (s *Service) insert(ctx context.Context, number string, tableType domain.Type) (*domain.Response, error) {
	existing, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateNumber
	}

	now := s.clock.Now()
	t := &domain.Table{
		ID:        s.genID.Generate().Int64(),
		Number:    number,
		Type:      tableType,
		Status:    domain.StatusAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, t); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}

	s.log.Info("table created",
		zap.String("table_id", snowflake.ID(t.ID).String()),
		zap.String("number", t.Number),
		zap.String("type", string(t.Type)),
	)
	resp := domain.NewResponse(t)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !validStatus(domain.Status(status)) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Statuses = []domain.Status{domain.Status(status)}
	}
	if req.Occupied && len(filter.Statuses) == 0 {
		filter.Statuses = []domain.Status{
			domain.StatusOccupied,
			domain.StatusBilling,
			domain.StatusReady,
			domain.StatusPartiallyReady,
		}
	}
	if tableType := strings.TrimSpace(req.Type); tableType != "" {
		if !domain.Type(tableType).Valid() {
			return nil, domain.ErrInvalidType
		}
		filter.Type = domain.Type(tableType)
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, domain.NewResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	tableID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tableID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := domain.NewResponse(item)
	return &resp, nil
}

// Delete removes a physical table. Only free tables can be removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	tableID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, tableID.Int64())
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status != domain.StatusAvailable {
			return domain.ErrNotAvailable
		}
		return s.repo.Delete(ctx, tx, item.ID, item.Version)
	})
}

func (s *Service) SuggestNumber(ctx context.Context) (string, error) {
	numbers, err := s.repo.ListNumbers(ctx, s.db)
	if err != nil {
		return "", err
	}
	return domain.SuggestNumber(numbers), nil
}

func validStatus(status domain.Status) bool {
	switch status {
	case domain.StatusAvailable, domain.StatusOccupied, domain.StatusBilling, domain.StatusReady, domain.StatusPartiallyReady:
		return true
	default:
		return false
	}
}
