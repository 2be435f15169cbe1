package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/zone/domain"
	"github.com/smallbiznis/comanda/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("zone.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := slug.Make(name)
	if code == "" {
		return nil, domain.ErrInvalidName
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	z := &domain.Zone{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Code:      code,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, z); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}

	resp := toResponse(z)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	zoneID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, zoneID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(item)
	return &resp, nil
}

// Delete removes the zone. Its products stay on the menu and route to the
// general kitchen from then on.
func (s *Service) Delete(ctx context.Context, id string) error {
	zoneID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, zoneID.Int64())
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.UnassignProducts(ctx, tx, item.ID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, item.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("zone deleted", zap.String("zone_id", zoneID.String()))
	return nil
}

func (s *Service) Resolve(ctx context.Context, ref string) (*int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, "default") {
		return nil, nil
	}

	if id, err := snowflake.ParseString(ref); err == nil {
		item, err := s.repo.FindByID(ctx, s.db, id.Int64())
		if err != nil {
			return nil, err
		}
		if item != nil {
			return &item.ID, nil
		}
	}

	item, err := s.repo.FindByCode(ctx, s.db, slug.Make(ref))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return &item.ID, nil
}

func toResponse(z *domain.Zone) domain.Response {
	return domain.Response{
		ID:        snowflake.ID(z.ID).String(),
		Name:      z.Name,
		Code:      z.Code,
		CreatedAt: z.CreatedAt,
	}
}
