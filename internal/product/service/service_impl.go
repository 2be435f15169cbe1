package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/product/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	ZoneRepo zonedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	zoneRepo zonedomain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		zoneRepo: p.ZoneRepo,
		genID:    p.GenID,
		clock:    p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Category:  strings.TrimSpace(req.Category),
		ZoneID:    req.ZoneID,
		Available: req.Available,
		LowStock:  req.LowStock,
		SortBy:    strings.TrimSpace(req.SortBy),
		OrderBy:   strings.TrimSpace(req.OrderBy),
	}
	if filter.SortBy == "" {
		filter.SortBy = "name"
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	zoneID, err := s.parseZone(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}

	stock := domain.UntrackedStock
	if req.Stock != nil {
		stock = *req.Stock
	}
	if stock < domain.UntrackedStock || req.MinStock < 0 {
		return nil, domain.ErrInvalidStock
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	if stock == 0 {
		available = false
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Category:  strings.TrimSpace(req.Category),
		Price:     price,
		ZoneID:    zoneID,
		Stock:     stock,
		MinStock:  req.MinStock,
		Available: available,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}
	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		item.Price = price
	}
	if req.ZoneID != nil {
		zoneID, err := s.parseZone(ctx, req.ZoneID)
		if err != nil {
			return nil, err
		}
		item.ZoneID = zoneID
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, domain.ErrInvalidStock
		}
		item.MinStock = *req.MinStock
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, item.ID)
}

// SetStock replaces or adjusts tracked stock. Availability follows the
// resulting level.
func (s *Service) SetStock(ctx context.Context, req domain.StockRequest) (*domain.Response, error) {
	if (req.Stock == nil) == (req.Delta == nil) {
		return nil, domain.ErrInvalidStock
	}
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	next := item.Stock
	switch {
	case req.Stock != nil:
		next = *req.Stock
	case !item.Tracked():
		return nil, domain.ErrInvalidStock
	default:
		next = item.Stock + *req.Delta
		if next < 0 {
			next = 0
		}
	}
	if next < domain.UntrackedStock {
		return nil, domain.ErrInvalidStock
	}

	item.Stock = next
	if item.Tracked() {
		item.Available = next > 0
	}
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	if item.LowStock() {
		s.log.Warn("product stock low",
			zap.String("product_id", snowflake.ID(item.ID).String()),
			zap.Int("stock", item.Stock),
			zap.Int("min_stock", item.MinStock),
		)
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Resolve(ctx context.Context, lines []domain.CartRequestLine) ([]domain.Product, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		if line.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if !seen[productID.Int64()] {
			seen[productID.Int64()] = true
			ids = append(ids, productID.Int64())
		}
	}

	items, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Product, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	resolved := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		resolved = append(resolved, item)
	}
	return resolved, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, productID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) parseZone(ctx context.Context, raw *string) (*int64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	zoneID, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.ErrInvalidZone
	}
	zone, err := s.zoneRepo.FindByID(ctx, s.db, zoneID.Int64())
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, domain.ErrInvalidZone
	}
	id := zone.ID
	return &id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || price.IsNegative() {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	return price.Round(2), nil
}

func toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:        snowflake.ID(p.ID).String(),
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		Tracked:   p.Tracked(),
		LowStock:  p.LowStock(),
		Available: p.Available,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.ZoneID != nil {
		zone := snowflake.ID(*p.ZoneID).String()
		resp.ZoneID = &zone
	}
	return resp
}
