package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	obslogger "github.com/smallbiznis/comanda/internal/observability/logger"
	"github.com/smallbiznis/comanda/internal/observability/metrics"
	"github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	TableRepo   tabledomain.Repository
	ProductSvc  productdomain.Service
	ZoneSvc     zonedomain.Service
	SettingsSvc settingsdomain.Service
	POSCfg      *config.POSConfigHolder
	Notifier    domain.Notifier  `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	tableRepo tabledomain.Repository
	products  productdomain.Service
	zones     zonedomain.Service
	settings  settingsdomain.Service
	posCfg    *config.POSConfigHolder
	notifier  domain.Notifier
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		tableRepo: p.TableRepo,
		products:  p.ProductSvc,
		zones:     p.ZoneSvc,
		settings:  p.SettingsSvc,
		posCfg:    p.POSCfg,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResult, error) {
	tableID, err := parseTableID(req.TableID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion <= 0 {
		return nil, domain.ErrInvalidVersion
	}

	current, products, err := s.resolveCart(ctx, req.Cart)
	if err != nil {
		return nil, err
	}
	rates, err := s.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := &domain.SubmitResult{Orders: []domain.Response{}}
	var (
		created      []domain.Order
		updatedZones []string
		noteChanged  bool
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.tableRepo.FindByID(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if table == nil {
			return tabledomain.ErrNotFound
		}
		if table.Version != req.ExpectedVersion {
			return tabledomain.ErrStaleVersion
		}

		previous, err := table.Cart()
		if err != nil {
			return err
		}
		delta := domain.ComputeDelta(previous, current)
		if err := checkStock(delta, products); err != nil {
			return err
		}

		note := table.OrderNote
		if req.Note != nil {
			note = strings.TrimSpace(*req.Note)
		}
		noteChanged = note != table.OrderNote

		if len(delta) == 0 && !noteChanged {
			result.NoOp = true
			result.Table = tabledomain.NewResponse(table)
			return nil
		}

		if noteChanged {
			if err := s.repo.UpdateNoteForOpen(ctx, tx, table.ID, note, now); err != nil {
				return err
			}
			open, err := s.repo.ListByTable(ctx, tx, table.ID)
			if err != nil {
				return err
			}
			updatedZones = openZones(open)
		}

		for _, group := range domain.GroupByZone(delta) {
			items, err := domain.EncodeItems(group.Items)
			if err != nil {
				return err
			}
			o := domain.Order{
				ID:          s.genID.Generate().Int64(),
				TableID:     table.ID,
				TableNumber: table.Number,
				ZoneID:      group.ZoneID,
				Items:       items,
				Status:      domain.StatusPending,
				Note:        note,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.Insert(ctx, tx, &o); err != nil {
				return err
			}
			created = append(created, o)
		}

		orderData, err := tabledomain.EncodeCart(current)
		if err != nil {
			return err
		}
		table.OrderData = orderData
		table.OrderNote = note
		table.CurrentTotalUSD = billingdomain.ComputeBill(tabledomain.Subtotal(current), rates).BaseTotal
		if table.StartTime == nil && len(current) > 0 {
			started := now
			table.StartTime = &started
		}
		if len(created) > 0 {
			table.Status = tabledomain.StatusOccupied
		}
		table.UpdatedAt = now
		if err := s.tableRepo.UpdateSnapshot(ctx, tx, table, req.ExpectedVersion); err != nil {
			return err
		}
		result.Table = tabledomain.NewResponse(table)
		return nil
	})
	if err != nil {
		if errors.Is(err, tabledomain.ErrStaleVersion) {
			s.metrics.RecordStaleWrite(ctx, "submit")
		}
		return nil, err
	}

	s.metrics.RecordSubmission(ctx, result.NoOp)
	if result.NoOp {
		s.log.Debug("submission is a no-op", zap.String("table_id", result.Table.ID))
		return result, nil
	}

	for i := range created {
		o := &created[i]
		result.Orders = append(result.Orders, domain.NewResponse(o))
		s.metrics.RecordTicketCreated(ctx, domain.ZoneKey(o.ZoneID))
		s.notify(ctx, domain.EventTicketCreated, domain.ZoneKey(o.ZoneID), o.TableID, o.ID)
	}
	for _, zone := range updatedZones {
		s.notify(ctx, domain.EventTicketUpdated, zone, tableID, 0)
	}
	s.notify(ctx, domain.EventTableChanged, "", tableID, 0)

	obslogger.WithTable(obslogger.WithContext(ctx, s.log), result.Table.ID).Info("order submitted",
		zap.Int("tickets", len(created)),
		zap.Bool("note_changed", noteChanged),
		zap.Int64("version", result.Table.Version),
	)
	return result, nil
}

func (s *Service) StartCooking(ctx context.Context, id string) (*domain.Response, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var updated *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.StatusPending {
			return domain.ErrInvalidTransition
		}
		if err := s.repo.UpdateStatus(ctx, tx, o.ID, domain.StatusCooking, nil, now); err != nil {
			return err
		}
		o.Status = domain.StatusCooking
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventTicketCooking, domain.ZoneKey(updated.ZoneID), updated.TableID, updated.ID)
	resp := domain.NewResponse(updated)
	return &resp, nil
}

// MarkReady dispatches an order and re-derives the table status from all of
// the table's orders. Marking an already ready order again only re-derives.
func (s *Service) MarkReady(ctx context.Context, id string) (*domain.Response, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var (
		updated    *domain.Order
		dispatched bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.StatusReady {
			at := now
			if err := s.repo.UpdateStatus(ctx, tx, o.ID, domain.StatusReady, &at, now); err != nil {
				return err
			}
			o.Status = domain.StatusReady
			o.DispatchedAt = &at
			dispatched = true
		}
		updated = o
		return s.reconcileTable(ctx, tx, o.TableID, now)
	})
	if err != nil {
		return nil, err
	}

	zone := domain.ZoneKey(updated.ZoneID)
	if dispatched {
		s.metrics.RecordTicketDispatched(ctx, zone)
	}
	s.notify(ctx, domain.EventTicketReady, zone, updated.TableID, updated.ID)
	s.notify(ctx, domain.EventTableChanged, "", updated.TableID, updated.ID)

	resp := domain.NewResponse(updated)
	return &resp, nil
}

// RevertToKitchen undoes an accidental dispatch.
func (s *Service) RevertToKitchen(ctx context.Context, id string) (*domain.Response, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var updated *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.StatusReady {
			return domain.ErrNotReady
		}
		if err := s.repo.UpdateStatus(ctx, tx, o.ID, domain.StatusPending, nil, now); err != nil {
			return err
		}
		o.Status = domain.StatusPending
		o.DispatchedAt = nil
		updated = o
		return s.reconcileTable(ctx, tx, o.TableID, now)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventTicketReverted, domain.ZoneKey(updated.ZoneID), updated.TableID, updated.ID)
	s.notify(ctx, domain.EventTableChanged, "", updated.TableID, updated.ID)

	resp := domain.NewResponse(updated)
	return &resp, nil
}

func (s *Service) ListForDisplay(ctx context.Context, zone string) ([]domain.Response, error) {
	zoneID, err := s.zones.Resolve(ctx, zone)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	delay := time.Duration(config.DefaultPOSConfig().KitchenDelayMins) * time.Minute
	if s.posCfg != nil {
		delay = time.Duration(s.posCfg.Get().KitchenDelayMins) * time.Minute
	}
	now := s.clock.Now()

	visible := domain.FilterByZone(all, zoneID)
	resp := make([]domain.Response, 0, len(visible))
	for i := range visible {
		o := &visible[i]
		item := domain.NewResponse(o)
		item.Delayed = o.Open() && now.Sub(o.CreatedAt) >= delay
		resp = append(resp, item)
	}
	return resp, nil
}

func (s *Service) ListByTable(ctx context.Context, tableID string) ([]domain.Response, error) {
	id, err := parseTableID(tableID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByTable(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, domain.NewResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) PendingDelta(ctx context.Context, req domain.PendingDeltaRequest) ([]domain.DeltaResponse, error) {
	tableID, err := parseTableID(req.TableID)
	if err != nil {
		return nil, err
	}
	current, _, err := s.resolveCart(ctx, req.Cart)
	if err != nil {
		return nil, err
	}
	table, err := s.tableRepo.FindByID(ctx, s.db, tableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, tabledomain.ErrNotFound
	}
	previous, err := table.Cart()
	if err != nil {
		return nil, err
	}

	delta := domain.ComputeDelta(previous, current)
	resp := make([]domain.DeltaResponse, 0, len(delta))
	for _, d := range delta {
		resp = append(resp, domain.NewDeltaResponse(d))
	}
	return resp, nil
}

// CashierBoard lists every table in use with what it is waiting on.
func (s *Service) CashierBoard(ctx context.Context) ([]domain.BoardEntry, error) {
	tables, err := s.tableRepo.List(ctx, s.db, tabledomain.ListFilter{
		Statuses: []tabledomain.Status{
			tabledomain.StatusOccupied,
			tabledomain.StatusBilling,
			tabledomain.StatusReady,
			tabledomain.StatusPartiallyReady,
		},
	})
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	byTable := make(map[int64][]domain.Order, len(tables))
	for _, o := range all {
		byTable[o.TableID] = append(byTable[o.TableID], o)
	}

	entries := make([]domain.BoardEntry, 0, len(tables))
	for i := range tables {
		t := &tables[i]
		orders := byTable[t.ID]
		entry := domain.BoardEntry{
			Table: tabledomain.NewResponse(t),
			Label: domain.LabelFor(t.Status, orders),
		}
		for j := range orders {
			if orders[j].Open() {
				entry.OpenOrders++
			} else {
				entry.ReadyOrders++
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// reconcileTable recomputes the table status from its full order set. Tables
// that asked for the bill or were already released keep their status.
func (s *Service) reconcileTable(ctx context.Context, tx *gorm.DB, tableID int64, now time.Time) error {
	table, err := s.tableRepo.FindByID(ctx, tx, tableID)
	if err != nil {
		return err
	}
	if table == nil {
		return nil
	}
	if table.Status == tabledomain.StatusBilling || table.Status == tabledomain.StatusAvailable {
		return nil
	}

	orders, err := s.repo.ListByTable(ctx, tx, tableID)
	if err != nil {
		return err
	}
	status := domain.DeriveStatus(orders)
	if status == table.Status {
		return nil
	}
	if err := s.tableRepo.UpdateStatus(ctx, tx, tableID, status, now); err != nil {
		return err
	}
	s.log.Debug("table status derived",
		zap.String("table_id", snowflake.ID(tableID).String()),
		zap.String("from", string(table.Status)),
		zap.String("to", string(status)),
	)
	return nil
}

func (s *Service) resolveCart(ctx context.Context, lines []productdomain.CartRequestLine) ([]tabledomain.CartLine, map[int64]productdomain.Product, error) {
	products, err := s.products.Resolve(ctx, lines)
	if err != nil {
		return nil, nil, err
	}
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		id, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil {
			return nil, nil, productdomain.ErrInvalidID
		}
		qty[id.Int64()] += line.Quantity
	}

	byID := make(map[int64]productdomain.Product, len(products))
	cart := make([]tabledomain.CartLine, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		if qty[p.ID] <= 0 {
			continue
		}
		cart = append(cart, tabledomain.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty[p.ID],
			ZoneID:    p.ZoneID,
		})
	}
	return cart, byID, nil
}

// checkStock validates only what is being added now. Units already sent stay
// on the bill even if another table's sale has since drawn the stock down.
func checkStock(delta []domain.DeltaItem, products map[int64]productdomain.Product) error {
	for _, d := range delta {
		p, ok := products[d.ProductID]
		if !ok {
			return productdomain.ErrNotFound
		}
		if !p.CanServe(d.Quantity) {
			return productdomain.ErrOutOfStock
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, id int64) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) notify(ctx context.Context, typ domain.EventType, zone string, tableID, orderID int64) {
	if s.notifier == nil {
		return
	}
	ev := domain.Event{
		Type:       typ,
		Zone:       zone,
		TableID:    snowflake.ID(tableID).String(),
		OccurredAt: s.clock.Now(),
	}
	if orderID != 0 {
		ev.OrderID = snowflake.ID(orderID).String()
	}
	s.notifier.Notify(ctx, ev)
}

func openZones(orders []domain.Order) []string {
	seen := make(map[string]struct{})
	var zones []string
	for i := range orders {
		if !orders[i].Open() {
			continue
		}
		key := domain.ZoneKey(orders[i].ZoneID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		zones = append(zones, key)
	}
	return zones
}

func parseTableID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, tabledomain.ErrInvalidID
	}
	return id.Int64(), nil
}

func parseOrderID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}
