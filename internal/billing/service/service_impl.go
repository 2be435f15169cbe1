package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	obslogger "github.com/smallbiznis/comanda/internal/observability/logger"
	"github.com/smallbiznis/comanda/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/internal/ratelimit"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const finalizeLockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	TableRepo   tabledomain.Repository
	OrderRepo   orderdomain.Repository
	ProductRepo productdomain.Repository
	SaleRepo    saledomain.Repository
	OrderSvc    orderdomain.Service
	SettingsSvc settingsdomain.Service
	LicenseSvc  licensedomain.Service
	POSCfg      *config.POSConfigHolder
	Locker      *ratelimit.Locker    `optional:"true"`
	Notifier    orderdomain.Notifier `optional:"true"`
	Metrics     *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	tableRepo   tabledomain.Repository
	orderRepo   orderdomain.Repository
	productRepo productdomain.Repository
	saleRepo    saledomain.Repository
	orders      orderdomain.Service
	settings    settingsdomain.Service
	license     licensedomain.Service
	posCfg      *config.POSConfigHolder
	locker      *ratelimit.Locker
	notifier    orderdomain.Notifier
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		tableRepo:   p.TableRepo,
		orderRepo:   p.OrderRepo,
		productRepo: p.ProductRepo,
		saleRepo:    p.SaleRepo,
		orders:      p.OrderSvc,
		settings:    p.SettingsSvc,
		license:     p.LicenseSvc,
		posCfg:      p.POSCfg,
		locker:      p.Locker,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
	}
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	tableID, err := parseTableID(req.TableID)
	if err != nil {
		return nil, err
	}
	rates, err := s.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := buildPayments(req.Payments, rates)
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable(ctx, s.db, tableID)
	if err != nil {
		return nil, err
	}
	return s.quote(ctx, table, rates, payments, req.Actor)
}

func (s *Service) OpenBilling(ctx context.Context, req domain.OpenRequest) (*domain.OpenResponse, error) {
	tableID, err := parseTableID(req.TableID)
	if err != nil {
		return nil, err
	}
	if !req.Decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}
	if req.ExpectedVersion <= 0 {
		return nil, orderdomain.ErrInvalidVersion
	}

	pending, err := s.orders.PendingDelta(ctx, orderdomain.PendingDeltaRequest{
		TableID: req.TableID,
		Cart:    req.Cart,
	})
	if err != nil {
		return nil, err
	}

	expected := req.ExpectedVersion
	if len(pending) > 0 {
		switch req.Decision {
		case domain.DecisionNone:
			return &domain.OpenResponse{
				Pending: pending,
				Choices: []domain.Decision{domain.DecisionSendToKitchen, domain.DecisionBillAnyway, domain.DecisionCancel},
			}, nil
		case domain.DecisionCancel:
			return &domain.OpenResponse{Pending: pending, Cancelled: true}, nil
		case domain.DecisionSendToKitchen:
			submitted, err := s.orders.Submit(ctx, orderdomain.SubmitRequest{
				TableID:         req.TableID,
				ExpectedVersion: req.ExpectedVersion,
				Cart:            req.Cart,
				Note:            req.Note,
			})
			if err != nil {
				return nil, err
			}
			expected = submitted.Table.Version
		case domain.DecisionBillAnyway:
			obslogger.WithTable(obslogger.WithContext(ctx, s.log), req.TableID).Info("billing with unsent items",
				zap.Int("pending_lines", len(pending)),
			)
		}
	}

	rates, err := s.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}

	var table *tabledomain.Table
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err = s.loadTable(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if table.Version != expected {
			return tabledomain.ErrStaleVersion
		}
		cart, err := table.Cart()
		if err != nil {
			return err
		}
		if len(cart) == 0 {
			return domain.ErrEmptyBill
		}
		if table.Status == tabledomain.StatusBilling {
			return nil
		}
		if err := s.tableRepo.UpdateStatus(ctx, tx, tableID, tabledomain.StatusBilling, s.clock.Now()); err != nil {
			return err
		}
		table.Status = tabledomain.StatusBilling
		return nil
	})
	if err != nil {
		if errors.Is(err, tabledomain.ErrStaleVersion) {
			s.metrics.RecordStaleWrite(ctx, "open_billing")
		}
		return nil, err
	}

	s.notify(ctx, orderdomain.EventTableChanged, "", tableID)

	quote, err := s.quote(ctx, table, rates, nil, req.Actor)
	if err != nil {
		return nil, err
	}
	return &domain.OpenResponse{Pending: pending, Quote: quote}, nil
}

// CancelBilling returns a table from billing to the status its orders imply.
func (s *Service) CancelBilling(ctx context.Context, id string) error {
	tableID, err := parseTableID(id)
	if err != nil {
		return err
	}

	changed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.loadTable(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if table.Status != tabledomain.StatusBilling {
			return nil
		}
		orders, err := s.orderRepo.ListByTable(ctx, tx, tableID)
		if err != nil {
			return err
		}
		changed = true
		return s.tableRepo.UpdateStatus(ctx, tx, tableID, orderdomain.DeriveStatus(orders), s.clock.Now())
	})
	if err != nil {
		return err
	}
	if changed {
		s.notify(ctx, orderdomain.EventTableChanged, "", tableID)
	}
	return nil
}

func (s *Service) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.FinalizeResponse, error) {
	tableID, err := parseTableID(req.TableID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion <= 0 {
		return nil, orderdomain.ErrInvalidVersion
	}
	rates, err := s.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := buildPayments(req.Payments, rates)
	if err != nil {
		return nil, err
	}
	licenseActive, err := s.license.IsActive(ctx)
	if err != nil {
		return nil, err
	}

	var (
		sale    *saledomain.Sale
		table   *tabledomain.Table
		change  decimal.Decimal
		cleared []string
	)
	lockKey := "billing:finalize:" + snowflake.ID(tableID).String()
	err = s.locker.WithLock(ctx, lockKey, finalizeLockTTL, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			table, err = s.loadTable(ctx, tx, tableID)
			if err != nil {
				return err
			}
			if table.Version != req.ExpectedVersion {
				return tabledomain.ErrStaleVersion
			}
			cart, err := table.Cart()
			if err != nil {
				return err
			}
			if len(cart) == 0 {
				return domain.ErrEmptyBill
			}

			bill := domain.ComputeBill(tabledomain.Subtotal(cart), rates)
			ok, reason := domain.CanFinalize(domain.GuardInput{
				Settled:       domain.IsSettled(bill, payments),
				Role:          req.Actor.Role,
				RoleAllowed:   s.posCfg.Get().CanBill(req.Actor.Role),
				LicenseActive: licenseActive,
			})
			if !ok {
				return &domain.BlockedError{Reason: reason}
			}

			now := s.clock.Now().UTC()
			sale, err = s.newSale(table, cart, bill, payments, req.Actor, now)
			if err != nil {
				return err
			}
			if err := s.saleRepo.Insert(ctx, tx, sale); err != nil {
				return err
			}

			for _, line := range cart {
				if err := s.productRepo.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}

			orders, err := s.orderRepo.ListByTable(ctx, tx, tableID)
			if err != nil {
				return err
			}
			cleared = orderdomain.ZoneKeys(orders)
			if err := s.orderRepo.DeleteByTable(ctx, tx, tableID); err != nil {
				return err
			}

			if table.Type.IsExternal() {
				err = s.tableRepo.Delete(ctx, tx, tableID, table.Version)
			} else {
				err = s.tableRepo.Release(ctx, tx, tableID, table.Version, now)
			}
			if err != nil {
				return err
			}

			change = domain.Change(bill, payments)
			return nil
		})
	})
	if err != nil {
		var blocked *domain.BlockedError
		switch {
		case errors.As(err, &blocked):
			s.metrics.RecordFinalizeBlocked(ctx, string(blocked.Reason))
			obslogger.WithTable(obslogger.WithContext(ctx, s.log), req.TableID).Info("finalize blocked",
				zap.String("reason", string(blocked.Reason)),
				zap.String("role", req.Actor.Role),
			)
		case errors.Is(err, tabledomain.ErrStaleVersion):
			s.metrics.RecordStaleWrite(ctx, "finalize")
		case errors.Is(err, ratelimit.ErrLocked):
			return nil, domain.ErrBusy
		}
		return nil, err
	}

	methods := make([]string, 0, len(payments))
	for _, p := range payments {
		methods = append(methods, string(p.Method))
	}
	s.metrics.RecordSaleFinalized(ctx, string(table.Type), methods)
	for _, zone := range cleared {
		s.notify(ctx, orderdomain.EventTicketCleared, zone, tableID)
	}
	s.notify(ctx, orderdomain.EventTableChanged, "", tableID)

	obslogger.WithContext(ctx, s.log).Info("sale finalized",
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("table_number", table.Number),
		zap.String("total_usd", sale.TotalUSD.StringFixed(2)),
		zap.Int("payments", len(payments)),
	)

	return &domain.FinalizeResponse{
		Sale:   saledomain.NewResponse(sale),
		Change: change,
	}, nil
}

func (s *Service) Convert(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertResponse, error) {
	if !req.Method.Valid() {
		return nil, domain.ErrInvalidMethod
	}
	usdRaw := strings.TrimSpace(req.AmountUSD)
	vesRaw := strings.TrimSpace(req.AmountVES)
	if (usdRaw == "") == (vesRaw == "") {
		return nil, domain.ErrInvalidAmount
	}

	rates, err := s.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}

	var usd decimal.Decimal
	if usdRaw != "" {
		usd, err = parseAmount(usdRaw)
	} else {
		var ves decimal.Decimal
		ves, err = parseAmount(vesRaw)
		usd = domain.ConvertVESToUSD(req.Method, ves, rates)
	}
	if err != nil {
		return nil, err
	}

	resp := &domain.ConvertResponse{
		Method:    req.Method,
		AmountUSD: usd,
		AmountVES: domain.ConvertUSDToVES(req.Method, usd, rates),
		IGTFUSD:   decimal.Zero,
		Rate:      rates.ExchangeRate,
	}
	if p, err := domain.NewPayment(req.Method, usd, rates); err == nil {
		resp.IGTFUSD = p.IGTFUSD
	}
	if vesRaw != "" {
		resp.AmountVES, _ = parseAmount(vesRaw)
	}
	return resp, nil
}

func (s *Service) quote(ctx context.Context, table *tabledomain.Table, rates domain.Rates, payments []domain.Payment, actor domain.Actor) (*domain.QuoteResponse, error) {
	cart, err := table.Cart()
	if err != nil {
		return nil, err
	}
	licenseActive, err := s.license.IsActive(ctx)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	bill := domain.ComputeBill(tabledomain.Subtotal(cart), rates)
	settled := domain.IsSettled(bill, payments)
	ok, reason := domain.CanFinalize(domain.GuardInput{
		Settled:       settled,
		Role:          actor.Role,
		RoleAllowed:   s.posCfg.Get().CanBill(actor.Role),
		LicenseActive: licenseActive,
	})

	return &domain.QuoteResponse{
		TableID:   snowflake.ID(table.ID).String(),
		Version:   table.Version,
		Bill:      bill,
		Rates:     rates,
		Payments:  payments,
		Paid:      domain.TotalBasePaid(payments),
		IGTF:      domain.TotalIGTF(payments),
		Remaining: domain.Remaining(bill, payments),
		Change:    domain.Change(bill, payments),
		SaleTotal: domain.SaleTotal(payments),
		Settled:   settled,
		CanFinal:  ok && len(cart) > 0,
		Reason:    reason,
	}, nil
}

func (s *Service) newSale(table *tabledomain.Table, cart []tabledomain.CartLine, bill domain.Bill, payments []domain.Payment, actor domain.Actor, now time.Time) (*saledomain.Sale, error) {
	items := make([]saledomain.Item, 0, len(cart))
	for _, line := range cart {
		items = append(items, saledomain.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	lines := make([]saledomain.PaymentLine, 0, len(payments))
	for _, p := range payments {
		lines = append(lines, saledomain.PaymentLine{
			Method:       string(p.Method),
			AmountUSD:    p.AmountUSD,
			IGTFUSD:      p.IGTFUSD,
			AmountVES:    p.AmountVES,
			ExchangeRate: p.ExchangeRate,
		})
	}

	itemsJSON, err := saledomain.EncodeJSON(items)
	if err != nil {
		return nil, err
	}
	paymentsJSON, err := saledomain.EncodeJSON(lines)
	if err != nil {
		return nil, err
	}

	sale := &saledomain.Sale{
		ID:            s.genID.Generate().Int64(),
		InvoiceNumber: ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		TableID:       table.ID,
		TableNumber:   table.Number,
		TableType:     string(table.Type),
		Items:         itemsJSON,
		SubtotalUSD:   bill.Subtotal,
		IVAUSD:        bill.IVA,
		IGTFUSD:       domain.TotalIGTF(payments),
		TotalUSD:      domain.SaleTotal(payments),
		Payments:      paymentsJSON,
		Status:        saledomain.StatusOpen,
		CreatedAt:     now,
	}
	if actor.UserID != 0 {
		cashier := actor.UserID
		sale.CashierID = &cashier
	}
	return sale, nil
}

func (s *Service) loadTable(ctx context.Context, db *gorm.DB, id int64) (*tabledomain.Table, error) {
	table, err := s.tableRepo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, tabledomain.ErrNotFound
	}
	return table, nil
}

func (s *Service) notify(ctx context.Context, typ orderdomain.EventType, zone string, tableID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, orderdomain.Event{
		Type:       typ,
		Zone:       zone,
		TableID:    snowflake.ID(tableID).String(),
		OccurredAt: s.clock.Now(),
	})
}

// buildPayments recomputes every drafted line server side. A line keeps the
// exchange rate it was drafted at when one is given.
func buildPayments(inputs []domain.PaymentInput, rates domain.Rates) ([]domain.Payment, error) {
	payments := make([]domain.Payment, 0, len(inputs))
	for _, in := range inputs {
		amount, err := parseAmount(in.AmountUSD)
		if err != nil {
			return nil, err
		}
		lineRates := rates
		if raw := strings.TrimSpace(in.ExchangeRate); raw != "" {
			rate, err := decimal.NewFromString(raw)
			if err != nil || !rate.IsPositive() {
				return nil, domain.ErrInvalidRate
			}
			lineRates.ExchangeRate = rate
		}
		p, err := domain.NewPayment(in.Method, amount, lineRates)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}

func parseTableID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidTableID
	}
	return id.Int64(), nil
}
