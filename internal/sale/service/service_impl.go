package service

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/providers/pdf"
	"github.com/smallbiznis/comanda/internal/sale/domain"
	"github.com/smallbiznis/comanda/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	PDF    pdf.Provider
	POSCfg *config.POSConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	pdf    pdf.Provider
	posCfg *config.POSConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("sale.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		pdf:    p.PDF,
		posCfg: p.POSCfg,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return nil, err
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	limit := page.Limit()
	if page.PageToken != "" {
		after, err := decodePosition(page.PageToken)
		if err != nil {
			return nil, err
		}
		filter.After = after
	}
	filter.Limit = limit + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	items, info, err := pagination.Page(items, limit, func(sale domain.Sale) pagination.Cursor {
		return pagination.Cursor{
			ID:        strconv.FormatInt(sale.ID, 10),
			CreatedAt: sale.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{Sales: make([]domain.Response, 0, len(items)), PageInfo: info}
	for i := range items {
		resp.Sales = append(resp.Sales, domain.NewResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	sale, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := domain.NewResponse(sale)
	return &resp, nil
}

// Delete removes a sale of the current period. Closed sales are kept for
// the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	sale, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if sale.Status == domain.StatusClosed {
		return domain.ErrClosed
	}
	if err := s.repo.Delete(ctx, s.db, sale.ID); err != nil {
		return err
	}
	s.log.Info("sale deleted",
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("total_usd", sale.TotalUSD.StringFixed(2)),
	)
	return nil
}

func (s *Service) Summary(ctx context.Context, req domain.ListRequest) (*domain.SummaryResponse, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := &domain.SummaryResponse{
		Sales:    len(items),
		TotalUSD: decimal.Zero,
		IVAUSD:   decimal.Zero,
		IGTFUSD:  decimal.Zero,
		ByMethod: []domain.MethodTotal{},
		From:     filter.From,
		To:       filter.To,
	}
	byMethod := make(map[string]*domain.MethodTotal)
	for i := range items {
		sale := &items[i]
		resp.TotalUSD = resp.TotalUSD.Add(sale.TotalUSD)
		resp.IVAUSD = resp.IVAUSD.Add(sale.IVAUSD)
		resp.IGTFUSD = resp.IGTFUSD.Add(sale.IGTFUSD)

		lines, err := sale.DecodePayments()
		if err != nil {
			s.log.Warn("skipping undecodable payments", zap.Int64("sale_id", sale.ID), zap.Error(err))
			continue
		}
		for _, line := range lines {
			total, ok := byMethod[line.Method]
			if !ok {
				total = &domain.MethodTotal{Method: line.Method, TotalUSD: decimal.Zero, AmountVES: decimal.Zero}
				byMethod[line.Method] = total
			}
			total.Lines++
			total.TotalUSD = total.TotalUSD.Add(line.AmountUSD).Add(line.IGTFUSD)
			total.AmountVES = total.AmountVES.Add(line.AmountVES)
		}
	}
	for _, total := range byMethod {
		resp.ByMethod = append(resp.ByMethod, *total)
	}
	sort.Slice(resp.ByMethod, func(i, j int) bool {
		return resp.ByMethod[i].Method < resp.ByMethod[j].Method
	})
	return resp, nil
}

func (s *Service) CloseDay(ctx context.Context) (*domain.CloseDayResponse, error) {
	now := s.clock.Now().UTC()
	closed, err := s.repo.CloseOpen(ctx, s.db, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("sales period closed", zap.Int64("closed", closed), zap.Time("closed_at", now))
	return &domain.CloseDayResponse{Closed: closed, ClosedAt: now}, nil
}

func (s *Service) Receipt(ctx context.Context, id string) (io.Reader, error) {
	sale, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := domain.NewResponse(sale)

	data := pdf.ReceiptData{
		BusinessName:  s.posCfg.Get().BusinessName,
		InvoiceNumber: resp.InvoiceNumber,
		IssuedAt:      resp.CreatedAt.Format("2006-01-02 15:04"),
		TableNumber:   resp.TableNumber,
		Subtotal:      resp.SubtotalUSD.StringFixed(2),
		IVA:           resp.IVAUSD.StringFixed(2),
		IGTF:          resp.IGTFUSD.StringFixed(2),
		Total:         resp.TotalUSD.StringFixed(2),
	}
	if resp.CashierID != nil {
		data.Cashier = *resp.CashierID
	}
	for _, item := range resp.Items {
		data.Items = append(data.Items, pdf.ReceiptItem{
			Description: item.Name,
			Qty:         item.Quantity,
			UnitPrice:   item.Price.StringFixed(2),
			Amount:      item.Amount.StringFixed(2),
		})
	}
	for _, line := range resp.Payments {
		data.Payments = append(data.Payments, pdf.ReceiptPayment{
			Method:    line.Method,
			AmountUSD: line.AmountUSD.Add(line.IGTFUSD).StringFixed(2),
			AmountVES: line.AmountVES.StringFixed(2),
		})
	}
	return s.pdf.GenerateReceipt(ctx, data)
}

func (s *Service) find(ctx context.Context, id string) (*domain.Sale, error) {
	saleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	sale, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return sale, nil
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func parseFilter(req domain.ListRequest) (domain.ListFilter, error) {
	var filter domain.ListFilter

	from, _, err := parseBound(req.From)
	if err != nil {
		return filter, err
	}
	to, plainDate, err := parseBound(req.To)
	if err != nil {
		return filter, err
	}
	if to != nil && plainDate {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return filter, domain.ErrInvalidRange
	}

	switch status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status))); status {
	case "", domain.StatusOpen, domain.StatusClosed:
		filter.Status = status
	default:
		return filter, domain.ErrInvalidStatus
	}

	filter.From = from
	filter.To = to
	return filter, nil
}

// parseBound accepts RFC 3339 or a plain date. The second result reports
// whether value was a plain date.
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
		return nil, false, domain.ErrInvalidRange
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

