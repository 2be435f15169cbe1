package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comanda/pkg/db/pagination"
)

type Service interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	// Summary totals what was collected per payment method.
	Summary(ctx context.Context, req ListRequest) (*SummaryResponse, error)
	// CloseDay moves every open sale into the closed period.
	CloseDay(ctx context.Context) (*CloseDayResponse, error)
	Receipt(ctx context.Context, id string) (io.Reader, error)
}

// ListRequest bounds a listing. From and To accept RFC 3339 timestamps or
// plain dates; a plain To date is inclusive of that whole day.
type ListRequest struct {
	From      string `form:"from"`
	To        string `form:"to"`
	Status    string `form:"status"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type ListResponse struct {
	Sales    []Response          `json:"sales"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Response struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	TableID       string          `json:"table_id"`
	TableNumber   string          `json:"table_number"`
	TableType     string          `json:"table_type"`
	Items         []ItemResponse  `json:"items"`
	SubtotalUSD   decimal.Decimal `json:"subtotal_usd"`
	IVAUSD        decimal.Decimal `json:"iva_usd"`
	IGTFUSD       decimal.Decimal `json:"igtf_usd"`
	TotalUSD      decimal.Decimal `json:"total_usd"`
	Payments      []PaymentLine   `json:"payments"`
	Status        Status          `json:"status"`
	CashierID     *string         `json:"cashier_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

type ItemResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

func NewResponse(s *Sale) Response {
	resp := Response{
		ID:            snowflake.ID(s.ID).String(),
		InvoiceNumber: s.InvoiceNumber,
		TableID:       snowflake.ID(s.TableID).String(),
		TableNumber:   s.TableNumber,
		TableType:     s.TableType,
		Items:         []ItemResponse{},
		SubtotalUSD:   s.SubtotalUSD,
		IVAUSD:        s.IVAUSD,
		IGTFUSD:       s.IGTFUSD,
		TotalUSD:      s.TotalUSD,
		Payments:      []PaymentLine{},
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
		ClosedAt:      s.ClosedAt,
	}
	if s.CashierID != nil {
		cashier := snowflake.ID(*s.CashierID).String()
		resp.CashierID = &cashier
	}
	if items, err := s.DecodeItems(); err == nil {
		for _, item := range items {
			resp.Items = append(resp.Items, ItemResponse{
				ProductID: snowflake.ID(item.ProductID).String(),
				Name:      item.Name,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Amount:    item.Amount(),
			})
		}
	}
	if payments, err := s.DecodePayments(); err == nil {
		resp.Payments = payments
	}
	return resp
}

type MethodTotal struct {
	Method    string          `json:"method"`
	Lines     int             `json:"lines"`
	TotalUSD  decimal.Decimal `json:"total_usd"`
	AmountVES decimal.Decimal `json:"amount_ves"`
}

type SummaryResponse struct {
	Sales    int             `json:"sales"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	IVAUSD   decimal.Decimal `json:"iva_usd"`
	IGTFUSD  decimal.Decimal `json:"igtf_usd"`
	ByMethod []MethodTotal   `json:"by_method"`
	From     *time.Time      `json:"from,omitempty"`
	To       *time.Time      `json:"to,omitempty"`
}

type CloseDayResponse struct {
	Closed   int64     `json:"closed"`
	ClosedAt time.Time `json:"closed_at"`
}

var (
	ErrInvalidID     = errors.New("invalid_sale_id")
	ErrInvalidRange  = errors.New("invalid_date_range")
	ErrInvalidStatus = errors.New("invalid_sale_status")
	ErrNotFound      = errors.New("sale_not_found")
	ErrClosed        = errors.New("sale_closed")
)
