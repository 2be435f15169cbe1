package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
)

type Service interface {
	// Quote evaluates a draft list of payment lines against the table's bill.
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	// OpenBilling moves a table to billing, or warns when the cart holds
	// items that were never sent to the kitchen.
	OpenBilling(ctx context.Context, req OpenRequest) (*OpenResponse, error)
	CancelBilling(ctx context.Context, tableID string) error
	Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResponse, error)
	Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error)
}

// Actor is the authenticated user acting on the bill.
type Actor struct {
	UserID int64
	Role   string
}

type PaymentInput struct {
	Method    Method `json:"method"`
	AmountUSD string `json:"amount_usd"`
	// ExchangeRate keeps the rate captured when the line was drafted. Empty
	// means the current rate.
	ExchangeRate string `json:"exchange_rate,omitempty"`
}

type QuoteRequest struct {
	TableID  string         `json:"-"`
	Payments []PaymentInput `json:"payments"`
	Actor    Actor          `json:"-"`
}

type QuoteResponse struct {
	TableID   string          `json:"table_id"`
	Version   int64           `json:"version"`
	Bill      Bill            `json:"bill"`
	Rates     Rates           `json:"rates"`
	Payments  []Payment       `json:"payments"`
	Paid      decimal.Decimal `json:"paid_usd"`
	IGTF      decimal.Decimal `json:"igtf_usd"`
	Remaining decimal.Decimal `json:"remaining_usd"`
	Change    decimal.Decimal `json:"change_usd"`
	SaleTotal decimal.Decimal `json:"sale_total_usd"`
	Settled   bool            `json:"settled"`
	CanFinal  bool            `json:"can_finalize"`
	Reason    BlockReason     `json:"blocked_reason,omitempty"`
}

type Decision string

const (
	DecisionNone          Decision = ""
	DecisionSendToKitchen Decision = "send_to_kitchen"
	DecisionBillAnyway    Decision = "bill_anyway"
	DecisionCancel        Decision = "cancel"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionNone, DecisionSendToKitchen, DecisionBillAnyway, DecisionCancel:
		return true
	default:
		return false
	}
}

type OpenRequest struct {
	TableID         string                          `json:"-"`
	ExpectedVersion int64                           `json:"version"`
	Cart            []productdomain.CartRequestLine `json:"cart"`
	Note            *string                         `json:"note"`
	Decision        Decision                        `json:"decision"`
	Actor           Actor                           `json:"-"`
}

type OpenResponse struct {
	// Pending lists unsent deltas. When non-empty and no decision was given
	// the table is left untouched and Choices is populated.
	Pending   []orderdomain.DeltaResponse `json:"pending,omitempty"`
	Choices   []Decision                  `json:"choices,omitempty"`
	Cancelled bool                        `json:"cancelled,omitempty"`
	Quote     *QuoteResponse              `json:"quote,omitempty"`
}

type FinalizeRequest struct {
	TableID         string         `json:"-"`
	ExpectedVersion int64          `json:"version"`
	Payments        []PaymentInput `json:"payments"`
	Actor           Actor          `json:"-"`
}

type FinalizeResponse struct {
	Sale   saledomain.Response `json:"sale"`
	Change decimal.Decimal     `json:"change_usd"`
}

// ConvertRequest converts a drafted amount in either direction. Exactly one of
// AmountUSD and AmountVES is set.
type ConvertRequest struct {
	Method    Method `json:"method"`
	AmountUSD string `json:"amount_usd"`
	AmountVES string `json:"amount_ves"`
}

type ConvertResponse struct {
	Method    Method          `json:"method"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	AmountVES decimal.Decimal `json:"amount_ves"`
	IGTFUSD   decimal.Decimal `json:"igtf_usd"`
	Rate      decimal.Decimal `json:"exchange_rate"`
}

var (
	ErrInvalidTableID  = errors.New("invalid_table_id")
	ErrInvalidDecision = errors.New("invalid_decision")
	ErrEmptyBill       = errors.New("empty_bill")
	ErrBusy            = errors.New("billing_in_progress")
)
