package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData is a finalized sale flattened to display strings.
type ReceiptData struct {
	BusinessName  string
	InvoiceNumber string
	IssuedAt      string
	TableNumber   string
	Cashier       string

	Items []ReceiptItem

	Subtotal string
	IVA      string
	IGTF     string
	Total    string

	Payments []ReceiptPayment
}

type ReceiptItem struct {
	Description string
	Qty         int
	UnitPrice   string
	Amount      string
}

type ReceiptPayment struct {
	Method    string
	AmountUSD string
	AmountVES string
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, receipt.BusinessName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Receipt", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Invoice: "+receipt.InvoiceNumber, props.Text{Top: 0}),
			text.New("Issued: "+receipt.IssuedAt, props.Text{Top: 4}),
		),
		col.New(6).Add(
			text.New("Table: "+receipt.TableNumber, props.Text{Top: 0, Align: align.Right}),
			text.New("Cashier: "+receipt.Cashier, props.Text{Top: 4, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range receipt.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value string
	}{
		{"Subtotal", receipt.Subtotal},
		{"IVA", receipt.IVA},
		{"IGTF", receipt.IGTF},
		{"Total USD", receipt.Total},
	}
	for _, t := range totals {
		style := props.Text{Size: 9}
		if t.label == "Total USD" {
			style.Style = fontstyle.Bold
		}
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, t.label, style),
			text.NewCol(2, t.value, props.Text{Size: style.Size, Style: style.Style, Align: align.Right}),
		)
	}

	if len(receipt.Payments) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Payments", props.Text{Style: fontstyle.Bold, Size: 10, Top: 3}),
		)
		for _, pay := range receipt.Payments {
			m.AddRow(7,
				text.NewCol(6, pay.Method, props.Text{Size: 9}),
				text.NewCol(3, pay.AmountUSD+" USD", props.Text{Size: 9, Align: align.Right}),
				text.NewCol(3, pay.AmountVES+" VES", props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
