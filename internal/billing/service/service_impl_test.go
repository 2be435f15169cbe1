package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	licenserepository "github.com/smallbiznis/comanda/internal/license/repository"
	licenseservice "github.com/smallbiznis/comanda/internal/license/service"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	orderrepository "github.com/smallbiznis/comanda/internal/order/repository"
	orderservice "github.com/smallbiznis/comanda/internal/order/service"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	productrepository "github.com/smallbiznis/comanda/internal/product/repository"
	productservice "github.com/smallbiznis/comanda/internal/product/service"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	salerepository "github.com/smallbiznis/comanda/internal/sale/repository"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/comanda/internal/settings/repository"
	settingsservice "github.com/smallbiznis/comanda/internal/settings/service"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	tablerepository "github.com/smallbiznis/comanda/internal/table/repository"
	"github.com/smallbiznis/comanda/internal/testutil"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	zonerepository "github.com/smallbiznis/comanda/internal/zone/repository"
	zoneservice "github.com/smallbiznis/comanda/internal/zone/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []orderdomain.Event
}

func (r *recorder) Notify(_ context.Context, ev orderdomain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(typ orderdomain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	svc         domain.Service
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	tableRepo   tabledomain.Repository
	orderRepo   orderdomain.Repository
	productRepo productdomain.Repository
	saleRepo    saledomain.Repository
	orders      orderdomain.Service
	products    productdomain.Service
	license     licensedomain.Service
	events      *recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t,
		&orderdomain.Order{},
		&tabledomain.Table{},
		&productdomain.Product{},
		&zonedomain.Zone{},
		&settingsdomain.Settings{},
		&saledomain.Sale{},
		&licensedomain.License{},
	)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	posCfg := config.NewStaticPOSConfigHolder(config.DefaultPOSConfig())

	f := &fixture{
		db:          db,
		node:        node,
		clock:       clk,
		tableRepo:   tablerepository.Provide(),
		orderRepo:   orderrepository.Provide(),
		productRepo: productrepository.Provide(),
		saleRepo:    salerepository.Provide(),
		events:      &recorder{},
	}

	zones := zoneservice.New(zoneservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: zonerepository.Provide(),
	})
	f.products = productservice.New(productservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: f.productRepo, ZoneRepo: zonerepository.Provide(),
	})
	settings := settingsservice.New(settingsservice.Params{
		DB: db, Log: log, Clock: clk, Repo: settingsrepository.Provide(), POSCfg: posCfg,
	})
	f.license = licenseservice.New(licenseservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: licenserepository.Provide(), POSCfg: posCfg,
	})
	f.orders = orderservice.New(orderservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        f.orderRepo,
		TableRepo:   f.tableRepo,
		ProductSvc:  f.products,
		ZoneSvc:     zones,
		SettingsSvc: settings,
		POSCfg:      posCfg,
	})
	f.svc = New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		TableRepo:   f.tableRepo,
		OrderRepo:   f.orderRepo,
		ProductRepo: f.productRepo,
		SaleRepo:    f.saleRepo,
		OrderSvc:    f.orders,
		SettingsSvc: settings,
		LicenseSvc:  f.license,
		POSCfg:      posCfg,
		Notifier:    f.events,
	})
	return f
}

func (f *fixture) activate(t *testing.T) {
	t.Helper()
	_, err := f.license.Activate(context.Background(), licensedomain.ActivateRequest{Key: "GASTRO-PRO-30"})
	require.NoError(t, err)
}

func (f *fixture) product(t *testing.T, name, price string, stock *int) string {
	t.Helper()
	resp, err := f.products.Create(context.Background(), productdomain.CreateRequest{
		Name: name, Price: price, Stock: stock,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) table(t *testing.T, number string, typ tabledomain.Type) string {
	t.Helper()
	now := f.clock.Now()
	tbl := &tabledomain.Table{
		ID:        f.node.Generate().Int64(),
		Number:    number,
		Type:      typ,
		Status:    tabledomain.StatusAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.tableRepo.Insert(context.Background(), f.db, tbl))
	return snowflake.ID(tbl.ID).String()
}

func (f *fixture) find(t *testing.T, tableID string) *tabledomain.Table {
	t.Helper()
	id, err := snowflake.ParseString(tableID)
	require.NoError(t, err)
	tbl, err := f.tableRepo.FindByID(context.Background(), f.db, id.Int64())
	require.NoError(t, err)
	return tbl
}

func (f *fixture) submit(t *testing.T, tableID string, version int64, cart ...productdomain.CartRequestLine) int64 {
	t.Helper()
	res, err := f.orders.Submit(context.Background(), orderdomain.SubmitRequest{
		TableID: tableID, ExpectedVersion: version, Cart: cart,
	})
	require.NoError(t, err)
	return res.Table.Version
}

func (f *fixture) sales(t *testing.T) []saledomain.Sale {
	t.Helper()
	items, err := f.saleRepo.List(context.Background(), f.db, saledomain.ListFilter{})
	require.NoError(t, err)
	return items
}

func ln(productID string, qty int) productdomain.CartRequestLine {
	return productdomain.CartRequestLine{ProductID: productID, Quantity: qty}
}

func pay(method domain.Method, amount string) domain.PaymentInput {
	return domain.PaymentInput{Method: method, AmountUSD: amount}
}

func intPtr(v int) *int { return &v }

var cashier = domain.Actor{UserID: 7, Role: "cashier"}

func TestFinalizeRecordsSaleAndReleasesTable(t *testing.T) {
	f := setup(t)
	f.activate(t)
	ctx := context.Background()

	arepa := f.product(t, "Arepa", "10.00", intPtr(5))
	cafe := f.product(t, "Cafe", "1.60", nil)
	table := f.table(t, "01", tabledomain.TypeTable)
	// subtotal 21.60, iva 3.46, base 25.06
	version := f.submit(t, table, 1, ln(arepa, 2), ln(cafe, 1))

	resp, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID:         table,
		ExpectedVersion: version,
		Payments:        []domain.PaymentInput{pay(domain.MethodCashUSD, "10.00"), pay(domain.MethodCard, "15.06")},
		Actor:           cashier,
	})
	require.NoError(t, err)

	assert.Equal(t, "21.60", resp.Sale.SubtotalUSD.StringFixed(2))
	assert.Equal(t, "3.46", resp.Sale.IVAUSD.StringFixed(2))
	assert.Equal(t, "0.30", resp.Sale.IGTFUSD.StringFixed(2))
	assert.Equal(t, "25.36", resp.Sale.TotalUSD.StringFixed(2))
	assert.True(t, resp.Change.IsZero())
	require.Len(t, resp.Sale.Payments, 2)
	assert.Equal(t, "375.95", resp.Sale.Payments[0].AmountVES.StringFixed(2))
	require.Len(t, resp.Sale.Items, 2)
	require.NotNil(t, resp.Sale.CashierID)
	assert.Len(t, resp.Sale.InvoiceNumber, 26)

	tbl := f.find(t, table)
	require.NotNil(t, tbl)
	assert.Equal(t, tabledomain.StatusAvailable, tbl.Status)
	assert.True(t, tbl.CurrentTotalUSD.IsZero())
	assert.Nil(t, tbl.StartTime)
	assert.Greater(t, tbl.Version, version)
	cart, err := tbl.Cart()
	require.NoError(t, err)
	assert.Empty(t, cart)

	orders, err := f.orderRepo.ListByTable(ctx, f.db, tbl.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	stocked, err := f.products.Get(ctx, arepa)
	require.NoError(t, err)
	assert.Equal(t, 3, stocked.Stock)
	untracked, err := f.products.Get(ctx, cafe)
	require.NoError(t, err)
	assert.Equal(t, productdomain.UntrackedStock, untracked.Stock)

	assert.Len(t, f.sales(t), 1)
	assert.Equal(t, 1, f.events.count(orderdomain.EventTicketCleared))
}

func TestFinalizeDeletesExternalTab(t *testing.T) {
	f := setup(t)
	f.activate(t)

	item := f.product(t, "Pabellon", "12.00", nil)
	tab := f.table(t, "EXT-01", tabledomain.TypeTakeaway)
	version := f.submit(t, tab, 1, ln(item, 1))

	resp, err := f.svc.Finalize(context.Background(), domain.FinalizeRequest{
		TableID:         tab,
		ExpectedVersion: version,
		Payments:        []domain.PaymentInput{pay(domain.MethodZelle, "15.00")},
		Actor:           cashier,
	})
	require.NoError(t, err)
	// base 13.92, paid 15.00
	assert.Equal(t, "1.08", resp.Change.StringFixed(2))
	assert.Equal(t, "takeaway", resp.Sale.TableType)
	assert.Nil(t, f.find(t, tab))
}

func TestFinalizeBlockedLeavesEverythingUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	item := f.product(t, "Arepa", "20.00", intPtr(4))
	table := f.table(t, "02", tabledomain.TypeTable)
	// base 23.20
	version := f.submit(t, table, 1, ln(item, 1))

	cases := []struct {
		name     string
		activate bool
		actor    domain.Actor
		payments []domain.PaymentInput
		reason   domain.BlockReason
	}{
		{"license inactive", false, cashier, []domain.PaymentInput{pay(domain.MethodCard, "23.20")}, domain.BlockLicenseInactive},
		{"waiter cannot bill", false, domain.Actor{Role: "waiter"}, []domain.PaymentInput{pay(domain.MethodCard, "23.20")}, domain.BlockRoleForbidden},
		{"one cent short", true, cashier, []domain.PaymentInput{pay(domain.MethodCard, "23.19")}, domain.BlockNotSettled},
	}
	for _, tc := range cases {
		if tc.activate {
			f.activate(t)
		}
		_, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
			TableID: table, ExpectedVersion: version, Payments: tc.payments, Actor: tc.actor,
		})
		require.Error(t, err, tc.name)
		assert.ErrorIs(t, err, domain.ErrFinalizeBlocked, tc.name)
		var blocked *domain.BlockedError
		require.True(t, errors.As(err, &blocked), tc.name)
		assert.Equal(t, tc.reason, blocked.Reason, tc.name)
	}

	assert.Empty(t, f.sales(t))
	tbl := f.find(t, table)
	assert.Equal(t, version, tbl.Version)
	assert.Equal(t, tabledomain.StatusOccupied, tbl.Status)
	stocked, err := f.products.Get(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 4, stocked.Stock)
}

func TestFinalizeRootBypassesLicense(t *testing.T) {
	f := setup(t)

	item := f.product(t, "Arepa", "20.00", nil)
	table := f.table(t, "03", tabledomain.TypeTable)
	version := f.submit(t, table, 1, ln(item, 1))

	_, err := f.svc.Finalize(context.Background(), domain.FinalizeRequest{
		TableID:         table,
		ExpectedVersion: version,
		Payments:        []domain.PaymentInput{pay(domain.MethodCard, "23.20")},
		Actor:           domain.Actor{Role: domain.RoleRoot},
	})
	require.NoError(t, err)
}

func TestFinalizeRejectsStaleVersionAndEmptyBill(t *testing.T) {
	f := setup(t)
	f.activate(t)
	ctx := context.Background()

	empty := f.table(t, "04", tabledomain.TypeTable)
	_, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: empty, ExpectedVersion: 1, Payments: []domain.PaymentInput{pay(domain.MethodCard, "1.00")}, Actor: cashier,
	})
	assert.ErrorIs(t, err, domain.ErrEmptyBill)

	item := f.product(t, "Arepa", "20.00", nil)
	table := f.table(t, "05", tabledomain.TypeTable)
	version := f.submit(t, table, 1, ln(item, 1))

	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: table, ExpectedVersion: version - 1, Payments: []domain.PaymentInput{pay(domain.MethodCard, "23.20")}, Actor: cashier,
	})
	assert.ErrorIs(t, err, tabledomain.ErrStaleVersion)

	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: table, ExpectedVersion: version, Payments: []domain.PaymentInput{pay(domain.MethodCard, "-5")}, Actor: cashier,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, f.sales(t))
}

func TestOpenBillingWarnsAboutUnsentItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	arepa := f.product(t, "Arepa", "10.00", nil)
	jugo := f.product(t, "Jugo", "2.00", nil)
	table := f.table(t, "06", tabledomain.TypeTable)
	version := f.submit(t, table, 1, ln(arepa, 1))

	cart := []productdomain.CartRequestLine{ln(arepa, 1), ln(jugo, 2)}

	warned, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version, Cart: cart, Actor: cashier,
	})
	require.NoError(t, err)
	require.Len(t, warned.Pending, 1)
	assert.Equal(t, jugo, warned.Pending[0].ProductID)
	assert.Equal(t, 2, warned.Pending[0].Quantity)
	assert.Equal(t, []domain.Decision{domain.DecisionSendToKitchen, domain.DecisionBillAnyway, domain.DecisionCancel}, warned.Choices)
	assert.Nil(t, warned.Quote)
	assert.Equal(t, tabledomain.StatusOccupied, f.find(t, table).Status)

	cancelled, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version, Cart: cart, Decision: domain.DecisionCancel, Actor: cashier,
	})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, version, f.find(t, table).Version)

	sent, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version, Cart: cart, Decision: domain.DecisionSendToKitchen, Actor: cashier,
	})
	require.NoError(t, err)
	require.NotNil(t, sent.Quote)
	// subtotal 14.00, iva 2.24
	assert.Equal(t, "16.24", sent.Quote.Bill.BaseTotal.StringFixed(2))
	assert.False(t, sent.Quote.Settled)

	tbl := f.find(t, table)
	assert.Equal(t, tabledomain.StatusBilling, tbl.Status)
	assert.Equal(t, version+1, tbl.Version)
	orders, err := f.orderRepo.ListByTable(ctx, f.db, tbl.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOpenBillingAnywayBillsWhatWasSent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	arepa := f.product(t, "Arepa", "10.00", nil)
	jugo := f.product(t, "Jugo", "2.00", nil)
	table := f.table(t, "07", tabledomain.TypeTable)
	version := f.submit(t, table, 1, ln(arepa, 1))

	resp, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID:         table,
		ExpectedVersion: version,
		Cart:            []productdomain.CartRequestLine{ln(arepa, 1), ln(jugo, 1)},
		Decision:        domain.DecisionBillAnyway,
		Actor:           cashier,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, "11.60", resp.Quote.Bill.BaseTotal.StringFixed(2))
	assert.Equal(t, version, resp.Quote.Version)
	assert.Equal(t, tabledomain.StatusBilling, f.find(t, table).Status)

	require.NoError(t, f.svc.CancelBilling(ctx, table))
	assert.Equal(t, tabledomain.StatusOccupied, f.find(t, table).Status)

	_, err = f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version, Decision: "maybe",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
}

func TestOpenBillingWithoutPendingGoesStraightToBilling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	arepa := f.product(t, "Arepa", "10.00", nil)
	table := f.table(t, "08", tabledomain.TypeTable)
	version := f.submit(t, table, 1, ln(arepa, 2))

	resp, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version, Cart: []productdomain.CartRequestLine{ln(arepa, 2)}, Actor: cashier,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Pending)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, "23.20", resp.Quote.Remaining.StringFixed(2))

	_, err = f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: table, ExpectedVersion: version + 5, Cart: []productdomain.CartRequestLine{ln(arepa, 2)}, Actor: cashier,
	})
	assert.ErrorIs(t, err, tabledomain.ErrStaleVersion)

	empty := f.table(t, "09", tabledomain.TypeTable)
	_, err = f.svc.OpenBilling(ctx, domain.OpenRequest{TableID: empty, ExpectedVersion: 1, Actor: cashier})
	assert.ErrorIs(t, err, domain.ErrEmptyBill)
}

func TestBillingSurvivesStockDrawnByOtherTables(t *testing.T) {
	f := setup(t)
	f.activate(t)
	ctx := context.Background()

	arepa := f.product(t, "Arepa", "10.00", intPtr(5))
	first := f.table(t, "10", tabledomain.TypeTable)
	second := f.table(t, "11", tabledomain.TypeTable)
	third := f.table(t, "12", tabledomain.TypeTable)

	firstVersion := f.submit(t, first, 1, ln(arepa, 3))
	secondVersion := f.submit(t, second, 1, ln(arepa, 2))

	_, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: first, ExpectedVersion: firstVersion,
		Payments: []domain.PaymentInput{pay(domain.MethodCard, "34.80")}, Actor: cashier,
	})
	require.NoError(t, err)

	thirdVersion := f.submit(t, third, 1, ln(arepa, 1))
	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: third, ExpectedVersion: thirdVersion,
		Payments: []domain.PaymentInput{pay(domain.MethodCard, "11.60")}, Actor: cashier,
	})
	require.NoError(t, err)

	stocked, err := f.products.Get(ctx, arepa)
	require.NoError(t, err)
	require.Equal(t, 1, stocked.Stock)

	// the second table was served before the stock ran down
	resp, err := f.svc.OpenBilling(ctx, domain.OpenRequest{
		TableID: second, ExpectedVersion: secondVersion, Cart: []productdomain.CartRequestLine{ln(arepa, 2)}, Actor: cashier,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Pending)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, "23.20", resp.Quote.Remaining.StringFixed(2))

	billing := f.find(t, second)
	_, err = f.svc.Finalize(ctx, domain.FinalizeRequest{
		TableID: second, ExpectedVersion: billing.Version,
		Payments: []domain.PaymentInput{pay(domain.MethodCard, "23.20")}, Actor: cashier,
	})
	require.NoError(t, err)

	stocked, err = f.products.Get(ctx, arepa)
	require.NoError(t, err)
	assert.Equal(t, 0, stocked.Stock)
	assert.False(t, stocked.Available)
}

func TestQuoteTracksPayments(t *testing.T) {
	f := setup(t)
	f.activate(t)

	arepa := f.product(t, "Arepa", "10.00", nil)
	table := f.table(t, "10", tabledomain.TypeTable)
	f.submit(t, table, 1, ln(arepa, 2))

	quote, err := f.svc.Quote(context.Background(), domain.QuoteRequest{
		TableID:  table,
		Payments: []domain.PaymentInput{pay(domain.MethodCashUSD, "10.00")},
		Actor:    cashier,
	})
	require.NoError(t, err)
	assert.Equal(t, "10.00", quote.Paid.StringFixed(2))
	assert.Equal(t, "0.30", quote.IGTF.StringFixed(2))
	assert.Equal(t, "13.20", quote.Remaining.StringFixed(2))
	assert.Equal(t, "10.30", quote.SaleTotal.StringFixed(2))
	assert.False(t, quote.CanFinal)
	assert.Equal(t, domain.BlockNotSettled, quote.Reason)

	quote, err = f.svc.Quote(context.Background(), domain.QuoteRequest{
		TableID: table,
		Payments: []domain.PaymentInput{
			pay(domain.MethodCashUSD, "10.00"),
			{Method: domain.MethodPagoMovil, AmountUSD: "13.20", ExchangeRate: "40"},
		},
		Actor: cashier,
	})
	require.NoError(t, err)
	assert.True(t, quote.Settled)
	assert.True(t, quote.CanFinal)
	assert.Equal(t, "528.00", quote.Payments[1].AmountVES.StringFixed(2))
}

func TestConvertBothDirections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	toVES, err := f.svc.Convert(ctx, domain.ConvertRequest{Method: domain.MethodCashUSD, AmountUSD: "10"})
	require.NoError(t, err)
	assert.Equal(t, "375.95", toVES.AmountVES.StringFixed(2))
	assert.Equal(t, "0.30", toVES.IGTFUSD.StringFixed(2))

	toUSD, err := f.svc.Convert(ctx, domain.ConvertRequest{Method: domain.MethodCashUSD, AmountVES: "375.95"})
	require.NoError(t, err)
	assert.Equal(t, "10.00", toUSD.AmountUSD.StringFixed(2))

	_, err = f.svc.Convert(ctx, domain.ConvertRequest{Method: domain.MethodCard})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.svc.Convert(ctx, domain.ConvertRequest{Method: "gold", AmountUSD: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
}
