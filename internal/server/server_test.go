package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/auth/session"
	"github.com/smallbiznis/comanda/internal/authorization"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/kitchen"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type authStub struct {
	authdomain.Service
	principals map[string]*authdomain.Principal
	loginErr   error
}

func (a *authStub) Authenticate(_ context.Context, token string) (*authdomain.Principal, error) {
	if p, ok := a.principals[token]; ok {
		return p, nil
	}
	return nil, authdomain.ErrInvalidSession
}

func (a *authStub) Login(_ context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return &authdomain.LoginResult{
		User:      authdomain.UserResponse{ID: "1", Username: req.Username, Role: authdomain.RoleCashier},
		RawToken:  "tok-" + req.Username,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

type tableStub struct {
	tabledomain.Service
}

func (tableStub) List(context.Context, tabledomain.ListRequest) ([]tabledomain.Response, error) {
	return []tabledomain.Response{{ID: "10", Number: "1"}}, nil
}

type orderStub struct {
	orderdomain.Service
	submitErr error
	display   func() []orderdomain.Response
}

func (o *orderStub) Submit(context.Context, orderdomain.SubmitRequest) (*orderdomain.SubmitResult, error) {
	if o.submitErr != nil {
		return nil, o.submitErr
	}
	return &orderdomain.SubmitResult{NoOp: true}, nil
}

func (o *orderStub) ListForDisplay(context.Context, string) ([]orderdomain.Response, error) {
	return o.display(), nil
}

type billingStub struct {
	billingdomain.Service
	finalizeErr error
	lastActor   billingdomain.Actor
}

func (b *billingStub) Finalize(_ context.Context, req billingdomain.FinalizeRequest) (*billingdomain.FinalizeResponse, error) {
	b.lastActor = req.Actor
	if b.finalizeErr != nil {
		return nil, b.finalizeErr
	}
	return &billingdomain.FinalizeResponse{Sale: saledomain.Response{
		ID:            "900",
		InvoiceNumber: "F-000007",
		TotalUSD:      decimal.RequireFromString("11.60"),
		Payments:      []saledomain.PaymentLine{{Method: "cash_usd"}},
	}}, nil
}

type auditStub struct {
	auditdomain.Service
	entries []auditdomain.RecordRequest
}

func (a *auditStub) Record(_ context.Context, req auditdomain.RecordRequest) error {
	a.entries = append(a.entries, req)
	return nil
}

type zoneStub struct {
	zonedomain.Service
}

func (zoneStub) Resolve(context.Context, string) (*int64, error) {
	return nil, nil
}

type testServer struct {
	srv     *Server
	auth    *authStub
	orders  *orderStub
	billing *billingStub
	audit   *auditStub
	feed    *kitchen.Feed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer(testutil.OpenDB(t))
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		auth: &authStub{principals: map[string]*authdomain.Principal{
			"waiter":  {UserID: 1, Username: "ana", Role: authdomain.RoleWaiter},
			"cashier": {UserID: 2, Username: "luis", Role: authdomain.RoleCashier},
		}},
		orders:  &orderStub{display: func() []orderdomain.Response { return nil }},
		billing: &billingStub{},
		audit:   &auditStub{},
		feed:    kitchen.NewFeed(),
	}
	ts.srv = &Server{
		engine:     engine,
		log:        zap.NewNop(),
		authsvc:    ts.auth,
		sessions:   session.NewManager(config.Config{}, clock.New()),
		authzSvc:   authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		zoneSvc:    zoneStub{},
		tableSvc:   tableStub{},
		orderSvc:   ts.orders,
		billingSvc: ts.billing,
		auditSvc:   ts.audit,
		feed:       ts.feed,
		heartbeat:  time.Hour,
	}
	ts.srv.registerAuthRoutes()
	ts.srv.registerAPIRoutes()
	ts.srv.registerAdminRoutes()
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"stale", tabledomain.ErrStaleVersion, http.StatusConflict, "stale_version", ""},
		{"wrapped stale", fmt.Errorf("submit: %w", tabledomain.ErrStaleVersion), http.StatusConflict, "stale_version", ""},
		{"out of stock", fmt.Errorf("%w: Tequeños", productdomain.ErrOutOfStock), http.StatusBadRequest, "validation_error", "out_of_stock"},
		{"empty bill", billingdomain.ErrEmptyBill, http.StatusBadRequest, "validation_error", "empty_bill"},
		{"not found", tabledomain.ErrNotFound, http.StatusNotFound, "not_found", ""},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{"busy", billingdomain.ErrBusy, http.StatusConflict, "billing_in_progress", ""},
		{"throttled", authdomain.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts", ""},
		{"session", authdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthorized", ""},
		{"duplicate", tabledomain.ErrDuplicateNumber, http.StatusConflict, "conflict", ""},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
			if tc.code != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			}
		})
	}
}

func TestMapErrorFinalizeBlocked(t *testing.T) {
	err := fmt.Errorf("finalize: %w", &billingdomain.BlockedError{Reason: billingdomain.BlockLicenseInactive})

	status, payload := mapError(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "finalize_blocked", payload.Type)
	assert.Equal(t, "license_inactive", payload.Reason)

	typ, code := classifyErrorForLog(err)
	assert.Equal(t, "finalize_blocked", typ)
	assert.Equal(t, "license_inactive", code)
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/tables", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/tables", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizedRequestReachesHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/tables", "waiter", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []tabledomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "1", body.Data[0].Number)
}

func TestRoleGateForbidsWaiterFromSales(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/sales", "waiter", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)

	rec = ts.do(http.MethodPost, "/admin/reset", "cashier", `{"mode":"partial"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitOrderStaleVersion(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.submitErr = tabledomain.ErrStaleVersion

	rec := ts.do(http.MethodPost, "/api/tables/10/orders", "waiter", `{"version":3,"cart":[]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "stale_version", decodeError(t, rec).Type)
}

func TestSubmitOrderRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/tables/10/orders", "waiter", `{"version":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}

func TestFinalizeBlockedReportsReason(t *testing.T) {
	ts := newTestServer(t)
	ts.billing.finalizeErr = &billingdomain.BlockedError{Reason: billingdomain.BlockRoleForbidden}

	rec := ts.do(http.MethodPost, "/api/tables/10/billing/finalize", "waiter", `{"version":1,"payments":[{"method":"cash_usd","amount_usd":"10"}]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "finalize_blocked", payload.Type)
	assert.Equal(t, "role_forbidden", payload.Reason)
	assert.Equal(t, billingdomain.Actor{UserID: 1, Role: "waiter"}, ts.billing.lastActor)
	assert.Empty(t, ts.audit.entries)
}

func TestFinalizeRecordsAuditEntry(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/tables/10/billing/finalize", "cashier", `{"version":1,"payments":[{"method":"cash_usd","amount_usd":"11.60"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ts.audit.entries, 1)
	entry := ts.audit.entries[0]
	assert.Equal(t, auditdomain.ActionSaleFinalized, entry.Action)
	assert.Equal(t, "900", entry.TargetID)
	assert.Equal(t, "F-000007", entry.Metadata["invoice_number"])
	assert.Equal(t, "11.60", entry.Metadata["total_usd"])
	assert.Equal(t, []string{"cash_usd"}, entry.Metadata["methods"])
}

func TestAuditLogsRequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/audit-logs", "cashier", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/login", "", `{"username":" luis ","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "tok-luis", cookies[0].Value)

	ts.auth.loginErr = authdomain.ErrInvalidCredentials
	rec = ts.do(http.MethodPost, "/auth/login", "", `{"username":"luis","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func readStreamEvent(t *testing.T, r *bufio.Reader) (string, streamMessage) {
	t.Helper()
	var name string
	var msg streamMessage
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
		case line == "" && name != "":
			return name, msg
		}
	}
}

func TestStreamKitchenPushesSnapshots(t *testing.T) {
	ts := newTestServer(t)

	orders := []orderdomain.Response{{ID: "1", Status: orderdomain.StatusPending}}
	ts.orders.display = func() []orderdomain.Response { return orders }

	httpSrv := httptest.NewServer(ts.srv.Engine())
	defer httpSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/api/kitchen/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer waiter")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, msg := readStreamEvent(t, reader)
	assert.Equal(t, "snapshot", name)
	assert.Len(t, msg.Orders, 1)
	assert.Equal(t, kitchen.AlertNone, msg.Alert)

	orders = append(orders, orderdomain.Response{ID: "2", Status: orderdomain.StatusPending})
	ts.feed.Publish(orderdomain.Event{Type: orderdomain.EventTicketCreated, Zone: orderdomain.DefaultZoneKey})

	name, msg = readStreamEvent(t, reader)
	assert.Equal(t, "update", name)
	assert.Len(t, msg.Orders, 2)
	assert.Equal(t, kitchen.AlertNewTicket, msg.Alert)
	require.NotNil(t, msg.Event)
	assert.Equal(t, orderdomain.EventTicketCreated, msg.Event.Type)
}
