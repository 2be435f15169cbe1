package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(testutil.OpenDB(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRoleHierarchy(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"waiter", ObjectOrder, ActionOrderSubmit, true},
		{"waiter", ObjectBilling, ActionBillingOpen, true},
		{"waiter", ObjectBilling, ActionBillingQuote, false},
		{"waiter", ObjectSale, ActionView, false},
		{"cashier", ObjectOrder, ActionOrderSubmit, true},
		{"cashier", ObjectBilling, ActionBillingFinalize, true},
		{"cashier", ObjectSale, ActionSaleDelete, false},
		{"cashier", ObjectProduct, ActionManage, false},
		{"admin", ObjectSale, ActionSaleDelete, true},
		{"admin", ObjectBilling, ActionBillingQuote, true},
		{"admin", ObjectMaintenance, ActionMaintenanceRun, false},
		{"admin", ObjectAudit, ActionView, true},
		{"cashier", ObjectAudit, ActionView, false},
		{"ROOT", ObjectMaintenance, ActionMaintenanceRun, true},
		{"root", ObjectUser, ActionManage, true},
		{"guest", ObjectTable, ActionView, false},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.role, tc.object, tc.action)
		if tc.allowed {
			assert.NoError(t, err, "%s %s %s", tc.role, tc.object, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s %s", tc.role, tc.object, tc.action)
		}
	}
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, " ", ObjectTable, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "admin", "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "admin", ObjectTable, ""), ErrInvalidAction)
}

func TestNewEnforcerIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 25)
}
