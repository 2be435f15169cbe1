package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTable       = "table"
	ObjectOrder       = "order"
	ObjectKitchen     = "kitchen"
	ObjectBilling     = "billing"
	ObjectCashier     = "cashier"
	ObjectSale        = "sale"
	ObjectProduct     = "product"
	ObjectZone        = "zone"
	ObjectSettings    = "settings"
	ObjectLicense     = "license"
	ObjectUser        = "user"
	ObjectMaintenance = "maintenance"
	ObjectAudit       = "audit"
)

const (
	ActionView   = "view"
	ActionManage = "manage"

	ActionOrderSubmit   = "order.submit"
	ActionKitchenUpdate = "kitchen.update"

	ActionBillingOpen     = "billing.open"
	ActionBillingQuote    = "billing.quote"
	ActionBillingFinalize = "billing.finalize"

	ActionSaleReceipt  = "sale.receipt"
	ActionSaleCloseDay = "sale.close_day"
	ActionSaleDelete   = "sale.delete"

	ActionStockAdjust     = "stock.adjust"
	ActionLicenseActivate = "license.activate"
	ActionMaintenanceRun  = "maintenance.reset"
)

const rolePrefix = "role:"

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(rolePrefix+role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// seedPolicies installs the built-in role graph. Each role inherits the
// permissions of the one below it: waiter < cashier < admin < root.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	groupings := [][]string{
		{"role:cashier", "role:waiter"},
		{"role:admin", "role:cashier"},
		{"role:root", "role:admin"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g); err != nil {
			return err
		}
	}

	policies := [][]string{
		// Waiter permissions
		{"role:waiter", ObjectTable, ActionView},
		{"role:waiter", ObjectTable, ActionManage},
		{"role:waiter", ObjectOrder, ActionOrderSubmit},
		{"role:waiter", ObjectKitchen, ActionView},
		{"role:waiter", ObjectKitchen, ActionKitchenUpdate},
		{"role:waiter", ObjectBilling, ActionBillingOpen},
		{"role:waiter", ObjectProduct, ActionView},
		{"role:waiter", ObjectZone, ActionView},
		{"role:waiter", ObjectSettings, ActionView},
		{"role:waiter", ObjectLicense, ActionView},

		// Cashier permissions
		{"role:cashier", ObjectBilling, ActionBillingQuote},
		{"role:cashier", ObjectBilling, ActionBillingFinalize},
		{"role:cashier", ObjectCashier, ActionView},
		{"role:cashier", ObjectSale, ActionView},
		{"role:cashier", ObjectSale, ActionSaleReceipt},

		// Admin permissions
		{"role:admin", ObjectProduct, ActionManage},
		{"role:admin", ObjectProduct, ActionStockAdjust},
		{"role:admin", ObjectZone, ActionManage},
		{"role:admin", ObjectSettings, ActionManage},
		{"role:admin", ObjectAudit, ActionView},
		{"role:admin", ObjectSale, ActionSaleCloseDay},
		{"role:admin", ObjectSale, ActionSaleDelete},
		{"role:admin", ObjectLicense, ActionLicenseActivate},
		{"role:admin", ObjectUser, ActionView},
		{"role:admin", ObjectUser, ActionManage},

		// Root owns the terminal
		{"role:root", "*", "*"},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
