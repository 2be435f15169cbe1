package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/comanda/internal/audit"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	"github.com/smallbiznis/comanda/internal/auth"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/auth/session"
	"github.com/smallbiznis/comanda/internal/authorization"
	"github.com/smallbiznis/comanda/internal/billing"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/kitchen"
	"github.com/smallbiznis/comanda/internal/license"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	"github.com/smallbiznis/comanda/internal/maintenance"
	maintenancedomain "github.com/smallbiznis/comanda/internal/maintenance/domain"
	"github.com/smallbiznis/comanda/internal/observability"
	obslogger "github.com/smallbiznis/comanda/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/comanda/internal/observability/metrics"
	obstracing "github.com/smallbiznis/comanda/internal/observability/tracing"
	"github.com/smallbiznis/comanda/internal/order"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"github.com/smallbiznis/comanda/internal/product"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/internal/providers/pdf"
	"github.com/smallbiznis/comanda/internal/ratelimit"
	"github.com/smallbiznis/comanda/internal/sale"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	"github.com/smallbiznis/comanda/internal/settings"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	"github.com/smallbiznis/comanda/internal/table"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	"github.com/smallbiznis/comanda/internal/zone"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"github.com/smallbiznis/comanda/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Services wires every domain the HTTP surface talks to. Workers reuse it
// without the listener.
var Services = fx.Options(
	telemetry.Module,
	ratelimit.Module,
	authorization.Module,
	auth.Module,
	kitchen.Module,
	pdf.Module,
	settings.Module,
	zone.Module,
	product.Module,
	table.Module,
	order.Module,
	license.Module,
	sale.Module,
	billing.Module,
	maintenance.Module,
	audit.Module,
)

var Module = fx.Module("http.server",
	Services,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg      observability.Config
	Log         *zap.Logger
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
	Telemetry   *telemetry.Metrics      `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Logger:          p.Log,
		Debug:           p.ObsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(kitchenStreamRoute))
	if p.HTTPMetrics != nil {
		r.Use(p.HTTPMetrics.GinMiddleware())
	}
	r.Use(p.Telemetry.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(p.Telemetry.Handler(prometheus.DefaultGatherer)))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	authsvc        authdomain.Service
	sessions       *session.Manager
	authzSvc       authorization.Service
	settingsSvc    settingsdomain.Service
	zoneSvc        zonedomain.Service
	productSvc     productdomain.Service
	tableSvc       tabledomain.Service
	orderSvc       orderdomain.Service
	billingSvc     billingdomain.Service
	saleSvc        saledomain.Service
	licenseSvc     licensedomain.Service
	maintenanceSvc maintenancedomain.Service
	auditSvc       auditdomain.Service
	feed           *kitchen.Feed
	telemetry      *telemetry.Metrics
	heartbeat      time.Duration
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	AuthzSvc       authorization.Service
	SettingsSvc    settingsdomain.Service
	ZoneSvc        zonedomain.Service
	ProductSvc     productdomain.Service
	TableSvc       tabledomain.Service
	OrderSvc       orderdomain.Service
	BillingSvc     billingdomain.Service
	SaleSvc        saledomain.Service
	LicenseSvc     licensedomain.Service
	MaintenanceSvc maintenancedomain.Service
	AuditSvc       auditdomain.Service
	Feed           *kitchen.Feed
	Telemetry      *telemetry.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		authzSvc:       p.AuthzSvc,
		settingsSvc:    p.SettingsSvc,
		zoneSvc:        p.ZoneSvc,
		productSvc:     p.ProductSvc,
		tableSvc:       p.TableSvc,
		orderSvc:       p.OrderSvc,
		billingSvc:     p.BillingSvc,
		saleSvc:        p.SaleSvc,
		licenseSvc:     p.LicenseSvc,
		maintenanceSvc: p.MaintenanceSvc,
		auditSvc:       p.AuditSvc,
		feed:           p.Feed,
		telemetry:      p.Telemetry,
		heartbeat:      streamHeartbeat,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Settings --------
	api.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionView), s.GetSettings)
	api.PUT("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionManage), s.UpdateSettings)

	// -------- Zones --------
	api.GET("/zones", s.authorize(authorization.ObjectZone, authorization.ActionView), s.ListZones)
	api.POST("/zones", s.authorize(authorization.ObjectZone, authorization.ActionManage), s.CreateZone)
	api.DELETE("/zones/:id", s.authorize(authorization.ObjectZone, authorization.ActionManage), s.DeleteZone)

	// -------- Products --------
	api.GET("/products", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	api.POST("/products", s.authorize(authorization.ObjectProduct, authorization.ActionManage), s.CreateProduct)
	api.GET("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.GetProductByID)
	api.PATCH("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionManage), s.UpdateProduct)
	api.DELETE("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionManage), s.DeleteProduct)
	api.PUT("/products/:id/stock", s.authorize(authorization.ObjectProduct, authorization.ActionStockAdjust), s.SetProductStock)

	// -------- Tables --------
	api.GET("/tables", s.authorize(authorization.ObjectTable, authorization.ActionView), s.ListTables)
	api.POST("/tables", s.authorize(authorization.ObjectTable, authorization.ActionManage), s.CreateTable)
	api.GET("/tables/suggest-number", s.authorize(authorization.ObjectTable, authorization.ActionView), s.SuggestTableNumber)
	api.POST("/tables/external", s.authorize(authorization.ObjectTable, authorization.ActionManage), s.OpenExternalTab)
	api.GET("/tables/:id", s.authorize(authorization.ObjectTable, authorization.ActionView), s.GetTableByID)
	api.DELETE("/tables/:id", s.authorize(authorization.ObjectTable, authorization.ActionManage), s.DeleteTable)
	api.GET("/tables/:id/orders", s.authorize(authorization.ObjectTable, authorization.ActionView), s.ListTableOrders)
	api.POST("/tables/:id/orders", s.authorize(authorization.ObjectOrder, authorization.ActionOrderSubmit), s.SubmitOrder)
	api.POST("/tables/:id/pending-delta", s.authorize(authorization.ObjectTable, authorization.ActionView), s.PendingDelta)

	// -------- Billing --------
	api.POST("/tables/:id/billing/open", s.authorize(authorization.ObjectBilling, authorization.ActionBillingOpen), s.OpenBilling)
	api.POST("/tables/:id/billing/cancel", s.authorize(authorization.ObjectBilling, authorization.ActionBillingOpen), s.CancelBilling)
	api.POST("/tables/:id/billing/quote", s.authorize(authorization.ObjectBilling, authorization.ActionBillingQuote), s.QuoteBilling)
	// finalize reports role and license failures as finalize_blocked
	api.POST("/tables/:id/billing/finalize", s.FinalizeBilling)
	api.POST("/billing/convert", s.authorize(authorization.ObjectBilling, authorization.ActionBillingQuote), s.ConvertAmount)

	// -------- Kitchen --------
	api.GET("/kitchen/orders", s.authorize(authorization.ObjectKitchen, authorization.ActionView), s.ListKitchenOrders)
	api.GET("/kitchen/stream", s.authorize(authorization.ObjectKitchen, authorization.ActionView), s.StreamKitchen)
	api.POST("/orders/:id/start", s.authorize(authorization.ObjectKitchen, authorization.ActionKitchenUpdate), s.StartCooking)
	api.POST("/orders/:id/ready", s.authorize(authorization.ObjectKitchen, authorization.ActionKitchenUpdate), s.MarkReady)
	api.POST("/orders/:id/revert", s.authorize(authorization.ObjectKitchen, authorization.ActionKitchenUpdate), s.RevertToKitchen)

	// -------- Cashier --------
	api.GET("/cashier/tables", s.authorize(authorization.ObjectCashier, authorization.ActionView), s.CashierBoard)

	// -------- Sales --------
	api.GET("/sales", s.authorize(authorization.ObjectSale, authorization.ActionView), s.ListSales)
	api.GET("/sales/summary", s.authorize(authorization.ObjectSale, authorization.ActionView), s.SalesSummary)
	api.POST("/sales/close-day", s.authorize(authorization.ObjectSale, authorization.ActionSaleCloseDay), s.CloseDay)
	api.GET("/sales/:id", s.authorize(authorization.ObjectSale, authorization.ActionView), s.GetSaleByID)
	api.GET("/sales/:id/receipt", s.authorize(authorization.ObjectSale, authorization.ActionSaleReceipt), s.SaleReceipt)
	api.DELETE("/sales/:id", s.authorize(authorization.ObjectSale, authorization.ActionSaleDelete), s.DeleteSale)

	// -------- License --------
	api.GET("/license", s.authorize(authorization.ObjectLicense, authorization.ActionView), s.GetLicense)
	api.POST("/license/activate", s.authorize(authorization.ObjectLicense, authorization.ActionLicenseActivate), s.ActivateLicense)

	// -------- Users --------
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionManage), s.CreateUser)
	api.PATCH("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionManage), s.UpdateUser)
	api.DELETE("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionManage), s.DeleteUser)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAudit, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	admin.POST("/reset", s.authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceRun), s.Reset)
}
