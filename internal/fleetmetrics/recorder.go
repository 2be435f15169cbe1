package fleetmetrics

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	"gorm.io/gorm"
)

// Snapshot is the state of one terminal at collection time.
type Snapshot struct {
	OpenTables      int64
	BillingTables   int64
	PendingTickets  int64
	PendingByZone   map[string]int64
	SalesToday      int64
	SalesTodayUSD   decimal.Decimal
	LicenseDaysLeft int
	LicenseActive   bool
	MemoryBytes     uint64
}

// Recorder owns the gauges pushed to the fleet collector.
type Recorder struct {
	registry        *prometheus.Registry
	openTables      prometheus.Gauge
	billingTables   prometheus.Gauge
	pendingTickets  prometheus.Gauge
	pendingByZone   *prometheus.GaugeVec
	salesToday      prometheus.Gauge
	salesTodayUSD   prometheus.Gauge
	licenseDaysLeft prometheus.Gauge
	licenseActive   prometheus.Gauge
	memoryBytes     prometheus.Gauge
}

// NewRecorder registers the terminal gauges on a fresh registry. Every series
// carries the terminal and store labels.
func NewRecorder(terminal, store string) *Recorder {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{
		"terminal": normalizeLabel(terminal),
		"store":    normalizeLabel(store),
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: labels})
		registry.MustRegister(g)
		return g
	}
	pendingByZone := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "comanda_fleet_pending_tickets_by_zone",
		Help:        "Kitchen tickets not yet dispatched, per preparation zone.",
		ConstLabels: labels,
	}, []string{"zone"})
	registry.MustRegister(pendingByZone)
	return &Recorder{
		registry:        registry,
		pendingByZone:   pendingByZone,
		openTables:      gauge("comanda_fleet_open_tables", "Tables that are not available."),
		billingTables:   gauge("comanda_fleet_billing_tables", "Tables waiting for payment."),
		pendingTickets:  gauge("comanda_fleet_pending_tickets", "Kitchen tickets not yet dispatched."),
		salesToday:      gauge("comanda_fleet_sales_today", "Sales finalized since midnight UTC."),
		salesTodayUSD:   gauge("comanda_fleet_sales_today_usd", "Sales total since midnight UTC in USD."),
		licenseDaysLeft: gauge("comanda_fleet_license_days_left", "Days until the license expires, -1 for lifetime."),
		licenseActive:   gauge("comanda_fleet_license_active", "1 when the license is active."),
		memoryBytes:     gauge("comanda_fleet_memory_bytes", "Memory obtained from the OS."),
	}
}

// NewRecorderFor labels the gauges with target's terminal and store.
func NewRecorderFor(target Target) *Recorder {
	return NewRecorder(target.Terminal, target.Store)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Apply(s Snapshot) {
	r.openTables.Set(float64(s.OpenTables))
	r.billingTables.Set(float64(s.BillingTables))
	r.pendingTickets.Set(float64(s.PendingTickets))
	// zones with nothing pending disappear instead of reporting a stale count
	r.pendingByZone.Reset()
	for zone, count := range s.PendingByZone {
		r.pendingByZone.WithLabelValues(zone).Set(float64(count))
	}
	r.salesToday.Set(float64(s.SalesToday))
	r.salesTodayUSD.Set(s.SalesTodayUSD.InexactFloat64())
	r.licenseDaysLeft.Set(float64(s.LicenseDaysLeft))
	if s.LicenseActive {
		r.licenseActive.Set(1)
	} else {
		r.licenseActive.Set(0)
	}
	r.memoryBytes.Set(float64(s.MemoryBytes))
}

// Collect reads a snapshot from the store. license may be nil.
func Collect(ctx context.Context, db *gorm.DB, license licensedomain.Service, now time.Time) (Snapshot, error) {
	var s Snapshot
	conn := db.WithContext(ctx)

	err := conn.Raw(`SELECT COUNT(*) FROM tables WHERE status <> ?`, tabledomain.StatusAvailable).Scan(&s.OpenTables).Error
	if err != nil {
		return s, err
	}
	err = conn.Raw(`SELECT COUNT(*) FROM tables WHERE status = ?`, tabledomain.StatusBilling).Scan(&s.BillingTables).Error
	if err != nil {
		return s, err
	}
	var zones []struct {
		ZoneID *int64
		Count  int64
	}
	err = conn.Raw(`SELECT zone_id, COUNT(*) AS count FROM orders WHERE status <> ? GROUP BY zone_id`, orderdomain.StatusReady).Scan(&zones).Error
	if err != nil {
		return s, err
	}
	s.PendingByZone = make(map[string]int64, len(zones))
	for _, z := range zones {
		s.PendingByZone[orderdomain.ZoneKey(z.ZoneID)] += z.Count
		s.PendingTickets += z.Count
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var sales struct {
		Count int64
		Total decimal.NullDecimal
	}
	err = conn.Raw(`SELECT COUNT(*) AS count, SUM(total_usd) AS total FROM sales WHERE created_at >= ?`, midnight).Scan(&sales).Error
	if err != nil {
		return s, err
	}
	s.SalesToday = sales.Count
	s.SalesTodayUSD = sales.Total.Decimal

	if license != nil {
		status, err := license.Status(ctx)
		if err != nil {
			return s, err
		}
		s.LicenseActive = status.State == licensedomain.StateActive
		s.LicenseDaysLeft = status.DaysLeft
		if status.Lifetime {
			s.LicenseDaysLeft = -1
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.MemoryBytes = mem.Sys
	return s, nil
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
