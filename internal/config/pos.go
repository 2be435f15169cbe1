package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// POSConfig is the operational policy of a terminal. It is read from pos.yml
// and hot reloaded on change.
type POSConfig struct {
	Licenses          []LicensePlan `mapstructure:"licenses"`
	KitchenDelayMins  int           `mapstructure:"kitchenDelayMinutes"`
	BillingRoles      []string      `mapstructure:"billingRoles"`
	DefaultRates      DefaultRates  `mapstructure:"defaultRates"`
	ExternalTabPrefix string        `mapstructure:"externalTabPrefix"`
	BusinessName      string        `mapstructure:"businessName"`
}

// LicensePlan maps an activation key to a duration. Lifetime plans never expire.
type LicensePlan struct {
	Key      string `mapstructure:"key"`
	Days     int    `mapstructure:"days"`
	Lifetime bool   `mapstructure:"lifetime"`
}

type DefaultRates struct {
	ExchangeRate string `mapstructure:"exchangeRate"`
	IVA          string `mapstructure:"iva"`
	IGTF         string `mapstructure:"igtf"`
	IVAEnabled   bool   `mapstructure:"ivaEnabled"`
	IGTFEnabled  bool   `mapstructure:"igtfEnabled"`
}

func DefaultPOSConfig() POSConfig {
	return POSConfig{
		Licenses: []LicensePlan{
			{Key: "GASTRO-TRIAL-7", Days: 7},
			{Key: "GASTRO-PRO-30", Days: 30},
			{Key: "GASTRO-YEAR-365", Days: 365},
			{Key: "GASTRO-FULL-LIFETIME", Lifetime: true},
		},
		KitchenDelayMins: 15,
		BillingRoles:     []string{"root", "admin", "cashier"},
		DefaultRates: DefaultRates{
			ExchangeRate: "36.5",
			IVA:          "0.16",
			IGTF:         "0.03",
			IVAEnabled:   true,
			IGTFEnabled:  true,
		},
		ExternalTabPrefix: "EXT",
		BusinessName:      "Comanda",
	}
}

// FindLicense returns the plan registered under key, matched case-insensitively.
func (c POSConfig) FindLicense(key string) (LicensePlan, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, plan := range c.Licenses {
		if strings.ToUpper(plan.Key) == key {
			return plan, true
		}
	}
	return LicensePlan{}, false
}

// CanBill reports whether role may finalize a sale.
func (c POSConfig) CanBill(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, allowed := range c.BillingRoles {
		if strings.ToLower(allowed) == role {
			return true
		}
	}
	return false
}

type POSConfigHolder struct {
	current atomic.Value // holds POSConfig
}

// NewStaticPOSConfigHolder wraps a fixed config. Used by tests and tools.
func NewStaticPOSConfigHolder(cfg POSConfig) *POSConfigHolder {
	holder := &POSConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPOSConfigHolder() (*POSConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pos")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/comanda/config")
	v.AddConfigPath("/etc/comanda")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMANDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPOSConfig()
	v.SetDefault("pos.licenses", defaults.Licenses)
	v.SetDefault("pos.kitchenDelayMinutes", defaults.KitchenDelayMins)
	v.SetDefault("pos.billingRoles", defaults.BillingRoles)
	v.SetDefault("pos.defaultRates", defaults.DefaultRates)
	v.SetDefault("pos.externalTabPrefix", defaults.ExternalTabPrefix)
	v.SetDefault("pos.businessName", defaults.BusinessName)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg POSConfig
	if err := v.UnmarshalKey("pos", &cfg); err != nil {
		return nil, err
	}
	if err := validatePOSConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPOSConfigHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated POSConfig
		if err := v.UnmarshalKey("pos", &updated); err != nil {
			log.Printf("[pos-config] reload failed: %v", err)
			return
		}
		if err := validatePOSConfig(updated); err != nil {
			log.Printf("[pos-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pos-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *POSConfigHolder) Get() POSConfig {
	return h.current.Load().(POSConfig)
}

func validatePOSConfig(cfg POSConfig) error {
	if len(cfg.BillingRoles) == 0 {
		return errors.New("pos.billingRoles cannot be empty")
	}
	if cfg.KitchenDelayMins <= 0 {
		return errors.New("pos.kitchenDelayMinutes must be positive")
	}
	seen := make(map[string]struct{}, len(cfg.Licenses))
	for _, plan := range cfg.Licenses {
		key := strings.ToUpper(strings.TrimSpace(plan.Key))
		if key == "" {
			return errors.New("pos.licenses key cannot be empty")
		}
		if !plan.Lifetime && plan.Days <= 0 {
			return fmt.Errorf("pos.licenses %s must have positive days", key)
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("pos.licenses %s is duplicated", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
