package scheduler

import (
	"time"

	"github.com/smallbiznis/comanda/internal/config"
)

// Config controls scheduler intervals.
type Config struct {
	RunInterval     time.Duration
	JobTimeout      time.Duration
	LicenseWarnDays int
	EnabledJobs     []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     time.Minute,
		JobTimeout:      30 * time.Second,
		LicenseWarnDays: 3,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.EnabledJobs = cfg.SchedulerJobs
	return c
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LicenseWarnDays <= 0 {
		c.LicenseWarnDays = defaults.LicenseWarnDays
	}
	return c
}
