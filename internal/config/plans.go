package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlanConfig holds the base allowances granted to newly registered tenants.
// Add-on limits always start at zero; they are purchased, never configured.
type PlanConfig struct {
	BasePageLimit int64 `mapstructure:"basePageLimit"`
	BaseRowLimit  int64 `mapstructure:"baseRowLimit"`
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		BasePageLimit: 5000,
		BaseRowLimit:  50000,
	}
}

// PlanConfigHolder serves the current plan defaults and hot-reloads them
// when the underlying quota.yml changes.
type PlanConfigHolder struct {
	current atomic.Value // holds PlanConfig
}

func NewPlanConfigHolder() (*PlanConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("quota")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/docupulse/config") // Volume-mounted config
	v.AddConfigPath("/etc/docupulse")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("DOCUPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPlanConfig()
		v.SetDefault("plan.basePageLimit", defaults.BasePageLimit)
		v.SetDefault("plan.baseRowLimit", defaults.BaseRowLimit)
	}

	var cfg PlanConfig
	if err := v.UnmarshalKey("plan", &cfg); err != nil {
		return nil, err
	}
	if err := validatePlanConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PlanConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanConfig
		if err := v.UnmarshalKey("plan", &updated); err != nil {
			log.Printf("[plan-config] reload failed: %v", err)
			return
		}
		if err := validatePlanConfig(updated); err != nil {
			log.Printf("[plan-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanConfigHolder) Get() PlanConfig {
	return h.current.Load().(PlanConfig)
}

func validatePlanConfig(cfg PlanConfig) error {
	if cfg.BasePageLimit <= 0 {
		return errors.New("plan.basePageLimit must be positive")
	}
	if cfg.BaseRowLimit <= 0 {
		return errors.New("plan.baseRowLimit must be positive")
	}
	return nil
}
