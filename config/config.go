package config

import (
	"fmt"
	"time"

	"lending/core"

	configUtil "github.com/fox-one/pkg/config"
)

const (
	defaultSlotDuration    = 500 * time.Millisecond
	defaultPort            = 7778
	defaultRefreshInterval = 10 * time.Second
	defaultAuditInterval   = 5 * time.Minute
	// one day of slots
	defaultPriceRetention = 172_800
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("LENDING")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	withDefaults(config)
	return nil
}

func withDefaults(cfg *core.Config) {
	if cfg.App.SlotDuration <= 0 {
		cfg.App.SlotDuration = defaultSlotDuration
	}

	if cfg.App.Location == "" {
		cfg.App.Location = "UTC"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}

	if cfg.Server.Endpoint == "" {
		cfg.Server.Endpoint = fmt.Sprintf("http://localhost:%d/api", cfg.Server.Port)
	}

	if cfg.Worker.RefreshInterval <= 0 {
		cfg.Worker.RefreshInterval = defaultRefreshInterval
	}

	if cfg.Worker.AuditInterval <= 0 {
		cfg.Worker.AuditInterval = defaultAuditInterval
	}

	if cfg.Worker.PriceRetention == 0 {
		cfg.Worker.PriceRetention = defaultPriceRetention
	}
}
