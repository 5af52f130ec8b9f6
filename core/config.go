package core

import (
	"time"

	"github.com/fox-one/pkg/store/db"
)

// Config lending config
type Config struct {
	App    App       `json:"app"`
	DB     db.Config `json:"db"`
	Server Server    `json:"server"`
	Worker Worker    `json:"worker"`
	Admins []string  `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	// Genesis unix seconds of slot 0
	Genesis int64 `json:"genesis"`
	// SlotDuration wall time of one slot
	SlotDuration time.Duration `json:"slot_duration"`
	Location     string        `json:"location"`
}

// Server api server config
type Server struct {
	Port int `json:"port"`
	// Endpoint api base url used by the cli client
	Endpoint string `json:"endpoint"`
}

// Worker background worker config
type Worker struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
	AuditInterval   time.Duration `json:"audit_interval"`
	// PriceRetention slots of price history kept
	PriceRetention uint64 `json:"price_retention"`
}
