package ratelimiter

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"lending/pkg/number"
)

var (
	// ErrRateLimitExceeded outflow in the current window is above the configured max
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidConfig window duration must be positive
	ErrInvalidConfig = errors.New("invalid rate limiter config")
)

// DefaultWindowDuration one slot window used by DefaultConfig
const DefaultWindowDuration = 1

// Unlimited max outflow that disables the limiter
func Unlimited() number.Decimal {
	return number.MaxUint64()
}

// Config limiter configuration
type Config struct {
	// WindowDuration length of a window in slots
	WindowDuration uint64 `json:"window_duration"`
	// MaxOutflow max total accepted in one window
	MaxOutflow number.Decimal `json:"max_outflow"`
}

// DefaultConfig unlimited outflow
func DefaultConfig() Config {
	return Config{
		WindowDuration: DefaultWindowDuration,
		MaxOutflow:     Unlimited(),
	}
}

// Validate check config
func (c Config) Validate() error {
	if c.WindowDuration == 0 {
		return fmt.Errorf("%w: window duration is zero", ErrInvalidConfig)
	}

	return nil
}

// RateLimiter fixed window outflow counter keyed by slot
type RateLimiter struct {
	Config             Config         `json:"config"`
	WindowStart        uint64         `json:"window_start"`
	CurrentWindowTotal number.Decimal `json:"current_window_total"`
}

// New limiter with an empty window starting at slot
func New(cfg Config, slot uint64) RateLimiter {
	return RateLimiter{
		Config:      cfg,
		WindowStart: slot,
	}
}

// SetConfig swap the config, the accumulated total is kept as is
func (r *RateLimiter) SetConfig(cfg Config) {
	r.Config = cfg
}

func (r *RateLimiter) inWindow(slot uint64) bool {
	if slot < r.WindowStart {
		return false
	}

	return slot-r.WindowStart < r.Config.WindowDuration
}

// Update record amount at slot. The limiter is left untouched on error.
func (r *RateLimiter) Update(slot uint64, amount number.Decimal) error {
	start, total := r.WindowStart, r.CurrentWindowTotal
	if !r.inWindow(slot) {
		start, total = slot, number.Zero()
	}

	total, err := total.Add(amount)
	if err != nil {
		return err
	}

	if total.GreaterThan(r.Config.MaxOutflow) {
		return ErrRateLimitExceeded
	}

	r.WindowStart, r.CurrentWindowTotal = start, total
	return nil
}

// Remaining outflow still accepted at slot
func (r *RateLimiter) Remaining(slot uint64) number.Decimal {
	total := r.CurrentWindowTotal
	if !r.inWindow(slot) {
		total = number.Zero()
	}

	left, err := r.Config.MaxOutflow.Sub(total)
	if err != nil {
		return number.Zero()
	}

	return left
}

// sql

func (r RateLimiter) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func (r *RateLimiter) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = RateLimiter{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), r)
	case []byte:
		return json.Unmarshal(v, r)
	default:
		return fmt.Errorf("ratelimiter: cannot scan %T", src)
	}
}
