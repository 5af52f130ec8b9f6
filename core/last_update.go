package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// LastUpdate slot of the last refresh and whether cached values are stale
type LastUpdate struct {
	Slot  uint64 `json:"slot"`
	Stale bool   `json:"stale"`
}

// NewLastUpdate records start stale
func NewLastUpdate(slot uint64) LastUpdate {
	return LastUpdate{
		Slot:  slot,
		Stale: true,
	}
}

// SlotsElapsed slots since the last update
func (u LastUpdate) SlotsElapsed(slot uint64) (uint64, error) {
	if slot < u.Slot {
		return 0, ErrMathUnderflow
	}

	return slot - u.Slot, nil
}

// Update set the slot and clear the stale flag
func (u *LastUpdate) Update(slot uint64) {
	u.Slot = slot
	u.Stale = false
}

// MarkStale values must be refreshed before use
func (u *LastUpdate) MarkStale() {
	u.Stale = true
}

// IsStale fresh only when refreshed exactly at slot
func (u LastUpdate) IsStale(slot uint64) bool {
	return u.Stale || u.Slot != slot
}

// sql

func (u LastUpdate) Value() (driver.Value, error) {
	return jsonValue(u)
}

func (u *LastUpdate) Scan(src interface{}) error {
	return jsonScan(src, u)
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func jsonScan(src interface{}, v interface{}) error {
	switch data := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(data), v)
	case []byte:
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("core: cannot scan %T into %T", src, v)
	}
}
