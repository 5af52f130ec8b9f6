package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
)

const (
	// TransactionKeyReserve reserve snapshot
	TransactionKeyReserve = "reserve"
	// TransactionKeyReserves touched reserve snapshots
	TransactionKeyReserves = "reserves"
	// TransactionKeyObligation obligation snapshot
	TransactionKeyObligation = "obligation"
	// TransactionKeyBorrow borrow result
	TransactionKeyBorrow = "borrow"
	// TransactionKeyRepay repay result
	TransactionKeyRepay = "repay"
	// TransactionKeyPrice price
	TransactionKeyPrice = "price"
)

// TransactionExtraData extra data
type TransactionExtraData map[string]interface{}

// NewTransactionExtra new transaction extra instance
func NewTransactionExtra() TransactionExtraData {
	return make(TransactionExtraData)
}

// Put put data
func (t TransactionExtraData) Put(key string, value interface{}) {
	t[key] = value
}

// Format format as []byte by default
func (t TransactionExtraData) Format() []byte {
	bs, e := json.Marshal(t)
	if e != nil {
		return []byte("{}")
	}

	return bs
}

// Transaction log of a committed operation
type Transaction struct {
	ID           int64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	TraceID      string         `sql:"size:36;unique_index:idx_transactions_trace_id" json:"trace_id,omitempty"`
	Action       ActionType     `sql:"size:32" json:"action,omitempty"`
	ReserveID    string         `sql:"size:36;index:idx_transactions_reserve_id" json:"reserve_id,omitempty"`
	ObligationID string         `sql:"size:36;index:idx_transactions_obligation_id" json:"obligation_id,omitempty"`
	Amount       uint64         `json:"amount,omitempty"`
	Slot         uint64         `json:"slot,omitempty"`
	Data         types.JSONText `sql:"type:TEXT" json:"data,omitempty"`
	CreatedAt    time.Time      `sql:"default:CURRENT_TIMESTAMP;index:idx_transactions_created_at" json:"created_at,omitempty"`
}

// SetExtraData set data
func (t *Transaction) SetExtraData(extra TransactionExtraData) {
	data := []byte("{}")
	if extra != nil {
		data = extra.Format()
	}

	t.Data = data
}

// ExtraData decode the value stored under key into v
func (t *Transaction) ExtraData(key string, v interface{}) error {
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(t.Data, &extra); err != nil {
		return err
	}

	data, ok := extra[key]
	if !ok {
		return fmt.Errorf("transaction %s has no %s", t.TraceID, key)
	}

	return json.Unmarshal(data, v)
}

// TransactionStore transaction store interface
type TransactionStore interface {
	Create(ctx context.Context, tx *db.DB, transaction *Transaction) error
	// FindByTraceID nil without error when no operation used the trace id
	FindByTraceID(ctx context.Context, traceID string) (*Transaction, error)
	List(ctx context.Context, offset time.Time, limit int) ([]*Transaction, error)
}

// BuildTransaction new transaction log record of action at slot
func BuildTransaction(traceID string, action ActionType, slot uint64, extra TransactionExtraData) *Transaction {
	t := &Transaction{
		TraceID: traceID,
		Action:  action,
		Slot:    slot,
	}

	t.SetExtraData(extra)
	return t
}
