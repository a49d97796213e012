package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ledger entry sources.
const (
	LedgerSourceActivity   = "activity"
	LedgerSourceAttendance = "attendance"
	LedgerSourceReconcile  = "reconcile"
)

// LedgerEntry is the append-only audit record written with every balance
// mutation. Clamped is set when a decrement was truncated at zero.
type LedgerEntry struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	OperationID    string            `gorm:"size:36;not null;index" json:"operation_id"`
	ProfileID      uint              `gorm:"not null;index" json:"profile_id"`
	Source         string            `gorm:"size:16;not null" json:"source"`
	SourceID       uint              `json:"source_id"`
	Reason         string            `gorm:"size:32;not null" json:"reason"`
	RequestedDelta int               `gorm:"not null" json:"requested_delta"`
	AppliedDelta   int               `gorm:"not null" json:"applied_delta"`
	BalanceBefore  int               `gorm:"not null" json:"balance_before"`
	BalanceAfter   int               `gorm:"not null" json:"balance_after"`
	Clamped        bool              `gorm:"not null;default:false" json:"clamped"`
	Metadata       datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
}
