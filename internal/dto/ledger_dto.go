package dto

import (
	"time"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// LedgerListRequest defines filters for the ledger audit listing.
type LedgerListRequest struct {
	Page        int    `query:"page"`
	PageSize    int    `query:"page_size"`
	Source      string `query:"source" validate:"omitempty,oneof=activity attendance reconcile"`
	ClampedOnly bool   `query:"clamped"`
}

// LedgerEntryResponse serializes a ledger audit entry.
type LedgerEntryResponse struct {
	ID             uint                   `json:"id"`
	OperationID    string                 `json:"operation_id"`
	ProfileID      uint                   `json:"profile_id"`
	Source         string                 `json:"source"`
	SourceID       uint                   `json:"source_id"`
	Reason         string                 `json:"reason"`
	RequestedDelta int                    `json:"requested_delta"`
	AppliedDelta   int                    `json:"applied_delta"`
	BalanceBefore  int                    `json:"balance_before"`
	BalanceAfter   int                    `json:"balance_after"`
	Clamped        bool                   `json:"clamped"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewLedgerEntryResponse converts a ledger entry model into a DTO.
func NewLedgerEntryResponse(model models.LedgerEntry) LedgerEntryResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}

	return LedgerEntryResponse{
		ID:             model.ID,
		OperationID:    model.OperationID,
		ProfileID:      model.ProfileID,
		Source:         model.Source,
		SourceID:       model.SourceID,
		Reason:         model.Reason,
		RequestedDelta: model.RequestedDelta,
		AppliedDelta:   model.AppliedDelta,
		BalanceBefore:  model.BalanceBefore,
		BalanceAfter:   model.BalanceAfter,
		Clamped:        model.Clamped,
		Metadata:       metadata,
		CreatedAt:      model.CreatedAt,
	}
}

// LedgerListResponse wraps paginated ledger entries.
type LedgerListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ReconcileResponse reports the outcome of replaying a profile's event log.
type ReconcileResponse struct {
	ProfileID uint `json:"profile_id"`
	Previous  int  `json:"previous"`
	Balance   int  `json:"balance"`
	Drift     int  `json:"drift"`
	Repaired  bool `json:"repaired"`
}

// BalanceEvent is broadcast after every committed balance change.
type BalanceEvent struct {
	ProfileID   uint      `json:"profile_id"`
	Previous    int       `json:"previous"`
	Balance     int       `json:"balance"`
	Delta       int       `json:"delta"`
	Clamped     bool      `json:"clamped"`
	Level       int       `json:"level"`
	GrowthStage string    `json:"growth_stage"`
	Source      string    `json:"source"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}
