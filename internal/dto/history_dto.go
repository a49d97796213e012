package dto

import "github.com/noah-isme/talent-tree-api/internal/history"

// HistoryOrder selects the direction of a history listing.
type HistoryOrder string

const (
	HistoryAscending  HistoryOrder = "asc"
	HistoryDescending HistoryOrder = "desc"
)

// HistoryEntryResponse is the normalised history entry.
type HistoryEntryResponse struct {
	Kind     string `json:"kind"`
	SourceID uint   `json:"source_id"`
	Label    string `json:"label"`
	Date     string `json:"date"`
	Points   int    `json:"points"`
	Content  string `json:"content"`
}

// NewHistoryEntryResponse converts a history entry.
func NewHistoryEntryResponse(entry history.Entry) HistoryEntryResponse {
	return HistoryEntryResponse{
		Kind:     string(entry.Kind),
		SourceID: entry.SourceID,
		Label:    entry.Label,
		Date:     entry.Date.Format("2006-01-02"),
		Points:   entry.Points,
		Content:  entry.Content,
	}
}

// HistoryResponse lists history entries for a profile.
type HistoryResponse struct {
	ProfileID uint                   `json:"profile_id"`
	Order     HistoryOrder           `json:"order"`
	Total     int                    `json:"total"`
	Items     []HistoryEntryResponse `json:"items"`
}
