package models

import "time"

// PointsUpdate is a ledger entry awarding points for a block
type PointsUpdate struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	BlockID   *string   `json:"blockId"`
	UserID    *string   `json:"userId"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreatePointsUpdateInput struct {
	Points  int     `json:"points"`
	BlockID *string `json:"blockId,omitempty"`
	UserID  *string `json:"userId,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

type UpdatePointsUpdateInput struct {
	Points  *int    `json:"points,omitempty"`
	BlockID *string `json:"blockId,omitempty"`
	UserID  *string `json:"userId,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

// SortOrder orders ledger listings by creation time
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder defaults to descending for anything but "asc"
func ParseSortOrder(s string) SortOrder {
	if s == string(SortAsc) {
		return SortAsc
	}
	return SortDesc
}
