package models

import "time"

// Topic is a named subject within a block
type Topic struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Examples    *string   `json:"examples"`
	BlockID     *string   `json:"blockId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateTopicInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Examples    *string `json:"examples,omitempty"`
	BlockID     *string `json:"blockId,omitempty"`
}

type UpdateTopicInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Examples    *string `json:"examples,omitempty"`
	BlockID     *string `json:"blockId,omitempty"`
}
