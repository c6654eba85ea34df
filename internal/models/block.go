package models

import "time"

// Block is a unit of content authored by a user
type Block struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	FolderID  *string   `json:"folderId"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateBlockInput is the payload for creating a block
type CreateBlockInput struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	AuthorID  string  `json:"authorId"`
	FolderID  *string `json:"folderId,omitempty"`
	Published bool    `json:"published,omitempty"`
}

// UpdateBlockInput changes only the non-nil fields. An empty FolderID
// moves the block out of its folder.
type UpdateBlockInput struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	AuthorID  *string `json:"authorId,omitempty"`
	FolderID  *string `json:"folderId,omitempty"`
	Published *bool   `json:"published,omitempty"`
}
