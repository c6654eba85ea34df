package models

import "time"

// Folder organizes blocks and other folders into a tree
type Folder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	AuthorID    string    `json:"authorId"`
	ParentID    *string   `json:"parentId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsRoot reports whether the folder has no parent
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// CreateFolderInput is the payload for creating a folder
type CreateFolderInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	AuthorID    string  `json:"authorId"`
	ParentID    *string `json:"parentId,omitempty"`
}

// UpdateFolderInput changes only the non-nil fields. An empty ParentID
// makes the folder a root folder.
type UpdateFolderInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}
