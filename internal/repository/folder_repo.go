package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nuclear/internal/apperr"
	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/validation"
)

const (
	folderEntity  = "folder"
	folderColumns = "id, name, description, author_id, parent_id, created_at, updated_at"

	// maxFolderDepth bounds ancestor walks so a corrupted tree cannot loop forever
	maxFolderDepth = 1000
)

// ErrFolderCycle is wrapped by errors returned when a parent assignment
// would make a folder its own ancestor.
var ErrFolderCycle = errors.New("folder cycle")

// FolderRepository handles database operations for the folder tree
type FolderRepository struct {
	db database.DBTX
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(db database.DBTX) *FolderRepository {
	return &FolderRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *FolderRepository) WithTx(tx *database.Tx) *FolderRepository {
	return &FolderRepository{db: tx}
}

func scanFolder(s scanner) (*models.Folder, error) {
	folder := &models.Folder{}
	var description, parentID sql.NullString
	err := s.Scan(&folder.ID, &folder.Name, &description, &folder.AuthorID, &parentID,
		&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return nil, err
	}
	folder.Description = stringPtr(description)
	folder.ParentID = stringPtr(parentID)
	return folder, nil
}

// GetByID retrieves a folder by ID. It returns nil, nil when absent.
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := queryOne(ctx, r.db, scanFolder, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(folderEntity, "get folder", err)
	}
	return folder, nil
}

// MustGetByID is GetByID with a NotFound error for absent folders
func (r *FolderRepository) MustGetByID(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, apperr.NotFound(folderEntity, id)
	}
	return folder, nil
}

func (r *FolderRepository) GetAll(ctx context.Context) ([]models.Folder, error) {
	return r.query(ctx, "list folders", "SELECT "+folderColumns+" FROM folders ORDER BY created_at, id")
}

// List returns one page of folders matching opts.Search on name or description
func (r *FolderRepository) List(ctx context.Context, opts ListOptions) ([]models.Folder, int, error) {
	folders, total, err := listQuery(ctx, r.db, scanFolder, "folders", folderColumns, "name, id", opts, "name", "description")
	if err != nil {
		return nil, 0, apperr.Operation(folderEntity, "list folders", err)
	}
	return folders, total, nil
}

func (r *FolderRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "folders", id)
	if err != nil {
		return false, apperr.Operation(folderEntity, "check folder", err)
	}
	return ok, nil
}

// Create inserts a folder. A parent must exist and share the owner.
func (r *FolderRepository) Create(ctx context.Context, in models.CreateFolderInput) (*models.Folder, error) {
	if err := validation.CreateFolder(in); err != nil {
		return nil, err
	}
	authorID := strings.TrimSpace(in.AuthorID)
	if err := checkRef(ctx, r.db, folderEntity, "authorId", "users", &authorID); err != nil {
		return nil, err
	}

	ts := now()
	folder := &models.Folder{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		AuthorID:    authorID,
		ParentID:    normalizeRef(in.ParentID),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if folder.ParentID != nil {
		if err := r.checkParent(ctx, folder, *folder.ParentID); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO folders (id, name, description, author_id, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, folder.ID, folder.Name, folder.Description, folder.AuthorID,
		folder.ParentID, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		return nil, storageErr(folderEntity, "create folder", err)
	}
	return folder, nil
}

// Update changes the supplied fields of a folder. A parent change is
// rejected when the new parent is the folder itself or one of its
// descendants; the stored parent is left untouched in that case.
//
// The check and the write run in one transaction holding the owner's row
// lock. Parents always share the owner, so concurrent moves inside one tree
// are serialized and cannot each pass the check and persist a cycle.
func (r *FolderRepository) Update(ctx context.Context, id string, in models.UpdateFolderInput) (*models.Folder, error) {
	if err := validation.UpdateFolder(in); err != nil {
		return nil, err
	}
	current, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var folder *models.Folder
	err = inTx(ctx, r.db, func(db database.DBTX) error {
		if err := lockOwner(ctx, db, current.AuthorID); err != nil {
			return err
		}
		var err error
		folder, err = (&FolderRepository{db: db}).update(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (r *FolderRepository) update(ctx context.Context, id string, in models.UpdateFolderInput) (*models.Folder, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parentID := normalizeRef(in.ParentID)
		if parentID != nil {
			if err := r.checkParent(ctx, folder, *parentID); err != nil {
				return nil, err
			}
		}
		folder.ParentID = parentID
	}
	if in.Name != nil {
		folder.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		folder.Description = in.Description
	}
	folder.UpdatedAt = now()

	query := "UPDATE folders SET name = ?, description = ?, parent_id = ?, updated_at = ? WHERE id = ?"
	_, err = r.db.ExecContext(ctx, query, folder.Name, folder.Description, folder.ParentID, folder.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(folderEntity, "update folder", err)
	}
	return folder, nil
}

// lockOwner takes the owner's row lock for the rest of the transaction.
// On SQLite the write also claims the database write lock up front.
func lockOwner(ctx context.Context, db database.DBTX, ownerID string) error {
	if _, err := db.ExecContext(ctx, "UPDATE users SET updated_at = updated_at WHERE id = ?", ownerID); err != nil {
		return apperr.Operation(folderEntity, "lock folder tree", err)
	}
	return nil
}

// Move reparents a folder. A nil or empty parentID moves it to the root.
func (r *FolderRepository) Move(ctx context.Context, id string, parentID *string) (*models.Folder, error) {
	if parentID == nil {
		root := ""
		parentID = &root
	}
	return r.Update(ctx, id, models.UpdateFolderInput{ParentID: parentID})
}

func (r *FolderRepository) checkParent(ctx context.Context, folder *models.Folder, parentID string) error {
	if parentID == folder.ID {
		return cycleErr(folder.ID, parentID)
	}
	parent, err := r.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return apperr.Relationship(folderEntity, "parentId", parentID)
	}
	if parent.AuthorID != folder.AuthorID {
		return apperr.RelationshipMessage(folderEntity, "parentId", "parent folder belongs to another owner")
	}
	descendant, err := r.IsDescendant(ctx, parentID, folder.ID)
	if err != nil {
		return err
	}
	if descendant {
		return cycleErr(folder.ID, parentID)
	}
	return nil
}

func cycleErr(id, parentID string) error {
	return &apperr.Error{
		Entity:  folderEntity,
		Kind:    apperr.KindValidation,
		Message: fmt.Sprintf("moving folder %s under %s would create a cycle", id, parentID),
		Fields:  map[string]string{"parentId": "would create a cycle"},
		Err:     ErrFolderCycle,
	}
}

// Delete removes an empty folder. Folders that still contain folders or
// blocks fail with a conflict; see FolderService.ForceDelete.
func (r *FolderRepository) Delete(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	contents, err := count(ctx, r.db,
		"SELECT (SELECT COUNT(*) FROM folders WHERE parent_id = ?) + (SELECT COUNT(*) FROM blocks WHERE folder_id = ?)", id, id)
	if err != nil {
		return nil, apperr.Operation(folderEntity, "count folder contents", err)
	}
	if contents > 0 {
		return nil, apperr.Conflict(folderEntity, fmt.Sprintf("folder %s is not empty", id))
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id); err != nil {
		return nil, storageErr(folderEntity, "delete folder", err)
	}
	return folder, nil
}

// Reparent moves every child folder and block of id under newParentID
// (nil for the root). Callers run it in the same transaction as Delete.
func (r *FolderRepository) Reparent(ctx context.Context, id string, newParentID *string) error {
	ts := now()
	if _, err := r.db.ExecContext(ctx, "UPDATE folders SET parent_id = ?, updated_at = ? WHERE parent_id = ?", newParentID, ts, id); err != nil {
		return storageErr(folderEntity, "reparent child folders", err)
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE blocks SET folder_id = ?, updated_at = ? WHERE folder_id = ?", newParentID, ts, id); err != nil {
		return storageErr(folderEntity, "reparent blocks", err)
	}
	return nil
}

// GetOwner returns the folder's owner
func (r *FolderRepository) GetOwner(ctx context.Context, id string) (*models.User, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserRepository(r.db).GetByID(ctx, folder.AuthorID)
}

// GetParent returns the parent folder, or nil for root folders
func (r *FolderRepository) GetParent(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.ParentID == nil {
		return nil, nil
	}
	return r.GetByID(ctx, *folder.ParentID)
}

// GetChildren returns the direct child folders
func (r *FolderRepository) GetChildren(ctx context.Context, id string) ([]models.Folder, error) {
	return r.query(ctx, "get child folders",
		"SELECT "+folderColumns+" FROM folders WHERE parent_id = ? ORDER BY name, id", id)
}

// GetBlocks returns the blocks filed directly in the folder
func (r *FolderRepository) GetBlocks(ctx context.Context, id string) ([]models.Block, error) {
	return NewBlockRepository(r.db).GetByFolder(ctx, id)
}

// GetRootFolders returns ownerID's top-level folders
func (r *FolderRepository) GetRootFolders(ctx context.Context, ownerID string) ([]models.Folder, error) {
	return r.query(ctx, "get root folders",
		"SELECT "+folderColumns+" FROM folders WHERE author_id = ? AND parent_id IS NULL ORDER BY name, id", ownerID)
}

// GetAncestors returns the chain of parents, nearest first
func (r *FolderRepository) GetAncestors(ctx context.Context, id string) ([]models.Folder, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ancestors := []models.Folder{}
	next := folder.ParentID
	for depth := 0; next != nil; depth++ {
		if depth >= maxFolderDepth {
			return nil, apperr.Operation(folderEntity, "walk ancestors", fmt.Errorf("hierarchy deeper than %d at %s", maxFolderDepth, id))
		}
		parent, err := r.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		ancestors = append(ancestors, *parent)
		next = parent.ParentID
	}
	return ancestors, nil
}

// GetPath returns folder names from the root down to id
func (r *FolderRepository) GetPath(ctx context.Context, id string) ([]string, error) {
	folder, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ancestors, err := r.GetAncestors(ctx, id)
	if err != nil {
		return nil, err
	}

	path := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i].Name)
	}
	return append(path, folder.Name), nil
}

// IsDescendant reports whether id sits anywhere below ancestorID
func (r *FolderRepository) IsDescendant(ctx context.Context, id, ancestorID string) (bool, error) {
	current := id
	for depth := 0; depth < maxFolderDepth; depth++ {
		var parentID sql.NullString
		err := r.db.QueryRowContext(ctx, "SELECT parent_id FROM folders WHERE id = ?", current).Scan(&parentID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Operation(folderEntity, "walk ancestors", err)
		}
		if !parentID.Valid {
			return false, nil
		}
		if parentID.String == ancestorID {
			return true, nil
		}
		current = parentID.String
	}
	return false, apperr.Operation(folderEntity, "walk ancestors", fmt.Errorf("hierarchy deeper than %d at %s", maxFolderDepth, id))
}

func (r *FolderRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Folder, error) {
	folders, err := queryAll(ctx, r.db, scanFolder, query, args...)
	if err != nil {
		return nil, apperr.Operation(folderEntity, op, err)
	}
	return folders, nil
}
