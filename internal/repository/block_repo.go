package repository

import (
	"context"
	"database/sql"
	"strings"

	"nuclear/internal/apperr"
	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/validation"
)

const (
	blockEntity  = "block"
	blockColumns = "id, title, content, author_id, folder_id, published, created_at, updated_at"
)

// BlockRepository handles database operations for content blocks
type BlockRepository struct {
	db database.DBTX
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db database.DBTX) *BlockRepository {
	return &BlockRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *BlockRepository) WithTx(tx *database.Tx) *BlockRepository {
	return &BlockRepository{db: tx}
}

func scanBlock(s scanner) (*models.Block, error) {
	block := &models.Block{}
	var folderID sql.NullString
	err := s.Scan(&block.ID, &block.Title, &block.Content, &block.AuthorID, &folderID,
		&block.Published, &block.CreatedAt, &block.UpdatedAt)
	if err != nil {
		return nil, err
	}
	block.FolderID = stringPtr(folderID)
	return block, nil
}

// GetByID retrieves a block by ID. It returns nil, nil when absent.
func (r *BlockRepository) GetByID(ctx context.Context, id string) (*models.Block, error) {
	block, err := queryOne(ctx, r.db, scanBlock, "SELECT "+blockColumns+" FROM blocks WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(blockEntity, "get block", err)
	}
	return block, nil
}

// MustGetByID is GetByID with a NotFound error for absent blocks
func (r *BlockRepository) MustGetByID(ctx context.Context, id string) (*models.Block, error) {
	block, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, apperr.NotFound(blockEntity, id)
	}
	return block, nil
}

func (r *BlockRepository) GetAll(ctx context.Context) ([]models.Block, error) {
	return r.query(ctx, "list blocks", "SELECT "+blockColumns+" FROM blocks ORDER BY created_at, id")
}

// List returns one page of blocks matching opts.Search on title or content
func (r *BlockRepository) List(ctx context.Context, opts ListOptions) ([]models.Block, int, error) {
	blocks, total, err := listQuery(ctx, r.db, scanBlock, "blocks", blockColumns, "created_at DESC, id", opts, "title", "content")
	if err != nil {
		return nil, 0, apperr.Operation(blockEntity, "list blocks", err)
	}
	return blocks, total, nil
}

func (r *BlockRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "blocks", id)
	if err != nil {
		return false, apperr.Operation(blockEntity, "check block", err)
	}
	return ok, nil
}

// Create inserts a block after checking its author and folder exist
func (r *BlockRepository) Create(ctx context.Context, in models.CreateBlockInput) (*models.Block, error) {
	if err := validation.CreateBlock(in); err != nil {
		return nil, err
	}
	authorID := strings.TrimSpace(in.AuthorID)
	if err := checkRef(ctx, r.db, blockEntity, "authorId", "users", &authorID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, blockEntity, "folderId", "folders", in.FolderID); err != nil {
		return nil, err
	}

	ts := now()
	block := &models.Block{
		ID:        newID(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		AuthorID:  authorID,
		FolderID:  normalizeRef(in.FolderID),
		Published: in.Published,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	query := `
		INSERT INTO blocks (id, title, content, author_id, folder_id, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, block.ID, block.Title, block.Content, block.AuthorID,
		block.FolderID, block.Published, block.CreatedAt, block.UpdatedAt)
	if err != nil {
		return nil, storageErr(blockEntity, "create block", err)
	}
	return block, nil
}

// Update changes the supplied fields of a block
func (r *BlockRepository) Update(ctx context.Context, id string, in models.UpdateBlockInput) (*models.Block, error) {
	if err := validation.UpdateBlock(in); err != nil {
		return nil, err
	}
	block, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, blockEntity, "authorId", "users", in.AuthorID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, blockEntity, "folderId", "folders", in.FolderID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		block.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		block.Content = *in.Content
	}
	if in.AuthorID != nil {
		block.AuthorID = *in.AuthorID
	}
	if in.FolderID != nil {
		block.FolderID = normalizeRef(in.FolderID)
	}
	if in.Published != nil {
		block.Published = *in.Published
	}
	block.UpdatedAt = now()

	query := `
		UPDATE blocks
		SET title = ?, content = ?, author_id = ?, folder_id = ?, published = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query, block.Title, block.Content, block.AuthorID, block.FolderID,
		block.Published, block.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(blockEntity, "update block", err)
	}
	return block, nil
}

// SetPublished toggles the published flag
func (r *BlockRepository) SetPublished(ctx context.Context, id string, published bool) (*models.Block, error) {
	return r.Update(ctx, id, models.UpdateBlockInput{Published: &published})
}

// Delete removes a block. Its quizzes, questions, topics, exercises and
// points updates are kept with their block reference cleared.
func (r *BlockRepository) Delete(ctx context.Context, id string) (*models.Block, error) {
	block, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM blocks WHERE id = ?", id); err != nil {
		return nil, storageErr(blockEntity, "delete block", err)
	}
	return block, nil
}

// GetAuthor returns the block's author
func (r *BlockRepository) GetAuthor(ctx context.Context, id string) (*models.User, error) {
	block, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserRepository(r.db).GetByID(ctx, block.AuthorID)
}

// GetFolder returns the block's folder, or nil for unfiled blocks
func (r *BlockRepository) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	block, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if block.FolderID == nil {
		return nil, nil
	}
	return NewFolderRepository(r.db).GetByID(ctx, *block.FolderID)
}

func (r *BlockRepository) GetQuestions(ctx context.Context, id string) ([]models.Question, error) {
	return NewQuestionRepository(r.db).GetByBlock(ctx, id)
}

func (r *BlockRepository) GetQuizzes(ctx context.Context, id string) ([]models.Quiz, error) {
	return NewQuizRepository(r.db).GetByBlock(ctx, id)
}

func (r *BlockRepository) GetTopics(ctx context.Context, id string) ([]models.Topic, error) {
	return NewTopicRepository(r.db).GetByBlock(ctx, id)
}

func (r *BlockRepository) GetFillInTheBlanks(ctx context.Context, id string) ([]models.FillInTheBlank, error) {
	return NewFillInTheBlankRepository(r.db).GetByBlock(ctx, id)
}

func (r *BlockRepository) GetPointsUpdates(ctx context.Context, id string) ([]models.PointsUpdate, error) {
	return NewPointsUpdateRepository(r.db).GetByBlock(ctx, id, models.SortDesc)
}

// GetByAuthor returns the blocks written by authorID
func (r *BlockRepository) GetByAuthor(ctx context.Context, authorID string) ([]models.Block, error) {
	return r.query(ctx, "get blocks by author",
		"SELECT "+blockColumns+" FROM blocks WHERE author_id = ? ORDER BY created_at, id", authorID)
}

// GetByFolder returns the blocks filed in folderID
func (r *BlockRepository) GetByFolder(ctx context.Context, folderID string) ([]models.Block, error) {
	return r.query(ctx, "get blocks by folder",
		"SELECT "+blockColumns+" FROM blocks WHERE folder_id = ? ORDER BY title, id", folderID)
}

// GetPublished returns every published block, newest first
func (r *BlockRepository) GetPublished(ctx context.Context) ([]models.Block, error) {
	return r.query(ctx, "get published blocks",
		"SELECT "+blockColumns+" FROM blocks WHERE published = ? ORDER BY created_at DESC, id", true)
}

func (r *BlockRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Block, error) {
	blocks, err := queryAll(ctx, r.db, scanBlock, query, args...)
	if err != nil {
		return nil, apperr.Operation(blockEntity, op, err)
	}
	return blocks, nil
}
