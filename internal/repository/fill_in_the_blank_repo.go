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
	fibEntity  = "fillInTheBlank"
	fibColumns = "id, sentence, answer, block_id, hint, difficulty, created_at, updated_at"
)

// FillInTheBlankRepository handles database operations for fill-in-the-blank exercises
type FillInTheBlankRepository struct {
	db database.DBTX
}

// NewFillInTheBlankRepository creates a new fill-in-the-blank repository
func NewFillInTheBlankRepository(db database.DBTX) *FillInTheBlankRepository {
	return &FillInTheBlankRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *FillInTheBlankRepository) WithTx(tx *database.Tx) *FillInTheBlankRepository {
	return &FillInTheBlankRepository{db: tx}
}

func scanFillInTheBlank(s scanner) (*models.FillInTheBlank, error) {
	f := &models.FillInTheBlank{}
	var blockID, hint, difficulty sql.NullString
	if err := s.Scan(&f.ID, &f.Sentence, &f.Answer, &blockID, &hint, &difficulty, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.BlockID = stringPtr(blockID)
	f.Hint = stringPtr(hint)
	f.Difficulty = difficultyPtr(difficulty)
	return f, nil
}

// GetByID retrieves an exercise by ID. It returns nil, nil when absent.
func (r *FillInTheBlankRepository) GetByID(ctx context.Context, id string) (*models.FillInTheBlank, error) {
	f, err := queryOne(ctx, r.db, scanFillInTheBlank, "SELECT "+fibColumns+" FROM fill_in_the_blanks WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(fibEntity, "get fill-in-the-blank", err)
	}
	return f, nil
}

// MustGetByID is GetByID with a NotFound error for absent exercises
func (r *FillInTheBlankRepository) MustGetByID(ctx context.Context, id string) (*models.FillInTheBlank, error) {
	f, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperr.NotFound(fibEntity, id)
	}
	return f, nil
}

func (r *FillInTheBlankRepository) GetAll(ctx context.Context) ([]models.FillInTheBlank, error) {
	return r.query(ctx, "list fill-in-the-blanks", "SELECT "+fibColumns+" FROM fill_in_the_blanks ORDER BY created_at, id")
}

func (r *FillInTheBlankRepository) List(ctx context.Context, opts ListOptions) ([]models.FillInTheBlank, int, error) {
	items, total, err := listQuery(ctx, r.db, scanFillInTheBlank, "fill_in_the_blanks", fibColumns, "created_at DESC, id", opts,
		"sentence", "answer", "hint")
	if err != nil {
		return nil, 0, apperr.Operation(fibEntity, "list fill-in-the-blanks", err)
	}
	return items, total, nil
}

func (r *FillInTheBlankRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "fill_in_the_blanks", id)
	if err != nil {
		return false, apperr.Operation(fibEntity, "check fill-in-the-blank", err)
	}
	return ok, nil
}

func (r *FillInTheBlankRepository) Create(ctx context.Context, in models.CreateFillInTheBlankInput) (*models.FillInTheBlank, error) {
	if err := validation.CreateFillInTheBlank(in); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, fibEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	ts := now()
	f := &models.FillInTheBlank{
		ID:         newID(),
		Sentence:   strings.TrimSpace(in.Sentence),
		Answer:     strings.TrimSpace(in.Answer),
		BlockID:    normalizeRef(in.BlockID),
		Hint:       in.Hint,
		Difficulty: parseDifficulty(in.Difficulty),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	query := `
		INSERT INTO fill_in_the_blanks (id, sentence, answer, block_id, hint, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Sentence, f.Answer, f.BlockID, f.Hint,
		difficultyArg(f.Difficulty), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, storageErr(fibEntity, "create fill-in-the-blank", err)
	}
	return f, nil
}

func (r *FillInTheBlankRepository) Update(ctx context.Context, id string, in models.UpdateFillInTheBlankInput) (*models.FillInTheBlank, error) {
	if err := validation.UpdateFillInTheBlank(in); err != nil {
		return nil, err
	}
	f, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, fibEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	if in.Sentence != nil {
		f.Sentence = strings.TrimSpace(*in.Sentence)
	}
	if in.Answer != nil {
		f.Answer = strings.TrimSpace(*in.Answer)
	}
	if in.BlockID != nil {
		f.BlockID = normalizeRef(in.BlockID)
	}
	if in.Hint != nil {
		f.Hint = in.Hint
	}
	if in.Difficulty != nil {
		f.Difficulty = parseDifficulty(in.Difficulty)
	}
	f.UpdatedAt = now()

	query := `
		UPDATE fill_in_the_blanks
		SET sentence = ?, answer = ?, block_id = ?, hint = ?, difficulty = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query, f.Sentence, f.Answer, f.BlockID, f.Hint, difficultyArg(f.Difficulty), f.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(fibEntity, "update fill-in-the-blank", err)
	}
	return f, nil
}

func (r *FillInTheBlankRepository) Delete(ctx context.Context, id string) (*models.FillInTheBlank, error) {
	f, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM fill_in_the_blanks WHERE id = ?", id); err != nil {
		return nil, storageErr(fibEntity, "delete fill-in-the-blank", err)
	}
	return f, nil
}

// GetBlock returns the exercise's block, or nil when unattached
func (r *FillInTheBlankRepository) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	f, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.BlockID == nil {
		return nil, nil
	}
	return NewBlockRepository(r.db).GetByID(ctx, *f.BlockID)
}

func (r *FillInTheBlankRepository) GetByBlock(ctx context.Context, blockID string) ([]models.FillInTheBlank, error) {
	return r.query(ctx, "get fill-in-the-blanks by block",
		"SELECT "+fibColumns+" FROM fill_in_the_blanks WHERE block_id = ? ORDER BY created_at, id", blockID)
}

// Search matches term against sentence, answer and hint, ignoring case
func (r *FillInTheBlankRepository) Search(ctx context.Context, term string) ([]models.FillInTheBlank, error) {
	cols := []string{"sentence", "answer", "hint"}
	return r.query(ctx, "search fill-in-the-blanks",
		"SELECT "+fibColumns+" FROM fill_in_the_blanks WHERE "+likeClause(r.db.GetDialect(), cols...)+" ORDER BY created_at, id",
		repeatArg(likePattern(term), len(cols))...)
}

// GetRandom returns a uniformly chosen exercise, or nil when there are none
func (r *FillInTheBlankRepository) GetRandom(ctx context.Context) (*models.FillInTheBlank, error) {
	f, err := queryRandom(ctx, r.db, scanFillInTheBlank, "fill_in_the_blanks", fibColumns, "")
	if err != nil {
		return nil, apperr.Operation(fibEntity, "pick random fill-in-the-blank", err)
	}
	return f, nil
}

// GetRandomByBlock picks uniformly among blockID's exercises only
func (r *FillInTheBlankRepository) GetRandomByBlock(ctx context.Context, blockID string) (*models.FillInTheBlank, error) {
	f, err := queryRandom(ctx, r.db, scanFillInTheBlank, "fill_in_the_blanks", fibColumns, " WHERE block_id = ?", blockID)
	if err != nil {
		return nil, apperr.Operation(fibEntity, "pick random fill-in-the-blank", err)
	}
	return f, nil
}

// CheckAnswer reports whether answer matches the stored answer
func (r *FillInTheBlankRepository) CheckAnswer(ctx context.Context, id, answer string) (bool, error) {
	f, err := r.MustGetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return f.Matches(answer), nil
}

func (r *FillInTheBlankRepository) query(ctx context.Context, op, query string, args ...any) ([]models.FillInTheBlank, error) {
	items, err := queryAll(ctx, r.db, scanFillInTheBlank, query, args...)
	if err != nil {
		return nil, apperr.Operation(fibEntity, op, err)
	}
	return items, nil
}
