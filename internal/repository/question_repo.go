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
	questionEntity  = "question"
	questionColumns = "id, text, block_id, type, difficulty, points, created_at, updated_at"
)

// QuestionRepository handles database operations for questions
type QuestionRepository struct {
	db database.DBTX
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db database.DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *QuestionRepository) WithTx(tx *database.Tx) *QuestionRepository {
	return &QuestionRepository{db: tx}
}

func scanQuestion(s scanner) (*models.Question, error) {
	q := &models.Question{}
	var blockID, qType, difficulty sql.NullString
	var points sql.NullInt64
	if err := s.Scan(&q.ID, &q.Text, &blockID, &qType, &difficulty, &points, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.BlockID = stringPtr(blockID)
	q.Type = stringPtr(qType)
	q.Difficulty = difficultyPtr(difficulty)
	q.Points = intPtr(points)
	return q, nil
}

func difficultyPtr(ns sql.NullString) *models.Difficulty {
	if !ns.Valid {
		return nil
	}
	d := models.Difficulty(ns.String)
	return &d
}

// parseDifficulty normalizes an already validated difficulty for storage
func parseDifficulty(s *string) *models.Difficulty {
	if s == nil {
		return nil
	}
	d, _ := models.ParseDifficulty(*s)
	return &d
}

func difficultyArg(d *models.Difficulty) any {
	if d == nil {
		return nil
	}
	return string(*d)
}

// GetByID retrieves a question by ID. It returns nil, nil when absent.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	q, err := queryOne(ctx, r.db, scanQuestion, "SELECT "+questionColumns+" FROM questions WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(questionEntity, "get question", err)
	}
	return q, nil
}

// MustGetByID is GetByID with a NotFound error for absent questions
func (r *QuestionRepository) MustGetByID(ctx context.Context, id string) (*models.Question, error) {
	q, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound(questionEntity, id)
	}
	return q, nil
}

func (r *QuestionRepository) GetAll(ctx context.Context) ([]models.Question, error) {
	return r.query(ctx, "list questions", "SELECT "+questionColumns+" FROM questions ORDER BY created_at, id")
}

func (r *QuestionRepository) List(ctx context.Context, opts ListOptions) ([]models.Question, int, error) {
	questions, total, err := listQuery(ctx, r.db, scanQuestion, "questions", questionColumns, "created_at DESC, id", opts, "text")
	if err != nil {
		return nil, 0, apperr.Operation(questionEntity, "list questions", err)
	}
	return questions, total, nil
}

func (r *QuestionRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "questions", id)
	if err != nil {
		return false, apperr.Operation(questionEntity, "check question", err)
	}
	return ok, nil
}

func (r *QuestionRepository) Create(ctx context.Context, in models.CreateQuestionInput) (*models.Question, error) {
	if err := validation.CreateQuestion(in); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, questionEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	ts := now()
	q := &models.Question{
		ID:         newID(),
		Text:       strings.TrimSpace(in.Text),
		BlockID:    normalizeRef(in.BlockID),
		Type:       in.Type,
		Difficulty: parseDifficulty(in.Difficulty),
		Points:     in.Points,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	query := `
		INSERT INTO questions (id, text, block_id, type, difficulty, points, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, q.ID, q.Text, q.BlockID, q.Type, difficultyArg(q.Difficulty),
		q.Points, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return nil, storageErr(questionEntity, "create question", err)
	}
	return q, nil
}

func (r *QuestionRepository) Update(ctx context.Context, id string, in models.UpdateQuestionInput) (*models.Question, error) {
	if err := validation.UpdateQuestion(in); err != nil {
		return nil, err
	}
	q, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, questionEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	if in.Text != nil {
		q.Text = strings.TrimSpace(*in.Text)
	}
	if in.BlockID != nil {
		q.BlockID = normalizeRef(in.BlockID)
	}
	if in.Type != nil {
		q.Type = in.Type
	}
	if in.Difficulty != nil {
		q.Difficulty = parseDifficulty(in.Difficulty)
	}
	if in.Points != nil {
		q.Points = in.Points
	}
	q.UpdatedAt = now()

	query := `
		UPDATE questions
		SET text = ?, block_id = ?, type = ?, difficulty = ?, points = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query, q.Text, q.BlockID, q.Type, difficultyArg(q.Difficulty), q.Points, q.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(questionEntity, "update question", err)
	}
	return q, nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) (*models.Question, error) {
	q, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id); err != nil {
		return nil, storageErr(questionEntity, "delete question", err)
	}
	return q, nil
}

// GetBlock returns the question's block, or nil when unattached
func (r *QuestionRepository) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	q, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.BlockID == nil {
		return nil, nil
	}
	return NewBlockRepository(r.db).GetByID(ctx, *q.BlockID)
}

func (r *QuestionRepository) GetByBlock(ctx context.Context, blockID string) ([]models.Question, error) {
	return r.query(ctx, "get questions by block",
		"SELECT "+questionColumns+" FROM questions WHERE block_id = ? ORDER BY created_at, id", blockID)
}

func (r *QuestionRepository) GetByType(ctx context.Context, qType string) ([]models.Question, error) {
	return r.query(ctx, "get questions by type",
		"SELECT "+questionColumns+" FROM questions WHERE type = ? ORDER BY created_at, id", qType)
}

func (r *QuestionRepository) GetByDifficulty(ctx context.Context, difficulty models.Difficulty) ([]models.Question, error) {
	return r.query(ctx, "get questions by difficulty",
		"SELECT "+questionColumns+" FROM questions WHERE difficulty = ? ORDER BY created_at, id", string(difficulty))
}

func (r *QuestionRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Question, error) {
	questions, err := queryAll(ctx, r.db, scanQuestion, query, args...)
	if err != nil {
		return nil, apperr.Operation(questionEntity, op, err)
	}
	return questions, nil
}
