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
	quizEntity  = "quiz"
	quizColumns = "id, title, description, block_id, topic_id, time_limit, passing_score, created_at, updated_at"
)

// QuizRepository handles database operations for quizzes
type QuizRepository struct {
	db database.DBTX
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db database.DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *QuizRepository) WithTx(tx *database.Tx) *QuizRepository {
	return &QuizRepository{db: tx}
}

func scanQuiz(s scanner) (*models.Quiz, error) {
	quiz := &models.Quiz{}
	var description, blockID, topicID sql.NullString
	var timeLimit, passingScore sql.NullInt64
	err := s.Scan(&quiz.ID, &quiz.Title, &description, &blockID, &topicID, &timeLimit, &passingScore,
		&quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return nil, err
	}
	quiz.Description = stringPtr(description)
	quiz.BlockID = stringPtr(blockID)
	quiz.TopicID = stringPtr(topicID)
	quiz.TimeLimit = intPtr(timeLimit)
	quiz.PassingScore = intPtr(passingScore)
	return quiz, nil
}

// GetByID retrieves a quiz by ID. It returns nil, nil when absent.
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := queryOne(ctx, r.db, scanQuiz, "SELECT "+quizColumns+" FROM quizzes WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(quizEntity, "get quiz", err)
	}
	return quiz, nil
}

// MustGetByID is GetByID with a NotFound error for absent quizzes
func (r *QuizRepository) MustGetByID(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, apperr.NotFound(quizEntity, id)
	}
	return quiz, nil
}

func (r *QuizRepository) GetAll(ctx context.Context) ([]models.Quiz, error) {
	return r.query(ctx, "list quizzes", "SELECT "+quizColumns+" FROM quizzes ORDER BY created_at, id")
}

func (r *QuizRepository) List(ctx context.Context, opts ListOptions) ([]models.Quiz, int, error) {
	quizzes, total, err := listQuery(ctx, r.db, scanQuiz, "quizzes", quizColumns, "created_at DESC, id", opts, "title", "description")
	if err != nil {
		return nil, 0, apperr.Operation(quizEntity, "list quizzes", err)
	}
	return quizzes, total, nil
}

func (r *QuizRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "quizzes", id)
	if err != nil {
		return false, apperr.Operation(quizEntity, "check quiz", err)
	}
	return ok, nil
}

func (r *QuizRepository) Create(ctx context.Context, in models.CreateQuizInput) (*models.Quiz, error) {
	if err := validation.CreateQuiz(in); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, quizEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, quizEntity, "topicId", "topics", in.TopicID); err != nil {
		return nil, err
	}

	ts := now()
	quiz := &models.Quiz{
		ID:           newID(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		BlockID:      normalizeRef(in.BlockID),
		TopicID:      normalizeRef(in.TopicID),
		TimeLimit:    in.TimeLimit,
		PassingScore: in.PassingScore,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	query := `
		INSERT INTO quizzes (id, title, description, block_id, topic_id, time_limit, passing_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, quiz.ID, quiz.Title, quiz.Description, quiz.BlockID, quiz.TopicID,
		quiz.TimeLimit, quiz.PassingScore, quiz.CreatedAt, quiz.UpdatedAt)
	if err != nil {
		return nil, storageErr(quizEntity, "create quiz", err)
	}
	return quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, id string, in models.UpdateQuizInput) (*models.Quiz, error) {
	if err := validation.UpdateQuiz(in); err != nil {
		return nil, err
	}
	quiz, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, quizEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, quizEntity, "topicId", "topics", in.TopicID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		quiz.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		quiz.Description = in.Description
	}
	if in.BlockID != nil {
		quiz.BlockID = normalizeRef(in.BlockID)
	}
	if in.TopicID != nil {
		quiz.TopicID = normalizeRef(in.TopicID)
	}
	if in.TimeLimit != nil {
		quiz.TimeLimit = in.TimeLimit
	}
	if in.PassingScore != nil {
		quiz.PassingScore = in.PassingScore
	}
	quiz.UpdatedAt = now()

	query := `
		UPDATE quizzes
		SET title = ?, description = ?, block_id = ?, topic_id = ?, time_limit = ?, passing_score = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query, quiz.Title, quiz.Description, quiz.BlockID, quiz.TopicID,
		quiz.TimeLimit, quiz.PassingScore, quiz.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(quizEntity, "update quiz", err)
	}
	return quiz, nil
}

func (r *QuizRepository) Delete(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM quizzes WHERE id = ?", id); err != nil {
		return nil, storageErr(quizEntity, "delete quiz", err)
	}
	return quiz, nil
}

// GetBlock returns the quiz's block, or nil when unattached
func (r *QuizRepository) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	quiz, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.BlockID == nil {
		return nil, nil
	}
	return NewBlockRepository(r.db).GetByID(ctx, *quiz.BlockID)
}

// GetTopic returns the quiz's topic, or nil when unattached
func (r *QuizRepository) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	quiz, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.TopicID == nil {
		return nil, nil
	}
	return NewTopicRepository(r.db).GetByID(ctx, *quiz.TopicID)
}

func (r *QuizRepository) GetByBlock(ctx context.Context, blockID string) ([]models.Quiz, error) {
	return r.query(ctx, "get quizzes by block",
		"SELECT "+quizColumns+" FROM quizzes WHERE block_id = ? ORDER BY created_at, id", blockID)
}

func (r *QuizRepository) GetByTopic(ctx context.Context, topicID string) ([]models.Quiz, error) {
	return r.query(ctx, "get quizzes by topic",
		"SELECT "+quizColumns+" FROM quizzes WHERE topic_id = ? ORDER BY created_at, id", topicID)
}

func (r *QuizRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Quiz, error) {
	quizzes, err := queryAll(ctx, r.db, scanQuiz, query, args...)
	if err != nil {
		return nil, apperr.Operation(quizEntity, op, err)
	}
	return quizzes, nil
}
