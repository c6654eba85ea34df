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
	topicEntity  = "topic"
	topicColumns = "id, name, description, examples, block_id, created_at, updated_at"
)

// TopicRepository handles database operations for topics
type TopicRepository struct {
	db database.DBTX
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db database.DBTX) *TopicRepository {
	return &TopicRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *TopicRepository) WithTx(tx *database.Tx) *TopicRepository {
	return &TopicRepository{db: tx}
}

func scanTopic(s scanner) (*models.Topic, error) {
	topic := &models.Topic{}
	var description, examples, blockID sql.NullString
	err := s.Scan(&topic.ID, &topic.Name, &description, &examples, &blockID, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, err
	}
	topic.Description = stringPtr(description)
	topic.Examples = stringPtr(examples)
	topic.BlockID = stringPtr(blockID)
	return topic, nil
}

// GetByID retrieves a topic by ID. It returns nil, nil when absent.
func (r *TopicRepository) GetByID(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := queryOne(ctx, r.db, scanTopic, "SELECT "+topicColumns+" FROM topics WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(topicEntity, "get topic", err)
	}
	return topic, nil
}

// MustGetByID is GetByID with a NotFound error for absent topics
func (r *TopicRepository) MustGetByID(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, apperr.NotFound(topicEntity, id)
	}
	return topic, nil
}

func (r *TopicRepository) GetAll(ctx context.Context) ([]models.Topic, error) {
	return r.query(ctx, "list topics", "SELECT "+topicColumns+" FROM topics ORDER BY name, id")
}

func (r *TopicRepository) List(ctx context.Context, opts ListOptions) ([]models.Topic, int, error) {
	topics, total, err := listQuery(ctx, r.db, scanTopic, "topics", topicColumns, "name, id", opts, "name", "description")
	if err != nil {
		return nil, 0, apperr.Operation(topicEntity, "list topics", err)
	}
	return topics, total, nil
}

func (r *TopicRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "topics", id)
	if err != nil {
		return false, apperr.Operation(topicEntity, "check topic", err)
	}
	return ok, nil
}

func (r *TopicRepository) Create(ctx context.Context, in models.CreateTopicInput) (*models.Topic, error) {
	if err := validation.CreateTopic(in); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, topicEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	ts := now()
	topic := &models.Topic{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Examples:    in.Examples,
		BlockID:     normalizeRef(in.BlockID),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	query := `
		INSERT INTO topics (id, name, description, examples, block_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, topic.ID, topic.Name, topic.Description, topic.Examples,
		topic.BlockID, topic.CreatedAt, topic.UpdatedAt)
	if err != nil {
		return nil, storageErr(topicEntity, "create topic", err)
	}
	return topic, nil
}

func (r *TopicRepository) Update(ctx context.Context, id string, in models.UpdateTopicInput) (*models.Topic, error) {
	if err := validation.UpdateTopic(in); err != nil {
		return nil, err
	}
	topic, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, topicEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}

	if in.Name != nil {
		topic.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		topic.Description = in.Description
	}
	if in.Examples != nil {
		topic.Examples = in.Examples
	}
	if in.BlockID != nil {
		topic.BlockID = normalizeRef(in.BlockID)
	}
	topic.UpdatedAt = now()

	query := "UPDATE topics SET name = ?, description = ?, examples = ?, block_id = ?, updated_at = ? WHERE id = ?"
	_, err = r.db.ExecContext(ctx, query, topic.Name, topic.Description, topic.Examples, topic.BlockID, topic.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(topicEntity, "update topic", err)
	}
	return topic, nil
}

// Delete removes a topic; its quizzes keep existing without a topic
func (r *TopicRepository) Delete(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM topics WHERE id = ?", id); err != nil {
		return nil, storageErr(topicEntity, "delete topic", err)
	}
	return topic, nil
}

// GetBlock returns the topic's block, or nil when unattached
func (r *TopicRepository) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	topic, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic.BlockID == nil {
		return nil, nil
	}
	return NewBlockRepository(r.db).GetByID(ctx, *topic.BlockID)
}

func (r *TopicRepository) GetQuizzes(ctx context.Context, id string) ([]models.Quiz, error) {
	return NewQuizRepository(r.db).GetByTopic(ctx, id)
}

func (r *TopicRepository) GetByBlock(ctx context.Context, blockID string) ([]models.Topic, error) {
	return r.query(ctx, "get topics by block",
		"SELECT "+topicColumns+" FROM topics WHERE block_id = ? ORDER BY name, id", blockID)
}

// SearchByName returns topics whose name contains term, ignoring case
func (r *TopicRepository) SearchByName(ctx context.Context, term string) ([]models.Topic, error) {
	return r.query(ctx, "search topics",
		"SELECT "+topicColumns+" FROM topics WHERE "+likeClause(r.db.GetDialect(), "name")+" ORDER BY name, id", likePattern(term))
}

// SearchByContent matches term against name, description and examples
func (r *TopicRepository) SearchByContent(ctx context.Context, term string) ([]models.Topic, error) {
	cols := []string{"name", "description", "examples"}
	return r.query(ctx, "search topics",
		"SELECT "+topicColumns+" FROM topics WHERE "+likeClause(r.db.GetDialect(), cols...)+" ORDER BY name, id",
		repeatArg(likePattern(term), len(cols))...)
}

// GetRandom returns a uniformly chosen topic, or nil when there are none
func (r *TopicRepository) GetRandom(ctx context.Context) (*models.Topic, error) {
	topic, err := queryRandom(ctx, r.db, scanTopic, "topics", topicColumns, "")
	if err != nil {
		return nil, apperr.Operation(topicEntity, "pick random topic", err)
	}
	return topic, nil
}

// GetRandomByBlock picks uniformly among blockID's topics
func (r *TopicRepository) GetRandomByBlock(ctx context.Context, blockID string) (*models.Topic, error) {
	topic, err := queryRandom(ctx, r.db, scanTopic, "topics", topicColumns, " WHERE block_id = ?", blockID)
	if err != nil {
		return nil, apperr.Operation(topicEntity, "pick random topic", err)
	}
	return topic, nil
}

func (r *TopicRepository) query(ctx context.Context, op, query string, args ...any) ([]models.Topic, error) {
	topics, err := queryAll(ctx, r.db, scanTopic, query, args...)
	if err != nil {
		return nil, apperr.Operation(topicEntity, op, err)
	}
	return topics, nil
}
