package models

import "time"

// Quiz is a timed assessment attached to a block or topic
type Quiz struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	BlockID      *string   `json:"blockId"`
	TopicID      *string   `json:"topicId"`
	TimeLimit    *int      `json:"timeLimit"`
	PassingScore *int      `json:"passingScore"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateQuizInput struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	BlockID      *string `json:"blockId,omitempty"`
	TopicID      *string `json:"topicId,omitempty"`
	TimeLimit    *int    `json:"timeLimit,omitempty"`
	PassingScore *int    `json:"passingScore,omitempty"`
}

type UpdateQuizInput struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	BlockID      *string `json:"blockId,omitempty"`
	TopicID      *string `json:"topicId,omitempty"`
	TimeLimit    *int    `json:"timeLimit,omitempty"`
	PassingScore *int    `json:"passingScore,omitempty"`
}
