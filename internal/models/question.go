package models

import (
	"strings"
	"time"
)

// Difficulty grades questions and exercises
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ParseDifficulty normalizes a difficulty name
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// Question is a standalone prompt, optionally scored
type Question struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	BlockID    *string     `json:"blockId"`
	Type       *string     `json:"type"`
	Difficulty *Difficulty `json:"difficulty"`
	Points     *int        `json:"points"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type CreateQuestionInput struct {
	Text       string  `json:"text"`
	BlockID    *string `json:"blockId,omitempty"`
	Type       *string `json:"type,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
	Points     *int    `json:"points,omitempty"`
}

type UpdateQuestionInput struct {
	Text       *string `json:"text,omitempty"`
	BlockID    *string `json:"blockId,omitempty"`
	Type       *string `json:"type,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
	Points     *int    `json:"points,omitempty"`
}
