package models

import (
	"strings"
	"time"
)

// BlankMarker marks the gap in a fill-in-the-blank sentence
const BlankMarker = "___"

// FillInTheBlank is a sentence exercise with a single expected answer
type FillInTheBlank struct {
	ID         string      `json:"id"`
	Sentence   string      `json:"sentence"`
	Answer     string      `json:"answer"`
	BlockID    *string     `json:"blockId"`
	Hint       *string     `json:"hint"`
	Difficulty *Difficulty `json:"difficulty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// HasBlank reports whether sentence contains the blank marker
func HasBlank(sentence string) bool {
	return strings.Contains(sentence, BlankMarker)
}

// Matches compares a submitted answer ignoring case and surrounding space
func (f *FillInTheBlank) Matches(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(f.Answer), strings.TrimSpace(answer))
}

type CreateFillInTheBlankInput struct {
	Sentence   string  `json:"sentence"`
	Answer     string  `json:"answer"`
	BlockID    *string `json:"blockId,omitempty"`
	Hint       *string `json:"hint,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
}

type UpdateFillInTheBlankInput struct {
	Sentence   *string `json:"sentence,omitempty"`
	Answer     *string `json:"answer,omitempty"`
	BlockID    *string `json:"blockId,omitempty"`
	Hint       *string `json:"hint,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
}
