// Package generator drafts quiz questions with an external LLM.
package generator

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("AI generation is not configured")

// Draft is one generated question before it becomes a quiz.Question.
type Draft struct {
	Text           string   `json:"question"`
	Answers        []string `json:"answers"`
	CorrectIndices []int    `json:"correct_indices"`
}

// Generator produces count drafts about topic, or an error. Callers must
// treat a failure as total: no partial result is returned.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]Draft, error)
}
