// Package grading scores quiz submissions by exact answer-set equality.
package grading

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mind-engage/quizhub/internal/quiz"
)

// Outcome is the verdict for one question.
type Outcome struct {
	QuestionID int64   `json:"question_id"`
	Correct    bool    `json:"is_correct"`
	Chosen     []int64 `json:"chosen_ids"`
	CorrectIDs []int64 `json:"correct_ids"`
}

// Result aggregates the outcomes of one graded attempt.
type Result struct {
	Outcomes     []Outcome `json:"outcomes"`
	CorrectCount int       `json:"correct_count"`
	Total        int       `json:"total_questions"`
	Score        int       `json:"score"`
}

// Strategy grades a single question from the raw submitted values.
type Strategy interface {
	Grade(q quiz.Question, raw []string) Outcome
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q quiz.Question, raw []string) (Outcome, error)
}

type defaultGrader struct {
	strategies map[quiz.QuestionType]Strategy
}

// NewDefaultGrader installs the SINGLE and MULTIPLE strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[quiz.QuestionType]Strategy{
			quiz.Single:   singleChoiceStrategy{},
			quiz.Multiple: multipleChoiceStrategy{},
		},
	}
}

func (g *defaultGrader) Grade(q quiz.Question, raw []string) (Outcome, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Outcome{QuestionID: q.ID}, fmt.Errorf("no strategy for question type %q", q.Type)
	}
	return s.Grade(q, raw), nil
}

// --- Strategies ---

// singleChoiceStrategy only looks at the last submitted value, as a form
// field read with a single-value getter would.
type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q quiz.Question, raw []string) Outcome {
	if len(raw) > 1 {
		raw = raw[len(raw)-1:]
	}
	return judge(q, ParseIDs(raw))
}

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(q quiz.Question, raw []string) Outcome {
	return judge(q, ParseIDs(raw))
}

func judge(q quiz.Question, chosen []int64) Outcome {
	correct := q.CorrectIDs()
	sortIDs(chosen)
	sortIDs(correct)
	return Outcome{
		QuestionID: q.ID,
		Chosen:     chosen,
		CorrectIDs: correct,
		Correct:    len(chosen) > 0 && setEqual(toSet(chosen), toSet(correct)),
	}
}

// GradeAll grades every question against answers (question id -> raw values).
// Questions without an entry count as empty submissions.
func GradeAll(g Grader, questions []quiz.Question, answers map[int64][]string) (Result, error) {
	res := Result{Outcomes: make([]Outcome, 0, len(questions)), Total: len(questions)}
	for _, q := range questions {
		o, err := g.Grade(q, answers[q.ID])
		if err != nil {
			return Result{}, err
		}
		if o.Correct {
			res.CorrectCount++
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	res.Score = Score(res.CorrectCount, res.Total)
	return res, nil
}

// Score is round-half-up of 100*correct/total, and 0 when total is 0.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// helpers

// ParseIDs converts submitted values to identifiers, dropping anything
// malformed and collapsing duplicates.
func ParseIDs(raw []string) []int64 {
	out := make([]int64, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ParseIDList splits a comma-separated identifier token such as "3,7,12".
func ParseIDList(token string) []int64 {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return ParseIDs(strings.Split(token, ","))
}

// FormatIDList is the inverse of ParseIDList.
func FormatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
