package grading

import (
	"math/rand"

	"github.com/mind-engage/quizhub/internal/quiz"
)

// Select shuffles the pool and keeps the first min(limit, len(pool))
// questions. A limit <= 0 keeps the whole pool. The input is not modified.
func Select(pool []quiz.Question, limit int, rng *rand.Rand) []quiz.Question {
	out := make([]quiz.Question, len(pool))
	copy(out, pool)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ShuffleAnswers returns a copy of q with its answers in random order.
func ShuffleAnswers(q quiz.Question, rng *rand.Rand) quiz.Question {
	answers := make([]quiz.Answer, len(q.Answers))
	copy(answers, q.Answers)
	rng.Shuffle(len(answers), func(i, j int) { answers[i], answers[j] = answers[j], answers[i] })
	q.Answers = answers
	return q
}

// Restrict keeps the pool questions whose ids appear in ids, in pool order.
// Unknown ids are ignored; an empty result means the caller should fall
// back to the full pool.
func Restrict(pool []quiz.Question, ids []int64) []quiz.Question {
	if len(ids) == 0 {
		return nil
	}
	want := toSet(ids)
	out := make([]quiz.Question, 0, len(ids))
	for _, q := range pool {
		if _, ok := want[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out
}
