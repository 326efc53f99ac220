// Package quizjson reads and writes the portable quiz document:
//
//	{ "title": "...", "questions": [ { "text", "explanation", "question_type",
//	  "answers": [ { "text", "is_correct" } ] } ] }
//
// Parse is all-or-nothing: it either returns every question or the first
// violation found in document order.
package quizjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mind-engage/quizhub/internal/quiz"
)

// MinAnswers is the smallest answer list the importer accepts.
const MinAnswers = 2

// ValidationError names the first offending item and the rule it broke.
type ValidationError struct {
	Question int // 1-based, 0 when the error is document-level
	Answer   int // 1-based, 0 when not answer-specific
	Excerpt  string
	Msg      string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Question > 0 {
		fmt.Fprintf(&b, "question %d", e.Question)
		if e.Excerpt != "" {
			fmt.Fprintf(&b, " (%q)", e.Excerpt)
		}
		if e.Answer > 0 {
			fmt.Fprintf(&b, ", answer %d", e.Answer)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

// Document is a parsed import file.
type Document struct {
	Title     string
	Questions []quiz.Question
}

// Parse validates data and returns its questions without identifiers.
func Parse(data []byte) (Document, error) {
	if !utf8.Valid(data) {
		return Document{}, &ValidationError{Msg: "file is not valid UTF-8"}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var root any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		return Document{}, &ValidationError{Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Document{}, &ValidationError{Msg: "invalid JSON: trailing data after document"}
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return Document{}, &ValidationError{Msg: "document must be a JSON object"}
	}
	var doc Document
	if t, ok := obj["title"].(string); ok {
		doc.Title = t
	}
	rawQs, ok := obj["questions"].([]any)
	if !ok {
		return Document{}, &ValidationError{Msg: `missing "questions" list`}
	}

	doc.Questions = make([]quiz.Question, 0, len(rawQs))
	for i, raw := range rawQs {
		q, err := parseQuestion(i+1, raw)
		if err != nil {
			return Document{}, err
		}
		doc.Questions = append(doc.Questions, q)
	}
	return doc, nil
}

func parseQuestion(pos int, raw any) (quiz.Question, error) {
	fail := func(excerpt, format string, args ...any) error {
		return &ValidationError{Question: pos, Excerpt: excerpt, Msg: fmt.Sprintf(format, args...)}
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return quiz.Question{}, fail("", "must be an object")
	}
	text, ok := m["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return quiz.Question{}, fail("", `"text" must be a non-empty string`)
	}
	ex := excerpt(text)

	q := quiz.Question{Text: text, Type: quiz.Single}
	if v, present := m["question_type"]; present {
		s, ok := v.(string)
		if !ok {
			return quiz.Question{}, fail(ex, `"question_type" must be "SINGLE" or "MULTIPLE"`)
		}
		t, err := quiz.ParseQuestionType(s)
		if err != nil {
			return quiz.Question{}, fail(ex, `"question_type" must be "SINGLE" or "MULTIPLE", got %q`, s)
		}
		q.Type = t
	}
	if v, present := m["explanation"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return quiz.Question{}, fail(ex, `"explanation" must be a string`)
		}
		q.Explanation = s
	}

	answers, ok := m["answers"].([]any)
	if !ok || len(answers) < MinAnswers {
		return quiz.Question{}, fail(ex, `"answers" must be a list of at least %d entries`, MinAnswers)
	}
	q.Answers = make([]quiz.Answer, 0, len(answers))
	for j, ra := range answers {
		a, ok := ra.(map[string]any)
		if !ok {
			return quiz.Question{}, &ValidationError{Question: pos, Answer: j + 1, Excerpt: ex, Msg: "must be an object"}
		}
		at, ok := a["text"].(string)
		if !ok {
			return quiz.Question{}, &ValidationError{Question: pos, Answer: j + 1, Excerpt: ex, Msg: `"text" must be a string`}
		}
		ic, ok := a["is_correct"].(bool)
		if !ok {
			return quiz.Question{}, &ValidationError{Question: pos, Answer: j + 1, Excerpt: ex, Msg: `"is_correct" must be a boolean`}
		}
		q.Answers = append(q.Answers, quiz.Answer{Text: at, IsCorrect: ic})
	}

	if err := quiz.CheckCorrectCount(q.Type, q.CorrectCount()); err != nil {
		return quiz.Question{}, fail(ex, "%v", err)
	}
	return q, nil
}

func excerpt(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 50 {
		return string(r)
	}
	return string(r[:50]) + "..."
}

// ---- export ----

type exportAnswer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type exportQuestion struct {
	Text         string         `json:"text"`
	Explanation  string         `json:"explanation"`
	QuestionType string         `json:"question_type"`
	Answers      []exportAnswer `json:"answers"`
}

type exportDoc struct {
	Title     string           `json:"title"`
	Questions []exportQuestion `json:"questions"`
}

// Export renders questions in the shape Parse consumes, indented with four
// spaces and with non-ASCII and HTML characters left as-is.
func Export(title string, questions []quiz.Question) ([]byte, error) {
	doc := exportDoc{Title: title, Questions: make([]exportQuestion, 0, len(questions))}
	for _, q := range questions {
		eq := exportQuestion{
			Text:         q.Text,
			Explanation:  q.Explanation,
			QuestionType: string(q.Type),
			Answers:      make([]exportAnswer, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			eq.Answers = append(eq.Answers, exportAnswer{Text: a.Text, IsCorrect: a.IsCorrect})
		}
		doc.Questions = append(doc.Questions, eq)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasJSONExtension reports whether an uploaded filename ends in .json.
func HasJSONExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".json")
}
