package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const systemPrompt = "You are an assistant that writes quizzes as JSON."

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL string
	model   string
	client  *http.Client
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAI returns a client that authenticates with a static bearer token.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-3.5-turbo"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = opts.Timeout
	return &OpenAI{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  hc,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func prompt(topic string, count int) string {
	return fmt.Sprintf(`Write a quiz about %q with %d questions.
Reply only with a JSON object with the key "questions" holding a list of objects.
Each object has "question" (string), "answers" (list of 4 strings) and
"correct_indices" (list of integers, zero-based indexes of the correct answers).`, topic, count)
}

func (o *OpenAI) Generate(ctx context.Context, topic string, count int) ([]Draft, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt(topic, count)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("generator read: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("generator: unexpected response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		if cr.Error != nil && cr.Error.Message != "" {
			return nil, fmt.Errorf("generator: %s", cr.Error.Message)
		}
		return nil, fmt.Errorf("generator: status %d", resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("generator: empty response")
	}
	return parseDrafts(cr.Choices[0].Message.Content)
}

func parseDrafts(content string) ([]Draft, error) {
	var payload struct {
		Questions []Draft `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("generator: response is not valid JSON: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("generator: no questions in the expected format")
	}
	return payload.Questions, nil
}
