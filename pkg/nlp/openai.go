package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIScorer runs zero-shot classification through any OpenAI-compatible
// chat endpoint (hosted or a local inference server). The model is asked to
// pick exactly one label and report its own confidence; malformed replies
// are errors, never decisions.
type OpenAIScorer struct {
	client openai.Client
	model  string
	budget time.Duration
}

func NewOpenAIScorer(baseURL, apiKey, model string, budget time.Duration) *OpenAIScorer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIScorer{
		client: openai.NewClient(opts...),
		model:  model,
		budget: budget,
	}
}

const scorerSystemPrompt = `You classify a single chat message against candidate labels.
Reply with JSON only: {"label": "<one of the candidates>", "score": <0..1>}.
The score is how strongly the message entails the label. Do not add prose.`

func (s *OpenAIScorer) Score(ctx context.Context, text string, labels []string) (Result, error) {
	if len(labels) == 0 {
		return Result{}, fmt.Errorf("no candidate labels")
	}
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	user := fmt.Sprintf("Message: %q\nCandidates: %s", text, strings.Join(labels, ", "))
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scorerSystemPrompt),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("empty completion")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return Result{}, fmt.Errorf("parse scorer reply: %w", err)
	}
	valid := false
	for _, l := range labels {
		if out.Label == l {
			valid = true
			break
		}
	}
	if !valid {
		return Result{}, fmt.Errorf("scorer returned unknown label %q", out.Label)
	}
	if out.Score < 0 || out.Score > 1 {
		return Result{}, fmt.Errorf("scorer returned out-of-range score %f", out.Score)
	}
	return out, nil
}
