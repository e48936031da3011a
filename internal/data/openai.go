package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/conf"
)

// aiRepo implements the AI provider repository on the OpenAI chat API
type aiRepo struct {
	client *openai.Client
	model  string
}

// NewAIRepo creates the OpenAI-backed completion repository. BaseURL may
// point at any OpenAI-compatible endpoint.
func NewAIRepo(cfg conf.OpenAIConfig) repo.AIRepo {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &aiRepo{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete sends a system/user prompt pair and returns the completion text
func (r *aiRepo) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.complete(ctx, systemPrompt, userPrompt, nil)
}

// CompleteJSON forces the provider into JSON-object output mode
func (r *aiRepo) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.complete(ctx, systemPrompt, userPrompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (r *aiRepo) complete(ctx context.Context, systemPrompt, userPrompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          r.model,
		ResponseFormat: format,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
