// Package llm implements the LLM Client (C5, §4.5): a dual-provider
// (Anthropic primary, OpenAI fallback) text-generation client with
// circuit-breaker failover, response caching, retry/backoff, and a daily
// cost budget. Grounded on the teacher's own Anthropic dependency
// (internal/index/contextual.go's ContextGenerator interface shape) and the
// request/response plumbing the retrieval pack's Tangerg-lynx repo builds
// around the official openai-go client.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// Provider is one backing LLM (Anthropic, OpenAI, ...) behind a uniform
// generation contract (§4.5).
type Provider interface {
	// Generate produces free-form text for prompt, bounded by maxTokens and
	// sampled at temperature.
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	// Health reports whether the provider is currently reachable.
	Health(ctx context.Context) error
	// Name identifies the provider for logging and cost tracking.
	Name() string
}

// AnthropicProvider is the primary provider (§4.5 default: claude-3-5-haiku).
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates a provider bound to apiKey and model.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))
	return &AnthropicProvider{client: client, model: anthropic.Model(model)}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate calls Messages.New with a single user turn and concatenates the
// returned text blocks.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       p.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", apperrors.TransientLLM(fmt.Sprintf("anthropic generate (model %s)", p.model), err)
	}

	var out string
	for _, block := range msg.Content {
		out += block.Text
	}
	return out, nil
}

// Health issues a minimal request to confirm the provider is reachable.
func (p *AnthropicProvider) Health(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return apperrors.TransientLLM("anthropic health check", err)
	}
	return nil
}

// OpenAIProvider is the fallback provider (§4.5 default: gpt-4o-mini).
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a provider bound to apiKey and model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(openaioption.WithAPIKey(apiKey))
	return &OpenAIProvider{client: client, model: model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Generate calls Chat.Completions.New with a single user turn.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", apperrors.TransientLLM(fmt.Sprintf("openai generate (model %s)", p.model), err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.TransientLLM("openai generate returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Health issues a minimal request to confirm the provider is reachable.
func (p *OpenAIProvider) Health(ctx context.Context) error {
	_, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxTokens: openai.Int(1),
	})
	if err != nil {
		return apperrors.TransientLLM("openai health check", err)
	}
	return nil
}
