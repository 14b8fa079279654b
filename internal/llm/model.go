// Package llm implements the language-model backed mission stages:
// semantic analysis, briefing generation and briefing evaluation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/salekh/genseo-workshop/internal/config"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator produces a completion for a system and user prompt. JSON asks
// the backend for a JSON-only answer where it supports that.
type Generator interface {
	Generate(ctx context.Context, system, user string, json bool) (string, error)
}

// Model wraps a langchaingo model.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates the configured backend. Missing API keys yield
// config.ErrMissingCredential.
func NewModel(ctx context.Context, cfg config.LLMConfig) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderGoogleAI, "":
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google api key: %w", config.ErrMissingCredential)
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GoogleAPIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic api key: %w", config.ErrMissingCredential)
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key: %w", config.ErrMissingCredential)
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Model{llm: model, modelName: cfg.Model}, nil
}

// Generate sends the prompts and returns the first choice.
func (m *Model) Generate(ctx context.Context, system, user string, json bool) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	var opts []llms.CallOption
	if json {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.modelName
}
