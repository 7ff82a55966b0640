package generator

import (
	"context"
	"fmt"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
)

// OllamaGenerator talks to a local model through Ollama's OpenAI-compatible
// chat API. It implements CodeGenerator, ResponseGenerator and
// HealthChecker.
type OllamaGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaGenerator builds a generator against baseURL (for a default
// local Ollama, http://localhost:11434/v1). Ollama ignores the API key but
// the client requires one.
func NewOllamaGenerator(baseURL, model string, timeout time.Duration, logger *zap.Logger) *OllamaGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig("ollama")
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OllamaGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// GenerateCode asks the model for an analysis snippet and extracts it from
// the reply.
func (g *OllamaGenerator) GenerateCode(ctx context.Context, question, schema string) (string, error) {
	reply, err := g.chat(ctx, codeSystemPrompt, BuildCodePrompt(question, schema), 0.1)
	if err != nil {
		return "", err
	}
	code, err := ExtractCode(reply)
	if err != nil {
		g.logger.Warn("could not extract code from model reply", zap.Error(err))
		return "", apperror.Generation(apperror.CodeExtractionFailed, err)
	}
	return code, nil
}

// GenerateResponse summarizes a computed result as a conversational answer.
func (g *OllamaGenerator) GenerateResponse(ctx context.Context, question, result string) (string, error) {
	return g.chat(ctx, responseSystemPrompt, BuildResponsePrompt(question, result), 0.5)
}

// Healthy pings the models endpoint.
func (g *OllamaGenerator) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := g.client.ListModels(ctx); err != nil {
		return apperror.Generation(apperror.CodeGeneratorUnavailable, err)
	}
	return nil
}

func (g *OllamaGenerator) chat(ctx context.Context, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: &temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperror.Generation(apperror.CodeGenerationTimeout, err)
		}
		return "", apperror.Generation(apperror.CodeGeneratorUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperror.Generation(apperror.CodeInvalidGeneration,
			fmt.Errorf("empty response from model %s", g.model))
	}
	g.logger.Debug("model call finished",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
