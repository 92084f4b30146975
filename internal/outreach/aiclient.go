package outreach

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/engineerr"
)

// AIBackend is the capability the Outreach Generator consumes, per
// spec.md §9's redesign note: "generate(prompt, timeout) → (text,
// status)", never a package-level client global.
type AIBackend interface {
	Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error)
	HealthCheck(ctx context.Context) error
}

// anthropicBackend implements AIBackend over the Anthropic Messages
// API.
type anthropicBackend struct {
	client         anthropic.Client
	model          string
	maxOutputChars int
}

// NewAnthropicBackend builds an AIBackend from AIConfig. Returns nil
// when no credential is configured — callers must treat a nil backend
// as "AI unavailable, always use the template fallback".
func NewAnthropicBackend(cfg config.AIConfig) AIBackend {
	if cfg.Credential == "" {
		return nil
	}
	return &anthropicBackend{
		client:         anthropic.NewClient(option.WithAPIKey(cfg.Credential)),
		model:          nonEmpty(cfg.Model, "claude-3-5-haiku-latest"),
		maxOutputChars: cfg.MaxOutputChars,
	}
}

func (a *anthropicBackend) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return engineerr.New(engineerr.KindSourceUnavailable, "ai", err)
	}
	return nil
}

// Generate requests a completion with a bounded wall-clock timeout, up
// to 2 retries on transient network failures (no retry after a
// model-level rejection, per spec.md §4.7).
func (a *anthropicBackend) Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := int64(a.maxOutputChars / 3)
	if maxTokens < 64 {
		maxTokens = 256
	}

	var lastErr error
	for attempt := 0; attempt <= 2; attempt++ {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err == nil {
			return extractText(message), nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", engineerr.New(engineerr.KindSourceUnavailable, "ai", err)
		}
	}
	return "", engineerr.New(engineerr.KindSourceUnavailable, "ai", lastErr)
}

func extractText(message *anthropic.Message) string {
	if message == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range message.Content {
		if text := block.Text; text != "" {
			b.WriteString(text)
		}
	}
	return b.String()
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection", "reset", "temporarily", "503", "502", "504"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
