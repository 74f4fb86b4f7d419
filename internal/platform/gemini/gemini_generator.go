package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// contentGenerator is the slice of the genai client the capability uses.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Capability implements generation.Capability with the Gemini API.
type Capability struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         contentGenerator
	baseDelay      time.Duration
}

var _ generation.Capability = (*Capability)(nil)

// NewCapability validates cfg, loads the prompt template and connects to the
// Gemini API.
func NewCapability(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Capability, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cfg, err := validateConfig(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newCapability(logger, cfg, client.Models)
}

func newCapability(logger *slog.Logger, cfg config.LLMConfig, client contentGenerator) (*Capability, error) {
	tmpl, err := loadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	return &Capability{
		logger:         logger.With("component", "gemini_capability", "model", cfg.ModelName),
		config:         cfg,
		promptTemplate: tmpl,
		client:         client,
		baseDelay:      time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// Generate renders the prompt for params, calls the model and decodes its
// JSON answer into a Draft.
func (c *Capability) Generate(ctx context.Context, params generation.Params) (*generation.Draft, error) {
	if strings.TrimSpace(params.RawText) == "" {
		return nil, generation.ErrEmptyInput
	}
	if len(params.Languages) == 0 {
		return nil, ErrNoLanguages
	}

	prompt, err := renderPrompt(c.promptTemplate, promptData{
		Title:      params.Title,
		RawText:    params.RawText,
		Difficulty: params.Difficulty,
		Languages:  params.Languages,
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "prompt generated",
		"prompt_length", len(prompt),
		"languages", params.Languages)

	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseResponse(text)
}

// callWithRetry calls the model, retrying transient failures with exponential
// backoff and jitter up to config.MaxRetries times.
func (c *Capability) callWithRetry(ctx context.Context, prompt string) (string, error) {
	backoff := retry.NewExponential(c.baseDelay)
	backoff = retry.WithJitterPercent(50, backoff)
	backoff = retry.WithMaxRetries(uint64(c.config.MaxRetries), backoff)

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
	if c.config.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(c.config.Temperature)
	}

	attempt := 0
	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attempt,
			"max_attempts", c.config.MaxRetries+1)

		resp, err := c.client.GenerateContent(ctx, c.config.ModelName, genai.Text(prompt), genConfig)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WarnContext(ctx, "Gemini API call failed",
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", generation.ErrTransientFailure, err))
		}

		out, err := responseText(resp)
		if err != nil {
			c.logger.WarnContext(ctx, "permanent error from Gemini, not retrying",
				"attempt", attempt,
				"error", err)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return "", fmt.Errorf("%w: %w", err, ctxErr)
		}
		return "", err
	}

	c.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attempt)
	return text, nil
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

func parseResponse(text string) (*generation.Draft, error) {
	var draft generation.Draft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return &draft, nil
}
