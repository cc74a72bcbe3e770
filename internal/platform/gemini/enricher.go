package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/shelfmark/enrich/internal/enrichment"
)

// Enricher calls the Gemini API to enrich one batch of catalog entries. It
// implements enrichment.Invoker. The client is created per call with the
// credential the worker acquired, since credentials rotate between calls.
type Enricher struct {
	logger *slog.Logger
	models []string
}

// NewEnricher creates an Enricher that tries the given models in order.
func NewEnricher(logger *slog.Logger, models []string) (*Enricher, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: at least one model is required", enrichment.ErrInvalidConfig)
	}

	return &Enricher{
		logger: logger,
		models: models,
	}, nil
}

// Invoke submits the batch under the given API key and returns the mapping of
// item identifier to raw result the model produced. The mapping may cover
// only a subset of the requested items; resolution is the caller's problem.
//
// Models are tried in preference order. A quota or invalid-key error aborts
// the fallback loop immediately so the credential pool hears about it before
// another model burns the same key; parse failures and other call-level
// errors fall through to the next model.
func (e *Enricher) Invoke(ctx context.Context, items []string, apiKey string) (map[string]json.RawMessage, error) {
	prompt, err := buildPrompt(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enrichment.ErrTransient, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	var lastErr error
	for _, model := range e.models {
		e.logger.DebugContext(ctx, "calling Gemini",
			"model", model,
			"items", len(items))

		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			classified := classifyError(err)
			if errors.Is(classified, enrichment.ErrResourceExhausted) ||
				errors.Is(classified, enrichment.ErrInvalidCredential) {
				return nil, classified
			}
			e.logger.WarnContext(ctx, "model call failed, trying next model",
				"model", model,
				"error", err)
			lastErr = classified
			continue
		}

		results, err := parseResponse(resp.Text())
		if err != nil {
			e.logger.WarnContext(ctx, "model returned unparseable output, trying next model",
				"model", model,
				"error", err)
			lastErr = fmt.Errorf("%w: %v", enrichment.ErrTransient, err)
			continue
		}

		e.logger.DebugContext(ctx, "Gemini call succeeded",
			"model", model,
			"requested", len(items),
			"returned", len(results))
		return results, nil
	}

	return nil, fmt.Errorf("%w: all models failed: %v", enrichment.ErrTransient, lastErr)
}

// parseResponse extracts the JSON object from model output that may be
// wrapped in markdown fences or prose, and decodes it as a map of item
// identifier to raw record.
func parseResponse(text string) (map[string]json.RawMessage, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in model output")
	}
	text = text[start : end+1]

	var results map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	return results, nil
}
