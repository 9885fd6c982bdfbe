package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/placerank/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// parseAttempts is the number of generations tried when the model answers
// with unparseable JSON.
const parseAttempts = 3

// MaskFiller implements ai.MaskFiller with an OpenAI-compatible chat model.
type MaskFiller struct {
	client llms.Model
	logger *slog.Logger
}

type fillerEntry struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}

type fillMaskResponse struct {
	Fillers []fillerEntry `json:"fillers"`
}

// newMaskFiller is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newMaskFiller(config *ai.Config) (*MaskFiller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.MaskingHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.MaskingModel),
	)
	if err != nil {
		return nil, err
	}

	return &MaskFiller{
		client: client,
		logger: slog.Default().With("component", "openai-mask-filler"),
	}, nil
}

// NewMaskFiller creates a new mask filler using the provided configuration.
//
// Returns ai.MaskFiller interface to enforce abstraction.
func NewMaskFiller(config *ai.Config) (ai.MaskFiller, error) {
	return newMaskFiller(config)
}

// FillMask asks the model for up to k replacements of the masked word.
func (f *MaskFiller) FillMask(ctx context.Context, sentence string, k int) ([]ai.Filler, error) {
	if strings.Count(sentence, ai.MaskToken) != 1 {
		return nil, fmt.Errorf("%w: %q", ai.ErrNoMask, sentence)
	}
	if k <= 0 {
		return []ai.Filler{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildFillMaskPrompt(k))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(sentence)},
		},
	}

	var result fillMaskResponse
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := f.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			f.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			f.logger.Debug("no choices returned from model")
			return []ai.Filler{}, nil
		}

		responseText := cleanResponse(response.Choices[0].Content)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			f.logger.Warn("error parsing mask filler response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		f.logger.Error("failed to parse mask filler response after retries", "err", lastErr)
		return nil, lastErr
	}

	fillers := normalizeFillers(result.Fillers, k)
	f.logger.Debug("filled mask", "returned", len(result.Fillers), "kept", len(fillers))
	return fillers, nil
}

// normalizeFillers lower-cases, strips punctuation, drops multi-word and
// duplicate tokens, clamps scores into [0,1] and keeps at most k.
// Missing scores are replaced by a rank-derived 1/(rank+1).
func normalizeFillers(entries []fillerEntry, k int) []ai.Filler {
	out := make([]ai.Filler, 0, min(k, len(entries)))
	seen := map[string]struct{}{}
	for rank, e := range entries {
		token := normalizeToken(e.Token)
		if token == "" || strings.ContainsAny(token, " \t") {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}

		score := e.Score
		if score <= 0 {
			score = 1 / float64(rank+1)
		}
		score = max(0, min(1, score))
		out = append(out, ai.Filler{Token: token, Score: score})
		if len(out) == k {
			break
		}
	}
	return out
}
