package llm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownModel = errors.New("unknown model")

// Tier groups models by cost and quality.
type Tier string

const (
	TierFast    Tier = "fast"
	TierQuality Tier = "quality"
)

const (
	ModelGPT35Turbo = "gpt-3.5-turbo"
	ModelGPT4       = "gpt-4"
	ModelGPT4oMini  = "gpt-4o-mini"
	ModelGPT4o      = "gpt-4o"
)

// ModelInfo describes a selectable OpenAI model.
type ModelInfo struct {
	ID   string `json:"id"`
	Tier Tier   `json:"tier"`
}

var catalogue = []ModelInfo{
	{ID: ModelGPT35Turbo, Tier: TierFast},
	{ID: ModelGPT4, Tier: TierQuality},
	{ID: ModelGPT4oMini, Tier: TierFast},
	{ID: ModelGPT4o, Tier: TierQuality},
}

// tier aliases resolve to the first catalogue entry of that tier
var tierDefaults = map[Tier]string{
	TierFast:    ModelGPT35Turbo,
	TierQuality: ModelGPT4,
}

// SupportedModels returns the OpenAI model catalogue in display order.
func SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// ResolveModel validates a model choice for the given provider and returns
// the concrete model identifier. Tier names ("fast", "quality") are accepted
// for OpenAI. Other providers accept any non-empty name.
func ResolveModel(provider Provider, model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", fmt.Errorf("%w: model is required", ErrUnknownModel)
	}

	switch provider {
	case ProviderOpenAI:
		if id, ok := tierDefaults[Tier(strings.ToLower(model))]; ok {
			return id, nil
		}
		for _, m := range catalogue {
			if m.ID == model {
				return m.ID, nil
			}
		}
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownModel, model, strings.Join(modelIDs(), ", "))
	case ProviderOllama, ProviderCompatible, ProviderMock:
		return model, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, provider)
	}
}

func modelIDs() []string {
	ids := make([]string, len(catalogue))
	for i, m := range catalogue {
		ids[i] = m.ID
	}
	return ids
}
