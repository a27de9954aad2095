// Package providers selects the generation backend named by the configuration.
package providers

import (
	"fmt"
	"net/http"

	"adstory/internal/domain"
	"adstory/internal/infra"
	"adstory/internal/providers/gemini"
	"adstory/internal/providers/synthetic"
)

// New returns the configured backend. keys is only consulted by Gemini.
func New(cfg *infra.Config, keys gemini.KeyFunc, logger *infra.Logger) (domain.GenerationProvider, error) {
	switch cfg.Provider {
	case infra.ProviderSynthetic:
		return synthetic.NewProvider(synthetic.Options{
			SampleRate: cfg.AudioSampleRate,
			Logger:     logger,
		}), nil
	case infra.ProviderGemini, "":
		return gemini.NewProvider(gemini.Options{
			Keys:            keys,
			BaseURL:         cfg.GeminiBaseURL,
			PlanModel:       cfg.GeminiPlanModel,
			ImageModel:      cfg.GeminiImageModel,
			VideoModel:      cfg.GeminiVideoModel,
			SpeechModel:     cfg.GeminiSpeechModel,
			VideoResolution: cfg.VideoResolution,
			HTTPClient:      &http.Client{Timeout: cfg.ProviderHTTPTimeout},
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
