package llm

import (
	"fmt"

	"xlog/internal/config"
)

// New builds the client selected by LLM_PROVIDER.
func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderDeepSeek, config.ProviderOpenAI:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required for llm provider %q", cfg.LLMProvider)
		}
		return NewOpenAI(cfg.DeepSeekAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.OpenRouterReferrer, cfg.OpenRouterTitle), nil
	case config.ProviderYandex:
		return NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
