package services

import (
	"context"
	"fmt"
	"log/slog"

	"DineLine/locales"
	"DineLine/models"
)

// AIEngine is the speech and language capability the call flow depends on.
// The dialog engine and matcher never see it.
type AIEngine interface {
	Transcribe(ctx context.Context, audio []byte, lang models.Language) (models.Transcription, error)
	Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error)
	DetectLanguage(ctx context.Context, audio []byte) (models.LanguageDetection, error)
	AnalyzeIntent(ctx context.Context, text string, dctx models.DialogContext) (models.IntentResult, error)
}

const (
	ProviderOpenAI  = "openai"
	ProviderKeyword = "keyword"
)

type AIConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// NewAIEngine builds the engine selected by cfg.Provider.
func NewAIEngine(cfg AIConfig, menus MatcherProvider, catalog *locales.Catalog, logger *slog.Logger) (AIEngine, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %q requires an API key", cfg.Provider)
		}
		return NewOpenAIEngine(cfg.APIKey, cfg.Model, logger), nil
	case ProviderKeyword, "":
		return NewKeywordEngine(catalog, menus, logger), nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}
