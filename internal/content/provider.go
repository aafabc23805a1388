package content

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/config"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
)

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.ContentConfig) (outreach.ContentProvider, error) {
	switch cfg.Provider {
	case "", "template":
		return NewTemplateProvider(), nil
	case "bedrock":
		p, err := NewBedrockProvider(ctx, cfg.Region, cfg.BedrockModelID, cfg.MaxTokens, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown content provider %q", cfg.Provider)
	}
}
