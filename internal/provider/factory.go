package provider

import (
	"fmt"
)

// New returns an initialized provider for the given provider name. The
// set of backends is closed; selection happens once at configuration
// time.
func New(name string, config Config) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderGoogle:
		return NewGoogleProvider(config), nil
	case ProviderVoyage:
		return NewVoyageProvider(config), nil
	case ProviderMock:
		return NewMockProvider(config.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
}
