package classifier

import (
	"fmt"

	"tariffbench/internal/config"
	"tariffbench/internal/port"
)

// ProviderFactory is a function that creates a Classifier from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.Classifier, error)

// registry of classifier provider factories, populated by init() in each
// provider package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a classifier provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClassifier creates a Classifier from a provider config using the
// registered factory.
func NewClassifier(cfg *config.ProviderConfig) (port.Classifier, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
