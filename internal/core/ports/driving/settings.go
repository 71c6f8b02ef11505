package driving

import "github.com/custodia-labs/coursedex/internal/core/domain"

// SettingsService resolves application settings from configuration.
type SettingsService interface {
	// Get returns the effective settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Validate reports the first invalid or missing setting.
	Validate(settings *domain.AppSettings) error
}
