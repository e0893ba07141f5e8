package driving

import "github.com/custodia-labs/docchat/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get returns the current settings with defaults applied.
	Get() domain.AppSettings

	// Set validates and persists one dot-notation key, e.g. "server.url".
	Set(key string, value any) error
}
