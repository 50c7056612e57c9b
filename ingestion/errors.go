package ingestion

import "errors"

var (
	// ErrCatalogRepositoryRequired is returned when a catalog repository is not provided.
	ErrCatalogRepositoryRequired = errors.New("catalog repository required")

	// ErrUserRepositoryRequired is returned when a user repository is not provided.
	ErrUserRepositoryRequired = errors.New("user repository required")

	// ErrSettingsRepositoryRequired is returned when a settings repository is not provided.
	ErrSettingsRepositoryRequired = errors.New("settings repository required")

	// ErrFanoutRequired is returned when a broadcast fanout is not provided.
	ErrFanoutRequired = errors.New("broadcast fanout required")
)
