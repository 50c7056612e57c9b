package badger

import "errors"

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend     *Backend
	Catalog     *CatalogRepository
	Users       *UserRepository
	Escalations *EscalationRepository
	Settings    *SettingsRepository
	Feedback    *FeedbackRepository
}

// OpenRepositories opens a backend at filePath and builds every repository on it.
func OpenRepositories(filePath string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	feedback, err := NewFeedbackRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:     backend,
		Catalog:     NewCatalogRepository(backend),
		Users:       NewUserRepository(backend),
		Escalations: NewEscalationRepository(backend),
		Settings:    NewSettingsRepository(backend),
		Feedback:    feedback,
	}, nil
}

// Close releases repository resources and closes the backend.
func (r *Repositories) Close() error {
	var errs []error
	if err := r.Feedback.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Backend.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
