package lifecycle

import (
	"context"
	"sort"
	"sync"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// Repository stores applications. CommitTransition must apply the state change and append the
// success record atomically: either both are durable or neither is.
type Repository interface {
	Create(ctx context.Context, app *models.MortgageApplication) error
	Get(ctx context.Context, applicationID string) (*models.MortgageApplication, error)
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	CommitTransition(ctx context.Context, app *models.MortgageApplication, expectedVersion int64, rec *models.TransitionRecord) error
}

// MemoryRepository keeps applications in a map and appends to a shared MemoryLog under one mutex.
type MemoryRepository struct {
	mu   sync.Mutex
	apps map[string]models.MortgageApplication
	log  *audit.MemoryLog
}

func NewMemoryRepository(log *audit.MemoryLog) *MemoryRepository {
	return &MemoryRepository{apps: make(map[string]models.MortgageApplication), log: log}
}

func (m *MemoryRepository) Create(_ context.Context, app *models.MortgageApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apps[app.ID]; exists {
		return errors.NewValidationError("application already exists: " + app.ID)
	}
	m.apps[app.ID] = *app
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, applicationID string) (*models.MortgageApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[applicationID]
	if !ok {
		return nil, errors.NewNotFoundError("mortgage application", applicationID)
	}
	return &app, nil
}

func (m *MemoryRepository) ListIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.apps))
	for id := range m.apps {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryRepository) CommitTransition(ctx context.Context, app *models.MortgageApplication, expectedVersion int64, rec *models.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.apps[app.ID]
	if !ok {
		return errors.NewNotFoundError("mortgage application", app.ID)
	}
	if stored.Version != expectedVersion {
		return errors.NewConcurrencyConflictError("mortgage application "+app.ID, expectedVersion)
	}
	if err := m.log.Append(ctx, rec); err != nil {
		return err
	}
	m.apps[app.ID] = *app
	return nil
}
