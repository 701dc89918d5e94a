package underwriting

import (
	"context"
	"sync"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// MemoryStore keeps decisions in insertion order per application.
type MemoryStore struct {
	mu            sync.RWMutex
	decisions     map[string]*models.UnderwritingDecision
	byApplication map[string][]string
	satisfactions map[string]map[string]models.ConditionSatisfaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions:     make(map[string]*models.UnderwritingDecision),
		byApplication: make(map[string][]string),
		satisfactions: make(map[string]map[string]models.ConditionSatisfaction),
	}
}

func (m *MemoryStore) SaveDecision(_ context.Context, d *models.UnderwritingDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.decisions[d.ID]; exists {
		return errors.NewValidationError("underwriting decision already recorded: " + d.ID)
	}
	cp := *d
	m.decisions[d.ID] = &cp
	m.byApplication[d.ApplicationID] = append(m.byApplication[d.ApplicationID], d.ID)
	return nil
}

func (m *MemoryStore) GetDecision(_ context.Context, decisionID string) (*models.UnderwritingDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[decisionID]
	if !ok {
		return nil, errors.NewNotFoundError("underwriting decision", decisionID)
	}
	cp := *d
	return &cp, nil
}

// CurrentDecision picks the latest EvaluatedAt; ties go to the later insert.
func (m *MemoryStore) CurrentDecision(_ context.Context, applicationID string) (*models.UnderwritingDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var current *models.UnderwritingDecision
	for _, id := range m.byApplication[applicationID] {
		d := m.decisions[id]
		if current == nil || !d.EvaluatedAt.Before(current.EvaluatedAt) {
			current = d
		}
	}
	if current == nil {
		return nil, errors.NewNotFoundError("underwriting decision", applicationID)
	}
	cp := *current
	return &cp, nil
}

func (m *MemoryStore) ListDecisions(_ context.Context, applicationID string) ([]models.UnderwritingDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byApplication[applicationID]
	out := make([]models.UnderwritingDecision, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.decisions[id])
	}
	return out, nil
}

func (m *MemoryStore) SaveSatisfaction(_ context.Context, s models.ConditionSatisfaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.satisfactions[s.ApplicationID] == nil {
		m.satisfactions[s.ApplicationID] = make(map[string]models.ConditionSatisfaction)
	}
	m.satisfactions[s.ApplicationID][s.Code] = s
	return nil
}

func (m *MemoryStore) ListSatisfactions(_ context.Context, applicationID string) ([]models.ConditionSatisfaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ConditionSatisfaction, 0, len(m.satisfactions[applicationID]))
	for _, s := range m.satisfactions[applicationID] {
		out = append(out, s)
	}
	return out, nil
}
