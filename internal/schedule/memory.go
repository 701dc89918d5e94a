package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// MemoryStore is an in-process Store used by the memory backend and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	schedules    map[string]*models.PaymentSchedule
	installments map[string]*models.Installment
	payments     map[string]*models.Payment // installmentID + "|" + reference
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules:    make(map[string]*models.PaymentSchedule),
		installments: make(map[string]*models.Installment),
		payments:     make(map[string]*models.Payment),
	}
}

func (m *MemoryStore) CreateSchedule(_ context.Context, s *models.PaymentSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.schedules[s.ID]; exists {
		return errors.NewValidationError("schedule already exists: " + s.ID)
	}
	seen := make(map[int]bool, len(s.Installments))
	for _, inst := range s.Installments {
		if seen[inst.Sequence] {
			return errors.NewValidationError("duplicate installment sequence")
		}
		seen[inst.Sequence] = true
	}

	stored := *s
	stored.Installments = nil
	m.schedules[s.ID] = &stored
	for i := range s.Installments {
		inst := s.Installments[i]
		m.installments[inst.ID] = &inst
	}
	return nil
}

func (m *MemoryStore) hydrate(s *models.PaymentSchedule) *models.PaymentSchedule {
	out := *s
	out.Installments = nil
	for _, inst := range m.installments {
		if inst.ScheduleID == s.ID {
			out.Installments = append(out.Installments, *inst)
		}
	}
	sort.Slice(out.Installments, func(i, j int) bool {
		return out.Installments[i].Sequence < out.Installments[j].Sequence
	})
	return &out
}

func (m *MemoryStore) GetSchedule(_ context.Context, scheduleID string) (*models.PaymentSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[scheduleID]
	if !ok {
		return nil, errors.NewNotFoundError("payment schedule", scheduleID)
	}
	return m.hydrate(s), nil
}

func (m *MemoryStore) LatestSchedule(_ context.Context, applicationID string, purpose models.SchedulePurpose) (*models.PaymentSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.PaymentSchedule
	for _, s := range m.schedules {
		if s.ApplicationID != applicationID || s.Purpose != purpose {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("payment schedule", applicationID+"/"+string(purpose))
	}
	return m.hydrate(latest), nil
}

func (m *MemoryStore) GetInstallment(_ context.Context, installmentID string) (*models.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.installments[installmentID]
	if !ok {
		return nil, errors.NewNotFoundError("installment", installmentID)
	}
	out := *inst
	return &out, nil
}

func (m *MemoryStore) InstallmentOwner(_ context.Context, installmentID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.installments[installmentID]
	if !ok {
		return "", errors.NewNotFoundError("installment", installmentID)
	}
	return m.schedules[inst.ScheduleID].ApplicationID, nil
}

func (m *MemoryStore) FindPayment(_ context.Context, installmentID, reference string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[installmentID+"|"+reference]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) SavePayment(_ context.Context, inst *models.Installment, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.InstallmentID + "|" + p.Reference
	if _, dup := m.payments[key]; dup {
		return errors.NewValidationError("duplicate payment reference: " + p.Reference)
	}
	if _, ok := m.installments[inst.ID]; !ok {
		return errors.NewNotFoundError("installment", inst.ID)
	}
	storedInst := *inst
	storedPayment := *p
	m.installments[inst.ID] = &storedInst
	m.payments[key] = &storedPayment
	return nil
}

func (m *MemoryStore) UpdateInstallment(_ context.Context, inst *models.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.installments[inst.ID]; !ok {
		return errors.NewNotFoundError("installment", inst.ID)
	}
	stored := *inst
	m.installments[inst.ID] = &stored
	return nil
}

func (m *MemoryStore) ListUnsettledDueBefore(_ context.Context, before time.Time) ([]models.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Installment
	for _, inst := range m.installments {
		if !inst.Status.Settled() && inst.DueDate.Before(before) {
			out = append(out, *inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}
