package audit

import (
	"context"
	"sync"

	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
)

type MemoryLog struct {
	mu      sync.RWMutex
	records map[string][]models.TransitionRecord
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{records: make(map[string][]models.TransitionRecord)}
}

func (m *MemoryLog) Append(_ context.Context, rec *models.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Seq = int64(len(m.records[rec.ApplicationID]) + 1)
	m.records[rec.ApplicationID] = append(m.records[rec.ApplicationID], *rec)
	return nil
}

func (m *MemoryLog) Replay(_ context.Context, applicationID string) ([]models.TransitionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.records[applicationID]
	out := make([]models.TransitionRecord, len(src))
	copy(out, src)
	return out, nil
}
