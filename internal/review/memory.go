package review

import (
	"context"
	"sort"
	"sync"

	"mortgage-workflow/internal/models"
)

// MemoryStore keeps requirements and reviews in maps keyed by ReviewKey.
type MemoryStore struct {
	mu           sync.RWMutex
	requirements map[models.ReviewKey]models.DocumentReviewRequirement
	reviews      map[models.ReviewKey]models.DocumentReview
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requirements: make(map[models.ReviewKey]models.DocumentReviewRequirement),
		reviews:      make(map[models.ReviewKey]models.DocumentReview),
	}
}

func (m *MemoryStore) UpsertRequirement(_ context.Context, req models.DocumentReviewRequirement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requirements[req.Key()] = req
	return nil
}

func (m *MemoryStore) ListRequirements(_ context.Context, documentID string) ([]models.DocumentReviewRequirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.DocumentReviewRequirement
	for k, r := range m.requirements {
		if k.DocumentID == documentID {
			out = append(out, r)
		}
	}
	sortRequirements(out)
	return out, nil
}

func (m *MemoryStore) ListApplicationRequirements(_ context.Context, applicationID string) ([]models.DocumentReviewRequirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.DocumentReviewRequirement
	for _, r := range m.requirements {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	sortRequirements(out)
	return out, nil
}

func (m *MemoryStore) GetReview(_ context.Context, key models.ReviewKey) (*models.DocumentReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) UpsertReview(_ context.Context, review models.DocumentReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[review.Key()] = review
	return nil
}

func (m *MemoryStore) ListReviews(_ context.Context, documentID string) ([]models.DocumentReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.DocumentReview
	for k, r := range m.reviews {
		if k.DocumentID == documentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Party != out[j].Party {
			return out[i].Party < out[j].Party
		}
		return out[i].OrganizationID < out[j].OrganizationID
	})
	return out, nil
}

func sortRequirements(reqs []models.DocumentReviewRequirement) {
	sort.Slice(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Party != b.Party {
			return a.Party < b.Party
		}
		return a.OrganizationID < b.OrganizationID
	})
}
