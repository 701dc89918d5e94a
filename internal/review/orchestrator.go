// Package review runs the multi-party document review consensus gate.
package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"
)

const minWaiverReasonLength = 10

// Store persists review requirements and the current review per key.
type Store interface {
	UpsertRequirement(ctx context.Context, req models.DocumentReviewRequirement) error
	ListRequirements(ctx context.Context, documentID string) ([]models.DocumentReviewRequirement, error)
	ListApplicationRequirements(ctx context.Context, applicationID string) ([]models.DocumentReviewRequirement, error)
	GetReview(ctx context.Context, key models.ReviewKey) (*models.DocumentReview, error)
	UpsertReview(ctx context.Context, review models.DocumentReview) error
	ListReviews(ctx context.Context, documentID string) ([]models.DocumentReview, error)
}

// SubmitInput is a reviewer's decision on a document.
type SubmitInput struct {
	DocumentID     string                `json:"documentId"`
	Party          models.Party          `json:"party"`
	OrganizationID string                `json:"organizationId,omitempty"`
	Decision       models.ReviewDecision `json:"decision"`
	Comments       string                `json:"comments,omitempty"`
	Concerns       []models.Concern      `json:"concerns,omitempty"`
}

// Clearance summarizes one party's required reviews across an application's documents.
type Clearance struct {
	Party     models.Party `json:"party"`
	Documents int          `json:"documents"`
	Pending   []string     `json:"pending,omitempty"`
}

// Cleared reports whether every document requiring the party is cleared.
// A party with no required reviews is vacuously cleared.
func (c Clearance) Cleared() bool {
	return len(c.Pending) == 0
}

type Orchestrator struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

func NewOrchestrator(store Store, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "document-review"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func validateKey(documentID string, party models.Party) error {
	if strings.TrimSpace(documentID) == "" {
		return errors.NewValidationError("documentId is required")
	}
	if !party.IsValid() {
		return errors.NewValidationError(fmt.Sprintf("unknown party %q", party))
	}
	return nil
}

// SubmitReview records a decision, replacing any prior decision for the same reviewer key.
func (o *Orchestrator) SubmitReview(ctx context.Context, in SubmitInput) (*models.DocumentReview, error) {
	if err := validateKey(in.DocumentID, in.Party); err != nil {
		return nil, err
	}
	if !in.Decision.Submittable() {
		return nil, errors.NewValidationError(fmt.Sprintf(
			"decision %q cannot be submitted; use APPROVED, REJECTED or CHANGES_REQUESTED", in.Decision))
	}
	for i, c := range in.Concerns {
		if strings.TrimSpace(c.Field) == "" || strings.TrimSpace(c.Issue) == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("concern %d needs both field and issue", i))
		}
	}

	review := models.DocumentReview{
		DocumentID:     in.DocumentID,
		Party:          in.Party,
		OrganizationID: in.OrganizationID,
		Decision:       in.Decision,
		Comments:       in.Comments,
		Concerns:       in.Concerns,
		ReviewedAt:     o.now(),
	}
	if err := o.store.UpsertReview(ctx, review); err != nil {
		return nil, err
	}

	metrics.ReviewsTotal.WithLabelValues(string(in.Party), string(in.Decision)).Inc()
	o.logger.Info("document review submitted", map[string]interface{}{
		"documentId":     in.DocumentID,
		"party":          in.Party,
		"organizationId": in.OrganizationID,
		"decision":       in.Decision,
		"concerns":       len(in.Concerns),
	})
	return &review, nil
}

// Waive clears a reviewer slot without a review. The reason is kept as the review comment.
func (o *Orchestrator) Waive(ctx context.Context, documentID string, party models.Party, organizationID, reason string) (*models.DocumentReview, error) {
	if err := validateKey(documentID, party); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(reason)) < minWaiverReasonLength {
		return nil, errors.NewValidationError(fmt.Sprintf("waiver reason must be at least %d characters", minWaiverReasonLength))
	}

	review := models.DocumentReview{
		DocumentID:     documentID,
		Party:          party,
		OrganizationID: organizationID,
		Decision:       models.ReviewWaived,
		Comments:       strings.TrimSpace(reason),
		ReviewedAt:     o.now(),
	}
	if err := o.store.UpsertReview(ctx, review); err != nil {
		return nil, err
	}

	metrics.ReviewsTotal.WithLabelValues(string(party), string(models.ReviewWaived)).Inc()
	o.logger.Info("document review waived", map[string]interface{}{
		"documentId":     documentID,
		"party":          party,
		"organizationId": organizationID,
	})
	return &review, nil
}

// AddRequirement registers a reviewer slot. A new slot starts PENDING, so a required one blocks clearance.
func (o *Orchestrator) AddRequirement(ctx context.Context, req models.DocumentReviewRequirement) error {
	if err := validateKey(req.DocumentID, req.Party); err != nil {
		return err
	}
	if strings.TrimSpace(req.ApplicationID) == "" {
		return errors.NewValidationError("applicationId is required")
	}
	if err := o.store.UpsertRequirement(ctx, req); err != nil {
		return err
	}

	existing, err := o.store.GetReview(ctx, req.Key())
	if err != nil {
		return err
	}
	if existing == nil {
		if err := o.store.UpsertReview(ctx, models.DocumentReview{
			DocumentID:     req.DocumentID,
			Party:          req.Party,
			OrganizationID: req.OrganizationID,
			Decision:       models.ReviewPending,
			ReviewedAt:     o.now(),
		}); err != nil {
			return err
		}
	}

	o.logger.Info("review requirement registered", map[string]interface{}{
		"applicationId":  req.ApplicationID,
		"documentId":     req.DocumentID,
		"party":          req.Party,
		"organizationId": req.OrganizationID,
		"required":       req.Required,
	})
	return nil
}

// IsCleared is true iff every required reviewer of the document has APPROVED or WAIVED.
// A document without required reviewers is cleared.
func (o *Orchestrator) IsCleared(ctx context.Context, documentID string) (bool, error) {
	if strings.TrimSpace(documentID) == "" {
		return false, errors.NewValidationError("documentId is required")
	}
	reqs, err := o.store.ListRequirements(ctx, documentID)
	if err != nil {
		return false, err
	}
	reviews, err := o.store.ListReviews(ctx, documentID)
	if err != nil {
		return false, err
	}
	return Cleared(reqs, reviews), nil
}

// ListReviews returns the current review of every reviewer of a document.
func (o *Orchestrator) ListReviews(ctx context.Context, documentID string) ([]models.DocumentReview, error) {
	return o.store.ListReviews(ctx, documentID)
}

// ClearanceFor evaluates one party's required reviews across every document of an application.
func (o *Orchestrator) ClearanceFor(ctx context.Context, applicationID string, party models.Party) (Clearance, error) {
	reqs, err := o.store.ListApplicationRequirements(ctx, applicationID)
	if err != nil {
		return Clearance{}, err
	}

	byDocument := make(map[string][]models.DocumentReviewRequirement)
	for _, r := range reqs {
		if r.Party == party && r.Required {
			byDocument[r.DocumentID] = append(byDocument[r.DocumentID], r)
		}
	}

	out := Clearance{Party: party, Documents: len(byDocument)}
	for documentID, docReqs := range byDocument {
		reviews, err := o.store.ListReviews(ctx, documentID)
		if err != nil {
			return Clearance{}, err
		}
		if !Cleared(docReqs, reviews) {
			out.Pending = append(out.Pending, documentID)
		}
	}
	sort.Strings(out.Pending)
	return out, nil
}

// Cleared applies the consensus rule to a document's requirements and current reviews.
func Cleared(reqs []models.DocumentReviewRequirement, reviews []models.DocumentReview) bool {
	current := make(map[models.ReviewKey]models.ReviewDecision, len(reviews))
	for _, r := range reviews {
		current[r.Key()] = r.Decision
	}
	for _, req := range reqs {
		if !req.Required {
			continue
		}
		decision, ok := current[req.Key()]
		if !ok || !decision.Clears() {
			return false
		}
	}
	return true
}
