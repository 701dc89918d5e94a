// internal/models/review.go
package models

import "time"

// Party is an organization class taking part in document review.
type Party string

const (
	PartyInternal   Party = "INTERNAL"
	PartyBank       Party = "BANK"
	PartyDeveloper  Party = "DEVELOPER"
	PartyLegal      Party = "LEGAL"
	PartyInsurer    Party = "INSURER"
	PartyGovernment Party = "GOVERNMENT"
)

func (p Party) IsValid() bool {
	switch p {
	case PartyInternal, PartyBank, PartyDeveloper, PartyLegal, PartyInsurer, PartyGovernment:
		return true
	}
	return false
}

// ReviewDecision is a party's current verdict on a document.
type ReviewDecision string

const (
	ReviewPending          ReviewDecision = "PENDING"
	ReviewApproved         ReviewDecision = "APPROVED"
	ReviewRejected         ReviewDecision = "REJECTED"
	ReviewChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	ReviewWaived           ReviewDecision = "WAIVED"
)

// Clears reports whether the decision counts toward document clearance.
func (d ReviewDecision) Clears() bool {
	return d == ReviewApproved || d == ReviewWaived
}

// Submittable reports whether a reviewer may set the decision directly.
func (d ReviewDecision) Submittable() bool {
	return d == ReviewApproved || d == ReviewRejected || d == ReviewChangesRequested
}

// ReviewKey identifies one reviewer slot on a document.
type ReviewKey struct {
	DocumentID     string `json:"documentId"`
	Party          Party  `json:"party"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// DocumentReviewRequirement declares that a party must (or may) review a document.
type DocumentReviewRequirement struct {
	ApplicationID  string `json:"applicationId"`
	DocumentID     string `json:"documentId"`
	Party          Party  `json:"party"`
	OrganizationID string `json:"organizationId,omitempty"`
	Required       bool   `json:"required"`
}

func (r DocumentReviewRequirement) Key() ReviewKey {
	return ReviewKey{DocumentID: r.DocumentID, Party: r.Party, OrganizationID: r.OrganizationID}
}

type Concern struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// DocumentReview is the current decision for one ReviewKey. Later submissions overwrite it.
type DocumentReview struct {
	DocumentID     string         `json:"documentId"`
	Party          Party          `json:"party"`
	OrganizationID string         `json:"organizationId,omitempty"`
	Decision       ReviewDecision `json:"decision"`
	Comments       string         `json:"comments,omitempty"`
	Concerns       []Concern      `json:"concerns,omitempty"`
	ReviewedAt     time.Time      `json:"reviewedAt"`
}

func (r DocumentReview) Key() ReviewKey {
	return ReviewKey{DocumentID: r.DocumentID, Party: r.Party, OrganizationID: r.OrganizationID}
}
