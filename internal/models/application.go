// internal/models/application.go
package models

import "time"

// State is a lifecycle state of a mortgage application.
type State string

const (
	StateProvisionalOfferAccepted State = "PROVISIONAL_OFFER_ACCEPTED"
	StatePreApproval              State = "PRE_APPROVAL"
	StateApplicationApproval      State = "APPLICATION_APPROVAL"
	StateEquityPaid               State = "EQUITY_PAID"
	StateDocumentSentToBank       State = "DOCUMENT_SENT_TO_BANK"
	StateOfferFromBank            State = "OFFER_FROM_BANK"
	StateOfferLetterAcceptance    State = "OFFER_LETTER_ACCEPTANCE"
	StateDisbursement             State = "DISBURSEMENT"
	StateClosed                   State = "CLOSED"
	StateCancelled                State = "CANCELLED"
)

// InitialState is the state every application is created in.
const InitialState = StateProvisionalOfferAccepted

// AllStates lists states in lifecycle order.
var AllStates = []State{
	StateProvisionalOfferAccepted,
	StatePreApproval,
	StateApplicationApproval,
	StateEquityPaid,
	StateDocumentSentToBank,
	StateOfferFromBank,
	StateOfferLetterAcceptance,
	StateDisbursement,
	StateClosed,
	StateCancelled,
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateCancelled
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Event names a lifecycle command.
type Event string

const (
	EventStartPreApproval     Event = "START_PRE_APPROVAL"
	EventApproveApplication   Event = "APPROVE_APPLICATION"
	EventConfirmEquityPayment Event = "CONFIRM_EQUITY_PAYMENT"
	EventSendDocumentsToBank  Event = "SEND_DOCUMENTS_TO_BANK"
	EventReceiveBankOffer     Event = "RECEIVE_BANK_OFFER"
	EventAcceptOfferLetter    Event = "ACCEPT_OFFER_LETTER"
	EventDisburse             Event = "DISBURSE"
	EventClose                Event = "CLOSE"
	EventCancel               Event = "CANCEL"
)

// MortgageApplication is the aggregate whose CurrentState is owned by the transition engine.
type MortgageApplication struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	BorrowerID   string    `json:"borrowerId"`
	PropertyID   string    `json:"propertyId"`
	CurrentState State     `json:"currentState"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
