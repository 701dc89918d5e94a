// Package lifecycle owns the mortgage application state machine.
package lifecycle

import "mortgage-workflow/internal/models"

// Transition is one row of the state machine. A nil Guard always passes.
type Transition struct {
	From  models.State
	Event models.Event
	To    models.State
	Guard *Guard
}

type key struct {
	from  models.State
	event models.Event
}

var table = buildTable()

func buildTable() map[key]Transition {
	rows := []Transition{
		{From: models.StateProvisionalOfferAccepted, Event: models.EventStartPreApproval, To: models.StatePreApproval},
		{From: models.StatePreApproval, Event: models.EventApproveApplication, To: models.StateApplicationApproval, Guard: &UnderwritingApproved},
		{From: models.StateApplicationApproval, Event: models.EventConfirmEquityPayment, To: models.StateEquityPaid, Guard: &EquityFullyPaid},
		{From: models.StateEquityPaid, Event: models.EventSendDocumentsToBank, To: models.StateDocumentSentToBank, Guard: &InternalReviewCleared},
		{From: models.StateDocumentSentToBank, Event: models.EventReceiveBankOffer, To: models.StateOfferFromBank, Guard: &BankReviewCleared},
		{From: models.StateOfferFromBank, Event: models.EventAcceptOfferLetter, To: models.StateOfferLetterAcceptance},
		{From: models.StateOfferLetterAcceptance, Event: models.EventDisburse, To: models.StateDisbursement, Guard: &ConditionsSatisfied},
		{From: models.StateDisbursement, Event: models.EventClose, To: models.StateClosed},
	}
	for _, s := range models.AllStates {
		if !s.IsTerminal() {
			rows = append(rows, Transition{From: s, Event: models.EventCancel, To: models.StateCancelled})
		}
	}

	out := make(map[key]Transition, len(rows))
	for _, r := range rows {
		out[key{r.From, r.Event}] = r
	}
	return out
}

// Lookup returns the transition for (from, event), if any.
func Lookup(from models.State, event models.Event) (Transition, bool) {
	t, ok := table[key{from, event}]
	return t, ok
}

// Transitions returns every row of the table.
func Transitions() []Transition {
	out := make([]Transition, 0, len(table))
	for _, t := range table {
		out = append(out, t)
	}
	return out
}
