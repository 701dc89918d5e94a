package lifecycle

import (
	"encoding/json"
	"fmt"
	"strings"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// ContextType tags the variant carried by a transition context payload.
type ContextType string

const (
	ContextNone           ContextType = "none"
	ContextUnderwriting   ContextType = "underwriting"
	ContextEquityPayment  ContextType = "equity_payment"
	ContextBankSubmission ContextType = "bank_submission"
	ContextBankOffer      ContextType = "bank_offer"
	ContextOfferAccepted  ContextType = "offer_acceptance"
	ContextDisbursement   ContextType = "disbursement"
	ContextCancellation   ContextType = "cancellation"
)

// TransitionContext is the parsed, validated payload attached to a transition command.
type TransitionContext interface {
	Type() ContextType
}

type NoContext struct{}

type UnderwritingContext struct {
	DecisionID string `json:"decisionId"`
}

type EquityPaymentContext struct {
	ScheduleID string `json:"scheduleId"`
}

type BankSubmissionContext struct {
	BankID      string   `json:"bankId"`
	DocumentIDs []string `json:"documentIds"`
}

type BankOfferContext struct {
	BankID         string `json:"bankId"`
	OfferReference string `json:"offerReference"`
	Amount         string `json:"amount,omitempty"`
}

type OfferAcceptanceContext struct {
	OfferReference string `json:"offerReference"`
	AcceptedBy     string `json:"acceptedBy"`
}

type DisbursementContext struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type CancellationContext struct {
	Reason string `json:"reason"`
}

func (NoContext) Type() ContextType              { return ContextNone }
func (UnderwritingContext) Type() ContextType    { return ContextUnderwriting }
func (EquityPaymentContext) Type() ContextType   { return ContextEquityPayment }
func (BankSubmissionContext) Type() ContextType  { return ContextBankSubmission }
func (BankOfferContext) Type() ContextType       { return ContextBankOffer }
func (OfferAcceptanceContext) Type() ContextType { return ContextOfferAccepted }
func (DisbursementContext) Type() ContextType    { return ContextDisbursement }
func (CancellationContext) Type() ContextType    { return ContextCancellation }

type variant struct {
	schema string
	decode func([]byte) (TransitionContext, error)
}

func decodeAs[T TransitionContext](data []byte) (TransitionContext, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var variants = map[ContextType]variant{
	ContextNone: {
		schema: `{"type":"object","properties":{"type":{"const":"none"}}}`,
		decode: func([]byte) (TransitionContext, error) { return NoContext{}, nil },
	},
	ContextUnderwriting: {
		schema: `{"type":"object","required":["decisionId"],
			"properties":{"decisionId":{"type":"string","minLength":1}}}`,
		decode: decodeAs[UnderwritingContext],
	},
	ContextEquityPayment: {
		schema: `{"type":"object","required":["scheduleId"],
			"properties":{"scheduleId":{"type":"string","minLength":1}}}`,
		decode: decodeAs[EquityPaymentContext],
	},
	ContextBankSubmission: {
		schema: `{"type":"object","required":["bankId","documentIds"],
			"properties":{"bankId":{"type":"string","minLength":1},
			"documentIds":{"type":"array","minItems":1,"items":{"type":"string","minLength":1}}}}`,
		decode: decodeAs[BankSubmissionContext],
	},
	ContextBankOffer: {
		schema: `{"type":"object","required":["bankId","offerReference"],
			"properties":{"bankId":{"type":"string","minLength":1},
			"offerReference":{"type":"string","minLength":1},
			"amount":{"type":"string","pattern":"^[0-9]+(\\.[0-9]{1,2})?$"}}}`,
		decode: decodeAs[BankOfferContext],
	},
	ContextOfferAccepted: {
		schema: `{"type":"object","required":["offerReference","acceptedBy"],
			"properties":{"offerReference":{"type":"string","minLength":1},
			"acceptedBy":{"type":"string","minLength":1}}}`,
		decode: decodeAs[OfferAcceptanceContext],
	},
	ContextDisbursement: {
		schema: `{"type":"object","required":["amount","reference"],
			"properties":{"amount":{"type":"string","pattern":"^[0-9]+(\\.[0-9]{1,2})?$"},
			"reference":{"type":"string","minLength":1}}}`,
		decode: decodeAs[DisbursementContext],
	},
	ContextCancellation: {
		schema: `{"type":"object","required":["reason"],
			"properties":{"reason":{"type":"string","minLength":10}}}`,
		decode: decodeAs[CancellationContext],
	},
}

// accepted lists the variants each event may carry. The first entry is used when the payload is empty.
var accepted = map[models.Event][]ContextType{
	models.EventStartPreApproval:     {ContextNone},
	models.EventApproveApplication:   {ContextNone, ContextUnderwriting},
	models.EventConfirmEquityPayment: {ContextNone, ContextEquityPayment},
	models.EventSendDocumentsToBank:  {ContextNone, ContextBankSubmission},
	models.EventReceiveBankOffer:     {ContextNone, ContextBankOffer},
	models.EventAcceptOfferLetter:    {ContextNone, ContextOfferAccepted},
	models.EventDisburse:             {ContextNone, ContextDisbursement},
	models.EventClose:                {ContextNone},
	models.EventCancel:               {ContextCancellation},
}

// ParseContext validates a raw payload of the form {"type": "...", ...} against the
// variant's schema and the event's accepted variants.
func ParseContext(event models.Event, raw json.RawMessage) (TransitionContext, error) {
	allowed, ok := accepted[event]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown event %q", event))
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		if allowed[0] != ContextNone {
			return nil, errors.NewValidationError(fmt.Sprintf("event %s requires a %s context", event, allowed[0]))
		}
		return NoContext{}, nil
	}

	var head struct {
		Type ContextType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errors.NewValidationError("transition context is not a JSON object: " + err.Error())
	}
	if head.Type == "" {
		head.Type = ContextNone
	}

	permitted := false
	for _, t := range allowed {
		if t == head.Type {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, errors.NewValidationError(fmt.Sprintf("event %s does not accept a %q context", event, head.Type))
	}

	v := variants[head.Type]
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(v.schema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.NewValidationError("transition context: " + err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.NewValidationError(fmt.Sprintf("%s context: %s", head.Type, strings.Join(msgs, "; ")))
	}

	tc, err := v.decode(raw)
	if err != nil {
		return nil, errors.NewValidationError("transition context decode: " + err.Error())
	}
	return tc, nil
}
