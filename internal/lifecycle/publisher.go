package lifecycle

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"
)

// Notifier receives records after they are durable. Implementations must not fail the transition.
type Notifier interface {
	Publish(ctx context.Context, rec models.TransitionRecord)
}

// TransitionedEvent is the domain event published for each successful transition.
type TransitionedEvent struct {
	ApplicationID string       `json:"applicationId"`
	Seq           int64        `json:"seq"`
	FromState     models.State `json:"fromState"`
	ToState       models.State `json:"toState"`
	Event         models.Event `json:"event"`
	TriggeredBy   string       `json:"triggeredBy"`
	OccurredAt    time.Time    `json:"occurredAt"`
}

// JSONPublisher is satisfied by aws.SNSClient.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, topicARN, subject string, payload interface{}, attrs map[string]string) (string, error)
}

// SNSNotifier publishes successful transitions to a topic. Failed attempts are not published.
type SNSNotifier struct {
	client   JSONPublisher
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(client JSONPublisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "lifecycle-events"}),
	}
}

func (n *SNSNotifier) Publish(ctx context.Context, rec models.TransitionRecord) {
	if !rec.Success {
		return
	}
	evt := TransitionedEvent{
		ApplicationID: rec.ApplicationID,
		Seq:           rec.Seq,
		FromState:     rec.FromState,
		ToState:       rec.ToState,
		Event:         rec.Event,
		TriggeredBy:   rec.TriggeredBy,
		OccurredAt:    rec.OccurredAt,
	}
	attrs := map[string]string{
		"event":   string(rec.Event),
		"toState": string(rec.ToState),
	}
	msgID, err := n.client.PublishJSON(ctx, n.topicARN, "application.transitioned", evt, attrs)
	if err != nil {
		n.logger.Warn("transition event not published", map[string]interface{}{
			"applicationId": rec.ApplicationID,
			"seq":           rec.Seq,
			"error":         err.Error(),
		})
		return
	}
	n.logger.Debug("transition event published", map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"messageId":     msgID,
	})
}
