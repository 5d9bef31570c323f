package dispatch

import (
	"context"
	"fmt"

	"slotwise/pkg/kafka"
	"slotwise/pkg/logger"
	"slotwise/pkg/model"
)

// batchPublisher is the producer slice the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
}

// Publisher turns a transition's ordered intent list into kafka messages.
// Every message is keyed by booking id, so all intents of one booking land on
// the same partition and the dispatcher consumes them in emission order.
type Publisher struct {
	producer batchPublisher
	source   string
	log      *logger.Logger
}

func NewPublisher(producer batchPublisher, source string, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *Publisher) PublishIntents(ctx context.Context, intents []model.Intent) error {
	if len(intents) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(intents))
	for _, intent := range intents {
		msg, err := kafka.NewMessage().
			WithKey(intent.BookingID).
			WithValue(intent).
			WithEventType(string(intent.Type)).
			WithSequence(intent.Sequence).
			WithSource(p.source).
			Build()
		if err != nil {
			return fmt.Errorf("encode intent %s for booking %s: %w", intent.Type, intent.BookingID, err)
		}
		messages = append(messages, msg)
	}

	if err := p.producer.PublishBatch(ctx, messages); err != nil {
		return fmt.Errorf("publish %d intents for booking %s: %w", len(messages), intents[0].BookingID, err)
	}

	p.log.Info("Published side-effect intents",
		"booking_id", intents[0].BookingID,
		"count", len(intents),
	)
	return nil
}
