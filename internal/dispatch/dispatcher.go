package dispatch

import (
	"context"
	"fmt"

	"slotwise/pkg/client"
	"slotwise/pkg/kafka"
	"slotwise/pkg/logger"
	"slotwise/pkg/model"
)

// RefundExecutor executes a refund against the payment collaborator.
type RefundExecutor interface {
	Refund(ctx context.Context, paymentID string, amount float64, reason string) (*client.RefundResult, error)
}

// NoticeSender delivers one notice through the notification collaborator.
type NoticeSender interface {
	Send(ctx context.Context, notice client.Notice) error
}

// Dispatcher executes side-effect intents consumed from the intent topic.
// Execution is at-least-once: a replayed refund intent re-issues the refund
// call, and the payment collaborator is expected to deduplicate by payment id.
type Dispatcher struct {
	payments      RefundExecutor
	notifications NoticeSender
	log           *logger.Logger
}

func NewDispatcher(payments RefundExecutor, notifications NoticeSender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		payments:      payments,
		notifications: notifications,
		log:           log,
	}
}

// Handle is the consumer's message handler. Malformed payloads and unknown
// intent types are permanent failures headed for the DLQ; collaborator
// errors are left to retry classification.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var intent model.Intent
	if err := msg.DecodeValue(&intent); err != nil {
		return kafka.NewPermanentError("malformed intent payload", err)
	}

	switch intent.Type {
	case model.IntentRefundRequested:
		return d.executeRefund(ctx, intent)
	case model.IntentBookingPendingNotice,
		model.IntentBookingApprovedNotice,
		model.IntentBookingRejectedNotice,
		model.IntentRefundProcessedNotice:
		return d.sendNotice(ctx, intent)
	default:
		return kafka.NewPermanentError(fmt.Sprintf("unknown intent type %q", intent.Type), nil)
	}
}

func (d *Dispatcher) executeRefund(ctx context.Context, intent model.Intent) error {
	if intent.PaymentID == "" {
		return kafka.NewPermanentError("refund intent without payment id", nil)
	}

	result, err := d.payments.Refund(ctx, intent.PaymentID, intent.Amount, intent.Reason)
	if err != nil {
		return fmt.Errorf("refund for booking %s: %w", intent.BookingID, err)
	}

	d.log.Info("Refund executed",
		"booking_id", intent.BookingID,
		"payment_id", intent.PaymentID,
		"refund_id", result.RefundID,
		"amount", result.Amount,
	)
	return nil
}

func (d *Dispatcher) sendNotice(ctx context.Context, intent model.Intent) error {
	if intent.Recipient == "" {
		return kafka.NewPermanentError(fmt.Sprintf("%s intent without recipient", intent.Type), nil)
	}

	notice := client.Notice{
		Recipient: intent.Recipient,
		Type:      string(intent.Type),
		Payload:   intent.Payload,
	}
	if err := d.notifications.Send(ctx, notice); err != nil {
		return fmt.Errorf("notice for booking %s: %w", intent.BookingID, err)
	}

	d.log.Info("Notice delivered",
		"booking_id", intent.BookingID,
		"type", intent.Type,
		"recipient", intent.Recipient,
	)
	return nil
}
