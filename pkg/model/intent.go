package model

type IntentType string

const (
	IntentRefundRequested IntentType = "refund_requested"

	IntentBookingPendingNotice  IntentType = "booking_pending_notice"
	IntentBookingApprovedNotice IntentType = "booking_approved_notice"
	IntentBookingRejectedNotice IntentType = "booking_rejected_notice"
	IntentRefundProcessedNotice IntentType = "refund_processed_notice"
)

// Intent describes one side effect a committed state transition requires.
// The state machine emits intents in order but never executes them; the
// dispatcher runs them at-least-once after the transition has been persisted.
type Intent struct {
	Type      IntentType `json:"type"`
	BookingID string     `json:"booking_id"`

	// Sequence preserves the emission order within a single transition.
	Sequence int `json:"sequence"`

	// Recipient is the user id a notice is addressed to. Empty for refunds.
	Recipient string `json:"recipient,omitempty"`

	// PaymentID, Amount and Reason carry refund parameters.
	PaymentID string  `json:"payment_id,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Reason    string  `json:"reason,omitempty"`

	Payload map[string]any `json:"payload,omitempty"`
}

// IsRefund reports whether the intent moves money rather than sending a
// notification.
func (i Intent) IsRefund() bool {
	return i.Type == IntentRefundRequested
}
