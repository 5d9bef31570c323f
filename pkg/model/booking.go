package model

import (
	"time"
)

type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCompleted   BookingStatus = "completed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusRescheduled BookingStatus = "rescheduled"
)

// Party identifies which side of a booking an actor is on.
type Party string

const (
	PartyProvider  Party = "provider"
	PartyRequester Party = "requester"
)

// UnknownPhone is the sentinel for an absent phone number. Snapshot fields
// are never empty: a missing phone is stored explicitly.
const UnknownPhone = "unknown"

// PartySnapshot is the denormalized display data for one side of a booking,
// captured from the identity service at creation time and never refreshed.
type PartySnapshot struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone" bson:"phone"`
}

// ReschedulePoint is the prior (date, start time) pair snapshotted when a
// booking is rescheduled. A booking carries at most one, not a history chain.
type ReschedulePoint struct {
	Date      time.Time `json:"date" bson:"date"`
	StartTime string    `json:"start_time" bson:"start_time"`
}

type Booking struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty"`
	ProviderID  string        `json:"provider_id" bson:"provider_id"`
	RequesterID string        `json:"requester_id" bson:"requester_id"`
	Provider    PartySnapshot `json:"provider" bson:"provider"`
	Requester   PartySnapshot `json:"requester" bson:"requester"`
	Subject     string        `json:"subject" bson:"subject"`

	// Date is the calendar day at UTC midnight; StartTime is the HH:MM clock
	// time within that day.
	Date          time.Time `json:"date" bson:"date"`
	StartTime     string    `json:"start_time" bson:"start_time"`
	DurationHours float64   `json:"duration_hours" bson:"duration_hours"`

	// SlotLabels keeps the slot starts the requester originally picked.
	// Display only: the booked interval is always StartTime+DurationHours.
	SlotLabels []string `json:"slot_labels,omitempty" bson:"slot_labels,omitempty"`

	Status BookingStatus `json:"status" bson:"status"`

	// Amount is fixed at creation from the provider's hourly rate at that
	// moment and never recomputed.
	Amount float64 `json:"amount" bson:"amount"`

	MeetingLink     string           `json:"meeting_link,omitempty" bson:"meeting_link,omitempty"`
	CancelledBy     Party            `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelReason    string           `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	RescheduledFrom *ReschedulePoint `json:"rescheduled_from,omitempty" bson:"rescheduled_from,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// OccupyingStatuses are the statuses that block a booking's interval from
// being reused on the same provider and date.
var OccupyingStatuses = []BookingStatus{StatusPending, StatusConfirmed}

// IsOccupying reports whether this booking blocks its interval.
func (b *Booking) IsOccupying() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Interval derives the half-open booked interval from StartTime and
// DurationHours.
func (b *Booking) Interval() (Interval, error) {
	return IntervalAt(b.StartTime, b.DurationHours)
}

// PartyOf resolves which side of the booking the actor is on. Empty string
// means the actor is not a party to this booking.
func (b *Booking) PartyOf(actorID string) Party {
	switch actorID {
	case b.ProviderID:
		return PartyProvider
	case b.RequesterID:
		return PartyRequester
	default:
		return ""
	}
}
