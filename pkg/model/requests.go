package model

// Request bodies are closed structs: handlers decode them with
// DisallowUnknownFields so unrecognized fields are rejected instead of
// silently applied.

// BookingCreate is the input for creating a booking. Either StartTime plus
// DurationHours, or a list of contiguous one-hour SlotLabels, must be given;
// slot labels are normalized into a start/duration pair at creation.
type BookingCreate struct {
	ProviderID    string   `json:"provider_id" validate:"required"`
	RequesterID   string   `json:"requester_id" validate:"required"`
	Subject       string   `json:"subject" validate:"required,min=2,max=200"`
	Date          string   `json:"date" validate:"required,calendar_date"`
	StartTime     string   `json:"start_time" validate:"omitempty,clock_time"`
	DurationHours float64  `json:"duration_hours" validate:"omitempty,min=0.5,max=8"`
	SlotLabels    []string `json:"slot_labels" validate:"omitempty,min=1,max=8,dive,clock_time"`
}

// StatusChange is the input for a status transition. The rescheduled status
// is never a direct target here; it is only reachable through Reschedule.
type StatusChange struct {
	ActorID     string        `json:"actor_id" validate:"required"`
	Status      BookingStatus `json:"status" validate:"required,oneof=confirmed completed cancelled"`
	Reason      string        `json:"reason" validate:"omitempty,max=500"`
	MeetingLink string        `json:"meeting_link" validate:"omitempty,url"`
}

// Reschedule moves a booking to a new date and start time, keeping its
// duration. The booking ends up in rescheduled status awaiting
// re-acknowledgement by both parties.
type Reschedule struct {
	ActorID   string `json:"actor_id" validate:"required"`
	Date      string `json:"date" validate:"required,calendar_date"`
	StartTime string `json:"start_time" validate:"required,clock_time"`
}
