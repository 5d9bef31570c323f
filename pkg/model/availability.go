package model

import "slotwise/pkg/sanitizer"

// AvailabilityWindow is one entry of a provider's fixed weekly availability.
// Provider profile data owned by the identity service; this core consumes it
// read-only. A window either spans [StartTime, EndTime) and is sliced into
// fixed-width slots, or lists explicit SlotStarts used verbatim.
type AvailabilityWindow struct {
	DayOfWeek  string   `json:"day_of_week"`
	StartTime  string   `json:"start_time,omitempty"`
	EndTime    string   `json:"end_time,omitempty"`
	SlotStarts []string `json:"slot_starts,omitempty"`
}

// UserProfile is what the identity service resolves for a user id.
type UserProfile struct {
	ID         string  `json:"id"`
	Role       string  `json:"role"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone,omitempty"`
	HourlyRate float64 `json:"hourly_rate,omitempty"`
}

const (
	RoleProvider  = "provider"
	RoleRequester = "requester"
)

// Snapshot captures the profile's display fields for denormalized storage on
// a booking. The phone is normalized to E.164; an absent phone becomes the
// explicit sentinel.
func (u *UserProfile) Snapshot() PartySnapshot {
	phone := sanitizer.NormalizePhone(u.Phone)
	if phone == "" {
		phone = UnknownPhone
	}
	return PartySnapshot{
		Name:  u.Name,
		Email: u.Email,
		Phone: phone,
	}
}
