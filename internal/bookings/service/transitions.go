package service

import "slotwise/pkg/model"

// transitions is the full lifecycle graph. Completed and cancelled are
// terminal; rescheduled requires both parties to re-acknowledge, so it only
// moves forward to confirmed or cancelled.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:     {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:   {model.StatusCompleted, model.StatusCancelled, model.StatusRescheduled},
	model.StatusCompleted:   {},
	model.StatusCancelled:   {},
	model.StatusRescheduled: {model.StatusConfirmed, model.StatusCancelled},
}

func canTransition(from, to model.BookingStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
