package availability

import (
	"strings"
	"time"

	"slotwise/pkg/model"
)

// FreeSlots computes the free candidate intervals for one weekday given the
// provider's weekly windows and the intervals already occupied that day.
// Pure function: it holds no state and never errors, an empty result simply
// means the provider is fully unavailable.
//
// Windows listing explicit SlotStarts contribute those starts verbatim; span
// windows are sliced into fixed-width slots, dropping a final partial slot
// that would cross the window's end. A slot overlapping ANY occupied interval
// is excluded. Order of windows and slots is preserved, and the result never
// contains overlapping slots: when windows overlap, the earlier window wins.
func FreeSlots(windows []model.AvailabilityWindow, weekday time.Weekday, occupied []model.Interval, slotMinutes int) []model.Interval {
	slots := make([]model.Interval, 0)

	for _, window := range windows {
		if !strings.EqualFold(window.DayOfWeek, weekday.String()) {
			continue
		}
		for _, slot := range windowSlots(window, slotMinutes) {
			if overlapsAny(slot, occupied) || overlapsAny(slot, slots) {
				continue
			}
			slots = append(slots, slot)
		}
	}

	return slots
}

func windowSlots(window model.AvailabilityWindow, slotMinutes int) []model.Interval {
	if len(window.SlotStarts) > 0 {
		slots := make([]model.Interval, 0, len(window.SlotStarts))
		for _, label := range window.SlotStarts {
			start, err := model.ParseClock(label)
			if err != nil {
				continue
			}
			slot, err := model.NewInterval(start, start+slotMinutes)
			if err != nil {
				continue
			}
			slots = append(slots, slot)
		}
		return slots
	}

	start, err := model.ParseClock(window.StartTime)
	if err != nil {
		return nil
	}
	end, err := model.ParseClock(window.EndTime)
	if err != nil || end <= start {
		return nil
	}

	var slots []model.Interval
	for cursor := start; cursor+slotMinutes <= end; cursor += slotMinutes {
		slots = append(slots, model.Interval{Start: cursor, End: cursor + slotMinutes})
	}
	return slots
}

func overlapsAny(candidate model.Interval, occupied []model.Interval) bool {
	for _, interval := range occupied {
		if candidate.Overlaps(interval) {
			return true
		}
	}
	return false
}
