package availability

import (
	"context"
	"errors"
	"time"

	"slotwise/pkg/client"
	"slotwise/pkg/config"
	apperrors "slotwise/pkg/errors"
	"slotwise/pkg/model"
)

// WindowSource resolves a provider's fixed weekly availability windows.
type WindowSource interface {
	GetAvailability(ctx context.Context, providerID string) ([]model.AvailabilityWindow, error)
}

// OccupyingFinder is the booking store slice the engine needs: the occupying
// bookings of a provider on one date.
type OccupyingFinder interface {
	FindOccupying(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error)
}

type Service interface {
	FreeSlots(ctx context.Context, providerID string, date string) ([]model.Interval, error)
}

type availabilityService struct {
	windows WindowSource
	store   OccupyingFinder
	cfg     *config.Config
}

func NewService(windows WindowSource, store OccupyingFinder, cfg *config.Config) Service {
	return &availabilityService{
		windows: windows,
		store:   store,
		cfg:     cfg,
	}
}

// FreeSlots resolves the provider's windows and occupied intervals for the
// date and hands both to the pure engine. Day-of-week comes from the UTC
// calendar date only, never the server's local timezone.
func (s *availabilityService) FreeSlots(ctx context.Context, providerID string, date string) ([]model.Interval, error) {
	if providerID == "" {
		return nil, apperrors.InvalidInput("provider_id is required")
	}

	day, err := model.ParseDate(date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	windows, err := s.windows.GetAvailability(ctx, providerID)
	if err != nil {
		if errors.Is(err, client.ErrUserNotFound) {
			return nil, apperrors.NotFoundWithID("User", providerID)
		}
		return nil, apperrors.DependencyFailure("identity service", err)
	}

	occupying, err := s.store.FindOccupying(ctx, providerID, day, "")
	if err != nil {
		return nil, apperrors.Internal("Failed to load occupying bookings", err)
	}

	occupied := make([]model.Interval, 0, len(occupying))
	for _, b := range occupying {
		interval, err := b.Interval()
		if err != nil {
			s.cfg.Log.Warn("Skipping booking with unparseable interval", "id", b.ID, "error", err)
			continue
		}
		occupied = append(occupied, interval)
	}

	slots := FreeSlots(windows, model.DayOfWeek(day), occupied, s.cfg.SlotMinutes)

	s.cfg.Log.Debug("Availability computed",
		"provider_id", providerID,
		"date", date,
		"occupied", len(occupied),
		"free_slots", len(slots),
	)
	return slots, nil
}
