package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "slotwise/internal/bookings/errors"
	"slotwise/internal/bookings/repository"
	"slotwise/internal/bookings/validator"
	"slotwise/pkg/client"
	"slotwise/pkg/config"
	apperrors "slotwise/pkg/errors"
	"slotwise/pkg/model"
	"slotwise/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// IdentityResolver is the slice of the identity collaborator this service
// needs: resolving a user id to its profile.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, id string) (*model.UserProfile, error)
}

// PaymentReader answers whether a booking has a completed payment. Refund
// execution itself belongs to the dispatcher, not to this service.
type PaymentReader interface {
	FindCompletedPayment(ctx context.Context, bookingID string) (*client.Payment, error)
}

// BookingService owns the booking lifecycle: creation with conflict
// detection, the status state machine and rescheduling. Mutating operations
// return the committed booking together with the ordered side-effect intents
// the caller must dispatch after the commit.
type BookingService interface {
	Create(ctx context.Context, req *model.BookingCreate) (*model.Booking, []model.Intent, error)
	ChangeStatus(ctx context.Context, id string, req *model.StatusChange) (*model.Booking, []model.Intent, error)
	Reschedule(ctx context.Context, id string, req *model.Reschedule) (*model.Booking, []model.Intent, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByParty(ctx context.Context, partyID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.SlotLockRepository
	validator *validator.BookingValidator
	identity  IdentityResolver
	payments  PaymentReader
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.BookingValidator,
	identity IdentityResolver,
	payments PaymentReader,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		identity:  identity,
		payments:  payments,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingCreate) (*model.Booking, []model.Intent, error) {
	req.Subject = sanitizer.NormalizeSubject(req.Subject)

	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking create validation failed", "error", err)
		return nil, nil, validationError(err)
	}

	startTime, durationHours := normalizeSchedule(req)
	if durationHours < s.cfg.MinDurationHours || durationHours > s.cfg.MaxDurationHours {
		return nil, nil, apperrors.Validation("Booking validation failed", map[string]any{
			"duration_hours": fmt.Sprintf("duration must be between %v and %v hours", s.cfg.MinDurationHours, s.cfg.MaxDurationHours),
		})
	}

	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, nil, apperrors.InvalidInput(err.Error())
	}
	if err := s.checkHorizon(date); err != nil {
		return nil, nil, err
	}

	interval, err := model.IntervalAt(startTime, durationHours)
	if err != nil {
		return nil, nil, apperrors.InvalidInput(err.Error())
	}

	provider, requester, err := s.resolveParties(ctx, req.ProviderID, req.RequesterID)
	if err != nil {
		return nil, nil, err
	}

	rate := provider.HourlyRate
	if rate <= 0 {
		rate = s.cfg.DefaultHourlyRate
	}

	booking := &model.Booking{
		ProviderID:    req.ProviderID,
		RequesterID:   req.RequesterID,
		Provider:      provider.Snapshot(),
		Requester:     requester.Snapshot(),
		Subject:       req.Subject,
		Date:          date,
		StartTime:     startTime,
		DurationHours: durationHours,
		SlotLabels:    req.SlotLabels,
		Status:        model.StatusPending,
		Amount:        rate * durationHours,
	}

	lockID, err := s.acquireSlotLock(ctx, req.ProviderID, date)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkConflict(sessCtx, req.ProviderID, date, interval, ""); err != nil {
			return err
		}
		if err := s.repo.Insert(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"provider_id", booking.ProviderID,
		"requester_id", booking.RequesterID,
		"date", booking.Date.Format(model.DateFormat),
		"interval", interval.String(),
		"amount", booking.Amount,
	)

	intents := sequenced([]model.Intent{
		s.notice(model.IntentBookingPendingNotice, booking, booking.ProviderID),
	})
	return booking, intents, nil
}

func (s *bookingService) ChangeStatus(ctx context.Context, id string, req *model.StatusChange) (*model.Booking, []model.Intent, error) {
	if err := s.validator.ValidateStatusChange(req); err != nil {
		s.cfg.Log.Warn("Status change validation failed", "id", id, "error", err)
		return nil, nil, validationError(err)
	}

	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	party := booking.PartyOf(req.ActorID)
	if party == "" {
		return nil, nil, apperrors.Forbidden("actor is not a party to this booking")
	}

	from := booking.Status
	if !canTransition(from, req.Status) {
		return nil, nil, apperrors.InvalidTransition(string(from), string(req.Status))
	}
	booking.Status = req.Status

	var intents []model.Intent
	switch req.Status {
	case model.StatusConfirmed:
		if req.MeetingLink != "" {
			booking.MeetingLink = sanitizer.NormalizeURL(req.MeetingLink)
		}
		intents = append(intents, s.notice(model.IntentBookingApprovedNotice, booking, booking.RequesterID))

	case model.StatusCancelled:
		booking.CancelledBy = party
		booking.CancelReason = sanitizer.NormalizeReason(req.Reason)

		refundIntents, err := s.cancellationIntents(ctx, booking, party)
		if err != nil {
			return nil, nil, err
		}
		intents = append(intents, refundIntents...)

	case model.StatusCompleted:
		// Persistence only.
	}

	// A booking parked in rescheduled does not occupy its new interval, so
	// someone else may have booked it in the meantime. Confirming out of
	// rescheduled re-checks the slot under the same lock a create takes.
	var persistErr error
	if from == model.StatusRescheduled && booking.Status == model.StatusConfirmed {
		persistErr = s.confirmRescheduledSlot(ctx, id, from, booking)
	} else {
		persistErr = s.persistStatus(ctx, id, from, booking)
	}
	if persistErr != nil {
		s.cfg.Log.Error("Failed to change booking status", "id", id, "from", from, "to", req.Status, "error", persistErr)
		return nil, nil, persistErr
	}

	s.cfg.Log.Info("Booking status changed",
		"id", id,
		"from", from,
		"to", booking.Status,
		"actor", req.ActorID,
		"party", party,
		"intents", len(intents),
	)
	return booking, sequenced(intents), nil
}

func (s *bookingService) Reschedule(ctx context.Context, id string, req *model.Reschedule) (*model.Booking, []model.Intent, error) {
	if err := s.validator.ValidateReschedule(req); err != nil {
		s.cfg.Log.Warn("Reschedule validation failed", "id", id, "error", err)
		return nil, nil, validationError(err)
	}

	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if booking.PartyOf(req.ActorID) == "" {
		return nil, nil, apperrors.Forbidden("actor is not a party to this booking")
	}

	from := booking.Status
	if from != model.StatusPending && from != model.StatusConfirmed {
		return nil, nil, apperrors.InvalidTransition(string(from), string(model.StatusRescheduled))
	}

	newDate, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, nil, apperrors.InvalidInput(err.Error())
	}
	if err := s.checkHorizon(newDate); err != nil {
		return nil, nil, err
	}

	newInterval, err := model.IntervalAt(req.StartTime, booking.DurationHours)
	if err != nil {
		return nil, nil, apperrors.InvalidInput(err.Error())
	}

	lockID, err := s.acquireSlotLock(ctx, booking.ProviderID, newDate)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	// One prior point, not a chain: a second reschedule overwrites it.
	booking.RescheduledFrom = &model.ReschedulePoint{
		Date:      booking.Date,
		StartTime: booking.StartTime,
	}
	booking.Date = newDate
	booking.StartTime = req.StartTime
	booking.Status = model.StatusRescheduled

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkConflict(sessCtx, booking.ProviderID, newDate, newInterval, id); err != nil {
			return err
		}
		if err := s.repo.UpdateSchedule(sessCtx, id, from, booking); err != nil {
			return s.mapWriteError(sessCtx, id, err, model.StatusRescheduled)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reschedule booking", "id", id, "error", err)
		return nil, nil, err
	}

	s.cfg.Log.Info("Booking rescheduled",
		"id", id,
		"date", newDate.Format(model.DateFormat),
		"start_time", req.StartTime,
		"previous_date", booking.RescheduledFrom.Date.Format(model.DateFormat),
		"previous_start_time", booking.RescheduledFrom.StartTime,
	)
	return booking, nil, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.loadBooking(ctx, id)
}

func (s *bookingService) ListByParty(ctx context.Context, partyID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if partyID == "" {
		return nil, 0, apperrors.InvalidInput("party_id is required")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByParty(ctx, partyID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "party_id", partyID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.ListByParty(ctx, partyID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "party_id", partyID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// --- Helpers ---

// normalizeSchedule reduces the two accepted scheduling forms to one
// start/duration pair. Contiguous slot labels become start = first label,
// duration = one hour per label; the labels themselves stay for display.
func normalizeSchedule(req *model.BookingCreate) (string, float64) {
	if len(req.SlotLabels) > 0 {
		return req.SlotLabels[0], float64(len(req.SlotLabels))
	}
	return req.StartTime, req.DurationHours
}

// checkHorizon enforces the advance-booking window: strictly after today,
// no further out than the configured horizon. Both bounds in UTC.
func (s *bookingService) checkHorizon(date time.Time) error {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if !date.After(today) {
		return apperrors.HorizonViolation("booking date must be strictly in the future")
	}
	if date.After(today.AddDate(0, 0, s.cfg.BookingHorizonDays)) {
		return apperrors.HorizonViolation(fmt.Sprintf("booking date must be within %d days", s.cfg.BookingHorizonDays))
	}
	return nil
}

func (s *bookingService) resolveParties(ctx context.Context, providerID, requesterID string) (*model.UserProfile, *model.UserProfile, error) {
	var provider, requester *model.UserProfile
	var errProvider, errRequester error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		provider, errProvider = s.resolveParty(ctx, providerID, model.RoleProvider)
	}()

	go func() {
		defer wg.Done()
		requester, errRequester = s.resolveParty(ctx, requesterID, model.RoleRequester)
	}()

	wg.Wait()
	if errProvider != nil {
		return nil, nil, errProvider
	}
	if errRequester != nil {
		return nil, nil, errRequester
	}

	return provider, requester, nil
}

func (s *bookingService) resolveParty(ctx context.Context, id, wantRole string) (*model.UserProfile, error) {
	profile, err := s.identity.ResolveUser(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrUserNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.DependencyFailure("identity service", err)
	}
	if profile.Role != wantRole {
		return nil, apperrors.RoleMismatch(id, wantRole)
	}
	return profile, nil
}

// checkConflict is the conflict detector: the candidate interval must not
// overlap any occupying booking of the provider on that date.
func (s *bookingService) checkConflict(ctx context.Context, providerID string, date time.Time, candidate model.Interval, excludeID string) error {
	occupying, err := s.repo.FindOccupying(ctx, providerID, date, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range occupying {
		existing, err := b.Interval()
		if err != nil {
			s.cfg.Log.Warn("Skipping booking with unparseable interval", "id", b.ID, "error", err)
			continue
		}
		if candidate.Overlaps(existing) {
			return apperrors.SlotConflict(fmt.Sprintf(
				"requested interval %s overlaps existing booking (%s)",
				candidate.String(), existing.String(),
			))
		}
	}
	return nil
}

// cancellationIntents decides the refund side effects of a cancellation.
// Provider-initiated cancellation of a paid booking always refunds; a
// requester-initiated one refunds only when the policy flag enables it.
func (s *bookingService) cancellationIntents(ctx context.Context, booking *model.Booking, cancelledBy model.Party) ([]model.Intent, error) {
	refundable := cancelledBy == model.PartyProvider ||
		(cancelledBy == model.PartyRequester && s.cfg.RefundOnRequesterCancel)
	if !refundable {
		return nil, nil
	}

	payment, err := s.payments.FindCompletedPayment(ctx, booking.ID)
	if err != nil {
		return nil, apperrors.DependencyFailure("payment service", err)
	}
	if payment == nil {
		return nil, nil
	}

	reason := booking.CancelReason
	if reason == "" {
		if cancelledBy == model.PartyProvider {
			reason = "rejected by provider"
		} else {
			reason = "cancelled by requester"
		}
	}

	intents := []model.Intent{
		{
			Type:      model.IntentRefundRequested,
			BookingID: booking.ID,
			PaymentID: payment.ID,
			Amount:    booking.Amount,
			Reason:    reason,
		},
		s.notice(model.IntentRefundProcessedNotice, booking, booking.RequesterID),
	}
	if cancelledBy == model.PartyProvider {
		intents = append(intents, s.notice(model.IntentBookingRejectedNotice, booking, booking.RequesterID))
	}
	return intents, nil
}

// confirmRescheduledSlot persists a rescheduled -> confirmed transition with
// the slot lock held and the conflict check re-run, excluding the booking
// itself. Without it, confirming could land two occupying bookings on one
// interval.
func (s *bookingService) confirmRescheduledSlot(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
	interval, err := booking.Interval()
	if err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	lockID, err := s.acquireSlotLock(ctx, booking.ProviderID, booking.Date)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkConflict(sessCtx, booking.ProviderID, booking.Date, interval, id); err != nil {
			return err
		}
		return s.persistStatus(sessCtx, id, from, booking)
	})
}

func (s *bookingService) persistStatus(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
	if err := s.repo.UpdateStatus(ctx, id, from, booking); err != nil {
		return s.mapWriteError(ctx, id, err, booking.Status)
	}
	return nil
}

// mapWriteError translates repository failures of conditional writes. A stale
// status means someone transitioned the booking first; report the transition
// from its current status so the caller sees why it is now illegal.
func (s *bookingService) mapWriteError(ctx context.Context, id string, err error, target model.BookingStatus) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrStaleStatus):
		current, loadErr := s.repo.FindByID(ctx, id)
		if loadErr != nil {
			return apperrors.Internal("Failed to re-check booking status", loadErr)
		}
		return apperrors.InvalidTransition(string(current.Status), string(target))
	default:
		return apperrors.Internal("Failed to update booking", err)
	}
}

func (s *bookingService) loadBooking(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

// acquireSlotLock serializes check-then-write sequences per (provider, date).
// The unique _id insert is the mutual exclusion; the TTL covers crashes.
func (s *bookingService) acquireSlotLock(ctx context.Context, providerID string, date time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s_%s", providerID, date.Format(model.DateFormat))

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.SlotConflict("this provider's calendar is being updated by another request, please retry")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *bookingService) notice(t model.IntentType, booking *model.Booking, recipient string) model.Intent {
	return model.Intent{
		Type:      t,
		BookingID: booking.ID,
		Recipient: recipient,
		Payload: map[string]any{
			"subject":    booking.Subject,
			"date":       booking.Date.Format(model.DateFormat),
			"start_time": booking.StartTime,
			"status":     string(booking.Status),
		},
	}
}

// sequenced stamps the emission order onto the intents.
func sequenced(intents []model.Intent) []model.Intent {
	for i := range intents {
		intents[i].Sequence = i
	}
	return intents
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperrors.Validation("Booking validation failed", ve.Fields())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}
