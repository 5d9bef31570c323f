package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	bookingserrors "slotwise/internal/bookings/errors"
	"slotwise/internal/bookings/validator"
	"slotwise/pkg/client"
	"slotwise/pkg/config"
	mongotx "slotwise/pkg/db/mongo"
	apperrors "slotwise/pkg/errors"
	"slotwise/pkg/logger"
	"slotwise/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Mock repository for testing
type mockBookingRepository struct {
	insertFunc         func(ctx context.Context, booking *model.Booking) error
	findByIDFunc       func(ctx context.Context, id string) (*model.Booking, error)
	findOccupyingFunc  func(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error)
	updateStatusFunc   func(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error
	updateScheduleFunc func(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error
	listByPartyFunc    func(ctx context.Context, partyID string, limit int, offset int64) ([]*model.Booking, error)
	countByPartyFunc   func(ctx context.Context, partyID string) (int64, error)
}

func (m *mockBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, booking)
	}
	booking.ID = "new-booking-id"
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindOccupying(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error) {
	if m.findOccupyingFunc != nil {
		return m.findOccupyingFunc(ctx, providerID, date, excludeID)
	}
	return nil, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, booking)
	}
	return nil
}

func (m *mockBookingRepository) UpdateSchedule(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
	if m.updateScheduleFunc != nil {
		return m.updateScheduleFunc(ctx, id, from, booking)
	}
	return nil
}

func (m *mockBookingRepository) ListByParty(ctx context.Context, partyID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.listByPartyFunc != nil {
		return m.listByPartyFunc(ctx, partyID, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepository) CountByParty(ctx context.Context, partyID string) (int64, error) {
	if m.countByPartyFunc != nil {
		return m.countByPartyFunc(ctx, partyID)
	}
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockSlotLockRepository struct {
	createFunc func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	deleteFunc func(ctx context.Context, lockID string) error
}

func (m *mockSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, lockID)
	}
	return nil
}

type mockIdentity struct {
	resolveFunc func(ctx context.Context, id string) (*model.UserProfile, error)
}

func (m *mockIdentity) ResolveUser(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, id)
	}
	switch id {
	case "provider-1":
		return &model.UserProfile{ID: id, Role: model.RoleProvider, Name: "Pat Provider", Email: "pat@example.com", HourlyRate: 800}, nil
	case "requester-1":
		return &model.UserProfile{ID: id, Role: model.RoleRequester, Name: "Rae Requester", Email: "rae@example.com", Phone: "+972501234567"}, nil
	default:
		return nil, client.ErrUserNotFound
	}
}

type mockPayments struct {
	findFunc func(ctx context.Context, bookingID string) (*client.Payment, error)
}

func (m *mockPayments) FindCompletedPayment(ctx context.Context, bookingID string) (*client.Payment, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, bookingID)
	}
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.FormatText,
			Service: "test",
		}),
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		BookingHorizonDays: 90,
		SlotMinutes:        60,
		DefaultHourlyRate:  800,
		MinDurationHours:   0.5,
		MaxDurationHours:   8,
		SlotLockTTL:        10 * time.Second,
	}
}

func newTestService(cfg *config.Config, repo *mockBookingRepository, locks *mockSlotLockRepository, identity *mockIdentity, payments *mockPayments) BookingService {
	return NewBookingService(
		repo,
		locks,
		validator.NewBookingValidator(cfg.Log),
		identity,
		payments,
		cfg,
	)
}

func futureDate(daysAhead int) string {
	return time.Now().UTC().AddDate(0, 0, daysAhead).Format(model.DateFormat)
}

func mustParseDate(t *testing.T, date string) time.Time {
	t.Helper()
	parsed, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	return parsed
}

func assertAppErrorCode(t *testing.T, err error, wantCode string) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", wantCode)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != wantCode {
		t.Fatalf("expected code %s, got %s (%v)", wantCode, appErr.Code, appErr)
	}
	return appErr
}

func TestCreate_ComputesAmountAndEmitsPendingNotice(t *testing.T) {
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	booking, intents, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Guitar lesson",
		Date:          futureDate(30),
		StartTime:     "13:00",
		DurationHours: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", booking.Status)
	}
	if booking.Amount != 1600 {
		t.Errorf("expected amount 1600 (800 x 2h), got %v", booking.Amount)
	}
	if booking.Provider.Name != "Pat Provider" || booking.Requester.Name != "Rae Requester" {
		t.Errorf("party snapshots not captured: %+v / %+v", booking.Provider, booking.Requester)
	}
	if booking.Provider.Phone != model.UnknownPhone {
		t.Errorf("expected phone sentinel for provider without phone, got %q", booking.Provider.Phone)
	}

	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if intents[0].Type != model.IntentBookingPendingNotice {
		t.Errorf("expected pending notice intent, got %s", intents[0].Type)
	}
	if intents[0].Recipient != "provider-1" {
		t.Errorf("pending notice must go to the provider, got %q", intents[0].Recipient)
	}
	if intents[0].Sequence != 0 {
		t.Errorf("expected sequence 0, got %d", intents[0].Sequence)
	}
}

func TestCreate_OverlapFailsWithSlotConflict(t *testing.T) {
	date := futureDate(30)
	repo := &mockBookingRepository{
		findOccupyingFunc: func(ctx context.Context, providerID string, d time.Time, excludeID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "existing", ProviderID: providerID, StartTime: "13:00", DurationHours: 2, Status: model.StatusPending},
			}, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Follow-up session",
		Date:          date,
		StartTime:     "14:00",
		DurationHours: 1,
	})
	assertAppErrorCode(t, err, apperrors.CodeSlotConflict)
}

func TestCreate_TouchingEndpointsAreNotAConflict(t *testing.T) {
	repo := &mockBookingRepository{
		findOccupyingFunc: func(ctx context.Context, providerID string, d time.Time, excludeID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "existing", StartTime: "09:00", DurationHours: 1, Status: model.StatusConfirmed},
			}, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Back-to-back session",
		Date:          futureDate(30),
		StartTime:     "10:00",
		DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("a booking starting exactly when another ends must succeed, got: %v", err)
	}
}

func TestCreate_HorizonBounds(t *testing.T) {
	tests := []struct {
		name      string
		daysAhead int
		wantErr   bool
	}{
		{name: "today is rejected", daysAhead: 0, wantErr: true},
		{name: "89 days ahead succeeds", daysAhead: 89, wantErr: false},
		{name: "91 days ahead is rejected", daysAhead: 91, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

			_, _, err := svc.Create(context.Background(), &model.BookingCreate{
				ProviderID:    "provider-1",
				RequesterID:   "requester-1",
				Subject:       "Horizon check",
				Date:          futureDate(tt.daysAhead),
				StartTime:     "10:00",
				DurationHours: 1,
			})

			if tt.wantErr {
				assertAppErrorCode(t, err, apperrors.CodeHorizonViolation)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreate_ValidationListsEveryMissingField(t *testing.T) {
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{})
	appErr := assertAppErrorCode(t, err, apperrors.CodeValidation)

	for _, field := range []string{"ProviderID", "RequesterID", "Subject", "Date"} {
		if _, ok := appErr.Details[field]; !ok {
			t.Errorf("expected validation details to include %s, got %v", field, appErr.Details)
		}
	}
}

func TestCreate_SlotLabelsNormalizeToStartAndDuration(t *testing.T) {
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	booking, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:  "provider-1",
		RequesterID: "requester-1",
		Subject:     "Double slot",
		Date:        futureDate(14),
		SlotLabels:  []string{"10:00", "11:00"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.StartTime != "10:00" {
		t.Errorf("expected start 10:00, got %s", booking.StartTime)
	}
	if booking.DurationHours != 2 {
		t.Errorf("expected duration 2h, got %v", booking.DurationHours)
	}
	if booking.Amount != 1600 {
		t.Errorf("expected amount 1600, got %v", booking.Amount)
	}
	if len(booking.SlotLabels) != 2 {
		t.Errorf("original labels must be retained for display, got %v", booking.SlotLabels)
	}
}

func TestCreate_NonContiguousSlotLabelsRejected(t *testing.T) {
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:  "provider-1",
		RequesterID: "requester-1",
		Subject:     "Gap slot",
		Date:        futureDate(14),
		SlotLabels:  []string{"10:00", "12:00"},
	})
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestCreate_RoleMismatch(t *testing.T) {
	identity := &mockIdentity{
		resolveFunc: func(ctx context.Context, id string) (*model.UserProfile, error) {
			// Both ids resolve, but the provider-side user holds the requester role.
			return &model.UserProfile{ID: id, Role: model.RoleRequester, Name: "N", Email: "n@example.com"}, nil
		},
	}
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, identity, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Role check",
		Date:          futureDate(10),
		StartTime:     "10:00",
		DurationHours: 1,
	})
	assertAppErrorCode(t, err, apperrors.CodeRoleMismatch)
}

func TestCreate_UnknownPartyIsNotFound(t *testing.T) {
	identity := &mockIdentity{
		resolveFunc: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return nil, client.ErrUserNotFound
		},
	}
	svc := newTestService(testConfig(), &mockBookingRepository{}, &mockSlotLockRepository{}, identity, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "ghost",
		RequesterID:   "requester-1",
		Subject:       "Ghost party",
		Date:          futureDate(10),
		StartTime:     "10:00",
		DurationHours: 1,
	})
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestCreate_LockHeldBySomeoneElse(t *testing.T) {
	locks := &mockSlotLockRepository{
		createFunc: func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
			return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		},
	}
	svc := newTestService(testConfig(), &mockBookingRepository{}, locks, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Create(context.Background(), &model.BookingCreate{
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Contended slot",
		Date:          futureDate(10),
		StartTime:     "10:00",
		DurationHours: 1,
	})
	assertAppErrorCode(t, err, apperrors.CodeSlotConflict)
}

func pendingBooking(id string) *model.Booking {
	return &model.Booking{
		ID:            id,
		ProviderID:    "provider-1",
		RequesterID:   "requester-1",
		Subject:       "Guitar lesson",
		Date:          time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		StartTime:     "13:00",
		DurationHours: 2,
		Status:        model.StatusPending,
		Amount:        1600,
	}
}

func TestChangeStatus_ProviderCancelWithPaymentEmitsRefundChain(t *testing.T) {
	stored := pendingBooking("b-1")
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *stored
			return &copy, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
			*stored = *booking
			return nil
		},
	}
	payments := &mockPayments{
		findFunc: func(ctx context.Context, bookingID string) (*client.Payment, error) {
			return &client.Payment{ID: "pay-1", BookingID: bookingID, Amount: 1600, Status: "completed"}, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, payments)

	booking, intents, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusCancelled,
		Reason:  "unavailable",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", booking.Status)
	}
	if booking.CancelledBy != model.PartyProvider {
		t.Errorf("expected cancelledBy provider, got %s", booking.CancelledBy)
	}

	if len(intents) != 3 {
		t.Fatalf("expected refund + processed notice + rejected notice, got %d intents", len(intents))
	}
	refund := intents[0]
	if refund.Type != model.IntentRefundRequested {
		t.Errorf("first intent must be the refund, got %s", refund.Type)
	}
	if refund.Amount != 1600 {
		t.Errorf("refund must cover the full amount, got %v", refund.Amount)
	}
	if refund.PaymentID != "pay-1" {
		t.Errorf("refund must target the completed payment, got %q", refund.PaymentID)
	}
	if refund.Reason != "unavailable" {
		t.Errorf("expected supplied cancel reason, got %q", refund.Reason)
	}
	if intents[1].Type != model.IntentRefundProcessedNotice || intents[2].Type != model.IntentBookingRejectedNotice {
		t.Errorf("unexpected notice order: %s, %s", intents[1].Type, intents[2].Type)
	}
	for i, intent := range intents {
		if intent.Sequence != i {
			t.Errorf("intent %d carries sequence %d", i, intent.Sequence)
		}
	}
}

func TestChangeStatus_ProviderCancelDefaultsRefundReason(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}
	payments := &mockPayments{
		findFunc: func(ctx context.Context, bookingID string) (*client.Payment, error) {
			return &client.Payment{ID: "pay-1", Amount: 1600, Status: "completed"}, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, payments)

	_, intents, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intents[0].Reason != "rejected by provider" {
		t.Errorf("expected default refund reason, got %q", intents[0].Reason)
	}
}

func TestChangeStatus_RequesterCancelRefundIsPolicyGated(t *testing.T) {
	payments := &mockPayments{
		findFunc: func(ctx context.Context, bookingID string) (*client.Payment, error) {
			return &client.Payment{ID: "pay-1", Amount: 1600, Status: "completed"}, nil
		},
	}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}

	t.Run("disabled by default", func(t *testing.T) {
		svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, payments)

		booking, intents, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
			ActorID: "requester-1",
			Status:  model.StatusCancelled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if booking.CancelledBy != model.PartyRequester {
			t.Errorf("expected cancelledBy requester, got %s", booking.CancelledBy)
		}
		if len(intents) != 0 {
			t.Errorf("requester cancel must emit no refund with the policy off, got %d intents", len(intents))
		}
	})

	t.Run("enabled refunds without rejection notice", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefundOnRequesterCancel = true
		svc := newTestService(cfg, repo, &mockSlotLockRepository{}, &mockIdentity{}, payments)

		_, intents, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
			ActorID: "requester-1",
			Status:  model.StatusCancelled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(intents) != 2 {
			t.Fatalf("expected refund + processed notice, got %d intents", len(intents))
		}
		if intents[0].Type != model.IntentRefundRequested || intents[1].Type != model.IntentRefundProcessedNotice {
			t.Errorf("unexpected intent order: %s, %s", intents[0].Type, intents[1].Type)
		}
		if intents[0].Reason != "cancelled by requester" {
			t.Errorf("expected requester default reason, got %q", intents[0].Reason)
		}
	})
}

func TestChangeStatus_PendingToCompletedIsInvalid(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusCompleted,
	})
	appErr := assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)

	if appErr.Details["from"] != "pending" || appErr.Details["to"] != "completed" {
		t.Errorf("transition error must name source and target, got %v", appErr.Details)
	}
}

func TestChangeStatus_ConfirmRecordsMeetingLinkAndNotifiesRequester(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	booking, intents, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID:     "provider-1",
		Status:      model.StatusConfirmed,
		MeetingLink: "http://Meet.Example.com/room/abc/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.MeetingLink != "https://meet.example.com/room/abc" {
		t.Errorf("meeting link not normalized: %q", booking.MeetingLink)
	}
	if len(intents) != 1 || intents[0].Type != model.IntentBookingApprovedNotice {
		t.Fatalf("expected approved notice, got %+v", intents)
	}
	if intents[0].Recipient != "requester-1" {
		t.Errorf("approved notice must go to the requester, got %q", intents[0].Recipient)
	}
}

func TestChangeStatus_ConfirmFromRescheduledRechecksConflicts(t *testing.T) {
	rescheduled := pendingBooking("b-1")
	rescheduled.Status = model.StatusRescheduled

	t.Run("taken slot is rejected", func(t *testing.T) {
		var capturedExclude string
		repo := &mockBookingRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
				copy := *rescheduled
				return &copy, nil
			},
			findOccupyingFunc: func(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error) {
				capturedExclude = excludeID
				// Another booking took the 13:00 slot while this one sat in rescheduled.
				return []*model.Booking{
					{ID: "other", ProviderID: providerID, StartTime: "13:00", DurationHours: 1, Status: model.StatusConfirmed},
				}, nil
			},
		}
		svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

		_, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
			ActorID: "provider-1",
			Status:  model.StatusConfirmed,
		})
		assertAppErrorCode(t, err, apperrors.CodeSlotConflict)
		if capturedExclude != "b-1" {
			t.Errorf("conflict re-check must exclude the booking itself, got exclude=%q", capturedExclude)
		}
	})

	t.Run("free slot confirms under the lock", func(t *testing.T) {
		checked := false
		lockTaken := false
		repo := &mockBookingRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
				copy := *rescheduled
				return &copy, nil
			},
			findOccupyingFunc: func(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error) {
				checked = true
				return nil, nil
			},
		}
		locks := &mockSlotLockRepository{
			createFunc: func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
				lockTaken = true
				return lock, nil
			},
		}
		svc := newTestService(testConfig(), repo, locks, &mockIdentity{}, &mockPayments{})

		booking, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
			ActorID: "provider-1",
			Status:  model.StatusConfirmed,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if booking.Status != model.StatusConfirmed {
			t.Errorf("expected confirmed, got %s", booking.Status)
		}
		if !checked {
			t.Error("confirming out of rescheduled must re-run the conflict check")
		}
		if !lockTaken {
			t.Error("confirming out of rescheduled must hold the slot lock")
		}
	})
}

func TestChangeStatus_ConfirmFromPendingSkipsConflictCheck(t *testing.T) {
	// A pending booking already occupies its interval; its confirm needs no
	// re-check.
	checked := false
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
		findOccupyingFunc: func(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error) {
			checked = true
			return nil, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	if _, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusConfirmed,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checked {
		t.Error("confirming a pending booking must not query occupying bookings")
	}
}

func TestChangeStatus_ActorMustBeAParty(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "stranger",
		Status:  model.StatusConfirmed,
	})
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestChangeStatus_PaymentLookupFailureIsDependencyFailure(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return pendingBooking(id), nil
		},
	}
	payments := &mockPayments{
		findFunc: func(ctx context.Context, bookingID string) (*client.Payment, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, payments)

	_, _, err := svc.ChangeStatus(context.Background(), "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusCancelled,
	})
	assertAppErrorCode(t, err, apperrors.CodeDependencyFailure)
}

func TestReschedule_RoundTripKeepsIntermediatePoint(t *testing.T) {
	stored := pendingBooking("b-1")
	stored.Status = model.StatusConfirmed
	originalDate := stored.Date
	originalStart := stored.StartTime

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *stored
			return &copy, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
			*stored = *booking
			return nil
		},
		updateScheduleFunc: func(ctx context.Context, id string, from model.BookingStatus, booking *model.Booking) error {
			*stored = *booking
			return nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})
	ctx := context.Background()

	intermediateDate := futureDate(40)
	booking, _, err := svc.Reschedule(ctx, "b-1", &model.Reschedule{
		ActorID:   "requester-1",
		Date:      intermediateDate,
		StartTime: "11:00",
	})
	if err != nil {
		t.Fatalf("first reschedule failed: %v", err)
	}
	if booking.Status != model.StatusRescheduled {
		t.Fatalf("expected rescheduled status, got %s", booking.Status)
	}
	if booking.RescheduledFrom == nil || !booking.RescheduledFrom.Date.Equal(originalDate) || booking.RescheduledFrom.StartTime != originalStart {
		t.Fatalf("rescheduledFrom must snapshot the original point, got %+v", booking.RescheduledFrom)
	}

	// Both parties re-acknowledge before the booking can move again.
	if _, _, err := svc.ChangeStatus(ctx, "b-1", &model.StatusChange{
		ActorID: "provider-1",
		Status:  model.StatusConfirmed,
	}); err != nil {
		t.Fatalf("confirm after reschedule failed: %v", err)
	}

	booking, _, err = svc.Reschedule(ctx, "b-1", &model.Reschedule{
		ActorID:   "requester-1",
		Date:      originalDate.Format(model.DateFormat),
		StartTime: originalStart,
	})
	if err != nil {
		t.Fatalf("reschedule back failed: %v", err)
	}

	if !booking.Date.Equal(originalDate) || booking.StartTime != originalStart {
		t.Errorf("expected original schedule restored, got %s %s", booking.Date, booking.StartTime)
	}
	if booking.RescheduledFrom == nil {
		t.Fatal("rescheduledFrom missing after round trip")
	}
	wantIntermediate := mustParseDate(t, intermediateDate)
	if !booking.RescheduledFrom.Date.Equal(wantIntermediate) || booking.RescheduledFrom.StartTime != "11:00" {
		t.Errorf("rescheduledFrom must point at the intermediate value, not a chain: %+v", booking.RescheduledFrom)
	}
}

func TestReschedule_OnlyFromPendingOrConfirmed(t *testing.T) {
	for _, status := range []model.BookingStatus{model.StatusCompleted, model.StatusCancelled, model.StatusRescheduled} {
		t.Run(string(status), func(t *testing.T) {
			repo := &mockBookingRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
					b := pendingBooking(id)
					b.Status = status
					return b, nil
				},
			}
			svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

			_, _, err := svc.Reschedule(context.Background(), "b-1", &model.Reschedule{
				ActorID:   "provider-1",
				Date:      futureDate(20),
				StartTime: "09:00",
			})
			assertAppErrorCode(t, err, apperrors.CodeInvalidTransition)
		})
	}
}

func TestReschedule_ExcludesItselfFromConflictCheck(t *testing.T) {
	stored := pendingBooking("b-1")
	var capturedExclude string
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *stored
			return &copy, nil
		},
		findOccupyingFunc: func(ctx context.Context, providerID string, date time.Time, excludeID string) ([]*model.Booking, error) {
			capturedExclude = excludeID
			return nil, nil
		},
	}
	svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

	_, _, err := svc.Reschedule(context.Background(), "b-1", &model.Reschedule{
		ActorID:   "provider-1",
		Date:      futureDate(20),
		StartTime: "09:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedExclude != "b-1" {
		t.Errorf("conflict check must exclude the booking being moved, got exclude=%q", capturedExclude)
	}
}

func TestGetByID_MapsRepositoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{name: "missing booking", repoErr: bookingserrors.ErrNotFound, wantCode: apperrors.CodeNotFound},
		{name: "malformed id", repoErr: bookingserrors.ErrInvalidID, wantCode: apperrors.CodeInvalidInput},
		{name: "driver failure", repoErr: fmt.Errorf("socket closed"), wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookingRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
					return nil, tt.repoErr
				},
			}
			svc := newTestService(testConfig(), repo, &mockSlotLockRepository{}, &mockIdentity{}, &mockPayments{})

			_, err := svc.GetByID(context.Background(), "b-1")
			assertAppErrorCode(t, err, tt.wantCode)
		})
	}
}
