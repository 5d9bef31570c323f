package validator

import (
	"errors"
	"fmt"
	"strings"

	"slotwise/pkg/logger"
	"slotwise/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields flattens the errors into a field → message map for error details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("clock_time", validateClockTime); err != nil {
		log.Fatal("Failed to register 'clock_time' validator", "error", err)
	}
	if err := v.RegisterValidation("calendar_date", validateCalendarDate); err != nil {
		log.Fatal("Failed to register 'calendar_date' validator", "error", err)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateClockTime(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(fl.Field().String())
	return err == nil
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

// ValidateCreate checks the create request, collecting every violation rather
// than stopping at the first. Exactly one scheduling form must be given:
// start_time with duration_hours, or a list of contiguous slot labels.
func (v *BookingValidator) ValidateCreate(req *model.BookingCreate) error {
	validationErrors := v.structErrors(req)

	hasTime := req.StartTime != ""
	hasSlots := len(req.SlotLabels) > 0

	switch {
	case !hasTime && !hasSlots:
		validationErrors = append(validationErrors, ValidationError{
			Field:   "start_time",
			Message: "either start_time or slot_labels must be provided",
		})
	case hasTime && hasSlots:
		validationErrors = append(validationErrors, ValidationError{
			Field:   "slot_labels",
			Message: "provide either start_time or slot_labels, not both",
		})
	case hasTime && req.DurationHours == 0:
		validationErrors = append(validationErrors, ValidationError{
			Field:   "duration_hours",
			Message: "duration_hours is required when start_time is given",
		})
	case hasSlots:
		if err := v.validateSlotLabels(req.SlotLabels); err != nil {
			validationErrors = append(validationErrors, *err)
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func (v *BookingValidator) ValidateStatusChange(req *model.StatusChange) error {
	if validationErrors := v.structErrors(req); len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func (v *BookingValidator) ValidateReschedule(req *model.Reschedule) error {
	if validationErrors := v.structErrors(req); len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

// validateSlotLabels verifies the labels parse and form a contiguous run of
// one-hour slots: each label must start exactly one hour after the previous.
func (v *BookingValidator) validateSlotLabels(labels []string) *ValidationError {
	prev := -1
	for i, label := range labels {
		start, err := model.ParseClock(label)
		if err != nil {
			return &ValidationError{
				Field:   "slot_labels",
				Message: fmt.Sprintf("slot label %q is not a valid HH:MM time", label),
			}
		}
		if i > 0 && start != prev+60 {
			return &ValidationError{
				Field:   "slot_labels",
				Message: fmt.Sprintf("slot labels must be contiguous one-hour slots, %q does not follow %q", label, labels[i-1]),
			}
		}
		prev = start
	}

	last := prev + 60
	if last > model.MinutesPerDay {
		return &ValidationError{
			Field:   "slot_labels",
			Message: "slot labels must not cross midnight",
		}
	}
	return nil
}

func (v *BookingValidator) structErrors(req any) ValidationErrors {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return v.translateValidationErrors(validationErrs)
	}

	return ValidationErrors{{Field: "request", Message: err.Error()}}
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "url":
			message = fmt.Sprintf("%s must be a well-formed URL", err.Field())
		case "clock_time":
			message = fmt.Sprintf("%s must be an HH:MM clock time", err.Field())
		case "calendar_date":
			message = fmt.Sprintf("%s must be a YYYY-MM-DD calendar date", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
