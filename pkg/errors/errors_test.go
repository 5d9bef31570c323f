package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeSlotConflict,
				Message: "requested slot overlaps an existing booking",
			},
			expected: "SLOT_CONFLICT: requested slot overlaps an existing booking",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeDependencyFailure,
				Message: "identity service is unavailable",
				Err:     errors.New("connection refused"),
			},
			expected: "DEPENDENCY_FAILURE: identity service is unavailable (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInvalidTransitionNamesBothStatuses(t *testing.T) {
	err := InvalidTransition("pending", "completed")

	if err.Code != CodeInvalidTransition {
		t.Errorf("expected code %s, got %s", CodeInvalidTransition, err.Code)
	}
	if err.Details["from"] != "pending" {
		t.Errorf("expected from=pending, got %v", err.Details["from"])
	}
	if err.Details["to"] != "completed" {
		t.Errorf("expected to=completed, got %v", err.Details["to"])
	}
}

func TestDependencyFailureWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := DependencyFailure("payment service", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, err.HTTPStatus)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFoundWithID("Booking", "abc123")
	if got := AsAppError(appErr); got != appErr {
		t.Error("expected AsAppError to return the same *AppError")
	}

	plain := errors.New("boom")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, got.Code)
	}
	if !errors.Is(got, plain) {
		t.Error("expected original error preserved as cause")
	}
}
