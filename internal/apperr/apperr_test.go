package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonesrussell/crawlsched/internal/apperr"
)

func TestConstructors_HTTPStatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperr.Error
		wantStatus int
		wantCode   string
	}{
		{"bad request", apperr.BadRequest("bad"), http.StatusBadRequest, "BAD_REQUEST"},
		{"authentication failed", apperr.AuthenticationFailed("nope"), http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{"permission denied", apperr.PermissionDenied("nope"), http.StatusForbidden, "PERMISSION_DENIED"},
		{"not found", apperr.NotFound("missing"), http.StatusNotFound, "NOT_FOUND"},
		{"method not allowed", apperr.MethodNotAllowed("nope"), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"timeout", apperr.Timeout("slow"), http.StatusRequestTimeout, "TIMEOUT"},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict, "CONFLICT_ERROR"},
		{"validation", apperr.Validation("invalid", "url: required"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"internal", apperr.Internal("boom", errors.New("cause")), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"bad gateway", apperr.BadGateway("upstream"), http.StatusBadGateway, "BAD_GATEWAY"},
		{"service unavailable", apperr.ServiceUnavailable("down"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("db unreachable")
	err := apperr.Internal("failed to save", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find wrapped cause")
	}
	if err.Error() != "failed to save: db unreachable" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestAsError(t *testing.T) {
	inner := apperr.NotFound("missing url")
	wrapped := fmt.Errorf("handler failed: %w", inner)

	got, ok := apperr.AsError(wrapped)
	if !ok {
		t.Fatal("expected AsError to find wrapped *Error")
	}
	if got.Kind != apperr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", got.Kind)
	}

	_, ok = apperr.AsError(errors.New("plain error"))
	if ok {
		t.Error("expected AsError to fail for a plain error")
	}
}

func TestValidation_CarriesFieldErrors(t *testing.T) {
	err := apperr.Validation("invalid payload", "url: must be a valid URL", "url: required")
	if len(err.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors))
	}
}
