package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad %s", "input"), http.StatusBadRequest},
		{"not found", NotFound("patient"), http.StatusNotFound},
		{"conflict", Conflict("duplicate sku %q", "SKU-1"), http.StatusConflict},
		{"unauthorized", Unauthorized("invalid credentials"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden},
		{"persistence", Persistence("insert bill", errors.New("disk full")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create: %w", NotFound("doctor")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage_HidesCause(t *testing.T) {
	err := Persistence("insert bill", errors.New("database is locked"))
	if got := PublicMessage(err); got != "internal server error" {
		t.Errorf("expected generic message, got %q", got)
	}
	if got := PublicMessage(NotFound("patient")); got != "patient not found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("constraint failed")
	err := Wrap(KindConflict, cause, "duplicate username")
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if !Is(err, KindConflict) {
		t.Error("expected conflict kind")
	}
	if Is(err, KindValidation) {
		t.Error("did not expect validation kind")
	}
}
