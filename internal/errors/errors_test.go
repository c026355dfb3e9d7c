package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"persist failure", NewPersistFailure("db.json", New("disk full")), true},
		{"wrapped persist failure", Wrap(NewPersistFailure("db.json", New("x")), "append"), true},
		{"transport", Join(ErrTransport, New("timeout")), true},
		{"corrupt", NewStorageCorrupt("db.json", New("bad json")), false},
		{"validation", NewMissingField("name"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NewInvalidValue("age", 200, "out of range"), http.StatusBadRequest},
		{Wrapf(ErrInvalidCapacity, "capacity %d", 0), http.StatusBadRequest},
		{Wrap(ErrNotConfigured, "archive"), http.StatusNotImplemented},
		{Join(ErrTransport, New("refused")), http.StatusBadGateway},
		{NewPersistFailure("db.json", New("disk full")), http.StatusServiceUnavailable},
		{New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			if got := ErrorToStatus(tt.err); got != tt.want {
				t.Errorf("ErrorToStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	errs := NewValidationErrors()
	if errs.Err() != nil {
		t.Fatal("empty collector returned an error")
	}
	errs.AddMissing("store.path")
	errs.AddField("store.capacity", "must be positive")

	err := errs.Err()
	if !Is(err, ErrMissingField) {
		t.Errorf("Is(%v, ErrMissingField) = false", err)
	}
	if !IsValidation(err) {
		t.Errorf("IsValidation(%v) = false", err)
	}
}
