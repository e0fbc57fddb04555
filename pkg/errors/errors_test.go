package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrapped keyword not found", fmt.Errorf("keyword %d: %w", 42, ErrKeywordNotFound), http.StatusNotFound},
		{"wrapped product not found", fmt.Errorf("product %d: %w", 7, ErrProductNotFound), http.StatusNotFound},
		{"group not found", ErrGroupNotFound, http.StatusNotFound},
		{"unknown job", ErrUnknownJob, http.StatusNotFound},
		{"invalid input", fmt.Errorf("parse limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"budget exhausted", ErrBudgetExhausted, http.StatusTooManyRequests},
		{"job running", ErrJobRunning, http.StatusConflict},
		{"emergency stopped", ErrEmergencyStopped, http.StatusConflict},
		{"missing credential", ErrMissingCredential, http.StatusPreconditionFailed},
		{"unavailable", fmt.Errorf("%w: site returned status 502", ErrUnavailable), http.StatusServiceUnavailable},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error overrides", New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Fatalf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
