package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTaxonomyNamesAndStatuses(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		name   string
	}{
		{BadRequest("missing symbol"), http.StatusBadRequest, "BadRequest"},
		{Unauthorized("no key"), http.StatusUnauthorized, "Unauthorized"},
		{NotFound("token 7"), http.StatusNotFound, "NotFound"},
		{Conflict("token is not pausable"), http.StatusConflict, "Conflict"},
		{RateLimited(), http.StatusTooManyRequests, "RateLimitExceeded"},
		{Internal(errors.New("boom")), http.StatusInternalServerError, "InternalError"},
		{UpstreamUnavailable(errors.New("dial refused")), http.StatusServiceUnavailable, "UpstreamUnavailable"},
		{UpstreamTimeout("0xabc"), http.StatusServiceUnavailable, "UpstreamTimeout"},
	}

	for _, tt := range tests {
		if tt.err.Status != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, tt.err.Status, tt.status)
		}
		if tt.err.Name != tt.name {
			t.Errorf("name = %q, want %q", tt.err.Name, tt.name)
		}
	}
}

func TestInternalRedactsMessage(t *testing.T) {
	err := Internal(errors.New("pq: connection reset"))
	if err.Exposable {
		t.Error("internal errors must not be exposable")
	}
	if err.PublicMessage() == "pq: connection reset" {
		t.Error("internal cause leaked into public message")
	}
}

func TestFromPassesThroughTaxonomyErrors(t *testing.T) {
	orig := NotFound("token %d not found", 3)
	got := From(fmt.Errorf("handler: %w", orig))
	if got != orig {
		t.Errorf("From did not unwrap to the original taxonomy error")
	}

	internal := From(errors.New("plain"))
	if internal.Name != "InternalError" {
		t.Errorf("From(plain) name = %q, want InternalError", internal.Name)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := UpstreamUnavailable(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}
}
