package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{InvalidInput("bad %s", "path"), http.StatusBadRequest},
		{Unauthenticated(""), http.StatusUnauthorized},
		{Forbidden(""), http.StatusForbidden},
		{NotFound("directory"), http.StatusNotFound},
		{RateLimited(30), http.StatusTooManyRequests},
		{Conflict("already registered"), http.StatusConflict},
		{EmbedderUnavailable(errors.New("timeout")), http.StatusServiceUnavailable},
		{ChunkStoreUnavailable(errors.New("disk full")), http.StatusServiceUnavailable},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := c.err.Status(); got != c.want {
			t.Errorf("%s: status = %d, want %d", c.err.Kind, got, c.want)
		}
		if got := StatusFor(c.err); got != c.want {
			t.Errorf("%s: StatusFor = %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestUnwrapAndAs(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(KindInternal, "failed", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to find cause")
	}

	extracted, ok := As(wrapped)
	if !ok || extracted.Kind != KindInternal {
		t.Fatalf("expected to extract *Error, got %+v ok=%v", extracted, ok)
	}
}

func TestStatusForNonAPIError(t *testing.T) {
	if got := StatusFor(errors.New("plain error")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for non-API error, got %d", got)
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	err := RateLimited(42)
	if err.RetryAfter != 42 {
		t.Fatalf("expected RetryAfter 42, got %d", err.RetryAfter)
	}
}
