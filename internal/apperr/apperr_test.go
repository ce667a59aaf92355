package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCode(t *testing.T) {
	err := NotFound("application %s not found", "x")
	if !HasCode(err, CodeNotFound) {
		t.Fatal("expected not_found code")
	}
	if HasCode(err, CodeInvalidInput) {
		t.Fatal("wrong code matched")
	}

	wrapped := fmt.Errorf("loading context: %w", err)
	if !HasCode(wrapped, CodeNotFound) {
		t.Fatal("expected code to survive wrapping")
	}

	if HasCode(errors.New("plain"), CodeNotFound) {
		t.Fatal("plain error should carry no code")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: NotFound("x"), want: http.StatusNotFound},
		{err: InvalidInput("x"), want: http.StatusBadRequest},
		{err: PreconditionFailed("x"), want: http.StatusConflict},
		{err: CompilationRejected("x"), want: http.StatusUnprocessableEntity},
		{err: ServiceUnavailable("x"), want: http.StatusServiceUnavailable},
		{err: MalformedCompletion("x"), want: http.StatusBadGateway},
		{err: fmt.Errorf("wrapped: %w", NotFound("x")), want: http.StatusNotFound},
		{err: errors.New("plain"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v)=%d, want %d", tc.err, got, tc.want)
		}
	}
}
