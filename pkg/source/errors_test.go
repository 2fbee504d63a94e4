package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStatusError_Error(t *testing.T) {
	withBody := &StatusError{StatusCode: 502, Body: "upstream gone"}
	if withBody.Error() != "http source returned status 502: upstream gone" {
		t.Errorf("Error() = %q", withBody.Error())
	}

	withoutBody := &StatusError{StatusCode: 404}
	if withoutBody.Error() != "http source returned status 404" {
		t.Errorf("Error() = %q", withoutBody.Error())
	}
}

func TestStatusError_Temporary(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{status: 500, want: true},
		{status: 503, want: true},
		{status: 429, want: true},
		{status: 404, want: false},
		{status: 400, want: false},
		{status: 401, want: false},
	}

	for _, tt := range tests {
		err := &StatusError{StatusCode: tt.status}
		if err.Temporary() != tt.want {
			t.Errorf("Temporary() for %d = %v, want %v", tt.status, err.Temporary(), tt.want)
		}
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "generic error", err: errors.New("connection reset"), want: true},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: false},
		{name: "wrapped cancellation", err: fmt.Errorf("fetch: %w", context.Canceled), want: false},
		{name: "server error status", err: &StatusError{StatusCode: 500}, want: true},
		{name: "too many requests", err: &StatusError{StatusCode: 429}, want: true},
		{name: "not found", err: &StatusError{StatusCode: 404}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryable(tt.err); got != tt.want {
				t.Errorf("DefaultRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
