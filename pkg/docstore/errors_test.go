package docstore

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamError_Class(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 400, want: ErrorClassClient},
		{status: 403, want: ErrorClassClient},
		{status: 500, want: ErrorClassServer},
		{status: 503, want: ErrorClassServer},
	}

	for _, tt := range tests {
		err := &UpstreamError{StatusCode: tt.status}
		if got := err.Class(); got != tt.want {
			t.Errorf("Class(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{name: "not found", err: ErrNotFound, want: ErrorClassClient},
		{name: "wrapped not found", err: fmt.Errorf("fetch: %w", ErrNotFound), want: ErrorClassClient},
		{name: "server error", err: &UpstreamError{StatusCode: 502}, want: ErrorClassServer},
		{name: "client error", err: &UpstreamError{StatusCode: 404}, want: ErrorClassClient},
		{name: "plain error is network", err: errors.New("connection refused"), want: ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	if shouldRetry(ErrorClassClient) {
		t.Error("client errors must not be retried")
	}
	if !shouldRetry(ErrorClassServer) {
		t.Error("server errors should be retried")
	}
	if !shouldRetry(ErrorClassNetwork) {
		t.Error("network errors should be retried")
	}
}

func TestUpstreamError_Message(t *testing.T) {
	err := &UpstreamError{StatusCode: 503, Body: "unavailable"}
	want := "document store error (status 503): unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
