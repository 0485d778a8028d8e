package http

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeSuccess},
		{errors.New(`409 {"error":"Duplicate","message":"The resource already exists"}`), ErrorTypeConflict},
		{errors.New("api error PreconditionFailed: At least one of the pre-conditions you specified did not hold"), ErrorTypeConflict},
		{errors.New("RESPONSE 409: BlobAlreadyExists"), ErrorTypeConflict},
		{errors.New("403 Forbidden: invalid JWT"), ErrorTypeCredential},
		{errors.New("api error SignatureDoesNotMatch"), ErrorTypeCredential},
		{errors.New("dial tcp: connection refused"), ErrorTypeNetwork},
		{fmt.Errorf("wrapped: %w", errors.New("unexpected EOF")), ErrorTypeNetwork},
		{errors.New("503 Service Unavailable"), ErrorTypeRetryable},
		{errors.New("api error SlowDown"), ErrorTypeRetryable},
		{errors.New("404 object not found"), ErrorTypeFatal},
		{errors.New("something odd"), ErrorTypeFatal},
	}
	for _, tt := range tests {
		got := ClassifyError(tt.err)
		if got != tt.want {
			t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, ErrorTypeName(got), ErrorTypeName(tt.want))
		}
	}
}

func TestHint(t *testing.T) {
	if Hint(errors.New("401 unauthorized")) == "" {
		t.Error("credential errors should carry a hint")
	}
	if Hint(errors.New("404 not found")) != "" {
		t.Error("fatal errors should not carry a hint")
	}
}

func TestNewRetryClient_NoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 0, nil)
	resp, err := rc.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected passthrough response, got error %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != nethttp.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 request, got %d", got)
	}
}

func TestNewRetryClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(nethttp.StatusBadGateway)
			return
		}
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 3, nil)
	rc.RetryWaitMin = time.Millisecond
	rc.RetryWaitMax = 5 * time.Millisecond

	resp, err := rc.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}
