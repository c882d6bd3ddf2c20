package sdkerr

import (
	"net/http"
	"testing"
	"time"
)

func TestClassify_StatusToKind(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnauthorized, KindAuthentication},
		{http.StatusForbidden, KindAuthentication},
		{http.StatusNotFound, KindNotFound},
		{http.StatusRequestTimeout, KindValidation},
		{http.StatusConflict, KindConflict},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusNotImplemented, KindServer},
		{505, KindServer},
	}

	for _, tc := range cases {
		got := Classify(tc.status, nil, nil)
		if got.Kind != tc.want {
			t.Errorf("status %d: got kind %q, want %q", tc.status, got.Kind, tc.want)
		}
	}
}

func TestClassify_RetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "5")
	err := Classify(http.StatusTooManyRequests, nil, h)
	if err.RetryAfter == nil {
		t.Fatal("expected RetryAfter to be set")
	}
	if *err.RetryAfter != 5*time.Second {
		t.Errorf("got %v, want 5s", *err.RetryAfter)
	}
}

func TestClassify_RetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC()
	h := http.Header{}
	h.Set("Retry-After", future.Format(http.TimeFormat))
	err := Classify(http.StatusServiceUnavailable, nil, h)
	if err.RetryAfter == nil {
		t.Fatal("expected RetryAfter to be set")
	}
	if *err.RetryAfter <= 0 || *err.RetryAfter > 31*time.Second {
		t.Errorf("got %v, want ~30s", *err.RetryAfter)
	}
}

func TestClassify_NoRetryAfterHeader(t *testing.T) {
	err := Classify(http.StatusInternalServerError, nil, http.Header{})
	if err.RetryAfter != nil {
		t.Errorf("expected nil RetryAfter, got %v", *err.RetryAfter)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		want   bool
	}{
		{KindNetwork, 0, true},
		{KindTimeout, 0, true},
		{KindRateLimit, http.StatusTooManyRequests, true},
		{KindServer, http.StatusInternalServerError, true},
		{KindServer, http.StatusNotImplemented, false},
		{KindServer, 505, false},
		{KindValidation, http.StatusBadRequest, false},
		{KindAuthentication, http.StatusUnauthorized, false},
		{KindCircuitOpen, 0, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.kind, tc.status); got != tc.want {
			t.Errorf("Retryable(%v, %d) = %v, want %v", tc.kind, tc.status, got, tc.want)
		}
	}
}

func TestClassify_TruncatesLargeBody(t *testing.T) {
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	err := Classify(http.StatusInternalServerError, big, nil)
	meta := err.AsGoError()
	if meta == nil {
		t.Fatal("expected non-nil underlying error")
	}
}
