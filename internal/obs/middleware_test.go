package obs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	recorder := NewStatusRecorder(rr)
	recorder.WriteHeader(http.StatusTeapot)
	if _, err := recorder.Write([]byte("short and stout")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if recorder.Status() != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", recorder.Status())
	}
	if recorder.BytesWritten() != 15 {
		t.Fatalf("expected 15 bytes, got %d", recorder.BytesWritten())
	}
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	recorder := NewStatusRecorder(httptest.NewRecorder())
	if recorder.Status() != http.StatusOK {
		t.Fatalf("expected default 200, got %d", recorder.Status())
	}
}

func TestRoutePatternContext(t *testing.T) {
	ctx := WithRoutePattern(context.Background(), "/api/v1/coupons/validate")
	if got := RoutePatternFromContext(ctx); got != "/api/v1/coupons/validate" {
		t.Fatalf("unexpected pattern %q", got)
	}
	if got := RoutePatternFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty pattern, got %q", got)
	}
}

func TestParseBucketsCSV(t *testing.T) {
	buckets := ParseBucketsCSV("5, 10,25")
	if len(buckets) != 3 || buckets[0] != 5 || buckets[2] != 25 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if got := ParseBucketsCSV(""); got != nil {
		t.Fatalf("expected nil for empty csv, got %v", got)
	}
	if got := ParseBucketsCSV("5,nope,25"); len(got) != 2 {
		t.Fatalf("expected invalid entries skipped, got %v", got)
	}
}
