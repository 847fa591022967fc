package modtl

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{"seconds", "120", 120 * time.Second, true},
		{"zero", "0", 0, true},
		{"padded", "  5 ", 5 * time.Second, true},
		{"huge", "999999999999", MaxHintDelay, true},
		{"negative", "-3", 0, false},
		{"date ahead", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second, true},
		{"date past", now.Add(-time.Hour).Format(http.TimeFormat), 0, true},
		{"date far", now.Add(24 * time.Hour).Format(http.TimeFormat), MaxHintDelay, true},
		{"empty", "", 0, false},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if hint.Delay != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, hint.Delay)
			}
			if hint.Source != HintRetryAfter {
				t.Errorf("Unexpected source %q", hint.Source)
			}
		})
	}
}

func TestParseErrorBody_RetryInfo(t *testing.T) {
	tests := []struct {
		name  string
		delay string
		want  time.Duration
	}{
		{"string", `"30s"`, 30 * time.Second},
		{"fractional string", `"1.5s"`, 1500 * time.Millisecond},
		{"object", `{"seconds": 3, "nanos": 500000000}`, 3500 * time.Millisecond},
		{"object string seconds", `{"seconds": "4"}`, 4 * time.Second},
		{"clamped", `"86400s"`, MaxHintDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"error": {"code": 429, "message": "Resource exhausted", "status": "RESOURCE_EXHAUSTED",
				"details": [{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": %s}]}}`, tt.delay)

			parsed, ok := ParseErrorBody([]byte(body))
			if !ok {
				t.Fatal("Expected envelope to parse")
			}
			if parsed.Code != 429 || parsed.Status != "RESOURCE_EXHAUSTED" {
				t.Errorf("Unexpected envelope %+v", parsed)
			}
			if parsed.Hint == nil {
				t.Fatal("Expected a hint")
			}
			if parsed.Hint.Delay != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, parsed.Hint.Delay)
			}
			if parsed.Hint.Source != HintRetryInfo {
				t.Errorf("Unexpected source %q", parsed.Hint.Source)
			}
			if parsed.QuotaExhausted() {
				t.Error("No quota failure in body")
			}
		})
	}
}

func TestParseErrorBody_QuotaFailure(t *testing.T) {
	body := `[{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "details": [
		{"@type": "type.googleapis.com/google.rpc.QuotaFailure",
		 "violations": [{"subject": "project:123", "description": "Daily limit exceeded"}]}]}}]`

	parsed, ok := ParseErrorBody([]byte(body))
	if !ok {
		t.Fatal("Expected array envelope to parse")
	}
	if len(parsed.Quota) != 1 || parsed.Quota[0].Subject != "project:123" {
		t.Errorf("Unexpected quota %+v", parsed.Quota)
	}
	if !parsed.QuotaExhausted() {
		t.Error("Quota failure without a retry delay should be exhausted")
	}

	pe := NewHTTPError(429, "quota", nil)
	parsed.Apply(pe)
	if pe.Class != ClassFatal {
		t.Error("Exhausted quota should make the error fatal")
	}
	if Evaluate(pe, testPolicy(), 0).ShouldRetry {
		t.Error("Exhausted quota should not be retried")
	}
}

func TestParseErrorBody_QuotaWithRetryInfo(t *testing.T) {
	body := `{"error": {"code": 429, "details": [
		{"@type": "type.googleapis.com/google.rpc.QuotaFailure", "violations": [{"subject": "rpm"}]},
		{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "12s"}]}}`

	parsed, ok := ParseErrorBody([]byte(body))
	if !ok {
		t.Fatal("Expected envelope to parse")
	}
	if parsed.QuotaExhausted() {
		t.Error("Quota with a retry delay is not exhausted")
	}

	pe := NewHTTPError(429, "quota", nil)
	parsed.Apply(pe)
	d := Evaluate(pe, testPolicy(), 0)
	if !d.ShouldRetry || !d.UsedHint || d.Delay != 12*time.Second {
		t.Errorf("Expected hinted retry of 12s, got %+v", d)
	}
}

func TestParseErrorBody_NotEnvelope(t *testing.T) {
	for _, body := range []string{"", "oops", `{"message": "x"}`, `[]`, `{"error": {}}`} {
		if _, ok := ParseErrorBody([]byte(body)); ok {
			t.Errorf("Expected %q not to parse", body)
		}
	}
}

func TestParseErrorBody_IgnoresUnknownDetails(t *testing.T) {
	body := `{"error": {"code": 503, "message": "overloaded", "details": [
		{"@type": "type.googleapis.com/google.rpc.ErrorInfo", "reason": "X"},
		{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "bogus"}]}}`

	parsed, ok := ParseErrorBody([]byte(body))
	if !ok {
		t.Fatal("Expected envelope to parse")
	}
	if parsed.Hint != nil {
		t.Errorf("Invalid delay should yield no hint, got %+v", parsed.Hint)
	}
	if parsed.Message != "overloaded" {
		t.Errorf("Unexpected message %q", parsed.Message)
	}
}

func TestFromGRPCStatus(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "slow down").WithDetails(
		&errdetails.RetryInfo{RetryDelay: durationpb.New(8 * time.Second)},
	)
	if err != nil {
		t.Fatalf("WithDetails failed: %v", err)
	}

	pe, ok := FromGRPCStatus(st.Err())
	if !ok {
		t.Fatal("Expected a gRPC status")
	}
	if pe.Class != ClassHTTP || pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Unexpected mapping %+v", pe)
	}
	if pe.Hint == nil || pe.Hint.Delay != 8*time.Second {
		t.Errorf("Expected 8s hint, got %+v", pe.Hint)
	}

	d := Evaluate(st.Err(), testPolicy(), 0)
	if !d.UsedHint || d.Delay != 8*time.Second {
		t.Errorf("Expected gRPC hint to drive the decision, got %+v", d)
	}
}

func TestFromGRPCStatus_Codes(t *testing.T) {
	tests := []struct {
		code   codes.Code
		class  ErrorClass
		status int
		retry  bool
	}{
		{codes.Unavailable, ClassHTTP, 503, true},
		{codes.DeadlineExceeded, ClassHTTP, 504, true},
		{codes.Internal, ClassHTTP, 500, true},
		{codes.InvalidArgument, ClassHTTP, 400, false},
		{codes.PermissionDenied, ClassHTTP, 403, false},
		{codes.Canceled, ClassFatal, 0, false},
		{codes.Unimplemented, ClassFatal, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := status.Error(tt.code, "x")
			pe, ok := FromGRPCStatus(err)
			if !ok {
				t.Fatal("Expected a gRPC status")
			}
			if pe.Class != tt.class || pe.StatusCode != tt.status {
				t.Errorf("Expected %s/%d, got %s/%d", tt.class, tt.status, pe.Class, pe.StatusCode)
			}
			if got := Evaluate(err, testPolicy(), 0).ShouldRetry; got != tt.retry {
				t.Errorf("Expected retry=%v, got %v", tt.retry, got)
			}
		})
	}

	if _, ok := FromGRPCStatus(errors.New("plain")); ok {
		t.Error("Plain errors carry no gRPC status")
	}
}

func TestFromGRPCStatus_QuotaExhausted(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "quota").WithDetails(
		&errdetails.QuotaFailure{Violations: []*errdetails.QuotaFailure_Violation{{Subject: "daily"}}},
	)
	if err != nil {
		t.Fatalf("WithDetails failed: %v", err)
	}

	pe, _ := FromGRPCStatus(st.Err())
	if pe.Class != ClassFatal || len(pe.Quota) != 1 {
		t.Errorf("Expected fatal quota error, got %+v", pe)
	}
}

func TestFromHTTPResponse(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	quotaBody := []byte(`{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "Quota exceeded",
		"details": [{"@type": "type.googleapis.com/google.rpc.QuotaFailure",
			"violations": [{"subject": "project:1", "description": "daily limit"}]}]}}`)

	tests := []struct {
		name      string
		code      int
		header    http.Header
		body      []byte
		wantMsg   string
		wantClass ErrorClass
		wantDelay time.Duration
	}{
		{
			name:      "plain body",
			code:      503,
			body:      []byte("upstream overloaded\n"),
			wantMsg:   "upstream overloaded",
			wantClass: ClassHTTP,
		},
		{
			name:      "empty body",
			code:      502,
			wantMsg:   "Bad Gateway",
			wantClass: ClassHTTP,
		},
		{
			name:      "header hint",
			code:      429,
			header:    http.Header{"Retry-After": []string{"7"}},
			wantMsg:   "Too Many Requests",
			wantClass: ClassHTTP,
			wantDelay: 7 * time.Second,
		},
		{
			name:      "quota without hint is fatal",
			code:      429,
			body:      quotaBody,
			wantMsg:   "Quota exceeded",
			wantClass: ClassFatal,
		},
		{
			name:      "header hint keeps quota retryable",
			code:      429,
			header:    http.Header{"Retry-After": []string{"20"}},
			body:      quotaBody,
			wantMsg:   "Quota exceeded",
			wantClass: ClassHTTP,
			wantDelay: 20 * time.Second,
		},
		{
			name:   "header wins over body",
			code:   429,
			header: http.Header{"Retry-After": []string{"3"}},
			body: []byte(`{"error": {"code": 429, "message": "slow down", "details": [
				{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "40s"}]}}`),
			wantMsg:   "slow down",
			wantClass: ClassHTTP,
			wantDelay: 3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			pe := FromHTTPResponse(tt.code, header, tt.body, now)

			if pe.StatusCode != tt.code {
				t.Errorf("Expected status %d, got %d", tt.code, pe.StatusCode)
			}
			if pe.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, pe.Message)
			}
			if pe.Class != tt.wantClass {
				t.Errorf("Expected class %s, got %s", tt.wantClass, pe.Class)
			}
			var delay time.Duration
			if pe.Hint != nil {
				delay = pe.Hint.Delay
			}
			if delay != tt.wantDelay {
				t.Errorf("Expected hint %v, got %v", tt.wantDelay, delay)
			}
		})
	}
}
