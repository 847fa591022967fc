package modtl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
)

// MaxHintDelay caps every server-supplied delay, whatever the retry policy
// allows, so a bad response cannot stall a worker indefinitely.
const MaxHintDelay = 10 * time.Minute

// HintSource names where a retry hint came from.
type HintSource string

const (
	HintRetryAfter HintSource = "retry-after"
	HintRetryInfo  HintSource = "retry-info"
)

// RetryHint is a server-supplied delay before the next attempt.
type RetryHint struct {
	Delay  time.Duration
	Source HintSource
}

// QuotaViolation is one entry of a QuotaFailure detail.
type QuotaViolation struct {
	Subject     string
	Description string
}

func clampHint(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxHintDelay {
		return MaxHintDelay
	}
	return d
}

// ParseRetryAfter reads an HTTP Retry-After value, either delay-seconds or an
// HTTP-date relative to now. The result is clamped to [0, MaxHintDelay].
func ParseRetryAfter(value string, now time.Time) (*RetryHint, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return nil, false
		}
		d := MaxHintDelay
		if secs < int64(MaxHintDelay/time.Second) {
			d = time.Duration(secs) * time.Second
		}
		return &RetryHint{Delay: d, Source: HintRetryAfter}, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return nil, false
	}
	return &RetryHint{Delay: clampHint(at.Sub(now)), Source: HintRetryAfter}, true
}

// ErrorBody is the useful content of a Google-style JSON error envelope.
type ErrorBody struct {
	Code    int
	Status  string
	Message string
	Hint    *RetryHint
	Quota   []QuotaViolation
}

// QuotaExhausted reports a quota failure the server gave no retry delay for.
// Retrying such an error soon is unlikely to help.
func (b ErrorBody) QuotaExhausted() bool {
	return len(b.Quota) > 0 && b.Hint == nil
}

// Apply copies the hint and quota details onto a provider error and marks it
// fatal when the quota is exhausted.
func (b ErrorBody) Apply(pe *ProviderError) {
	if b.Hint != nil {
		pe.Hint = b.Hint
	}
	if len(b.Quota) > 0 {
		pe.Quota = b.Quota
	}
	if b.QuotaExhausted() {
		pe.Class = ClassFatal
	}
}

type errorEnvelope struct {
	Error struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Status  string            `json:"status"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

// ParseErrorBody decodes a Google-style error body such as
//
//	{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "details": [
//	    {"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "30s"}]}}
//
// RetryInfo delays are accepted both as a "Ns" string and as a
// {seconds, nanos} object, and are clamped to [0, MaxHintDelay]. The second
// result is false when body is not such an envelope.
func ParseErrorBody(body []byte) (ErrorBody, bool) {
	body = bytes.TrimSpace(body)
	var env errorEnvelope
	if len(body) > 0 && body[0] == '[' {
		// Some endpoints wrap the envelope in a single-element array.
		var list []errorEnvelope
		if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
			return ErrorBody{}, false
		}
		env = list[0]
	} else if err := json.Unmarshal(body, &env); err != nil {
		return ErrorBody{}, false
	}
	if env.Error.Code == 0 && env.Error.Status == "" && env.Error.Message == "" {
		return ErrorBody{}, false
	}

	out := ErrorBody{Code: env.Error.Code, Status: env.Error.Status, Message: env.Error.Message}
	for _, raw := range env.Error.Details {
		var head struct {
			Type string `json:"@type"`
		}
		if json.Unmarshal(raw, &head) != nil {
			continue
		}
		switch {
		case strings.HasSuffix(head.Type, "google.rpc.RetryInfo"):
			if d, ok := parseRetryInfo(raw); ok {
				out.Hint = &RetryHint{Delay: clampHint(d), Source: HintRetryInfo}
			}
		case strings.HasSuffix(head.Type, "google.rpc.QuotaFailure"):
			out.Quota = append(out.Quota, parseQuotaFailure(raw)...)
		}
	}
	return out, true
}

var detailJSON = protojson.UnmarshalOptions{DiscardUnknown: true}

func parseRetryInfo(raw json.RawMessage) (time.Duration, bool) {
	var info errdetails.RetryInfo
	if err := detailJSON.Unmarshal(raw, &info); err == nil && info.GetRetryDelay() != nil {
		return durationOf(info.GetRetryDelay())
	}

	// Object form: {"retryDelay": {"seconds": 3, "nanos": 500000000}}
	var obj struct {
		RetryDelay *struct {
			Seconds json.RawMessage `json:"seconds"`
			Nanos   int32           `json:"nanos"`
		} `json:"retryDelay"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.RetryDelay == nil {
		return 0, false
	}
	secs, err := strconv.ParseInt(strings.Trim(string(obj.RetryDelay.Seconds), `"`), 10, 64)
	if err != nil && len(obj.RetryDelay.Seconds) > 0 {
		return 0, false
	}
	return durationOf(&durationpb.Duration{Seconds: secs, Nanos: obj.RetryDelay.Nanos})
}

func durationOf(d *durationpb.Duration) (time.Duration, bool) {
	if err := d.CheckValid(); err != nil {
		return 0, false
	}
	if d.GetSeconds() >= int64(MaxHintDelay/time.Second) {
		return MaxHintDelay, true
	}
	return d.AsDuration(), true
}

func parseQuotaFailure(raw json.RawMessage) []QuotaViolation {
	var qf errdetails.QuotaFailure
	if err := detailJSON.Unmarshal(raw, &qf); err != nil {
		// Still a quota failure even if the violations cannot be read.
		return []QuotaViolation{{Description: "quota exceeded"}}
	}
	if len(qf.GetViolations()) == 0 {
		return []QuotaViolation{{Description: "quota exceeded"}}
	}
	out := make([]QuotaViolation, 0, len(qf.GetViolations()))
	for _, v := range qf.GetViolations() {
		out = append(out, QuotaViolation{Subject: v.GetSubject(), Description: v.GetDescription()})
	}
	return out
}

// grpcHTTPStatus follows the usual gRPC to HTTP status mapping.
var grpcHTTPStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Unknown:            http.StatusInternalServerError,
	codes.Internal:           http.StatusInternalServerError,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
}

// FromGRPCStatus converts a gRPC status error into a ProviderError, reading
// RetryInfo and QuotaFailure details. It returns false if err carries no
// gRPC status.
func FromGRPCStatus(err error) (*ProviderError, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return nil, false
	}

	pe := &ProviderError{Message: st.Message(), Cause: err}
	switch st.Code() {
	case codes.Canceled, codes.Unimplemented:
		pe.Class = ClassFatal
	default:
		code, known := grpcHTTPStatus[st.Code()]
		if !known {
			code = http.StatusInternalServerError
		}
		pe.Class = ClassHTTP
		pe.StatusCode = code
	}

	var body ErrorBody
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.RetryInfo:
			if delay, ok := durationOf(v.GetRetryDelay()); ok {
				body.Hint = &RetryHint{Delay: clampHint(delay), Source: HintRetryInfo}
			}
		case *errdetails.QuotaFailure:
			for _, viol := range v.GetViolations() {
				body.Quota = append(body.Quota, QuotaViolation{Subject: viol.GetSubject(), Description: viol.GetDescription()})
			}
		}
	}
	body.Apply(pe)
	return pe, true
}

// Classify turns an arbitrary error into a ProviderError. ProviderErrors are
// returned as-is; gRPC statuses are converted; net.Error values are network
// class; everything else, including context cancellation, is fatal.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewFatalError("cancelled", err)
	}
	if pe, ok := FromGRPCStatus(err); ok {
		return pe
	}
	if isNetError(err) {
		return NewNetworkError("transport failure", err)
	}
	return NewFatalError("unclassified failure", err)
}

// maxErrorMessage bounds how much of a non-JSON error body ends up in a
// ProviderError message.
const maxErrorMessage = 300

// FromHTTPResponse builds a ProviderError for a non-2xx response. A
// Retry-After header takes precedence over a RetryInfo detail in the body.
func FromHTTPResponse(code int, header http.Header, body []byte, now time.Time) *ProviderError {
	parsed, ok := ParseErrorBody(body)

	msg := http.StatusText(code)
	switch {
	case ok && parsed.Message != "":
		msg = parsed.Message
	case !ok && len(bytes.TrimSpace(body)) > 0:
		msg = string(bytes.TrimSpace(body))
		if len(msg) > maxErrorMessage {
			msg = strings.ToValidUTF8(msg[:maxErrorMessage], "") + "..."
		}
	}

	if h, found := ParseRetryAfter(header.Get("Retry-After"), now); found {
		parsed.Hint = h
	}
	pe := NewHTTPError(code, msg, nil)
	parsed.Apply(pe)
	return pe
}
