package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Credentials identify the submitting device.
type Credentials struct {
	DeviceID string
	Token    string
}

// MetadataInput is the first phase of a call: what the phone's call log knows.
type MetadataInput struct {
	CallID      string
	PhoneNumber string
	CallStatus  string
	// Duration in seconds; nil when omitted.
	Duration *int
	// Timestamp is RFC3339 or epoch milliseconds.
	Timestamp    string
	RecordingURL string
}

// OutcomeInput is the business outcome form. Nil pointers mean the field was
// not submitted.
type OutcomeInput struct {
	CallID        string
	CustomerName  *string
	Outcome       *string
	Remarks       *string
	FollowUpDate  *string
	ReasonForLoss *string
	Distributor   *string

	ProductQuantities map[string]int
	// NeedBranding is whatever the client sent: bool, string or number.
	NeedBranding any
}

// RecordingInput is an uploaded audio file.
type RecordingInput struct {
	CallID      string
	FileName    string
	ContentType string
	// Size is the declared size, or -1 when unknown.
	Size int64
	Body io.Reader
}

// ParseTimestamp accepts RFC3339 (with or without fractional seconds) or an
// integer count of milliseconds since the Unix epoch.
func ParseTimestamp(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms < 0 {
			return time.Time{}, fmt.Errorf("timestamp must not be negative")
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be RFC3339 or epoch milliseconds, got %q", raw)
	}
	return t.UTC(), nil
}

// ParseFollowUpDate accepts YYYY-MM-DD or RFC3339. ok is false for empty or
// unparseable input.
func ParseFollowUpDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// CoerceBool maps loosely typed form values to a bool. Absent means false.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "on", "1", "y":
			return true
		}
		return false
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	default:
		return false
	}
}
