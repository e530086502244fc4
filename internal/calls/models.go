package calls

import (
	"fmt"
	"strings"
	"time"
)

// CallEvent is one phone call, keyed by the client-generated CallID.
//
// The row is a partial aggregate filled in by three independent phases
// (metadata, outcome, recording). Each phase writes only its own fields, so
// phases may arrive in any order and may be retried.
type CallEvent struct {
	CallID   string `json:"callId" db:"call_id"`
	DeviceID string `json:"deviceId" db:"device_id"`

	// Metadata phase.
	PhoneNumber  string     `json:"phoneNumber" db:"phone_number"`
	CallStatus   CallStatus `json:"callStatus" db:"call_status"`
	Duration     int        `json:"duration" db:"duration"`
	Timestamp    *time.Time `json:"timestamp" db:"timestamp"`
	RecordingURL string     `json:"recordingUrl,omitempty" db:"recording_url"`

	// Outcome phase. Outcome is nil until an outcome form has been submitted
	// with an outcome value.
	CustomerName      string         `json:"customerName,omitempty" db:"customer_name"`
	Outcome           *Outcome       `json:"outcome,omitempty" db:"outcome"`
	Remarks           string         `json:"remarks,omitempty" db:"remarks"`
	FollowUpDate      *time.Time     `json:"followUpDate,omitempty" db:"follow_up_date"`
	ProductQuantities map[string]int `json:"productQuantities" db:"product_quantities"`
	NeedBranding      bool           `json:"needBranding" db:"need_branding"`
	ReasonForLoss     string         `json:"reasonForLoss,omitempty" db:"reason_for_loss"`
	Distributor       string         `json:"distributor,omitempty" db:"distributor"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasOutcomeData reports whether the outcome phase left anything worth
// showing as-is.
func (e CallEvent) HasOutcomeData() bool {
	return e.Outcome != nil ||
		e.CustomerName != "" ||
		e.Remarks != "" ||
		e.FollowUpDate != nil ||
		len(e.ProductQuantities) > 0 ||
		e.NeedBranding ||
		e.ReasonForLoss != "" ||
		e.Distributor != ""
}

type CallStatus string

const (
	CallStatusIncoming CallStatus = "incoming"
	CallStatusOutgoing CallStatus = "outgoing"
	CallStatusMissed   CallStatus = "missed"
	CallStatusRejected CallStatus = "rejected"
	CallStatusBlocked  CallStatus = "blocked"
	CallStatusAnswered CallStatus = "answered"
)

// ParseCallStatus lower-cases s and checks it against the known statuses.
func ParseCallStatus(s string) (CallStatus, error) {
	cs := CallStatus(strings.ToLower(strings.TrimSpace(s)))
	switch cs {
	case CallStatusIncoming, CallStatusOutgoing, CallStatusMissed,
		CallStatusRejected, CallStatusBlocked, CallStatusAnswered:
		return cs, nil
	default:
		return "", fmt.Errorf("unknown call status %q", s)
	}
}

// IsAnswered reports statuses counted as answered in statistics.
func (s CallStatus) IsAnswered() bool {
	return s == CallStatusAnswered || s == CallStatusOutgoing
}

// IsMissed reports statuses counted as missed in statistics. Incoming calls
// without a terminal status are counted here too.
func (s CallStatus) IsMissed() bool {
	switch s {
	case CallStatusMissed, CallStatusRejected, CallStatusIncoming, CallStatusBlocked:
		return true
	default:
		return false
	}
}

type Outcome string

const (
	OutcomeOrdered       Outcome = "Ordered"
	OutcomeCallLater     Outcome = "Call Later"
	OutcomeOtherConcerns Outcome = "Other Concerns"
	OutcomeLost          Outcome = "Lost"
	OutcomeNoInteraction Outcome = "No Interaction"
)

var outcomes = []Outcome{
	OutcomeOrdered,
	OutcomeCallLater,
	OutcomeOtherConcerns,
	OutcomeLost,
	OutcomeNoInteraction,
}

// ParseOutcome matches s case-insensitively and returns the canonical spelling.
func ParseOutcome(s string) (Outcome, error) {
	v := strings.TrimSpace(s)
	for _, o := range outcomes {
		if strings.EqualFold(v, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Stats is an aggregate over a device's call events.
type Stats struct {
	Total                int `json:"total"`
	Answered             int `json:"answered"`
	Missed               int `json:"missed"`
	TotalDurationSeconds int `json:"totalDurationSeconds"`

	// Answered calls with a positive duration, for averaging.
	TimedAnswered        int `json:"-"`
	TimedAnsweredSeconds int `json:"-"`
}

// Add folds one event into s.
func (s *Stats) Add(e CallEvent) {
	s.Total++
	s.TotalDurationSeconds += e.Duration
	if e.CallStatus.IsAnswered() {
		s.Answered++
		if e.Duration > 0 {
			s.TimedAnswered++
			s.TimedAnsweredSeconds += e.Duration
		}
	}
	if e.CallStatus.IsMissed() {
		s.Missed++
	}
}
