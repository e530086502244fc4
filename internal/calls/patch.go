package calls

import "time"

// MetadataPatch carries the metadata phase. Zero-valued optional fields are
// left untouched on the stored event.
type MetadataPatch struct {
	DeviceID    string
	PhoneNumber string
	CallStatus  CallStatus
	// Duration is nil when the client omitted it.
	Duration  *int
	Timestamp time.Time
	// RecordingURL is applied only when non-empty so a late metadata retry
	// cannot erase an uploaded recording.
	RecordingURL string
}

func (p MetadataPatch) Apply(e *CallEvent) {
	if p.DeviceID != "" {
		e.DeviceID = p.DeviceID
	}
	if p.PhoneNumber != "" {
		e.PhoneNumber = p.PhoneNumber
	}
	if p.CallStatus != "" {
		e.CallStatus = p.CallStatus
	}
	if p.Duration != nil {
		e.Duration = *p.Duration
	}
	if !p.Timestamp.IsZero() {
		ts := p.Timestamp.UTC()
		e.Timestamp = &ts
	}
	if p.RecordingURL != "" {
		e.RecordingURL = p.RecordingURL
	}
}

// OutcomePatch carries the outcome form. Pointer fields are nil when absent
// from the submission. ProductQuantities and NeedBranding are always written:
// the form sends its full state for those.
type OutcomePatch struct {
	DeviceID      string
	CustomerName  *string
	Outcome       *Outcome
	Remarks       *string
	ReasonForLoss *string
	Distributor   *string

	// FollowUpSet marks the follow-up field as present; FollowUpDate may still
	// be nil when the client sent an empty or unparseable value.
	FollowUpSet  bool
	FollowUpDate *time.Time

	ProductQuantities map[string]int
	NeedBranding      bool
}

func (p OutcomePatch) Apply(e *CallEvent) {
	if p.DeviceID != "" && e.DeviceID == "" {
		e.DeviceID = p.DeviceID
	}
	if p.CustomerName != nil {
		e.CustomerName = *p.CustomerName
	}
	if p.Outcome != nil {
		o := *p.Outcome
		e.Outcome = &o
	}
	if p.Remarks != nil {
		e.Remarks = *p.Remarks
	}
	if p.ReasonForLoss != nil {
		e.ReasonForLoss = *p.ReasonForLoss
	}
	if p.Distributor != nil {
		e.Distributor = *p.Distributor
	}
	if p.FollowUpSet {
		if p.FollowUpDate == nil {
			e.FollowUpDate = nil
		} else {
			d := p.FollowUpDate.UTC()
			e.FollowUpDate = &d
		}
	}

	pq := make(map[string]int, len(p.ProductQuantities))
	for k, v := range p.ProductQuantities {
		pq[k] = v
	}
	e.ProductQuantities = pq
	e.NeedBranding = p.NeedBranding
}

// RecordingPatch attaches an uploaded recording.
type RecordingPatch struct {
	DeviceID     string
	RecordingURL string
}

func (p RecordingPatch) Apply(e *CallEvent) {
	if p.DeviceID != "" && e.DeviceID == "" {
		e.DeviceID = p.DeviceID
	}
	if p.RecordingURL != "" {
		e.RecordingURL = p.RecordingURL
	}
}
