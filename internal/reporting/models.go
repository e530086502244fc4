package reporting

import "time"

type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)

// OnlineWindow is how recently a device must have been active to be online.
const OnlineWindow = 5 * time.Minute

// HistoryLimit caps the call history attached to each dashboard entry.
const HistoryLimit = 50

// Placeholders shown when neither the call nor the order history knows better.
const (
	PlaceholderCustomer     = "New Customer"
	PlaceholderOutcome      = "No Interaction"
	PlaceholderOrderDetails = "N/A"
)

// WindowStats aggregates a device's calls since a window start.
type WindowStats struct {
	Total                int    `json:"total"`
	Answered             int    `json:"answered"`
	Missed               int    `json:"missed"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
	TotalDuration        string `json:"totalDuration"`
}

type CallStats struct {
	TotalCalls int         `json:"totalCalls"`
	Today      WindowStats `json:"today"`
	Month      WindowStats `json:"month"`

	AnsweredCalls   int    `json:"answeredCalls"`
	MissedCalls     int    `json:"missedCalls"`
	AvgCallDuration string `json:"avgCallDuration"`
	TodayCalls      int    `json:"todayCalls"`
}

// HistoryRow is one call as shown on the dashboard and in exports.
type HistoryRow struct {
	CallID       string     `json:"callId"`
	PhoneNumber  string     `json:"phoneNumber"`
	CallStatus   string     `json:"callStatus"`
	Duration     int        `json:"duration"`
	DurationText string     `json:"durationText"`
	Timestamp    *time.Time `json:"timestamp"`
	RecordingURL string     `json:"recordingUrl,omitempty"`

	CustomerName  string     `json:"customerName"`
	Outcome       string     `json:"outcome"`
	Remarks       string     `json:"remarks,omitempty"`
	Reminder      *time.Time `json:"reminder"`
	OrderDetails  string     `json:"orderDetails"`
	NeedBranding  bool       `json:"needBranding"`
	ReasonForLoss string     `json:"reasonForLoss,omitempty"`
	Distributor   string     `json:"distributor,omitempty"`
}

// DashboardEntry is the per-device payload consumed by the head-office
// dashboard and the export job.
type DashboardEntry struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Telecaller string       `json:"telecaller"`
	Status     DeviceStatus `json:"status"`
	LastActive time.Time    `json:"lastActive"`
	CallStats  CallStats    `json:"callStats"`
	History    []HistoryRow `json:"history"`
}
