package devices

import "time"

// DefaultTelecaller is assigned on registration until an operator or the
// device itself names the person using the phone.
const DefaultTelecaller = "Unassigned"

// Device is a registered tele-calling phone.
//
// Invariants:
// - ID and Token are immutable after registration.
// - Token is unique and never returned by read APIs.
// - Online/offline status is derived from LastActive at read time, never stored.
type Device struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Token      string    `json:"-" db:"token"`
	Telecaller string    `json:"telecaller" db:"telecaller"`
	LastActive time.Time `json:"lastActive" db:"last_active"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Principal identifies who is asking to change a device: an operator session
// (Role/UserID from the access token) or the device itself (Token).
type Principal struct {
	UserID string
	Role   string
	Token  string
}

// HeartbeatReply is returned to a device pinging the service.
type HeartbeatReply struct {
	Status     string `json:"status"`
	Telecaller string `json:"telecaller"`
}
