package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only. Callers treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.DeviceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// DeviceRegistered records a device self-registration.
func (s *Service) DeviceRegistered(ctx context.Context, deviceID, name string) error {
	return s.Append(ctx, Event{
		Type:     EventTypeDeviceRegistered,
		DeviceID: deviceID,
		Message:  "device registered",
		Metadata: metadata(map[string]string{"device_name": name}),
	})
}

// TelecallerUpdated records an operator renaming a device's telecaller.
func (s *Service) TelecallerUpdated(ctx context.Context, deviceID, actorUserID, actorRole, from, to string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeTelecallerUpdated,
		DeviceID:    deviceID,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		Message:     "telecaller updated",
		Metadata:    metadata(map[string]string{"from": from, "to": to}),
	})
}

func metadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
