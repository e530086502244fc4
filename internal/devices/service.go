package devices

import (
	"context"
	"errors"
	"strings"
	"time"

	"telecrm/internal/apperr"
	"telecrm/internal/rbac"
	"telecrm/pkg/logger"

	"github.com/google/uuid"
)

// Auditor records registry changes. Implementations are best-effort; a failing
// audit write never fails the registry operation.
type Auditor interface {
	DeviceRegistered(ctx context.Context, deviceID, name string) error
	TelecallerUpdated(ctx context.Context, deviceID, actorUserID, actorRole, from, to string) error
}

// Registry owns device identity, authentication and liveness bookkeeping.
type Registry struct {
	repo    Repository
	auditor Auditor
	clock   func() time.Time
	token   func() (string, error)
}

func NewRegistry(repo Repository, auditor Auditor) *Registry {
	return &Registry{repo: repo, auditor: auditor, clock: time.Now, token: newToken}
}

// Register creates a device and returns its id and bearer token.
func (r *Registry) Register(ctx context.Context, deviceName string) (Device, error) {
	name := strings.TrimSpace(deviceName)
	if name == "" {
		return Device{}, apperr.Validation("deviceName is required")
	}

	tok, err := r.token()
	if err != nil {
		return Device{}, apperr.Server("token generation failed", err)
	}
	now := r.clock().UTC()
	d := Device{
		ID:         uuid.NewString(),
		Name:       name,
		Token:      tok,
		Telecaller: DefaultTelecaller,
		LastActive: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return Device{}, apperr.Server("device registration failed", err)
	}

	logger.From(ctx).Info("device registered", "device_id", d.ID)
	if r.auditor != nil {
		if err := r.auditor.DeviceRegistered(ctx, d.ID, d.Name); err != nil {
			logger.From(ctx).Warn("audit write failed", "device_id", d.ID, "err", err)
		}
	}
	return d, nil
}

// Authenticate reports whether token belongs to deviceID. An unknown device and
// a wrong token are indistinguishable to the caller.
func (r *Registry) Authenticate(ctx context.Context, deviceID, token string) (Device, bool, error) {
	if deviceID == "" || token == "" {
		return Device{}, false, nil
	}
	d, err := r.repo.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Device{}, false, nil
		}
		return Device{}, false, apperr.Server("device lookup failed", err)
	}
	if !tokensEqual(d.Token, token) {
		return Device{}, false, nil
	}
	return d, true, nil
}

// MustAuthenticate is Authenticate with a failed check mapped to Unauthorized.
func (r *Registry) MustAuthenticate(ctx context.Context, deviceID, token string) (Device, error) {
	d, ok, err := r.Authenticate(ctx, deviceID, token)
	if err != nil {
		return Device{}, err
	}
	if !ok {
		return Device{}, apperr.Unauthorized("invalid device credentials")
	}
	return d, nil
}

// TouchLastActive marks the device as seen now.
func (r *Registry) TouchLastActive(ctx context.Context, d Device) (Device, error) {
	now := r.clock().UTC()
	if err := r.repo.TouchLastActive(ctx, d.ID, now); err != nil {
		return d, apperr.Server("device update failed", err)
	}
	d.LastActive = now
	d.UpdatedAt = now
	return d, nil
}

// Heartbeat authenticates the device and bumps its last activity.
func (r *Registry) Heartbeat(ctx context.Context, deviceID, token string) (HeartbeatReply, error) {
	d, err := r.MustAuthenticate(ctx, deviceID, token)
	if err != nil {
		return HeartbeatReply{}, err
	}
	if _, err := r.TouchLastActive(ctx, d); err != nil {
		return HeartbeatReply{}, err
	}
	return HeartbeatReply{Status: "online", Telecaller: d.Telecaller}, nil
}

// UpdateTelecaller renames the person operating a device.
//
// Operators with a device-management role may update any device by id. Any
// other caller must present the device's own token.
func (r *Registry) UpdateTelecaller(ctx context.Context, deviceID, telecaller string, p Principal) (Device, error) {
	name := strings.TrimSpace(telecaller)
	if name == "" {
		return Device{}, apperr.Validation("telecaller is required")
	}
	if deviceID == "" {
		return Device{}, apperr.Validation("deviceId is required")
	}

	if rbac.CanManageDevices(p.Role) {
		d, err := r.repo.Get(ctx, deviceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Device{}, apperr.NotFound("device not found")
			}
			return Device{}, apperr.Server("device lookup failed", err)
		}
		updated, err := r.setTelecaller(ctx, d, name)
		if err != nil {
			return Device{}, err
		}
		if r.auditor != nil {
			if err := r.auditor.TelecallerUpdated(ctx, d.ID, p.UserID, p.Role, d.Telecaller, name); err != nil {
				logger.From(ctx).Warn("audit write failed", "device_id", d.ID, "err", err)
			}
		}
		return updated, nil
	}

	if p.Token == "" {
		if p.Role != "" {
			return Device{}, apperr.Forbidden("role not allowed to manage devices")
		}
		return Device{}, apperr.Unauthorized("device token or operator session required")
	}

	d, err := r.MustAuthenticate(ctx, deviceID, p.Token)
	if err != nil {
		return Device{}, err
	}
	updated, err := r.setTelecaller(ctx, d, name)
	if err != nil {
		return Device{}, err
	}
	return r.TouchLastActive(ctx, updated)
}

func (r *Registry) setTelecaller(ctx context.Context, d Device, name string) (Device, error) {
	now := r.clock().UTC()
	if err := r.repo.UpdateTelecaller(ctx, d.ID, name, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Device{}, apperr.NotFound("device not found")
		}
		return Device{}, apperr.Server("device update failed", err)
	}
	d.Telecaller = name
	d.UpdatedAt = now
	return d, nil
}

// List returns all devices, most recently active first.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	out, err := r.repo.List(ctx)
	if err != nil {
		return nil, apperr.Server("device list failed", err)
	}
	return out, nil
}
