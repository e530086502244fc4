package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"telecrm/internal/apperr"
	"telecrm/internal/calls"
	"telecrm/internal/devices"
	"telecrm/internal/storage"
	"telecrm/pkg/logger"
)

// Devices is the slice of the device registry ingestion depends on.
type Devices interface {
	MustAuthenticate(ctx context.Context, deviceID, token string) (devices.Device, error)
	TouchLastActive(ctx context.Context, d devices.Device) (devices.Device, error)
}

// UploadLimiter caps concurrent recording uploads per device.
type UploadLimiter interface {
	Acquire(ctx context.Context, deviceID string) (bool, error)
	Release(ctx context.Context, deviceID string) error
}

type Options struct {
	MaxRecordingBytes int64
}

// Service accepts the three call phases from devices. Every phase is an
// upsert by call id, so retries and out-of-order arrival converge.
type Service struct {
	devices Devices
	calls   calls.Repository
	store   storage.ObjectStore
	limiter UploadLimiter
	opts    Options
}

func NewService(d Devices, repo calls.Repository, store storage.ObjectStore, limiter UploadLimiter, opts Options) *Service {
	if store == nil {
		store = storage.Unconfigured{}
	}
	if opts.MaxRecordingBytes <= 0 {
		opts.MaxRecordingBytes = 50 << 20
	}
	return &Service{devices: d, calls: repo, store: store, limiter: limiter, opts: opts}
}

// SubmitCallMetadata records status, duration and time of a call.
func (s *Service) SubmitCallMetadata(ctx context.Context, cred Credentials, in MetadataInput) (calls.CallEvent, error) {
	dev, err := s.devices.MustAuthenticate(ctx, cred.DeviceID, cred.Token)
	if err != nil {
		return calls.CallEvent{}, err
	}

	patch, err := metadataPatch(dev.ID, in)
	if err != nil {
		return calls.CallEvent{}, err
	}

	e, err := s.calls.Upsert(ctx, strings.TrimSpace(in.CallID), patch.Apply)
	if err != nil {
		return calls.CallEvent{}, apperr.Server("failed to save call log", err)
	}
	s.touch(ctx, dev)
	return e, nil
}

func metadataPatch(deviceID string, in MetadataInput) (calls.MetadataPatch, error) {
	var missing []string
	if strings.TrimSpace(in.CallID) == "" {
		missing = append(missing, "callId")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		missing = append(missing, "phoneNumber")
	}
	if strings.TrimSpace(in.CallStatus) == "" {
		missing = append(missing, "callStatus")
	}
	if strings.TrimSpace(in.Timestamp) == "" {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return calls.MetadataPatch{}, apperr.Validation("missing required fields: " + strings.Join(missing, ", "))
	}

	status, err := calls.ParseCallStatus(in.CallStatus)
	if err != nil {
		return calls.MetadataPatch{}, apperr.Validation(err.Error())
	}
	ts, err := ParseTimestamp(in.Timestamp)
	if err != nil {
		return calls.MetadataPatch{}, apperr.Validation(err.Error())
	}
	if in.Duration != nil && *in.Duration < 0 {
		return calls.MetadataPatch{}, apperr.Validation("duration must be >= 0")
	}

	return calls.MetadataPatch{
		DeviceID:     deviceID,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		CallStatus:   status,
		Duration:     in.Duration,
		Timestamp:    ts,
		RecordingURL: strings.TrimSpace(in.RecordingURL),
	}, nil
}

// SubmitCallOutcome merges the outcome form into the call.
func (s *Service) SubmitCallOutcome(ctx context.Context, cred Credentials, in OutcomeInput) (calls.CallEvent, error) {
	dev, err := s.devices.MustAuthenticate(ctx, cred.DeviceID, cred.Token)
	if err != nil {
		return calls.CallEvent{}, err
	}

	patch, err := outcomePatch(dev.ID, in)
	if err != nil {
		return calls.CallEvent{}, err
	}

	e, err := s.calls.Upsert(ctx, strings.TrimSpace(in.CallID), patch.Apply)
	if err != nil {
		return calls.CallEvent{}, apperr.Server("failed to save call outcome", err)
	}
	s.touch(ctx, dev)
	return e, nil
}

func outcomePatch(deviceID string, in OutcomeInput) (calls.OutcomePatch, error) {
	if strings.TrimSpace(in.CallID) == "" {
		return calls.OutcomePatch{}, apperr.Validation("callId is required")
	}

	p := calls.OutcomePatch{
		DeviceID:          deviceID,
		CustomerName:      trimmed(in.CustomerName),
		Remarks:           trimmed(in.Remarks),
		ReasonForLoss:     trimmed(in.ReasonForLoss),
		Distributor:       trimmed(in.Distributor),
		ProductQuantities: map[string]int{},
		NeedBranding:      CoerceBool(in.NeedBranding),
	}

	if in.Outcome != nil && strings.TrimSpace(*in.Outcome) != "" {
		o, err := calls.ParseOutcome(*in.Outcome)
		if err != nil {
			return calls.OutcomePatch{}, apperr.Validation(err.Error())
		}
		p.Outcome = &o
	}

	if in.FollowUpDate != nil {
		p.FollowUpSet = true
		if d, ok := ParseFollowUpDate(*in.FollowUpDate); ok {
			p.FollowUpDate = &d
		}
	}

	for name, qty := range in.ProductQuantities {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if qty < 0 {
			return calls.OutcomePatch{}, apperr.Validation(fmt.Sprintf("quantity for %q must be >= 0", name))
		}
		p.ProductQuantities[name] = qty
	}
	return p, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// AttachRecording uploads the audio to object storage and links it to the call.
func (s *Service) AttachRecording(ctx context.Context, cred Credentials, in RecordingInput) (calls.CallEvent, error) {
	dev, err := s.devices.MustAuthenticate(ctx, cred.DeviceID, cred.Token)
	if err != nil {
		return calls.CallEvent{}, err
	}

	callID := strings.TrimSpace(in.CallID)
	if callID == "" {
		return calls.CallEvent{}, apperr.Validation("callId is required")
	}
	if in.Body == nil || in.Size == 0 {
		return calls.CallEvent{}, apperr.Validation("recording file is required")
	}
	if in.Size > s.opts.MaxRecordingBytes {
		return calls.CallEvent{}, apperr.Validation(tooLargeMsg(s.opts.MaxRecordingBytes))
	}
	if !s.store.Configured() {
		return calls.CallEvent{}, apperr.Server("storage not configured", storage.ErrNotConfigured)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, dev.ID)
		switch {
		case err != nil:
			// Limiter faults must not block ingestion.
			logger.From(ctx).Warn("upload limiter unavailable", "device_id", dev.ID, "err", err)
		case !ok:
			return calls.CallEvent{}, apperr.RateLimited("too many concurrent uploads for this device")
		default:
			defer func() {
				// Release on a fresh context so a cancelled request still frees the slot.
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := s.limiter.Release(relCtx, dev.ID); err != nil {
					logger.From(ctx).Warn("upload slot release failed", "device_id", dev.ID, "err", err)
				}
			}()
		}
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.opts.MaxRecordingBytes+1))
	if err != nil {
		return calls.CallEvent{}, apperr.Validation("failed to read recording")
	}
	if len(data) == 0 {
		return calls.CallEvent{}, apperr.Validation("recording file is required")
	}
	if int64(len(data)) > s.opts.MaxRecordingBytes {
		return calls.CallEvent{}, apperr.Validation(tooLargeMsg(s.opts.MaxRecordingBytes))
	}

	key := storage.RecordingKey(dev.ID, callID, in.FileName, in.ContentType)
	url, err := s.store.Put(ctx, key, data, in.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return calls.CallEvent{}, apperr.Server("storage not configured", err)
		}
		return calls.CallEvent{}, apperr.Server("failed to upload recording", err)
	}

	patch := calls.RecordingPatch{DeviceID: dev.ID, RecordingURL: url}
	e, err := s.calls.Upsert(ctx, callID, patch.Apply)
	if err != nil {
		return calls.CallEvent{}, apperr.Server("failed to save recording url", err)
	}
	logger.From(ctx).Info("recording attached", "device_id", dev.ID, "call_id", callID, "bytes", len(data))
	s.touch(ctx, dev)
	return e, nil
}

func tooLargeMsg(limit int64) string {
	return fmt.Sprintf("recording exceeds %d bytes", limit)
}

// touch bumps last activity. The call data is already stored, so a failure
// here is logged rather than returned.
func (s *Service) touch(ctx context.Context, dev devices.Device) {
	if _, err := s.devices.TouchLastActive(ctx, dev); err != nil {
		logger.From(ctx).Warn("last active update failed", "device_id", dev.ID, "err", err)
	}
}
