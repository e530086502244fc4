package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call event store for tests and local runs.
// A single mutex makes Upsert atomic per call id.
type MemoryRepo struct {
	mu     sync.Mutex
	events map[string]CallEvent
	clock  func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{events: map[string]CallEvent{}, clock: time.Now}
}

func (r *MemoryRepo) Upsert(ctx context.Context, callID string, mutate func(*CallEvent)) (CallEvent, error) {
	if callID == "" {
		return CallEvent{}, ErrInvalidCallID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	e, ok := r.events[callID]
	if !ok {
		e = CallEvent{CallID: callID, ProductQuantities: map[string]int{}, CreatedAt: now}
	} else {
		e = cloneEvent(e)
	}
	mutate(&e)
	e.CallID = callID
	e.UpdatedAt = now
	r.events[callID] = e
	return cloneEvent(e), nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (CallEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[callID]
	if !ok {
		return CallEvent{}, false, nil
	}
	return cloneEvent(e), true, nil
}

func (r *MemoryRepo) Stats(ctx context.Context, deviceID string, since *time.Time) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	for _, e := range r.events {
		if e.DeviceID != deviceID {
			continue
		}
		if since != nil && (e.Timestamp == nil || e.Timestamp.Before(*since)) {
			continue
		}
		s.Add(e)
	}
	return s, nil
}

func (r *MemoryRepo) Recent(ctx context.Context, deviceID string, limit int) ([]CallEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallEvent, 0)
	for _, e := range r.events {
		if e.DeviceID == deviceID {
			out = append(out, cloneEvent(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Timestamp == nil && b.Timestamp == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.Timestamp == nil:
			return false
		case b.Timestamp == nil:
			return true
		case a.Timestamp.Equal(*b.Timestamp):
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.Timestamp.After(*b.Timestamp)
		}
	})
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneEvent(e CallEvent) CallEvent {
	out := e
	if e.Timestamp != nil {
		t := *e.Timestamp
		out.Timestamp = &t
	}
	if e.Outcome != nil {
		o := *e.Outcome
		out.Outcome = &o
	}
	if e.FollowUpDate != nil {
		t := *e.FollowUpDate
		out.FollowUpDate = &t
	}
	out.ProductQuantities = make(map[string]int, len(e.ProductQuantities))
	for k, v := range e.ProductQuantities {
		out.ProductQuantities[k] = v
	}
	return out
}
