package devices

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory device repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	devices map[string]Device
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{devices: map[string]Device{}} }

func (r *MemoryRepo) Create(ctx context.Context, d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[d.ID]; ok {
		return errors.New("devices: duplicate id")
	}
	for _, other := range r.devices {
		if other.Token == d.Token {
			return errors.New("devices: duplicate token")
		}
	}
	r.devices[d.ID] = d
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out, nil
}

func (r *MemoryRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return ErrNotFound
	}
	d.LastActive = at
	d.UpdatedAt = at
	r.devices[id] = d
	return nil
}

func (r *MemoryRepo) UpdateTelecaller(ctx context.Context, id, telecaller string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return ErrNotFound
	}
	d.Telecaller = telecaller
	d.UpdatedAt = at
	r.devices[id] = d
	return nil
}
