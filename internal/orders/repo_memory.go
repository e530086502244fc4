package orders

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory order source for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	orders []Order
	// Err, when set, is returned by every lookup.
	Err error
}

func NewMemoryRepo(orders ...Order) *MemoryRepo {
	return &MemoryRepo{orders: append([]Order(nil), orders...)}
}

func (r *MemoryRepo) Add(o Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
}

func (r *MemoryRepo) MostRecentForPhone(ctx context.Context, phone string) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Order{}, false, r.Err
	}
	var (
		best  Order
		found bool
	)
	for _, o := range r.orders {
		if phone == "" || o.MobileNo != phone {
			continue
		}
		if !found || o.CreatedAt.After(best.CreatedAt) {
			best = o
			found = true
		}
	}
	return best, found, nil
}
