package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// Lookup finds the most recently created order for a phone number.
// found is false when no order matches.
type Lookup interface {
	MostRecentForPhone(ctx context.Context, phone string) (o Order, found bool, err error)
}

// PostgresRepo reads the legacy orders table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) MostRecentForPhone(ctx context.Context, phone string) (Order, bool, error) {
	if phone == "" {
		return Order{}, false, nil
	}
	const q = `
SELECT id, customer_name, mobile_no, order_status, follow_up_date, products, created_at
FROM orders
WHERE mobile_no = $1
ORDER BY created_at DESC
LIMIT 1
`
	var (
		o        Order
		followUp sql.NullTime
		products []byte
	)
	err := r.db.QueryRowContext(ctx, q, phone).Scan(
		&o.ID,
		&o.CustomerName,
		&o.MobileNo,
		&o.OrderStatus,
		&followUp,
		&products,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, false, nil
		}
		return Order{}, false, err
	}
	if followUp.Valid {
		t := followUp.Time
		o.FollowUpDate = &t
	}
	if len(products) > 0 {
		if err := json.Unmarshal(products, &o.Products); err != nil {
			return Order{}, false, err
		}
	}
	return o, true, nil
}
