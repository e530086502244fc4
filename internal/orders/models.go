package orders

import (
	"fmt"
	"strings"
	"time"
)

// Order is a legacy order-entry record. This service only reads it to
// reconstruct outcomes for calls made before the outcome form existed.
type Order struct {
	ID           string     `json:"id" db:"id"`
	CustomerName string     `json:"customerName" db:"customer_name"`
	MobileNo     string     `json:"mobileNo" db:"mobile_no"`
	OrderStatus  string     `json:"orderStatus" db:"order_status"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty" db:"follow_up_date"`
	Products     []Product  `json:"products" db:"products"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

type Product struct {
	Name     string `json:"productName"`
	Quantity int    `json:"quantity"`
}

// ProductSummary renders products as "Name x Qty, Name x Qty".
func (o Order) ProductSummary() string {
	parts := make([]string, 0, len(o.Products))
	for _, p := range o.Products {
		parts = append(parts, fmt.Sprintf("%s x %d", p.Name, p.Quantity))
	}
	return strings.Join(parts, ", ")
}
