package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	CartLineUserID    Field = "user_id"
	CartLineProductID Field = "product_id"
)

type CartLine struct {
	ID        uuid.UUID
	UserID    UserID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
}

// CartItem is a cart line joined with the product it refers to.
type CartItem struct {
	Line    CartLine
	Product Product
}

func (i CartItem) SubtotalCents() int64 {
	return int64(i.Line.Quantity) * i.Product.PriceCents
}

// CartTotalCents sums the line subtotals. The cart view, the confirmation
// and the submitted order all price a cart with it.
func CartTotalCents(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.SubtotalCents()
	}
	return total
}
