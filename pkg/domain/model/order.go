package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderUserID      Field = "user_id"
	OrderLineOrderID Field = "order_id"
	OrderLineUserID  Field = "user_id"
	OrderLineProduct Field = "product_id"
)

type OrderStatus int

const (
	Pending OrderStatus = iota
	Accepted
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s OrderStatus) Terminal() bool {
	return s == Accepted || s == Rejected
}

type Decision int

const (
	Accept Decision = iota
	Reject
)

func (d Decision) Status() OrderStatus {
	if d == Accept {
		return Accepted
	}
	return Rejected
}

func (d Decision) String() string {
	return d.Status().String()
}

type Order struct {
	ID          uuid.UUID
	UserID      UserID
	PhoneNumber string
	TotalCents  int64
	Status      OrderStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
}

// OrderLine is a frozen copy of a cart line taken at submission time.
type OrderLine struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	UserID         UserID
	Quantity       int
	Title          string
	UnitPriceCents int64
}

func (l OrderLine) SubtotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

type OrderSummary struct {
	Order Order
	Lines []OrderLine
}

func (s OrderSummary) LinesTotalCents() int64 {
	var total int64
	for _, line := range s.Lines {
		total += line.SubtotalCents()
	}
	return total
}

type OrderHistory struct {
	Orders     []OrderSummary
	TotalCents int64
}
