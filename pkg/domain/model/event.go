package model

import "github.com/google/uuid"

type CategoryCreated struct {
	CategoryID uuid.UUID
	Name       string
}

func (e CategoryCreated) Type() string { return "CategoryCreated" }

type CategoryDeleted struct {
	CategoryID uuid.UUID
}

func (e CategoryDeleted) Type() string { return "CategoryDeleted" }

type ProductCreated struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	Title      string
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductDeleted struct {
	ProductID uuid.UUID
}

func (e ProductDeleted) Type() string { return "ProductDeleted" }

type OrderSubmitted struct {
	OrderID    uuid.UUID
	UserID     UserID
	TotalCents int64
	Lines      int
}

func (e OrderSubmitted) Type() string { return "OrderSubmitted" }

type OrderAccepted struct {
	OrderID uuid.UUID
	UserID  UserID
}

func (e OrderAccepted) Type() string { return "OrderAccepted" }

type OrderRejected struct {
	OrderID uuid.UUID
	UserID  UserID
}

func (e OrderRejected) Type() string { return "OrderRejected" }

type StockDecremented struct {
	ProductID uuid.UUID
	OrderID   uuid.UUID
	Amount    int
}

func (e StockDecremented) Type() string { return "StockDecremented" }
