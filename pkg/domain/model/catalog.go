package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProductCategoryID Field = "category_id"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID                 uuid.UUID
	CategoryID         uuid.UUID
	Title              string
	Description        string
	ImageRef           string
	PriceCents         int64
	DiscountPriceCents int64
	Quantity           int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProductDraft collects the admin form input before the product is persisted.
type ProductDraft struct {
	Title              string
	ImageRef           string
	Description        string
	PriceCents         int64
	DiscountPriceCents int64
	Quantity           int
	CategoryID         uuid.UUID
}
