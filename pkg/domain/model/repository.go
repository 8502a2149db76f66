package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Field names a foreign-key column that FindBy and DeleteBy may filter on.
// Every entity declares its own fields; nothing is derived from type names.
type Field string

// Repository is the storage contract shared by all entities.
// Find and Update report a missing row with the entity's not-found sentinel.
type Repository[T any, ID comparable] interface {
	Create(ctx context.Context, entity *T) error
	Find(ctx context.Context, id ID) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	FindBy(ctx context.Context, field Field, value any) ([]T, error)
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id ID) error
	DeleteBy(ctx context.Context, field Field, value any) (int, error)
}

type IDGenerator interface {
	NextID() (uuid.UUID, error)
}

type CategoryRepository interface {
	IDGenerator
	Repository[Category, uuid.UUID]
}

type ProductRepository interface {
	IDGenerator
	Repository[Product, uuid.UUID]
	// DecrementStock subtracts amount in a single conditional statement.
	// The result is allowed to go below zero.
	DecrementStock(ctx context.Context, id uuid.UUID, amount int) error
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

type CartRepository interface {
	IDGenerator
	Repository[CartLine, uuid.UUID]
	// Upsert stores the line, overwriting the quantity of an existing (user, product) line.
	Upsert(ctx context.Context, line *CartLine) error
}

type OrderRepository interface {
	IDGenerator
	Repository[Order, uuid.UUID]
	// CreateWithLines persists the order and its line snapshot as one unit.
	CreateWithLines(ctx context.Context, order *Order, lines []OrderLine) error
	// TransitionStatus moves the order from one status to another as a single
	// compare-and-set. It returns false when the order is not in the from status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, at time.Time) (bool, error)
}

type OrderLineRepository interface {
	IDGenerator
	Repository[OrderLine, uuid.UUID]
}

type UserRepository interface {
	Repository[User, UserID]
}
