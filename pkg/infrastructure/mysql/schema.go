package mysql

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

type categoryRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

var categoryMapping = mapping[model.Category, categoryRow]{
	table:   "categories",
	key:     "id",
	columns: []string{"id", "name", "created_at"},
	fields:  map[model.Field]string{},
	toRow: func(c *model.Category) categoryRow {
		return categoryRow{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
	},
	fromRow: func(r *categoryRow) model.Category {
		return model.Category{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
	},
	notFound: model.ErrCategoryNotFound,
}

type productRow struct {
	ID                 uuid.UUID `db:"id"`
	CategoryID         uuid.UUID `db:"category_id"`
	Title              string    `db:"title"`
	Description        string    `db:"description"`
	ImageRef           string    `db:"image_ref"`
	PriceCents         int64     `db:"price_cents"`
	DiscountPriceCents int64     `db:"discount_price_cents"`
	Quantity           int       `db:"quantity"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

var productMapping = mapping[model.Product, productRow]{
	table: "products",
	key:   "id",
	columns: []string{
		"id", "category_id", "title", "description", "image_ref",
		"price_cents", "discount_price_cents", "quantity", "created_at", "updated_at",
	},
	fields: map[model.Field]string{
		model.ProductCategoryID: "category_id",
	},
	toRow: func(p *model.Product) productRow {
		return productRow(*p)
	},
	fromRow: func(r *productRow) model.Product {
		return model.Product(*r)
	},
	notFound: model.ErrProductNotFound,
}

type cartLineRow struct {
	ID        uuid.UUID    `db:"id"`
	UserID    model.UserID `db:"user_id"`
	ProductID uuid.UUID    `db:"product_id"`
	Quantity  int          `db:"quantity"`
	CreatedAt time.Time    `db:"created_at"`
}

var cartLineMapping = mapping[model.CartLine, cartLineRow]{
	table:   "cart_lines",
	key:     "id",
	columns: []string{"id", "user_id", "product_id", "quantity", "created_at"},
	fields: map[model.Field]string{
		model.CartLineUserID:    "user_id",
		model.CartLineProductID: "product_id",
	},
	toRow: func(l *model.CartLine) cartLineRow {
		return cartLineRow(*l)
	},
	fromRow: func(r *cartLineRow) model.CartLine {
		return model.CartLine(*r)
	},
	notFound: model.ErrCartLineNotFound,
}

type orderRow struct {
	ID          uuid.UUID         `db:"id"`
	UserID      model.UserID      `db:"user_id"`
	PhoneNumber string            `db:"phone_number"`
	TotalCents  int64             `db:"total_cents"`
	Status      model.OrderStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
	DecidedAt   sql.NullTime      `db:"decided_at"`
}

var orderMapping = mapping[model.Order, orderRow]{
	table:   "orders",
	key:     "id",
	columns: []string{"id", "user_id", "phone_number", "total_cents", "status", "created_at", "decided_at"},
	fields: map[model.Field]string{
		model.OrderUserID: "user_id",
	},
	toRow: func(o *model.Order) orderRow {
		row := orderRow{
			ID:          o.ID,
			UserID:      o.UserID,
			PhoneNumber: o.PhoneNumber,
			TotalCents:  o.TotalCents,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
		}
		if o.DecidedAt != nil {
			row.DecidedAt = sql.NullTime{Time: *o.DecidedAt, Valid: true}
		}
		return row
	},
	fromRow: func(r *orderRow) model.Order {
		order := model.Order{
			ID:          r.ID,
			UserID:      r.UserID,
			PhoneNumber: r.PhoneNumber,
			TotalCents:  r.TotalCents,
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
		}
		if r.DecidedAt.Valid {
			decidedAt := r.DecidedAt.Time
			order.DecidedAt = &decidedAt
		}
		return order
	},
	notFound: model.ErrOrderNotFound,
}

type orderLineRow struct {
	ID             uuid.UUID    `db:"id"`
	OrderID        uuid.UUID    `db:"order_id"`
	ProductID      uuid.UUID    `db:"product_id"`
	UserID         model.UserID `db:"user_id"`
	Quantity       int          `db:"quantity"`
	Title          string       `db:"title"`
	UnitPriceCents int64        `db:"unit_price_cents"`
}

var orderLineMapping = mapping[model.OrderLine, orderLineRow]{
	table:   "order_lines",
	key:     "id",
	columns: []string{"id", "order_id", "product_id", "user_id", "quantity", "title", "unit_price_cents"},
	fields: map[model.Field]string{
		model.OrderLineOrderID: "order_id",
		model.OrderLineUserID:  "user_id",
		model.OrderLineProduct: "product_id",
	},
	toRow: func(l *model.OrderLine) orderLineRow {
		return orderLineRow(*l)
	},
	fromRow: func(r *orderLineRow) model.OrderLine {
		return model.OrderLine(*r)
	},
	notFound: model.ErrOrderLineNotFound,
}

type userRow struct {
	ID          model.UserID `db:"id"`
	FirstName   string       `db:"first_name"`
	LastName    string       `db:"last_name"`
	Username    string       `db:"username"`
	PhoneNumber string       `db:"phone_number"`
	Language    string       `db:"language"`
	Role        model.Role   `db:"role"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

var userMapping = mapping[model.User, userRow]{
	table: "users",
	key:   "id",
	columns: []string{
		"id", "first_name", "last_name", "username", "phone_number", "language", "role", "created_at", "updated_at",
	},
	fields: map[model.Field]string{},
	toRow: func(u *model.User) userRow {
		return userRow(*u)
	},
	fromRow: func(r *userRow) model.User {
		return model.User(*r)
	},
	notFound: model.ErrUserNotFound,
}
