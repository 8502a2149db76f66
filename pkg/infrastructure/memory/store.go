// Package memory keeps every entity in process memory. It honours the same
// cascade and compare-and-set rules as the MySQL schema and backs the tests
// and the memory storage mode.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

type Store struct {
	mu sync.Mutex

	categories *table[model.Category, uuid.UUID]
	products   *table[model.Product, uuid.UUID]
	cartLines  *table[model.CartLine, uuid.UUID]
	orders     *table[model.Order, uuid.UUID]
	orderLines *table[model.OrderLine, uuid.UUID]
	users      *table[model.User, model.UserID]
}

func NewStore() *Store {
	return &Store{
		categories: newTable(schema[model.Category, uuid.UUID]{
			key:      func(c *model.Category) uuid.UUID { return c.ID },
			fields:   map[model.Field]func(*model.Category) any{},
			notFound: model.ErrCategoryNotFound,
		}),
		products: newTable(schema[model.Product, uuid.UUID]{
			key: func(p *model.Product) uuid.UUID { return p.ID },
			fields: map[model.Field]func(*model.Product) any{
				model.ProductCategoryID: func(p *model.Product) any { return p.CategoryID },
			},
			notFound: model.ErrProductNotFound,
		}),
		cartLines: newTable(schema[model.CartLine, uuid.UUID]{
			key: func(l *model.CartLine) uuid.UUID { return l.ID },
			fields: map[model.Field]func(*model.CartLine) any{
				model.CartLineUserID:    func(l *model.CartLine) any { return l.UserID },
				model.CartLineProductID: func(l *model.CartLine) any { return l.ProductID },
			},
			notFound: model.ErrCartLineNotFound,
		}),
		orders: newTable(schema[model.Order, uuid.UUID]{
			key: func(o *model.Order) uuid.UUID { return o.ID },
			fields: map[model.Field]func(*model.Order) any{
				model.OrderUserID: func(o *model.Order) any { return o.UserID },
			},
			notFound: model.ErrOrderNotFound,
		}),
		orderLines: newTable(schema[model.OrderLine, uuid.UUID]{
			key: func(l *model.OrderLine) uuid.UUID { return l.ID },
			fields: map[model.Field]func(*model.OrderLine) any{
				model.OrderLineOrderID: func(l *model.OrderLine) any { return l.OrderID },
				model.OrderLineUserID:  func(l *model.OrderLine) any { return l.UserID },
				model.OrderLineProduct: func(l *model.OrderLine) any { return l.ProductID },
			},
			notFound: model.ErrOrderLineNotFound,
		}),
		users: newTable(schema[model.User, model.UserID]{
			key:      func(u *model.User) model.UserID { return u.ID },
			fields:   map[model.Field]func(*model.User) any{},
			notFound: model.ErrUserNotFound,
		}),
	}
}

func (s *Store) Categories() model.CategoryRepository {
	return &categoryRepository{repository[model.Category, uuid.UUID]{
		store: s,
		table: s.categories,
		cascade: func(ids []uuid.UUID) {
			for _, id := range ids {
				removed, _ := s.products.removeWhere(model.ProductCategoryID, id)
				s.cascadeProducts(removed)
			}
		},
	}}
}

func (s *Store) Products() model.ProductRepository {
	return &productRepository{repository[model.Product, uuid.UUID]{
		store:   s,
		table:   s.products,
		cascade: s.cascadeProducts,
	}}
}

func (s *Store) CartLines() model.CartRepository {
	return &cartRepository{repository[model.CartLine, uuid.UUID]{store: s, table: s.cartLines}}
}

func (s *Store) Orders() model.OrderRepository {
	return &orderRepository{repository[model.Order, uuid.UUID]{
		store: s,
		table: s.orders,
		cascade: func(ids []uuid.UUID) {
			for _, id := range ids {
				_, _ = s.orderLines.removeWhere(model.OrderLineOrderID, id)
			}
		},
	}}
}

func (s *Store) OrderLines() model.OrderLineRepository {
	return &orderLineRepository{repository[model.OrderLine, uuid.UUID]{store: s, table: s.orderLines}}
}

func (s *Store) Users() model.UserRepository {
	return &repository[model.User, model.UserID]{store: s, table: s.users}
}

// cascadeProducts removes cart and order lines of deleted products. Caller holds the lock.
func (s *Store) cascadeProducts(ids []uuid.UUID) {
	for _, id := range ids {
		_, _ = s.cartLines.removeWhere(model.CartLineProductID, id)
		_, _ = s.orderLines.removeWhere(model.OrderLineProduct, id)
	}
}

type generator struct{}

func (generator) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

type categoryRepository struct {
	repository[model.Category, uuid.UUID]
}

func (categoryRepository) NextID() (uuid.UUID, error) { return generator{}.NextID() }

type productRepository struct {
	repository[model.Product, uuid.UUID]
}

func (productRepository) NextID() (uuid.UUID, error) { return generator{}.NextID() }

func (r *productRepository) DecrementStock(_ context.Context, id uuid.UUID, amount int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.table.get(id)
	if !ok {
		return model.ErrProductNotFound
	}
	product.Quantity -= amount
	product.UpdatedAt = time.Now().UTC()
	r.table.replace(product)
	return nil
}

func (r *productRepository) Search(_ context.Context, query string, limit int) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	result := make([]model.Product, 0)
	for _, product := range r.table.all() {
		if len(result) == limit {
			break
		}
		if strings.Contains(strings.ToLower(product.Title), needle) {
			result = append(result, product)
		}
	}
	return result, nil
}

type cartRepository struct {
	repository[model.CartLine, uuid.UUID]
}

func (cartRepository) NextID() (uuid.UUID, error) { return generator{}.NextID() }

func (r *cartRepository) Upsert(_ context.Context, line *model.CartLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, err := r.table.where(model.CartLineUserID, line.UserID)
	if err != nil {
		return err
	}
	for _, current := range existing {
		if current.ProductID == line.ProductID {
			current.Quantity = line.Quantity
			r.table.replace(current)
			*line = current
			return nil
		}
	}
	return r.table.insert(*line)
}

type orderRepository struct {
	repository[model.Order, uuid.UUID]
}

func (orderRepository) NextID() (uuid.UUID, error) { return generator{}.NextID() }

func (r *orderRepository) CreateWithLines(_ context.Context, order *model.Order, lines []model.OrderLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.table.insert(*order); err != nil {
		return err
	}
	for _, line := range lines {
		if err := r.store.orderLines.insert(line); err != nil {
			r.table.remove(order.ID)
			_, _ = r.store.orderLines.removeWhere(model.OrderLineOrderID, order.ID)
			return err
		}
	}
	return nil
}

func (r *orderRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.table.get(id)
	if !ok {
		return false, model.ErrOrderNotFound
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.DecidedAt = &at
	r.table.replace(order)
	return true, nil
}

type orderLineRepository struct {
	repository[model.OrderLine, uuid.UUID]
}

func (orderLineRepository) NextID() (uuid.UUID, error) { return generator{}.NextID() }
