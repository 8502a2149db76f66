package mysql

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"chatshop/pkg/domain/model"
)

// Store hands out repositories backed by one MySQL connection pool.
// Cascading deletes are enforced by the foreign keys in the schema.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Categories() model.CategoryRepository {
	return &categoryRepository{repository[model.Category, uuid.UUID, categoryRow]{db: s.db, mapping: categoryMapping}}
}

func (s *Store) Products() model.ProductRepository {
	return &productRepository{repository[model.Product, uuid.UUID, productRow]{db: s.db, mapping: productMapping}}
}

func (s *Store) CartLines() model.CartRepository {
	return &cartRepository{repository[model.CartLine, uuid.UUID, cartLineRow]{db: s.db, mapping: cartLineMapping}}
}

func (s *Store) Orders() model.OrderRepository {
	return &orderRepository{repository[model.Order, uuid.UUID, orderRow]{db: s.db, mapping: orderMapping}}
}

func (s *Store) OrderLines() model.OrderLineRepository {
	return &orderLineRepository{repository[model.OrderLine, uuid.UUID, orderLineRow]{db: s.db, mapping: orderLineMapping}}
}

func (s *Store) Users() model.UserRepository {
	return &repository[model.User, model.UserID, userRow]{db: s.db, mapping: userMapping}
}

func nextID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	return id, errors.Wrap(err, "generate id")
}

type categoryRepository struct {
	repository[model.Category, uuid.UUID, categoryRow]
}

func (categoryRepository) NextID() (uuid.UUID, error) { return nextID() }

type productRepository struct {
	repository[model.Product, uuid.UUID, productRow]
}

func (productRepository) NextID() (uuid.UUID, error) { return nextID() }

func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, amount int) error {
	const query = "UPDATE products SET quantity = quantity - ?, updated_at = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	return r.expectRow(result)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *productRepository) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	var rows []productRow
	statement := r.mapping.selectQuery("LOWER(title) LIKE LOWER(?)") + " LIMIT ?"
	if err := r.db.SelectContext(ctx, &rows, statement, pattern, limit); err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	products := make([]model.Product, 0, len(rows))
	for i := range rows {
		products = append(products, r.mapping.fromRow(&rows[i]))
	}
	return products, nil
}

type cartRepository struct {
	repository[model.CartLine, uuid.UUID, cartLineRow]
}

func (cartRepository) NextID() (uuid.UUID, error) { return nextID() }

func (r *cartRepository) Upsert(ctx context.Context, line *model.CartLine) error {
	query := r.mapping.insertQuery() + " ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)"
	if _, err := r.db.NamedExecContext(ctx, query, r.mapping.toRow(line)); err != nil {
		return errors.Wrap(err, "upsert cart line")
	}

	var stored cartLineRow
	err := r.db.GetContext(ctx, &stored,
		r.mapping.selectQuery("user_id = ? AND product_id = ?"), line.UserID, line.ProductID)
	if err != nil {
		return errors.Wrap(err, "reload cart line")
	}
	*line = r.mapping.fromRow(&stored)
	return nil
}

type orderRepository struct {
	repository[model.Order, uuid.UUID, orderRow]
}

func (orderRepository) NextID() (uuid.UUID, error) { return nextID() }

func (r *orderRepository) CreateWithLines(ctx context.Context, order *model.Order, lines []model.OrderLine) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin order transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, orderMapping.insertQuery(), orderMapping.toRow(order)); err != nil {
		return errors.Wrap(err, "insert order")
	}
	for i := range lines {
		if _, err = tx.NamedExecContext(ctx, orderLineMapping.insertQuery(), orderLineMapping.toRow(&lines[i])); err != nil {
			return errors.Wrap(err, "insert order line")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit order")
	}
	return nil
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error) {
	const query = "UPDATE orders SET status = ?, decided_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, errors.Wrap(err, "transition order status")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	if affected > 0 {
		return true, nil
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM orders WHERE id = ?", id); err != nil {
		return false, errors.Wrap(err, "check order")
	}
	if exists == 0 {
		return false, model.ErrOrderNotFound
	}
	return false, nil
}

type orderLineRepository struct {
	repository[model.OrderLine, uuid.UUID, orderLineRow]
}

func (orderLineRepository) NextID() (uuid.UUID, error) { return nextID() }
