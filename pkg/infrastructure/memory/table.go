package memory

import (
	"context"
	"errors"

	"chatshop/pkg/domain/model"
)

var errDuplicateKey = errors.New("duplicate primary key")

// schema is the hand-declared description of an entity kept in memory.
type schema[T any, ID comparable] struct {
	key      func(*T) ID
	fields   map[model.Field]func(*T) any
	notFound error
}

type table[T any, ID comparable] struct {
	schema schema[T, ID]
	rows   map[ID]T
	order  []ID
}

func newTable[T any, ID comparable](s schema[T, ID]) *table[T, ID] {
	return &table[T, ID]{schema: s, rows: make(map[ID]T)}
}

func (t *table[T, ID]) insert(row T) error {
	id := t.schema.key(&row)
	if _, exists := t.rows[id]; exists {
		return errDuplicateKey
	}
	t.rows[id] = row
	t.order = append(t.order, id)
	return nil
}

func (t *table[T, ID]) get(id ID) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T, ID]) replace(row T) bool {
	id := t.schema.key(&row)
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = row
	return true
}

func (t *table[T, ID]) all() []T {
	result := make([]T, 0, len(t.rows))
	for _, id := range t.order {
		result = append(result, t.rows[id])
	}
	return result
}

func (t *table[T, ID]) where(field model.Field, value any) ([]T, error) {
	extract, ok := t.schema.fields[field]
	if !ok {
		return nil, model.ErrUnknownField
	}
	result := make([]T, 0)
	for _, id := range t.order {
		row := t.rows[id]
		if extract(&row) == value {
			result = append(result, row)
		}
	}
	return result, nil
}

func (t *table[T, ID]) remove(id ID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T, ID]) removeWhere(field model.Field, value any) ([]ID, error) {
	rows, err := t.where(field, value)
	if err != nil {
		return nil, err
	}
	ids := make([]ID, 0, len(rows))
	for i := range rows {
		id := t.schema.key(&rows[i])
		t.remove(id)
		ids = append(ids, id)
	}
	return ids, nil
}

// repository implements model.Repository over a table guarded by the store lock.
// cascade runs with the lock held after rows are removed.
type repository[T any, ID comparable] struct {
	store   *Store
	table   *table[T, ID]
	cascade func(ids []ID)
}

func (r *repository[T, ID]) Create(_ context.Context, entity *T) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.table.insert(*entity)
}

func (r *repository[T, ID]) Find(_ context.Context, id ID) (*T, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.table.get(id)
	if !ok {
		return nil, r.table.schema.notFound
	}
	return &row, nil
}

func (r *repository[T, ID]) FindAll(_ context.Context) ([]T, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.table.all(), nil
}

func (r *repository[T, ID]) FindBy(_ context.Context, field model.Field, value any) ([]T, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.table.where(field, value)
}

func (r *repository[T, ID]) Update(_ context.Context, entity *T) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if !r.table.replace(*entity) {
		return r.table.schema.notFound
	}
	return nil
}

func (r *repository[T, ID]) Delete(_ context.Context, id ID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if !r.table.remove(id) {
		return r.table.schema.notFound
	}
	r.runCascade([]ID{id})
	return nil
}

func (r *repository[T, ID]) DeleteBy(_ context.Context, field model.Field, value any) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ids, err := r.table.removeWhere(field, value)
	if err != nil {
		return 0, err
	}
	r.runCascade(ids)
	return len(ids), nil
}

func (r *repository[T, ID]) runCascade(ids []ID) {
	if r.cascade != nil && len(ids) > 0 {
		r.cascade(ids)
	}
}
