package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"chatshop/pkg/domain/model"
)

// mapping is the hand-declared schema of one table: its name, primary key,
// column list, filterable foreign keys and the conversion to and from rows.
type mapping[T any, R any] struct {
	table    string
	key      string
	columns  []string
	fields   map[model.Field]string
	toRow    func(*T) R
	fromRow  func(*R) T
	notFound error
}

func (m mapping[T, R]) selectQuery(where string) string {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(m.columns, ", "), m.table)
	if where != "" {
		query += " WHERE " + where
	}
	return query + " ORDER BY seq"
}

func (m mapping[T, R]) insertQuery() string {
	named := make([]string, len(m.columns))
	for i, column := range m.columns {
		named[i] = ":" + column
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.table, strings.Join(m.columns, ", "), strings.Join(named, ", "))
}

func (m mapping[T, R]) updateQuery() string {
	assignments := make([]string, 0, len(m.columns))
	for _, column := range m.columns {
		if column == m.key {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = :%s", column, column))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s", m.table, strings.Join(assignments, ", "), m.key, m.key)
}

func (m mapping[T, R]) column(field model.Field) (string, error) {
	column, ok := m.fields[field]
	if !ok {
		return "", errors.Wrapf(model.ErrUnknownField, "%s.%s", m.table, field)
	}
	return column, nil
}

type repository[T any, ID comparable, R any] struct {
	db      *sqlx.DB
	mapping mapping[T, R]
}

func (r *repository[T, ID, R]) Create(ctx context.Context, entity *T) error {
	row := r.mapping.toRow(entity)
	_, err := r.db.NamedExecContext(ctx, r.mapping.insertQuery(), row)
	return errors.Wrapf(err, "insert into %s", r.mapping.table)
}

func (r *repository[T, ID, R]) Find(ctx context.Context, id ID) (*T, error) {
	var row R
	err := r.db.GetContext(ctx, &row, r.mapping.selectQuery(r.mapping.key+" = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.mapping.notFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", r.mapping.table)
	}
	entity := r.mapping.fromRow(&row)
	return &entity, nil
}

func (r *repository[T, ID, R]) FindAll(ctx context.Context) ([]T, error) {
	return r.selectWhere(ctx, "")
}

func (r *repository[T, ID, R]) FindBy(ctx context.Context, field model.Field, value any) ([]T, error) {
	column, err := r.mapping.column(field)
	if err != nil {
		return nil, err
	}
	return r.selectWhere(ctx, column+" = ?", value)
}

func (r *repository[T, ID, R]) Update(ctx context.Context, entity *T) error {
	row := r.mapping.toRow(entity)
	result, err := r.db.NamedExecContext(ctx, r.mapping.updateQuery(), row)
	if err != nil {
		return errors.Wrapf(err, "update %s", r.mapping.table)
	}
	return r.expectRow(result)
}

func (r *repository[T, ID, R]) Delete(ctx context.Context, id ID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.mapping.table, r.mapping.key)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrapf(err, "delete from %s", r.mapping.table)
	}
	return r.expectRow(result)
}

func (r *repository[T, ID, R]) DeleteBy(ctx context.Context, field model.Field, value any) (int, error) {
	column, err := r.mapping.column(field)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.mapping.table, column)
	result, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", r.mapping.table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return int(affected), nil
}

func (r *repository[T, ID, R]) selectWhere(ctx context.Context, where string, args ...any) ([]T, error) {
	var rows []R
	if err := r.db.SelectContext(ctx, &rows, r.mapping.selectQuery(where), args...); err != nil {
		return nil, errors.Wrapf(err, "select from %s", r.mapping.table)
	}
	entities := make([]T, 0, len(rows))
	for i := range rows {
		entities = append(entities, r.mapping.fromRow(&rows[i]))
	}
	return entities, nil
}

func (r *repository[T, ID, R]) expectRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return r.mapping.notFound
	}
	return nil
}
