package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/binpoints/apiserver/types"
)

// Record is implemented by every resource type persisted through a Repository.
type Record interface {
	Kind() types.ResourceKind
	RecordID() int64
}

// Repository provides audited CRUD for one resource kind. Reads take any
// Querier; mutations require a Tx so the audit entry shares the commit.
type Repository[T Record] struct {
	table table
	audit *ActionLogRepository
}

// NewRepository builds the repository for T's table.
func NewRepository[T Record](s *Store) *Repository[T] {
	var zero T
	t, ok := tableFor(zero.Kind())
	if !ok {
		panic(fmt.Sprintf("store: no table registered for %s", zero.Kind()))
	}
	return &Repository[T]{table: t, audit: NewActionLogRepository(s)}
}

// Table returns the table name, as recorded in audit entries.
func (r *Repository[T]) Table() string {
	return r.table.name
}

// Get loads the first row matching key.
func (r *Repository[T]) Get(ctx context.Context, q Querier, key Key) (T, error) {
	var rec T
	if err := r.checkKey(key); err != nil {
		return rec, err
	}
	query := q.Rebind("SELECT " + r.table.selectList() + " FROM " + r.table.name + " WHERE " + key.Column + " = ?")
	if err := sqlx.GetContext(ctx, q, &rec, query, key.Value); err != nil {
		return rec, classify(err)
	}
	return rec, nil
}

// List returns every row ordered by id.
func (r *Repository[T]) List(ctx context.Context, q Querier) ([]T, error) {
	query := "SELECT " + r.table.selectList() + " FROM " + r.table.name + " ORDER BY id"
	records := []T{}
	if err := sqlx.SelectContext(ctx, q, &records, query); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

// ListBy returns every row matching key ordered by id.
func (r *Repository[T]) ListBy(ctx context.Context, q Querier, key Key) ([]T, error) {
	if err := r.checkKey(key); err != nil {
		return nil, err
	}
	query := q.Rebind("SELECT " + r.table.selectList() + " FROM " + r.table.name + " WHERE " + key.Column + " = ? ORDER BY id")
	records := []T{}
	if err := sqlx.SelectContext(ctx, q, &records, query, key.Value); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

// Exists reports whether a row matches key.
func (r *Repository[T]) Exists(ctx context.Context, q Querier, key Key) (bool, error) {
	if err := r.checkKey(key); err != nil {
		return false, err
	}
	query := q.Rebind("SELECT COUNT(1) FROM " + r.table.name + " WHERE " + key.Column + " = ?")
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, query, key.Value); err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// Count returns the number of rows in the table.
func (r *Repository[T]) Count(ctx context.Context, q Querier) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(1) FROM "+r.table.name); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Create inserts rec and appends a create entry to the audit log.
func (r *Repository[T]) Create(ctx context.Context, tx *Tx, actor *int64, rec T) (T, error) {
	var zero T
	id, err := insertRow(ctx, tx, r.table, rec)
	if err != nil {
		return zero, err
	}

	created, err := r.Get(ctx, tx, ByID(id))
	if err != nil {
		return zero, err
	}
	after, err := types.NewSnapshot(created)
	if err != nil {
		return zero, err
	}

	if _, err := r.audit.Record(ctx, tx, types.ActionLog{
		UserID:        actor,
		ActionType:    types.ActionCreate,
		ResourceID:    id,
		ResourceTable: r.table.name,
		DataAfter:     after,
	}); err != nil {
		return zero, err
	}
	return created, nil
}

// Update loads the row matching key, applies the patch and writes every
// column back. The audit entry carries both snapshots.
func (r *Repository[T]) Update(ctx context.Context, tx *Tx, actor *int64, key Key, apply func(*T) error) (T, error) {
	var zero T
	current, err := r.Get(ctx, tx, key)
	if err != nil {
		return zero, err
	}
	before, err := types.NewSnapshot(current)
	if err != nil {
		return zero, err
	}

	updated := current
	if err := apply(&updated); err != nil {
		return zero, err
	}

	query, args, err := tx.BindNamed(r.table.updateSQL(), updated)
	if err != nil {
		return zero, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return zero, classify(err)
	}

	stored, err := r.Get(ctx, tx, ByID(current.RecordID()))
	if err != nil {
		return zero, err
	}
	after, err := types.NewSnapshot(stored)
	if err != nil {
		return zero, err
	}

	if _, err := r.audit.Record(ctx, tx, types.ActionLog{
		UserID:        actor,
		ActionType:    types.ActionUpdate,
		ResourceID:    stored.RecordID(),
		ResourceTable: r.table.name,
		DataBefore:    before,
		DataAfter:     after,
	}); err != nil {
		return zero, err
	}
	return stored, nil
}

// Delete removes the row matching key and returns its last state.
func (r *Repository[T]) Delete(ctx context.Context, tx *Tx, actor *int64, key Key) (T, error) {
	var zero T
	current, err := r.Get(ctx, tx, key)
	if err != nil {
		return zero, err
	}
	before, err := types.NewSnapshot(current)
	if err != nil {
		return zero, err
	}

	query := tx.Rebind("DELETE FROM " + r.table.name + " WHERE id = ?")
	if _, err := tx.ExecContext(ctx, query, current.RecordID()); err != nil {
		return zero, classify(err)
	}

	if _, err := r.audit.Record(ctx, tx, types.ActionLog{
		UserID:        actor,
		ActionType:    types.ActionDelete,
		ResourceID:    current.RecordID(),
		ResourceTable: r.table.name,
		DataBefore:    before,
	}); err != nil {
		return zero, err
	}
	return current, nil
}

func (r *Repository[T]) checkKey(key Key) error {
	if !r.table.allows(key.Column) {
		return fmt.Errorf("%w: %s.%s", ErrInvalidKey, r.table.name, key.Column)
	}
	return nil
}

// insertRow binds arg to the table's insert statement and returns the new id.
// Zero timestamps are replaced with the current time.
func insertRow(ctx context.Context, q Querier, t table, arg any) (int64, error) {
	query, args, err := q.BindNamed(t.insertSQL(), arg)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, v := range args {
		switch value := v.(type) {
		case time.Time:
			if value.IsZero() {
				args[i] = now
			}
		case *int64:
			if value == nil {
				args[i] = nil
			} else {
				args[i] = *value
			}
		}
	}

	if isMySQL(q) {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, classify(err)
		}
		return res.LastInsertId()
	}

	var id int64
	if err := q.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}
