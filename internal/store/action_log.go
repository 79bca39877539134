package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/binpoints/apiserver/types"
)

// ActionLogRepository is the append-only audit log. It exposes no update or
// delete operations.
type ActionLogRepository struct {
	store *Store
	table table
}

func NewActionLogRepository(s *Store) *ActionLogRepository {
	t, _ := tableFor(types.KindActionLog)
	return &ActionLogRepository{store: s, table: t}
}

// Record appends entry inside tx. Observers registered on the store are
// notified only once tx commits.
func (r *ActionLogRepository) Record(ctx context.Context, tx *Tx, entry types.ActionLog) (types.ActionLog, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	}
	id, err := insertRow(ctx, tx, r.table, entry)
	if err != nil {
		return types.ActionLog{}, err
	}
	entry.ID = id

	tx.OnCommit(func(ctx context.Context) {
		r.store.notify(ctx, entry)
	})
	return entry, nil
}

func (r *ActionLogRepository) Get(ctx context.Context, q Querier, id int64) (types.ActionLog, error) {
	var entry types.ActionLog
	query := q.Rebind("SELECT " + r.table.selectList() + " FROM " + r.table.name + " WHERE id = ?")
	if err := sqlx.GetContext(ctx, q, &entry, query, id); err != nil {
		return types.ActionLog{}, classify(err)
	}
	return entry, nil
}

func (r *ActionLogRepository) List(ctx context.Context, q Querier) ([]types.ActionLog, error) {
	entries := []types.ActionLog{}
	query := "SELECT " + r.table.selectList() + " FROM " + r.table.name + " ORDER BY id"
	if err := sqlx.SelectContext(ctx, q, &entries, query); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// ListFor returns the entries recorded for one resource, oldest first.
func (r *ActionLogRepository) ListFor(ctx context.Context, q Querier, kind types.ResourceKind, resourceID int64) ([]types.ActionLog, error) {
	entries := []types.ActionLog{}
	query := q.Rebind("SELECT " + r.table.selectList() + " FROM " + r.table.name +
		" WHERE resource_table = ? AND resource_id = ? ORDER BY id")
	if err := sqlx.SelectContext(ctx, q, &entries, query, kind.String(), resourceID); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}
