package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

type syncQueueRepository struct {
	repository
}

var _ syncqueue.Repository = (*syncQueueRepository)(nil) // interface compliance check

func NewSyncQueueRepository(exec core.DBExecutor) *syncQueueRepository {
	return &syncQueueRepository{repository{exec: exec}}
}

func (repo syncQueueRepository) AppendItem(ctx context.Context, item syncqueue.Item, exec ...core.DBExecutor) (syncqueue.Item, error) {
	res, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO sync_queue (table_name, record_id, operation, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.TableName, item.RecordID, item.Operation, item.Payload, item.CreatedAt.UTC(),
	)
	if err != nil {
		return syncqueue.Item{}, errors.Wrap(err, "inserting sync item")
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return syncqueue.Item{}, errors.Wrap(err, "reading sync item id")
	}
	return item, nil
}

func (repo syncQueueRepository) QueryPendingItems(ctx context.Context, limit int, exec ...core.DBExecutor) ([]syncqueue.Item, error) {
	items := make([]syncqueue.Item, 0)
	err := repo.getExec(exec).Select(ctx, &items, `
		SELECT id, table_name, record_id, operation, payload, created_at
		FROM sync_queue ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying sync items")
	}
	return items, nil
}

func (repo syncQueueRepository) DeleteItemsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM sync_queue WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.getExec(exec).Run(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting sync items")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted sync items")
}
