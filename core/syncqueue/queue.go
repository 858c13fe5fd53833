package syncqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
)

// Operations
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

const DefaultBatchSize = 50

type (
	// Item is one pending change awaiting an external sync process.
	Item struct {
		ID        int64     `db:"id" json:"id"`
		TableName string    `db:"table_name" json:"tableName"`
		RecordID  string    `db:"record_id" json:"recordId"`
		Operation string    `db:"operation" json:"operation"`
		Payload   string    `db:"payload" json:"payload"` // JSON text
		CreatedAt time.Time `db:"created_at" json:"createdAt"`
	}

	// Change describes a mutation to log. Payload is marshaled to JSON.
	Change struct {
		Table     string
		RecordID  string
		Operation string
		Payload   interface{}
	}

	Repository interface {
		AppendItem(ctx context.Context, item Item, exec ...core.DBExecutor) (Item, error)
		// QueryPendingItems returns at most limit items, oldest first.
		QueryPendingItems(ctx context.Context, limit int, exec ...core.DBExecutor) ([]Item, error)
		DeleteItemsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int64, error)
	}

	Queue struct {
		repo      Repository
		batchSize int
	}
)

func NewQueue(repo Repository, conf *core.Config) *Queue {
	size := conf.Sync.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Queue{repo: repo, batchSize: size}
}

// Append logs ch through exec, which is expected to be the transaction of the mutation being logged.
func (q *Queue) Append(ctx context.Context, exec core.DBExecutor, ch Change) error {
	switch ch.Operation {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return errors.Errorf("unknown sync operation %q", ch.Operation)
	}

	payload := ch.Payload
	if payload == nil || ch.Operation == OpDelete {
		payload = map[string]string{"id": ch.RecordID}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding sync payload")
	}

	item := Item{
		TableName: ch.Table,
		RecordID:  ch.RecordID,
		Operation: ch.Operation,
		Payload:   string(data),
		CreatedAt: core.NowFunc(),
	}
	if _, err = q.repo.AppendItem(ctx, item, exec); err != nil {
		return errors.Wrap(err, "appending sync item")
	}
	return nil
}

// GetPending returns the oldest pending items, up to the configured batch size.
func (q *Queue) GetPending(ctx context.Context) ([]Item, error) {
	return q.repo.QueryPendingItems(ctx, q.batchSize)
}

// Remove deletes the items with the given ids and returns how many were removed.
func (q *Queue) Remove(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := q.repo.DeleteItemsByID(ctx, ids)
	return int(n), err
}
