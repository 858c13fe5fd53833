package syncqueue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
	sqlxrepos "github.com/tamkeen/tamkeen/storage/database/sqlx"
	testutil "github.com/tamkeen/tamkeen/tests"
)

func newQueue(db core.DB, batchSize int) *syncqueue.Queue {
	conf := testutil.NewConfig()
	conf.Sync.BatchSize = batchSize
	return syncqueue.NewQueue(sqlxrepos.NewSyncQueueRepository(db), conf)
}

func TestQueue(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	queue := newQueue(db, 3)

	items, err := queue.GetPending(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Len(t, items, 0)

	changes := []syncqueue.Change{
		{Table: "students", RecordID: "s1", Operation: syncqueue.OpInsert, Payload: map[string]string{"firstName": "Amel"}},
		{Table: "students", RecordID: "s1", Operation: syncqueue.OpUpdate, Payload: map[string]string{"firstName": "Amal"}},
		{Table: "grades", RecordID: "g1", Operation: syncqueue.OpInsert},
		{Table: "students", RecordID: "s1", Operation: syncqueue.OpDelete, Payload: map[string]string{"ignored": "yes"}},
	}
	for _, ch := range changes {
		require.NoError(t, queue.Append(ctx, db, ch))
	}

	items, err = queue.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3, "batch size not applied")
	for i, item := range items {
		assert.Equal(t, changes[i].RecordID, item.RecordID)
		assert.Equal(t, changes[i].Operation, item.Operation)
		if i > 0 {
			assert.Greater(t, item.ID, items[i-1].ID, "items are not oldest first")
		}
	}
	assert.JSONEq(t, `{"firstName":"Amel"}`, items[0].Payload)
	assert.JSONEq(t, `{"id":"g1"}`, items[2].Payload)

	n, err := queue.Remove(ctx, []int64{items[0].ID, items[1].ID, 4242})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = queue.Remove(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	items, err = queue.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "grades", items[0].TableName)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(items[1].Payload), &payload))
	assert.Equal(t, map[string]string{"id": "s1"}, payload, "delete items carry only the id")

	err = queue.Append(ctx, db, syncqueue.Change{Table: "students", RecordID: "s1", Operation: "UPSERT"})
	assert.Error(t, err)
}

func TestQueue_rollback(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	queue := newQueue(db, 0)
	errBoom := errors.New("boom")

	err := db.WithinTx(ctx, func(tx core.DBExecutor) error {
		if err := queue.Append(ctx, tx, syncqueue.Change{Table: "students", RecordID: "s1", Operation: syncqueue.OpInsert}); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	items, err := queue.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 0, "item of a rolled back mutation is pending")
}

func TestQueue_defaultBatchSize(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	queue := newQueue(db, 0)

	for i := 0; i < syncqueue.DefaultBatchSize+5; i++ {
		require.NoError(t, queue.Append(ctx, db, syncqueue.Change{Table: "grades", RecordID: "g", Operation: syncqueue.OpUpdate}))
	}
	items, err := queue.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, items, syncqueue.DefaultBatchSize)
}
