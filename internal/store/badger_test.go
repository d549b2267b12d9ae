package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCollection_SetGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	col := s.Collection("things")

	require.NoError(t, col.Set(ctx, "a", testDoc{Name: "widget", Price: "9.99", Count: 3}))

	doc, err := col.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "a", doc.ID)

	var got testDoc
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "widget", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestCollection_GetAbsentIsNil(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Collection("things").Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCollection_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	col := s.Collection("things")

	require.NoError(t, col.Set(ctx, "a", testDoc{Name: "widget", Price: "9.99", Count: 3}))

	t.Run("MergesFields", func(t *testing.T) {
		require.NoError(t, col.Update(ctx, "a", map[string]any{"count": 7}))

		doc, err := col.Get(ctx, "a")
		require.NoError(t, err)

		var got testDoc
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, 7, got.Count)
		assert.Equal(t, "widget", got.Name, "untouched fields survive")
	})

	t.Run("MissingDocument", func(t *testing.T) {
		err := col.Update(ctx, "nope", map[string]any{"count": 1})
		assert.ErrorIs(t, err, ErrDocNotFound)
	})
}

func TestCollection_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	col := s.Collection("things")

	require.NoError(t, col.Set(ctx, "a", testDoc{Name: "widget"}))
	require.NoError(t, col.Delete(ctx, "a"))

	doc, err := col.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Deleting an absent document is not an error.
	assert.NoError(t, col.Delete(ctx, "a"))
}

func TestCollections_AreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Collection("products").Set(ctx, "a", testDoc{Name: "shirt"}))
	require.NoError(t, s.Collection("orders").Set(ctx, "a", testDoc{Name: "order-a"}))

	docs, err := s.Collection("products").Query().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	var got testDoc
	require.NoError(t, docs[0].Decode(&got))
	assert.Equal(t, "shirt", got.Name)
}

func TestRunTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("CommitsAllWrites", func(t *testing.T) {
		err := s.RunTransaction(ctx, func(tx Tx) error {
			if err := tx.Set("things", "x", testDoc{Name: "x"}); err != nil {
				return err
			}
			return tx.Set("things", "y", testDoc{Name: "y"})
		})
		require.NoError(t, err)

		for _, id := range []string{"x", "y"} {
			doc, err := s.Collection("things").Get(ctx, id)
			require.NoError(t, err)
			assert.NotNil(t, doc, id)
		}
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		err := s.RunTransaction(ctx, func(tx Tx) error {
			if err := tx.Set("things", "z", testDoc{Name: "z"}); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		doc, err := s.Collection("things").Get(ctx, "z")
		require.NoError(t, err)
		assert.Nil(t, doc, "write inside failed transaction must not be visible")
	})

	t.Run("ReadYourOwnState", func(t *testing.T) {
		require.NoError(t, s.Collection("things").Set(ctx, "r", testDoc{Count: 1}))

		err := s.RunTransaction(ctx, func(tx Tx) error {
			doc, err := tx.Get("things", "r")
			if err != nil {
				return err
			}
			var d testDoc
			if err := doc.Decode(&d); err != nil {
				return err
			}
			d.Count++
			return tx.Set("things", "r", d)
		})
		require.NoError(t, err)

		doc, err := s.Collection("things").Get(ctx, "r")
		require.NoError(t, err)
		var d testDoc
		require.NoError(t, doc.Decode(&d))
		assert.Equal(t, 2, d.Count)
	})
}

func TestQuery_Subscribe(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("things")
	background := context.Background()

	require.NoError(t, col.Set(background, "a", testDoc{Name: "first"}))

	ctx, cancel := context.WithCancel(background)
	defer cancel()

	ch, err := col.Query().Subscribe(ctx)
	require.NoError(t, err)

	// Initial snapshot arrives without any further writes.
	snap := <-ch
	require.NoError(t, snap.Err)
	assert.Len(t, snap.Docs, 1)

	// A write re-emits the full matching set.
	require.NoError(t, col.Set(background, "b", testDoc{Name: "second"}))

	select {
	case snap = <-ch:
		require.NoError(t, snap.Err)
		assert.Len(t, snap.Docs, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after write")
	}

	// Cancelling releases the listener and closes the channel.
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel must close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestQuery_SubscribeSingleDocQuery(t *testing.T) {
	s := newTestStore(t)
	col := s.Collection("things")
	background := context.Background()

	require.NoError(t, col.Set(background, "a", testDoc{Name: "before", Count: 1}))

	ctx, cancel := context.WithCancel(background)
	defer cancel()

	ch, err := col.Query().Where("name", OpEqual, "before").Subscribe(ctx)
	require.NoError(t, err)

	snap := <-ch
	require.Len(t, snap.Docs, 1)

	// Renaming the document drops it out of the matching set.
	require.NoError(t, col.Update(background, "a", map[string]any{"name": "after"}))

	select {
	case snap = <-ch:
		require.NoError(t, snap.Err)
		assert.Empty(t, snap.Docs)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after update")
	}
}
