package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

// Options configures the Badger-backed store.
type Options struct {
	// Directory to store the database files.
	Dir string

	// InMemory creates an in-memory database (for testing).
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// GCInterval is how often value-log garbage collection runs.
	// Zero disables GC (in-memory stores never run it).
	GCInterval time.Duration
}

// DefaultOptions returns options suited for an on-disk store.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:        dir,
		SyncWrites: true,
		GCInterval: 5 * time.Minute,
	}
}

// InMemoryOptions returns options for a throwaway in-memory store.
func InMemoryOptions() Options {
	return Options{InMemory: true}
}

// BadgerStore implements Store on BadgerDB. Documents live under
// "collection/id" keys as JSON; live queries ride on Badger's prefix
// subscription mechanism.
type BadgerStore struct {
	db     *badger.DB
	stopGC chan struct{}
}

// Open opens (or creates) a Badger-backed store.
func Open(opts Options) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		stopGC: make(chan struct{}),
	}

	if !opts.InMemory && opts.GCInterval > 0 {
		go s.runGC(opts.GCInterval)
	}

	return s, nil
}

// runGC runs periodic value-log garbage collection.
func (s *BadgerStore) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func (s *BadgerStore) Collection(name string) Collection {
	return &badgerCollection{store: s, name: name}
}

func (s *BadgerStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

func (s *BadgerStore) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

func docKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + "/")
}

type badgerCollection struct {
	store *BadgerStore
	name  string
}

func (c *badgerCollection) Name() string { return c.name }

func (c *badgerCollection) Get(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc *Document
	err := c.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(c.name, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc = &Document{ID: id, Data: append(json.RawMessage{}, val...)}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *badgerCollection) Set(ctx context.Context, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", c.name, id, err)
	}

	return c.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(c.name, id), data)
	})
}

func (c *badgerCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.store.db.Update(func(txn *badger.Txn) error {
		key := docKey(c.name, id)

		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%s/%s: %w", c.name, id, ErrDocNotFound)
		}
		if err != nil {
			return err
		}

		var existing map[string]any
		err = item.Value(func(val []byte) error {
			existing, err = decodeFields(val)
			return err
		})
		if err != nil {
			return err
		}

		for k, v := range fields {
			existing[k] = v
		}

		data, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", c.name, id, err)
		}
		return txn.Set(key, data)
	})
}

func (c *badgerCollection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(docKey(c.name, id))
	})
}

func (c *badgerCollection) Query() Query {
	return &badgerQuery{col: c}
}

type badgerQuery struct {
	col  *badgerCollection
	plan queryPlan
}

func (q *badgerQuery) clone() *badgerQuery {
	cp := *q
	cp.plan.filters = append([]filter(nil), q.plan.filters...)
	return &cp
}

func (q *badgerQuery) Where(field string, op Operator, value any) Query {
	cp := q.clone()
	cp.plan.filters = append(cp.plan.filters, filter{field: field, op: op, value: value})
	return cp
}

func (q *badgerQuery) OrderBy(field string, dir Direction) Query {
	cp := q.clone()
	cp.plan.orderField = field
	cp.plan.orderDir = dir
	return cp
}

func (q *badgerQuery) Limit(n int) Query {
	cp := q.clone()
	cp.plan.limit = n
	return cp
}

func (q *badgerQuery) Offset(n int) Query {
	cp := q.clone()
	cp.plan.offset = n
	return cp
}

func (q *badgerQuery) GetAll(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var decoded []decodedDoc
	prefix := collectionPrefix(q.col.name)

	err := q.col.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), string(prefix))

			err := item.Value(func(val []byte) error {
				fields, err := decodeFields(val)
				if err != nil {
					return fmt.Errorf("decode document %s/%s: %w", q.col.name, id, err)
				}
				decoded = append(decoded, decodedDoc{
					doc:    Document{ID: id, Data: append(json.RawMessage{}, val...)},
					fields: fields,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return evaluate(decoded, q.plan), nil
}

func (q *badgerQuery) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	initial, err := q.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan Snapshot, 1)
	ch <- Snapshot{Docs: initial}

	prefix := collectionPrefix(q.col.name)

	go func() {
		defer close(ch)

		err := q.col.store.db.Subscribe(ctx, func(kv *badger.KVList) error {
			docs, err := q.GetAll(ctx)
			if err != nil {
				return err
			}
			select {
			case ch <- Snapshot{Docs: docs}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, []pb.Match{{Prefix: prefix}})

		// Cancellation is the normal way a subscription ends; anything else
		// is a store failure the consumer must see.
		if err != nil && ctx.Err() == nil {
			ch <- Snapshot{Err: err}
		}
	}()

	return ch, nil
}

type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) Get(collection, id string) (*Document, error) {
	item, err := t.txn.Get(docKey(collection, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *Document
	err = item.Value(func(val []byte) error {
		doc = &Document{ID: id, Data: append(json.RawMessage{}, val...)}
		return nil
	})
	return doc, err
}

func (t *badgerTx) Set(collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	return t.txn.Set(docKey(collection, id), data)
}

func (t *badgerTx) Delete(collection, id string) error {
	return t.txn.Delete(docKey(collection, id))
}
