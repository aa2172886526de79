package litestore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hlop3z/litestore/internal/alerr"
)

// binding is the type-erased view of a Table used by store-level batches.
type binding interface {
	tableName() string
	insertAny(ctx context.Context, items []any, replace bool) error
	updateAny(ctx context.Context, items []any) error
	deleteAny(ctx context.Context, items []any) error
}

func (t *Table[T]) tableName() string { return t.schema.Name }

func typed[T any](items []any) []*T {
	out := make([]*T, len(items))
	for i, v := range items {
		out[i] = v.(*T)
	}
	return out
}

func (t *Table[T]) insertAny(ctx context.Context, items []any, replace bool) error {
	return t.insertAll(ctx, typed[T](items), replace)
}

func (t *Table[T]) updateAny(ctx context.Context, items []any) error {
	return t.UpdateAll(ctx, typed[T](items))
}

func (t *Table[T]) deleteAny(ctx context.Context, items []any) error {
	return t.DeleteAll(ctx, typed[T](items))
}

// InsertBatch inserts items of one bound model type in a single transaction.
// Items must all be pointers to the same type.
func (s *Store) InsertBatch(ctx context.Context, items []any) error {
	b, err := s.batchTarget(items)
	if err != nil || b == nil {
		return err
	}
	return b.insertAny(ctx, items, false)
}

// InsertOrReplaceBatch is InsertBatch with INSERT OR REPLACE semantics.
func (s *Store) InsertOrReplaceBatch(ctx context.Context, items []any) error {
	b, err := s.batchTarget(items)
	if err != nil || b == nil {
		return err
	}
	return b.insertAny(ctx, items, true)
}

// UpdateBatch updates items of one bound model type in a single transaction.
func (s *Store) UpdateBatch(ctx context.Context, items []any) error {
	b, err := s.batchTarget(items)
	if err != nil || b == nil {
		return err
	}
	return b.updateAny(ctx, items)
}

// DeleteBatch deletes items of one bound model type by primary key.
func (s *Store) DeleteBatch(ctx context.Context, items []any) error {
	b, err := s.batchTarget(items)
	if err != nil || b == nil {
		return err
	}
	return b.deleteAny(ctx, items)
}

// batchTarget checks that items share one pointer type and returns its table.
// An empty batch returns nil, nil.
func (s *Store) batchTarget(items []any) (binding, error) {
	if len(items) == 0 {
		return nil, nil
	}

	first := reflect.TypeOf(items[0])
	for i, v := range items {
		got := reflect.TypeOf(v)
		if got == nil || got.Kind() != reflect.Pointer || reflect.ValueOf(v).IsNil() {
			return nil, alerr.New(alerr.ErrHeterogeneousBatch, "batch items must be non-nil model pointers").
				With("index", i).
				With("got", fmt.Sprintf("%T", v))
		}
		if got != first {
			return nil, alerr.New(alerr.ErrHeterogeneousBatch, "batch mixes model types").
				With("index", i).
				With("expected", first.String()).
				With("got", got.String())
		}
	}

	s.mu.Lock()
	b, ok := s.models[first.Elem()]
	s.mu.Unlock()
	if !ok {
		return nil, alerr.New(alerr.ErrUnknownModel, "model type is not bound to the store").
			With("type", first.Elem().String()).
			WithHelp("call litestore.Bind for this type first")
	}
	return b, nil
}
