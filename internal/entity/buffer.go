package entity

import (
	"context"
	"sync"
	"time"

	"github.com/hanpama/sdlresolver/internal/eventbus"
	"github.com/hanpama/sdlresolver/internal/events"
)

// Buffer collects entity ids per type and loads each collected set with a
// single LoadMultiple call, made when the first of its resolvers runs.
// Ids added after a batch started loading go into the next batch.
type Buffer struct {
	storage Storage

	mu      sync.Mutex
	pending map[string]*batch
}

type batch struct {
	ctx  context.Context
	ids  []string
	seen map[string]bool

	once   sync.Once
	result map[string]Entity
	err    error
}

// NewBuffer returns a buffer loading from storage.
func NewBuffer(storage Storage) *Buffer {
	return &Buffer{storage: storage, pending: make(map[string]*batch)}
}

// Add schedules id for loading and returns the function that yields the
// entity, or nil when it does not exist. The context of the first Add of a
// batch is used for loading.
func (b *Buffer) Add(ctx context.Context, entityType, id string) func() (Entity, error) {
	b.mu.Lock()
	bt, ok := b.pending[entityType]
	if !ok {
		bt = &batch{ctx: ctx, seen: make(map[string]bool)}
		b.pending[entityType] = bt
	}
	if !bt.seen[id] {
		bt.seen[id] = true
		bt.ids = append(bt.ids, id)
	}
	b.mu.Unlock()

	return func() (Entity, error) {
		bt.once.Do(func() { b.flush(entityType, bt) })
		if bt.err != nil {
			return nil, bt.err
		}
		return bt.result[id], nil
	}
}

func (b *Buffer) flush(entityType string, bt *batch) {
	b.mu.Lock()
	if b.pending[entityType] == bt {
		delete(b.pending, entityType)
	}
	ids := append([]string(nil), bt.ids...)
	b.mu.Unlock()

	start := time.Now()
	bt.result, bt.err = b.storage.LoadMultiple(bt.ctx, entityType, ids)
	eventbus.Publish(bt.ctx, events.LoaderFlush{
		EntityType: entityType,
		Requested:  len(ids),
		Found:      len(bt.result),
		Err:        bt.err,
		Start:      start,
		Duration:   time.Since(start),
	})
}
