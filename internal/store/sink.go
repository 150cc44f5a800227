package store

import (
	"context"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/google/uuid"
)

// RecordWriter is the part of Store a Sink needs.
type RecordWriter interface {
	WriteRecords(ctx context.Context, runID uuid.UUID, results []core.Result) (int64, error)
}

// DefaultBatchSize is used when a Sink is created with a non-positive size.
const DefaultBatchSize = 1000

// Sink buffers results and copies them to the store in batches.
// It is not safe for concurrent use.
type Sink struct {
	store   RecordWriter
	runID   uuid.UUID
	size    int
	buf     []core.Result
	written int64
}

// NewSink returns a sink writing to runID.
func NewSink(s RecordWriter, runID uuid.UUID, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sink{store: s, runID: runID, size: batchSize, buf: make([]core.Result, 0, batchSize)}
}

// Emit queues r and flushes once a batch is full.
func (k *Sink) Emit(ctx context.Context, r core.Result) error {
	k.buf = append(k.buf, r)
	if len(k.buf) >= k.size {
		return k.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered results.
func (k *Sink) Flush(ctx context.Context) error {
	if len(k.buf) == 0 {
		return nil
	}
	n, err := k.store.WriteRecords(ctx, k.runID, k.buf)
	k.written += n
	if err != nil {
		return err
	}
	k.buf = k.buf[:0]
	return nil
}

// Written returns how many records have been copied so far.
func (k *Sink) Written() int64 {
	return k.written
}
