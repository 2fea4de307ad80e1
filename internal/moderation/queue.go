package moderation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// Queue defaults.
const (
	DefaultQueueDelay = 2 * time.Second
	DefaultBatchSize  = 10
)

// BatchFunc resolves a batch of inputs. It must return one result per
// input, in input order.
type BatchFunc func(ctx context.Context, inputs []string) []model.ModerationResult

// Future is the eventual result of an enqueued input.
type Future struct {
	done   chan struct{}
	result model.ModerationResult
	once   sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r model.ModerationResult) {
	f.once.Do(func() {
		f.result = r
		close(f.done)
	})
}

// Wait blocks until the result is available or ctx is done. Giving up does
// not withdraw the input from its batch.
func (f *Future) Wait(ctx context.Context) (model.ModerationResult, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return model.ModerationResult{}, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

type queueItem struct {
	future *Future
	id     string
	input  string
}

// BatchQueue coalesces inputs arriving close together into batches. A drain
// fires after the debounce delay, takes up to the batch size off the front
// and hands it to the BatchFunc. At most one BatchFunc call runs at a time,
// counting drains and RunExclusive calls alike.
type BatchQueue struct {
	fn        BatchFunc
	timer     *time.Timer
	drainDone chan struct{}
	pending   []*queueItem
	delay     time.Duration
	batchSize int
	mu        sync.Mutex
	scheduled bool
	draining  bool
	closed    bool
}

// QueueOption configures a BatchQueue.
type QueueOption func(*BatchQueue)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) QueueOption {
	return func(q *BatchQueue) {
		if d > 0 {
			q.delay = d
		}
	}
}

// WithBatchSize sets the maximum number of inputs per drain.
func WithBatchSize(n int) QueueOption {
	return func(q *BatchQueue) {
		if n > 0 {
			q.batchSize = n
		}
	}
}

// NewBatchQueue creates a queue that drains through fn.
func NewBatchQueue(fn BatchFunc, opts ...QueueOption) *BatchQueue {
	q := &BatchQueue{
		fn:        fn,
		delay:     DefaultQueueDelay,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds input to the pending list and returns its future. After
// Close the future resolves immediately to an error result.
func (q *BatchQueue) Enqueue(input string) *Future {
	f := newFuture()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		f.resolve(model.ErrorResult(common.ErrQueueClosed.Error(), false))
		return f
	}

	q.pending = append(q.pending, &queueItem{id: uuid.NewString(), input: input, future: f})
	if !q.scheduled && !q.draining {
		q.scheduleLocked()
	}
	return f
}

// Pending reports how many inputs are waiting for a drain.
func (q *BatchQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *BatchQueue) scheduleLocked() {
	q.scheduled = true
	q.timer = time.AfterFunc(q.delay, q.drain)
}

// drain runs one batch. It returns without work when another drain is in
// flight or nothing is pending.
func (q *BatchQueue) drain() {
	q.mu.Lock()
	q.scheduled = false
	if q.draining || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}

	n := min(q.batchSize, len(q.pending))
	batch := make([]*queueItem, n)
	copy(batch, q.pending[:n])
	q.pending = q.pending[n:]
	q.draining = true
	q.drainDone = make(chan struct{})
	done := q.drainDone
	q.mu.Unlock()

	common.LogDebug("Draining batch queue", common.Fields{
		"batch_size": len(batch),
		"first_item": batch[0].id,
	})

	inputs := make([]string, len(batch))
	for i, item := range batch {
		inputs[i] = item.input
	}
	results := q.run(context.Background(), inputs)
	for i, item := range batch {
		item.future.resolve(results[i])
	}

	q.release(done)
}

// RunExclusive hands inputs to the BatchFunc directly, bypassing the
// debounce, once no drain is in flight. Pending items wait until it
// finishes. It returns ctx's error if ctx ends before the slot frees up.
func (q *BatchQueue) RunExclusive(ctx context.Context, inputs []string) ([]model.ModerationResult, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	for {
		q.mu.Lock()
		if !q.draining {
			break
		}
		wait := q.drainDone
		q.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	q.draining = true
	q.drainDone = make(chan struct{})
	done := q.drainDone
	q.mu.Unlock()

	results := q.run(ctx, inputs)
	q.release(done)
	return results, nil
}

// release frees the drain slot and schedules the next drain if work is left.
func (q *BatchQueue) release(done chan struct{}) {
	q.mu.Lock()
	q.draining = false
	close(done)
	if len(q.pending) > 0 && !q.scheduled && !q.closed {
		q.scheduleLocked()
	}
	q.mu.Unlock()
}

// run calls the batch function, padding a short answer with errors so
// every future resolves.
func (q *BatchQueue) run(ctx context.Context, inputs []string) (results []model.ModerationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Batch function panicked", "panic", r, "batch_size", len(inputs))
			results = errorResults(len(inputs), "batch processing failed", true)
		}
	}()

	results = q.fn(ctx, inputs)
	if len(results) != len(inputs) {
		slog.Warn("Batch function returned wrong number of results",
			"want", len(inputs),
			"got", len(results))
		fixed := errorResults(len(inputs), noResultDetails, true)
		copy(fixed, results)
		results = fixed
	}
	return results
}

// Close stops accepting inputs and drains what is pending. If ctx ends
// first, remaining inputs resolve to error results.
func (q *BatchQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	if q.scheduled && q.timer.Stop() {
		q.scheduled = false
	}
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if q.draining {
			done := q.drainDone
			q.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				q.abandon()
				return ctx.Err()
			}
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()

		if err := ctx.Err(); err != nil {
			q.abandon()
			return err
		}
		q.drain()
	}
}

func (q *BatchQueue) abandon() {
	q.mu.Lock()
	items := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, item := range items {
		item.future.resolve(model.ErrorResult(common.ErrQueueClosed.Error(), false))
	}
}

func errorResults(n int, details string, aiUsed bool) []model.ModerationResult {
	out := make([]model.ModerationResult, n)
	for i := range out {
		out[i] = model.ErrorResult(details, aiUsed)
	}
	return out
}
