// Package offline holds mutating requests made while the API was unreachable
// and replays them, in order, when asked to.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/monitoring"
	"fuelcoach-go/internal/storage"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const corruptSuffix = ".corrupt"

var errCorruptQueue = errors.New("offline queue is not valid JSON")

// ReplayFunc delivers one mutation. A non-nil error stops the flush.
type ReplayFunc func(ctx context.Context, m Mutation) error

// Queue is a bounded FIFO of mutations persisted under a single storage key.
// It has no scheduler; nothing is replayed until Flush is called.
type Queue struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	backend  storage.Backend
	key      string
	capacity int
	limiter  *rate.Limiter
	events   events.Publisher
	now      func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity bounds the queue length. Values below 1 fall back to the default.
func WithCapacity(n int) Option {
	return func(q *Queue) { q.capacity = normalizeCapacity(n) }
}

// WithReplayRate paces Flush to rps replays per second. rps <= 0 means unlimited.
func WithReplayRate(rps float64, burst int) Option {
	return func(q *Queue) { q.limiter = newLimiter(rps, burst) }
}

// WithEventPublisher publishes mutation.queued and queue.flushed events.
func WithEventPublisher(p events.Publisher) Option {
	return func(q *Queue) { q.events = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func NewQueue(backend storage.Backend, opts ...Option) *Queue {
	q := &Queue{
		backend:  backend,
		key:      constants.KeyOfflineQueue,
		capacity: constants.DefaultQueueCapacity,
		limiter:  newLimiter(constants.DefaultReplayRPS, constants.DefaultReplayBurst),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func normalizeCapacity(n int) int {
	if n < 1 {
		return constants.DefaultQueueCapacity
	}
	return n
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// SetCapacity changes the bound at runtime. The stored queue is trimmed on the
// next write.
func (q *Queue) SetCapacity(n int) {
	q.mu.Lock()
	q.capacity = normalizeCapacity(n)
	q.mu.Unlock()
}

// SetReplayRate changes replay pacing at runtime.
func (q *Queue) SetReplayRate(rps float64, burst int) {
	q.mu.Lock()
	q.limiter = newLimiter(rps, burst)
	q.mu.Unlock()
}

func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Enqueue appends a mutation and trims the queue to its capacity, oldest first.
// Storage failures are logged and swallowed: the caller already has an error to
// report and must not crash because the queue is unavailable.
func (q *Queue) Enqueue(ctx context.Context, path, method string, body json.RawMessage) Mutation {
	m := Mutation{
		ID:        uuid.NewString(),
		Path:      path,
		Method:    strings.ToUpper(method),
		Body:      append(json.RawMessage(nil), body...),
		CreatedAt: q.now().UTC(),
	}
	if len(m.Body) == 0 {
		m.Body = nil
	}

	q.mu.Lock()
	items, err := q.load(ctx)
	if err != nil {
		if !errors.Is(err, errCorruptQueue) {
			q.mu.Unlock()
			log.WithError(err).WithFields(log.Fields{"method": m.Method, "path": m.Path}).
				Warn("offline queue unreadable, mutation not persisted")
			return m
		}
		if berr := q.quarantine(ctx); berr != nil {
			q.mu.Unlock()
			log.WithError(berr).Warn("offline queue corrupt and could not be moved aside, mutation not persisted")
			return m
		}
		log.WithError(err).WithField("backup", q.key+corruptSuffix).Warn("offline queue corrupt, moved aside and starting a new one")
		items = nil
	}
	items = append(items, m)
	dropped := 0
	if over := len(items) - q.capacity; over > 0 {
		dropped = over
		items = append([]Mutation(nil), items[over:]...)
	}
	err = q.save(ctx, items)
	depth := len(items)
	q.mu.Unlock()

	entry := log.WithFields(log.Fields{"method": m.Method, "path": m.Path, "id": m.ID})
	if err != nil {
		entry.WithError(err).Warn("failed to persist queued mutation")
		return m
	}
	entry.WithField("depth", depth).Info("mutation queued for replay")
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("offline queue full, oldest mutations dropped")
		monitoring.RecordQueueEvent("dropped", dropped)
	}
	monitoring.RecordQueueEvent("queued", 1)
	monitoring.SetQueueDepth(depth)
	q.publish(ctx, events.TopicMutationQueued, m)
	return m
}

// Flush replays queued mutations in creation order and stops at the first
// failure. The failed mutation and everything after it stay queued. It returns
// the number of mutations replayed successfully.
func (q *Queue) Flush(ctx context.Context, replay ReplayFunc) (int, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.mu.Lock()
	items, err := q.load(ctx)
	limiter := q.limiter
	q.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("read offline queue: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	done := make(map[string]struct{}, len(items))
	var replayErr error
	for _, m := range items {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				replayErr = err
				break
			}
		}
		if err := replay(ctx, m); err != nil {
			log.WithFields(log.Fields{"method": m.Method, "path": m.Path, "id": m.ID}).
				WithError(err).Info("replay stopped at failed mutation")
			replayErr = err
			break
		}
		done[m.ID] = struct{}{}
	}

	if len(done) > 0 {
		if err := q.remove(ctx, done); err != nil {
			// The replayed entries are already on the server; report the count anyway.
			log.WithError(err).Warn("failed to persist offline queue after replay")
		}
		monitoring.RecordQueueEvent("replayed", len(done))
	}
	if replayErr != nil {
		monitoring.RecordQueueEvent("replay_failed", 1)
	}
	q.publish(ctx, events.TopicQueueFlushed, events.QueueFlushed{Replayed: len(done), Remaining: len(items) - len(done)})
	return len(done), replayErr
}

// remove deletes replayed entries by ID so mutations enqueued during a flush survive.
func (q *Queue) remove(ctx context.Context, done map[string]struct{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, m := range items {
		if _, ok := done[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	monitoring.SetQueueDepth(len(kept))
	return q.save(ctx, kept)
}

// Pending returns a copy of the queue in replay order.
func (q *Queue) Pending(ctx context.Context) ([]Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.Pending(ctx)
	return len(items), err
}

// DropHead discards the oldest mutation. It is the manual way past a mutation
// the server will never accept.
func (q *Queue) DropHead(ctx context.Context) (Mutation, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return Mutation{}, false, err
	}
	if len(items) == 0 {
		return Mutation{}, false, nil
	}
	head := items[0]
	if err := q.save(ctx, items[1:]); err != nil {
		return Mutation{}, false, err
	}
	monitoring.RecordQueueEvent("dropped", 1)
	monitoring.SetQueueDepth(len(items) - 1)
	return head, true, nil
}

func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.backend.Delete(ctx, q.key); err != nil {
		return fmt.Errorf("clear offline queue: %w", err)
	}
	monitoring.SetQueueDepth(0)
	return nil
}

func (q *Queue) load(ctx context.Context) ([]Mutation, error) {
	data, err := q.backend.Get(ctx, q.key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []Mutation
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptQueue, err)
	}
	return items, nil
}

// quarantine copies the undecodable value, as a JSON string, next to the
// queue key so a reset never destroys it.
func (q *Queue) quarantine(ctx context.Context) error {
	data, err := q.backend.Get(ctx, q.key)
	if err != nil {
		return err
	}
	backup, err := json.Marshal(string(data))
	if err != nil {
		return err
	}
	return q.backend.Set(ctx, q.key+corruptSuffix, backup)
}

func (q *Queue) save(ctx context.Context, items []Mutation) error {
	if len(items) == 0 {
		return q.backend.Delete(ctx, q.key)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return q.backend.Set(ctx, q.key, data)
}

func (q *Queue) publish(ctx context.Context, topic string, payload any) {
	if q.events == nil {
		return
	}
	q.events.Publish(ctx, topic, payload, nil)
}
