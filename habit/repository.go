package habit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/habit-store/store"
)

// KV is the store surface the Repository needs. *store.Adapter satisfies it;
// implementations must report every backend failure as an error, never as a
// panic, and report missing keys as store.Absent.
type KV interface {
	Get(ctx context.Context, key string) (store.Value, error)
	Set(ctx context.Context, key, value string) error
}

// Observer is called with every value the Repository reads, before it is
// decoded. It cannot change the outcome of a call. Calls are serialized even
// when FindAll fetches members concurrently.
type Observer func(key string, v store.Value)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver replaces the default observer, which logs each read value at
// debug level.
func WithObserver(o Observer) Option {
	return func(r *Repository) {
		r.observer = o
	}
}

// WithConcurrency bounds how many members FindAll fetches at once. n <= 1
// fetches strictly in index order and stops at the first failure.
func WithConcurrency(n int) Option {
	return func(r *Repository) {
		r.concurrency = n
	}
}

// WithClock sets the time source used to stamp new habits.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// Repository reads validated habits out of a KV. Reads hold no shared
// mutable state and are safe for concurrent use; Add calls are serialized.
type Repository struct {
	kv          KV
	logger      *zap.Logger
	observer    Observer
	concurrency int
	now         func() time.Time

	mu        sync.Mutex // serializes Add's read-modify-write of the index
	observeMu sync.Mutex
}

// NewRepository returns a Repository over kv. Without options it logs nothing,
// fetches members one at a time and stamps new habits with time.Now.
func NewRepository(kv KV, opts ...Option) *Repository {
	r := &Repository{
		kv:          kv,
		logger:      zap.NewNop(),
		concurrency: 1,
		now:         time.Now,
	}
	r.observer = r.logValue
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) logValue(key string, v store.Value) {
	r.logger.Debug("value read", zap.String("key", key), zap.Stringer("value", v))
}

func (r *Repository) observe(key string, v store.Value) {
	if r.observer == nil {
		return
	}
	r.observeMu.Lock()
	defer r.observeMu.Unlock()
	r.observer(key, v)
}

// FindAll returns every habit named by the index, in index order.
//
// The result is all-or-nothing: a store failure, an index or member that
// fails validation, or an id with no stored value aborts the call with that
// single error. When several members fail, the one earliest in the index is
// reported regardless of fetch completion order. An absent index yields an
// empty, non-nil slice.
func (r *Repository) FindAll(ctx context.Context) ([]Habit, error) {
	ids, err := r.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Habit{}, nil
	}
	if r.concurrency <= 1 || len(ids) == 1 {
		return r.findSequential(ctx, ids)
	}
	return r.findConcurrent(ctx, ids)
}

func (r *Repository) findSequential(ctx context.Context, ids []string) ([]Habit, error) {
	habits := make([]Habit, 0, len(ids))
	for _, id := range ids {
		h, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, nil
}

func (r *Repository) findConcurrent(ctx context.Context, ids []string) ([]Habit, error) {
	habits := make([]Habit, len(ids))
	errs := make([]error, len(ids))

	// firstFailed only ever decreases. Members after it cannot change which
	// error is reported, so they are skipped once a failure is known.
	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(ids)))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if int64(i) > firstFailed.Load() {
				return nil
			}
			habits[i], errs[i] = r.GetByID(ctx, id)
			if errs[i] != nil {
				for {
					cur := firstFailed.Load()
					if int64(i) >= cur || firstFailed.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if i := firstFailed.Load(); i < int64(len(ids)) {
		return nil, errs[i]
	}
	return habits, nil
}

// GetByID fetches and decodes a single habit. An id with no stored value is
// a *MissingMemberError.
func (r *Repository) GetByID(ctx context.Context, id string) (Habit, error) {
	if id == "" {
		return Habit{}, &MissingMemberError{ID: id}
	}
	v, err := r.kv.Get(ctx, id)
	if err != nil {
		return Habit{}, err
	}
	r.observe(id, v)
	if v.IsAbsent() {
		return Habit{}, &MissingMemberError{ID: id}
	}
	h, err := DecodeHabit(v)
	if err != nil {
		return Habit{}, fmt.Errorf("decode %q: %w", id, err)
	}
	return h, nil
}

func (r *Repository) readIndex(ctx context.Context) ([]string, error) {
	v, err := r.kv.Get(ctx, IndexKey)
	if err != nil {
		return nil, err
	}
	r.observe(IndexKey, v)
	ids, err := DecodeIndex(v)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", IndexKey, err)
	}
	return ids, nil
}

// Add stores a new habit under a fresh id and appends that id to the index.
// The record is written before the index so the index never names an id
// whose record was not stored.
func (r *Repository) Add(ctx context.Context, name string) (Habit, error) {
	if strings.TrimSpace(name) == "" {
		return Habit{}, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.readIndex(ctx)
	if err != nil {
		return Habit{}, err
	}

	h := Habit{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: r.now().UTC().Format(time.RFC3339),
	}
	record, err := json.Marshal(h)
	if err != nil {
		return Habit{}, err
	}
	if err := r.kv.Set(ctx, h.ID, string(record)); err != nil {
		return Habit{}, err
	}

	index, err := json.Marshal(append(ids, h.ID))
	if err != nil {
		return Habit{}, err
	}
	if err := r.kv.Set(ctx, IndexKey, string(index)); err != nil {
		return Habit{}, err
	}

	r.logger.Info("habit added", zap.String("id", h.ID), zap.Int("count", len(ids)+1))
	return h, nil
}
