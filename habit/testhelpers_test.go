package habit_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/stevemurr/habit-store/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend is an in-memory store.Backend with per-key fault injection and
// a log of every key read.
type fakeBackend struct {
	mu     sync.Mutex
	data   map[string]string
	fail   map[string]error
	panics map[string]any
	delay  map[string]time.Duration
	reads  []string

	failWrites error
}

func newFakeBackend(data map[string]string) *fakeBackend {
	if data == nil {
		data = map[string]string{}
	}
	return &fakeBackend{
		data:   data,
		fail:   map[string]error{},
		panics: map[string]any{},
		delay:  map[string]time.Duration{},
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	f.reads = append(f.reads, key)
	d := f.delay[key]
	p, shouldPanic := f.panics[key]
	err := f.fail[key]
	v, ok := f.data[key]
	f.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if shouldPanic {
		panic(p)
	}
	if err != nil {
		return "", false, err
	}
	return v, ok, nil
}

func (f *fakeBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return f.failWrites
	}
	if err := f.fail[key]; err != nil {
		return err
	}
	f.data[key] = value
	return nil
}

func (f *fakeBackend) Keys(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) readKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

var _ store.Backend = (*fakeBackend)(nil)

const (
	habitA = `{"id":"a","name":"Read","createdAt":"2024-01-02T03:04:05Z"}`
	habitB = `{"id":"b","name":"Run","createdAt":"2024-01-03T03:04:05Z"}`
	habitC = `{"id":"c","name":"Sleep","createdAt":"2024-01-04T03:04:05Z"}`
)
