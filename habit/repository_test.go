package habit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stevemurr/habit-store/habit"
	"github.com/stevemurr/habit-store/schema"
	"github.com/stevemurr/habit-store/store"
)

var (
	recordA = habit.Habit{ID: "a", Name: "Read", CreatedAt: "2024-01-02T03:04:05Z"}
	recordB = habit.Habit{ID: "b", Name: "Run", CreatedAt: "2024-01-03T03:04:05Z"}
	recordC = habit.Habit{ID: "c", Name: "Sleep", CreatedAt: "2024-01-04T03:04:05Z"}
)

// modes runs each property sequentially and with concurrent fan-out.
var modes = []struct {
	name        string
	concurrency int
}{
	{"sequential", 1},
	{"concurrent", 4},
}

func newRepo(b store.Backend, concurrency int, opts ...habit.Option) *habit.Repository {
	opts = append([]habit.Option{habit.WithConcurrency(concurrency)}, opts...)
	return habit.NewRepository(store.NewAdapter(b), opts...)
}

func TestFindAllAbsentIndexIsEmpty(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{"a": habitA})
			habits, err := newRepo(b, m.concurrency).FindAll(context.Background())

			require.NoError(t, err)
			require.NotNil(t, habits)
			assert.Empty(t, habits)
			assert.Equal(t, []string{habit.IndexKey}, b.readKeys(), "no reads beyond the index")
		})
	}
}

func TestFindAllNullAndEmptyIndex(t *testing.T) {
	for _, raw := range []string{"null", "[]"} {
		t.Run(raw, func(t *testing.T) {
			b := newFakeBackend(map[string]string{habit.IndexKey: raw})
			habits, err := newRepo(b, 1).FindAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, habits)
			assert.Equal(t, []string{habit.IndexKey}, b.readKeys())
		})
	}
}

func TestFindAllPreservesIndexOrder(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["a","b","c"]`,
				"a":            habitA,
				"b":            habitB,
				"c":            habitC,
			})
			// Complete in reverse order under fan-out.
			b.delay["a"] = 30 * time.Millisecond
			b.delay["b"] = 15 * time.Millisecond

			habits, err := newRepo(b, m.concurrency).FindAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []habit.Habit{recordA, recordB, recordC}, habits)
		})
	}
}

func TestFindAllKeepsDuplicates(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["b","a","b"]`,
		"a":            habitA,
		"b":            habitB,
	})
	habits, err := newRepo(b, 1).FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []habit.Habit{recordB, recordA, recordB}, habits)
}

func TestFindAllMissingMember(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["a","b"]`,
				"a":            habitA,
			})
			habits, err := newRepo(b, m.concurrency).FindAll(context.Background())

			require.Error(t, err)
			assert.Nil(t, habits, "no partial result")

			var me *habit.MissingMemberError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, "b", me.ID)
			assert.Equal(t, "no habit found with id: b", err.Error())
		})
	}
}

func TestFindAllReportsEarliestFailureInIndexOrder(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["a","b","c","d"]`,
				"a":            habitA,
				"c":            `{"id":"c"}`,
			})
			b.fail["d"] = errors.New("disk on fire")
			// b is missing and finishes last; c and d fail first.
			b.delay["b"] = 40 * time.Millisecond

			for range 5 {
				_, err := newRepo(b, m.concurrency).FindAll(context.Background())
				require.True(t, habit.IsMissingMember(err), "got %v", err)
				assert.Equal(t, "no habit found with id: b", err.Error())
			}
		})
	}
}

func TestFindAllSequentialStopsAtFirstFailure(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a","b","c"]`,
		"a":            habitA,
		"c":            habitC,
	})
	_, err := newRepo(b, 1).FindAll(context.Background())
	require.True(t, habit.IsMissingMember(err))
	assert.Equal(t, []string{habit.IndexKey, "a", "b"}, b.readKeys())
}

func TestFindAllMissingField(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["a"]`,
				"a":            `{"id":"a","name":"x"}`,
			})
			_, err := newRepo(b, m.concurrency).FindAll(context.Background())

			var ve *schema.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), "createdAt")
			assert.Equal(t, []schema.Violation{{Path: "$.createdAt", Message: "missing required field"}}, ve.Violations)
		})
	}
}

func TestFindAllRejectsExtraField(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a"]`,
		"a":            `{"id":"a","name":"x","createdAt":"2020-01-01T00:00:00Z","extra":1}`,
	})
	_, err := newRepo(b, 1).FindAll(context.Background())

	require.True(t, schema.IsValidationError(err))
	assert.Contains(t, err.Error(), "extra")
	assert.Equal(t, "decode \"a\": $.extra: additional property not allowed", err.Error())
}

func TestFindAllInvalidIndex(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"object", `{"a":1}`, `$: expected type "array" or "null", got "object"`},
		{"wrong element", `["a",1]`, `$[1]: expected type "string", got "number"`},
		{"empty id", `["a",""]`, `$[1]: string length 0 is less than minLength 1`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{habit.IndexKey: tc.raw, "a": habitA})
			habits, err := newRepo(b, 1).FindAll(context.Background())

			assert.Nil(t, habits)
			require.True(t, schema.IsValidationError(err))
			assert.Equal(t, fmt.Sprintf("decode %q: %s", habit.IndexKey, tc.want), err.Error())
			assert.Equal(t, []string{habit.IndexKey}, b.readKeys())
		})
	}
}

func TestFindAllBackendFailure(t *testing.T) {
	cause := errors.New("quota exceeded")

	t.Run("index", func(t *testing.T) {
		b := newFakeBackend(nil)
		b.fail[habit.IndexKey] = cause
		habits, err := newRepo(b, 1).FindAll(context.Background())

		assert.Nil(t, habits)
		require.ErrorIs(t, err, cause)
		var se *store.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, habit.IndexKey, se.Key)
	})

	for _, m := range modes {
		t.Run("member "+m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["a","b","c"]`,
				"a":            habitA,
				"b":            habitB,
				"c":            habitC,
			})
			b.fail["b"] = cause
			habits, err := newRepo(b, m.concurrency).FindAll(context.Background())

			assert.Nil(t, habits)
			require.True(t, store.IsStoreError(err))
			assert.Equal(t, `fake get "b": quota exceeded`, err.Error())
		})
	}

	t.Run("panic", func(t *testing.T) {
		b := newFakeBackend(map[string]string{
			habit.IndexKey: `["a","b"]`,
			"a":            habitA,
			"b":            habitB,
		})
		b.panics["a"] = "localStorage is not available"

		var err error
		require.NotPanics(t, func() {
			_, err = newRepo(b, 4).FindAll(context.Background())
		})
		require.True(t, store.IsStoreError(err))
		assert.Contains(t, err.Error(), "localStorage is not available")
	})
}

func TestFindAllIdempotent(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			b := newFakeBackend(map[string]string{
				habit.IndexKey: `["c","a"]`,
				"a":            habitA,
				"c":            habitC,
			})
			r := newRepo(b, m.concurrency)

			first, err := r.FindAll(context.Background())
			require.NoError(t, err)
			second, err := r.FindAll(context.Background())
			require.NoError(t, err)

			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("FindAll not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestFindAllCallerTimeout(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a","b"]`,
		"a":            habitA,
		"b":            habitB,
	})
	b.delay["a"] = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := newRepo(b, 1).FindAll(ctx)
	require.True(t, store.IsStoreError(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFindAllConcurrentCallers(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a","b","c"]`,
		"a":            habitA,
		"b":            habitB,
		"c":            habitC,
	})
	r := newRepo(b, 2)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			habits, err := r.FindAll(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []habit.Habit{recordA, recordB, recordC}, habits)
		}()
	}
	wg.Wait()
}

func TestObserverSeesEveryRead(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a","b"]`,
		"a":            habitA,
	})

	var seen []string
	r := newRepo(b, 1, habit.WithObserver(func(key string, v store.Value) {
		seen = append(seen, fmt.Sprintf("%s=%s", key, v))
	}))
	_, err := r.FindAll(context.Background())

	require.True(t, habit.IsMissingMember(err), "observer must not change the outcome")
	assert.Equal(t, []string{
		habit.IndexKey + `=["a","b"]`,
		"a=" + habitA,
		"b=<absent>",
	}, seen)
}

func TestObserverCallsAreSerialized(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a","b","c"]`,
		"a":            habitA,
		"b":            habitB,
		"c":            habitC,
	})

	var seen []string
	counts := map[string]int{}
	r := newRepo(b, 4, habit.WithObserver(func(key string, _ store.Value) {
		seen = append(seen, key)
		counts[key]++
	}))

	for range 50 {
		_, err := r.FindAll(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, seen, 200)
	assert.Equal(t, map[string]int{habit.IndexKey: 50, "a": 50, "b": 50, "c": 50}, counts)
}

func TestDefaultObserverLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := newFakeBackend(map[string]string{habit.IndexKey: `["a"]`, "a": habitA})

	_, err := newRepo(b, 1, habit.WithLogger(zap.New(core))).FindAll(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("value read").All()
	require.Len(t, entries, 2)
	assert.Equal(t, habit.IndexKey, entries[0].ContextMap()["key"])
	assert.Equal(t, "a", entries[1].ContextMap()["key"])
}

func TestGetByID(t *testing.T) {
	b := newFakeBackend(map[string]string{"a": habitA})
	r := newRepo(b, 1)

	h, err := r.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, recordA, h)

	_, err = r.GetByID(context.Background(), "zzz")
	require.True(t, habit.IsMissingMember(err))

	_, err = r.GetByID(context.Background(), "")
	require.True(t, habit.IsMissingMember(err))
	assert.NotContains(t, b.readKeys(), "")
}

func TestAdd(t *testing.T) {
	b := newFakeBackend(map[string]string{
		habit.IndexKey: `["a"]`,
		"a":            habitA,
	})
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	r := newRepo(b, 1, habit.WithClock(func() time.Time { return fixed }))

	h, err := r.Add(context.Background(), "Stretch")
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "Stretch", h.Name)
	assert.Equal(t, "2025-03-04T04:06:07Z", h.CreatedAt)

	habits, err := r.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []habit.Habit{recordA, h}, habits)
}

func TestAddOnEmptyStore(t *testing.T) {
	b := newFakeBackend(nil)
	r := newRepo(b, 1)

	first, err := r.Add(context.Background(), "One")
	require.NoError(t, err)
	second, err := r.Add(context.Background(), "Two")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	habits, err := r.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []habit.Habit{first, second}, habits)
}

func TestAddRejectsBlankName(t *testing.T) {
	b := newFakeBackend(nil)
	_, err := newRepo(b, 1).Add(context.Background(), "  ")
	require.ErrorIs(t, err, habit.ErrEmptyName)
	assert.Empty(t, b.readKeys())
}

func TestAddRefusesCorruptIndex(t *testing.T) {
	b := newFakeBackend(map[string]string{habit.IndexKey: `{"oops":true}`})
	_, err := newRepo(b, 1).Add(context.Background(), "Stretch")
	require.True(t, schema.IsValidationError(err))

	keys, _ := b.Keys(context.Background())
	assert.Equal(t, []string{habit.IndexKey}, keys, "nothing written")
}

func TestAddWriteFailure(t *testing.T) {
	b := newFakeBackend(nil)
	b.failWrites = errors.New("read-only")
	_, err := newRepo(b, 1).Add(context.Background(), "Stretch")

	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "set", se.Op)

	keys, _ := b.Keys(context.Background())
	assert.Empty(t, keys)
}
