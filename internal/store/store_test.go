package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/kv"
	"nexus/internal/types"
)

type countingKV struct {
	kv.Store
	sets    atomic.Int32
	failSet error
}

func (c *countingKV) Set(ctx context.Context, key string, v []byte) error {
	c.sets.Add(1)
	if c.failSet != nil {
		return c.failSet
	}
	return c.Store.Set(ctx, key, v)
}

func named(name, region string) types.ReportParameters {
	p := types.Default()
	p.ReportName = name
	p.Region = region
	return p
}

func TestSaveRejectsBlankName(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory())
	_, err := s.Save(ctx, named("A", "x"))
	require.NoError(t, err)

	for _, name := range []string{"", "   "} {
		_, err = s.Save(ctx, named(name, "y"))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "reportName", ve.Field)
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "the saved list is unchanged")
}

func TestSaveUpsertsInPlaceAndPrependsNew(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_, err := s.Save(ctx, named("X", "first"))
	require.NoError(t, err)
	_, err = s.Save(ctx, named("Y", "other"))
	require.NoError(t, err)
	list, err := s.Save(ctx, named("X", "second"))
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "Y", list[0].ReportName, "new entries go first")
	assert.Equal(t, "X", list[1].ReportName, "existing entries keep their position")
	assert.Equal(t, "second", list[1].Region)

	got, ok, err := s.Load(ctx, "X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Region)
}

func TestLoadMissing(t *testing.T) {
	_, ok, err := New(nil).Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	backend := &countingKV{Store: kv.NewMemory()}
	s := New(backend)
	_, err := s.Save(ctx, named("A", "a"))
	require.NoError(t, err)
	_, err = s.Save(ctx, named("B", "b"))
	require.NoError(t, err)

	before := backend.sets.Load()
	list, err := s.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, before, backend.sets.Load(), "absent names write nothing")

	list, err = s.Delete(ctx, "A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].ReportName)
}

func TestAutosaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_, ok, err := s.LoadAutosave(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	p := named("Draft", "Nairobi, Kenya")
	p.Tier = []types.TierID{"Policy Brief"}
	require.NoError(t, s.Autosave(ctx, p))
	got, ok, err := s.LoadAutosave(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(p))

	require.NoError(t, s.Autosave(ctx, types.Default()), "autosave is unconditional")
	got, _, _ = s.LoadAutosave(ctx)
	assert.True(t, got.IsDefault())

	require.NoError(t, s.ClearAutosave(ctx))
	_, ok, err = s.LoadAutosave(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackendFailuresArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	quota := errors.New("quota exceeded")
	s := New(&countingKV{Store: kv.NewMemory(), failSet: quota})

	err := s.Autosave(ctx, named("A", "a"))
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, quota)

	_, err = s.Save(ctx, named("A", "a"))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "write saved", pe.Op)
}

func TestCorruptSavedListIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, SavedKey, []byte("{not json")))
	s := New(mem)

	_, err := s.Save(ctx, named("A", "a"))
	assert.True(t, IsPersistence(err))
	raw, _, _ := mem.Get(ctx, SavedKey)
	assert.Equal(t, "{not json", string(raw))
}

func TestConcurrentSavesKeepEveryName(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(ctx, named(string(rune('a'+i)), "r"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestDebouncerCoalesces(t *testing.T) {
	ctx := context.Background()
	backend := &countingKV{Store: kv.NewMemory()}
	s := New(backend)
	d := NewDebouncer(s, time.Hour)

	d.Schedule(named("one", "a"))
	d.Schedule(named("two", "b"))
	d.Schedule(named("three", "c"))
	assert.True(t, d.Pending())
	assert.Zero(t, backend.sets.Load())

	require.NoError(t, d.Flush(ctx))
	assert.Equal(t, int32(1), backend.sets.Load())
	got, _, _ := s.LoadAutosave(ctx)
	assert.Equal(t, "three", got.ReportName)

	require.NoError(t, d.Flush(ctx), "nothing pending")
	assert.Equal(t, int32(1), backend.sets.Load())
}

func TestDebouncerCancel(t *testing.T) {
	backend := &countingKV{Store: kv.NewMemory()}
	d := NewDebouncer(New(backend), time.Hour)
	d.Schedule(named("one", "a"))
	d.Cancel()
	assert.False(t, d.Pending())
	require.NoError(t, d.Flush(context.Background()))
	assert.Zero(t, backend.sets.Load())
}

func TestDebouncerFiresAfterDelay(t *testing.T) {
	backend := &countingKV{Store: kv.NewMemory()}
	s := New(backend)
	d := NewDebouncer(s, 5*time.Millisecond)
	d.Schedule(named("late", "a"))
	require.Eventually(t, func() bool { return backend.sets.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, d.Pending())
}

func TestDebouncerReportsErrors(t *testing.T) {
	var got error
	d := NewDebouncer(New(&countingKV{Store: kv.NewMemory(), failSet: errors.New("disk full")}), time.Hour)
	d.OnError = func(err error) { got = err }
	d.Schedule(named("x", "a"))
	err := d.Flush(context.Background())
	assert.True(t, IsPersistence(err))
	assert.Equal(t, err, got)
}

// gatedKV blocks autosave writes until release is closed.
type gatedKV struct {
	kv.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedKV() *gatedKV {
	return &gatedKV{Store: kv.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedKV) Set(ctx context.Context, key string, v []byte) error {
	if key == AutosaveKey {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Store.Set(ctx, key, v)
}

func TestDebouncerCancelWaitsForInFlightWrite(t *testing.T) {
	ctx := context.Background()
	backend := newGatedKV()
	s := New(backend)
	d := NewDebouncer(s, time.Millisecond)

	d.Schedule(named("stale", "a"))
	select {
	case <-backend.entered:
	case <-time.After(time.Second):
		t.Fatal("autosave write never started")
	}

	cancelled := make(chan struct{})
	go func() {
		d.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
		t.Fatal("Cancel returned while the write was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(backend.release)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return after the write finished")
	}

	require.NoError(t, s.ClearAutosave(ctx))
	_, ok, err := s.LoadAutosave(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a cleared slot stays cleared")
}

func TestDebouncerDropsWriteTakenBeforeCancel(t *testing.T) {
	ctx := context.Background()
	backend := &countingKV{Store: kv.NewMemory()}
	d := NewDebouncer(New(backend), time.Hour)

	// Hold the write lock so Flush parks after taking the pending value.
	d.write.Lock()
	d.Schedule(named("stale", "a"))
	flushed := make(chan error, 1)
	go func() { flushed <- d.Flush(ctx) }()
	require.Eventually(t, func() bool { return !d.Pending() }, time.Second, time.Millisecond)

	d.mu.Lock()
	d.epoch++
	d.mu.Unlock()
	d.write.Unlock()

	require.NoError(t, <-flushed)
	assert.Zero(t, backend.sets.Load())
}
