package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreg/internal/platform/metrics"
	"fieldreg/pkg/platform/sentinel"
)

type fakeResolver struct {
	calls   atomic.Int32
	delay   map[string]time.Duration
	records map[string]Record
	fail    error
}

func (f *fakeResolver) Resolve(ctx context.Context, code string) (Record, error) {
	f.calls.Add(1)
	if d := f.delay[code]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Record{}, ctx.Err()
		}
	}
	if f.fail != nil {
		return Record{}, f.fail
	}
	rec, ok := f.records[code]
	if !ok {
		return Record{}, fmt.Errorf("padron %s: %w", code, sentinel.ErrNotFound)
	}
	return rec, nil
}

type recordingWriter struct {
	mu     sync.Mutex
	writes [][2]string
}

func (w *recordingWriter) ApplyLookup(dre, ugel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, [2]string{dre, ugel})
}

func (w *recordingWriter) all() [][2]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][2]string(nil), w.writes...)
}

func sampleResolver() *fakeResolver {
	return &fakeResolver{
		records: map[string]Record{
			"0201234": {Code: "0201234", Institution: "IE 501", Region: "DRE CUSCO", Authority: "UGEL CUSCO"},
			"0209999": {Code: "0209999", Institution: "IE 777", Region: "DRE LIMA METROPOLITANA"},
		},
		delay: map[string]time.Duration{},
	}
}

func settle(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Settle(ctx))
}

func TestResolveMemoizes(t *testing.T) {
	resolver := sampleResolver()
	c := New(resolver, nil)
	defer c.Close()

	first, err := c.Resolve(context.Background(), " 0201234 ")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "0201234")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Found)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestResolveCachesNotFound(t *testing.T) {
	resolver := sampleResolver()
	c := New(resolver, nil)
	defer c.Close()

	for range 3 {
		res, err := c.Resolve(context.Background(), "1111111")
		require.NoError(t, err)
		assert.False(t, res.Found)
	}
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestResolveCollapsesConcurrentCalls(t *testing.T) {
	resolver := sampleResolver()
	resolver.delay["0201234"] = 30 * time.Millisecond
	c := New(resolver, nil)
	defer c.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Resolve(context.Background(), "0201234")
			assert.NoError(t, err)
			assert.Equal(t, "UGEL CUSCO", res.Record.Authority)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestResolveEmptyCode(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer)
	defer c.Close()

	_, err := c.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCode)
	c.Input("")
	settle(t, c)

	assert.Zero(t, resolver.calls.Load())
	assert.Empty(t, writer.all())
}

func TestResolveFailureNotCached(t *testing.T) {
	resolver := sampleResolver()
	resolver.fail = errors.New("connection refused")
	c := New(resolver, nil)
	defer c.Close()

	_, err := c.Resolve(context.Background(), "0201234")
	require.Error(t, err)
	assert.Zero(t, c.Len())

	resolver.fail = nil
	res, err := c.Resolve(context.Background(), "0201234")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, int32(2), resolver.calls.Load())
}

func TestInputDebouncesTyping(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(20*time.Millisecond))
	defer c.Close()

	for _, partial := range []string{"020", "0201", "02012", "020123", "0201234"} {
		c.Input(partial)
	}
	settle(t, c)

	assert.Equal(t, int32(1), resolver.calls.Load())
	assert.Equal(t, [][2]string{{"DRE CUSCO", "UGEL CUSCO"}}, writer.all())
}

func TestInputClearedCodeCancelsPendingLookup(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(20*time.Millisecond))
	defer c.Close()

	c.Input("0201234")
	c.Input("  ")
	settle(t, c)

	assert.Zero(t, resolver.calls.Load())
	assert.Empty(t, writer.all())
}

func TestInputClearedCodeDiscardsInFlightResponse(t *testing.T) {
	resolver := sampleResolver()
	resolver.delay["0201234"] = 50 * time.Millisecond
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Input("0201234")
	require.Eventually(t, func() bool { return resolver.calls.Load() == 1 }, time.Second, time.Millisecond)
	c.Input("")
	settle(t, c)

	assert.Empty(t, writer.all())
	res, err := c.Resolve(context.Background(), "0201234")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestInputAppliesCachedCodeSynchronously(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(time.Hour))
	defer c.Close()

	_, err := c.Resolve(context.Background(), "0209999")
	require.NoError(t, err)

	c.Input("0209999")
	assert.Equal(t, [][2]string{{"DRE LIMA METROPOLITANA", NoUGEL}}, writer.all())
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestInputSentinelBypassesLookup(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Input(SentinelCode)
	settle(t, c)

	assert.Zero(t, resolver.calls.Load())
	assert.Equal(t, [][2]string{{NoDRE, NoUGEL}}, writer.all())
}

func TestInputIgnoresImplausibleCodes(t *testing.T) {
	resolver := sampleResolver()
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Input("02")
	c.Input("IE-501")
	settle(t, c)

	assert.Zero(t, resolver.calls.Load())
	assert.Empty(t, writer.all())
}

func TestInputNotFoundWritesPlaceholders(t *testing.T) {
	writer := &recordingWriter{}
	c := New(sampleResolver(), writer, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Input("5550000")
	settle(t, c)
	assert.Equal(t, [][2]string{{NoDRE, NoUGEL}}, writer.all())
}

func TestInputSupersededResponseCachedButNotApplied(t *testing.T) {
	resolver := sampleResolver()
	resolver.delay["0201234"] = 50 * time.Millisecond
	writer := &recordingWriter{}
	m := metrics.New(prometheus.NewRegistry())
	c := New(resolver, writer, WithDebounce(time.Millisecond), WithMetrics(m))
	defer c.Close()

	c.Input("0201234")
	require.Eventually(t, func() bool { return resolver.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Input("0209999")
	settle(t, c)

	assert.Equal(t, [][2]string{{"DRE LIMA METROPOLITANA", NoUGEL}}, writer.all())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupResults.WithLabelValues("superseded")))
}

func TestInputFailureKeepsPriorValues(t *testing.T) {
	resolver := sampleResolver()
	resolver.fail = fmt.Errorf("padron: %w", sentinel.ErrUnavailable)
	writer := &recordingWriter{}
	c := New(resolver, writer, WithDebounce(time.Millisecond))
	defer c.Close()

	c.Input("0201234")
	settle(t, c)

	assert.Empty(t, writer.all())
	assert.Zero(t, c.Len())
}

func TestCloseStopsPendingTimer(t *testing.T) {
	resolver := sampleResolver()
	c := New(resolver, &recordingWriter{}, WithDebounce(time.Hour))

	c.Input("0201234")
	c.Close()
	settle(t, c)
	assert.Zero(t, resolver.calls.Load())
}
