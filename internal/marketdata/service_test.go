package marketdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cryptoquant/internal/model"
	"cryptoquant/internal/ringbuf"
)

type fakeAPI struct {
	candles []model.Candle
	calls   int
	err     error
}

func (f *fakeAPI) Klines(context.Context, string, string, int) ([]model.Candle, error) {
	f.calls++
	return f.candles, f.err
}

type fakeCache struct {
	stored  []model.Candle
	readErr error
	saveErr error
}

func (f *fakeCache) Klines(_ context.Context, _, _ string, limit int) ([]model.Candle, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.stored) > limit {
		return f.stored[len(f.stored)-limit:], nil
	}
	return f.stored, nil
}

func (f *fakeCache) SaveKlines(_ context.Context, candles []model.Candle) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = append(f.stored, candles...)
	return nil
}

func (f *fakeCache) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bars(n int) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Symbol: "BTCUSDT", Timeframe: "1h",
			OpenTime: int64(i) * 3_600_000, Close: 100,
		}
	}
	return candles
}

func TestKlines_FullCacheHitSkipsAPI(t *testing.T) {
	api := &fakeAPI{candles: bars(10)}
	cache := &fakeCache{stored: bars(10)}
	svc := New(api, cache, testLogger(), nil)

	got, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 candles, got %d", len(got))
	}
	if api.calls != 0 {
		t.Errorf("full cache hit must not call the API, got %d calls", api.calls)
	}
}

func TestKlines_ShortCacheFallsThrough(t *testing.T) {
	api := &fakeAPI{candles: bars(10)}
	cache := &fakeCache{stored: bars(3)}
	svc := New(api, cache, testLogger(), nil)

	got, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected API series, got %d candles", len(got))
	}
	if api.calls != 1 {
		t.Errorf("expected one API call, got %d", api.calls)
	}
	if len(cache.stored) != 13 {
		t.Errorf("fresh series must be written back, cache holds %d", len(cache.stored))
	}
}

func TestKlines_CacheErrorDegradesToAPI(t *testing.T) {
	api := &fakeAPI{candles: bars(5)}
	cache := &fakeCache{readErr: errors.New("redis down")}
	svc := New(api, cache, testLogger(), nil)

	got, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 5)
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected API series, got %d", len(got))
	}
}

func TestKlines_WriteBackFailureIsNonFatal(t *testing.T) {
	api := &fakeAPI{candles: bars(5)}
	cache := &fakeCache{saveErr: errors.New("redis down")}
	svc := New(api, cache, testLogger(), nil)

	if _, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 5); err != nil {
		t.Fatalf("write-back failure must not fail the read: %v", err)
	}
}

func TestKlines_APIErrorSurfaces(t *testing.T) {
	sentinel := errors.New("exchange down")
	svc := New(&fakeAPI{err: sentinel}, nil, testLogger(), nil)

	_, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 5)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected API error, got: %v", err)
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	svc := New(&fakeAPI{}, nil, testLogger(), nil)

	if err := svc.Run(context.Background(), RefreshConfig{}); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestDrainRing_WritesBatches(t *testing.T) {
	cache := &fakeCache{}
	svc := New(&fakeAPI{}, cache, testLogger(), nil)

	ring := ringbuf.New(16)
	for _, c := range bars(5) {
		ring.Push(c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.DrainRing(ctx, ring)
		close(done)
	}()

	deadline := make(chan struct{})
	go func() {
		for ring.Len() > 0 {
		}
		close(deadline)
	}()
	<-deadline
	cancel()
	<-done

	if len(cache.stored) != 5 {
		t.Errorf("expected 5 drained candles in cache, got %d", len(cache.stored))
	}
}
