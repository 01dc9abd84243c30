package weather

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

type countingFetcher struct {
	calls   atomic.Int32
	results map[string]*model.JobWeather
	err     error
	delay   time.Duration
}

func (f *countingFetcher) fetch(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[jobID], nil
}

func TestCache_FetchesOnce(t *testing.T) {
	fetcher := &countingFetcher{results: map[string]*model.JobWeather{
		"J1": {JobID: "J1", DailyHigh: 80},
	}}
	cache := NewCache(fetcher.fetch)
	ctx := context.Background()

	w, err := cache.Get(ctx, "J1", "2025-06-01")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 80.0, w.DailyHigh)

	_, err = cache.Get(ctx, "J1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCache_NotFoundIsCached(t *testing.T) {
	fetcher := &countingFetcher{results: map[string]*model.JobWeather{}}
	cache := NewCache(fetcher.fetch)
	ctx := context.Background()

	_, ok := cache.Lookup("J2", "2025-06-01")
	assert.False(t, ok, "not fetched yet")

	w, err := cache.Get(ctx, "J2", "2025-06-01")
	require.NoError(t, err)
	assert.Nil(t, w)

	w, ok = cache.Lookup("J2", "2025-06-01")
	assert.True(t, ok, "cached not-found is distinct from not fetched")
	assert.Nil(t, w)

	_, err = cache.Get(ctx, "J2", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("connection reset")}
	cache := NewCache(fetcher.fetch)
	ctx := context.Background()

	_, err := cache.Get(ctx, "J1", "2025-06-01")
	require.Error(t, err)

	_, ok := cache.Lookup("J1", "2025-06-01")
	assert.False(t, ok)

	fetcher.err = nil
	fetcher.results = map[string]*model.JobWeather{"J1": {JobID: "J1"}}
	w, err := cache.Get(ctx, "J1", "2025-06-01")
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCache_ConcurrentGetsShareOneFetch(t *testing.T) {
	fetcher := &countingFetcher{
		results: map[string]*model.JobWeather{"J1": {JobID: "J1"}},
		delay:   50 * time.Millisecond,
	}
	cache := NewCache(fetcher.fetch)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(ctx, "J1", "2025-06-01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCache_Prefetch(t *testing.T) {
	fetcher := &countingFetcher{results: map[string]*model.JobWeather{
		"J1": {JobID: "J1"},
		"J2": {JobID: "J2"},
	}}
	cache := NewCache(fetcher.fetch)

	items := []model.VoteItem{
		{ItemKey: model.ItemKey{InternalJobID: "J1", ForecastDate: "2025-06-01", LensID: "a"}},
		{ItemKey: model.ItemKey{InternalJobID: "J2", ForecastDate: "2025-06-01", LensID: "a"}},
		{ItemKey: model.ItemKey{InternalJobID: "J1", ForecastDate: "2025-06-01", LensID: "b"}},
	}
	cache.Prefetch(context.Background(), items)

	_, ok := cache.Lookup("J1", "2025-06-01")
	assert.True(t, ok)
	_, ok = cache.Lookup("J2", "2025-06-01")
	assert.True(t, ok)
	assert.LessOrEqual(t, fetcher.calls.Load(), int32(3))
	assert.GreaterOrEqual(t, fetcher.calls.Load(), int32(2))
}

func TestCache_KeepsEachForecastDateSeparate(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache(func(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
		calls.Add(1)
		if forecastDate == "2025-06-02" {
			return &model.JobWeather{JobID: jobID, DailyHigh: 65}, nil
		}
		return &model.JobWeather{JobID: jobID, DailyHigh: 80}, nil
	})
	ctx := context.Background()

	day1, err := cache.Get(ctx, "J1", "2025-06-01")
	require.NoError(t, err)
	day2, err := cache.Get(ctx, "J1", "2025-06-02")
	require.NoError(t, err)

	assert.Equal(t, 80.0, day1.DailyHigh)
	assert.Equal(t, 65.0, day2.DailyHigh)
	assert.Equal(t, int32(2), calls.Load())

	_, ok := cache.Lookup("J1", "2025-06-03")
	assert.False(t, ok)
}
