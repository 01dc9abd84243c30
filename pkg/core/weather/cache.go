package weather

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// Fetcher loads a job's forecast. It returns (nil, nil) when the backend has none.
type Fetcher func(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error)

type entry struct {
	weather *model.JobWeather
}

// Cache holds one voting session's forecasts keyed by job id and forecast date.
// Found and not-found results are both kept and never refetched; fetch errors are not cached.
type Cache struct {
	fetch Fetcher

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// NewCache creates an empty session cache
func NewCache(fetch Fetcher) *Cache {
	return &Cache{
		fetch:   fetch,
		entries: make(map[string]entry),
	}
}

func cacheKey(jobID, forecastDate string) string {
	return jobID + "|" + forecastDate
}

// Lookup returns the cached forecast. ok is false when the job's day has not been fetched yet;
// a nil forecast with ok true is a cached "not found".
func (c *Cache) Lookup(jobID, forecastDate string) (w *model.JobWeather, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(jobID, forecastDate)]
	return e.weather, ok
}

// Get returns the cached forecast or fetches it. Concurrent calls for one job day share a single request.
func (c *Cache) Get(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	if w, ok := c.Lookup(jobID, forecastDate); ok {
		return w, nil
	}

	key := cacheKey(jobID, forecastDate)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if w, ok := c.Lookup(jobID, forecastDate); ok {
			return w, nil
		}
		w, err := c.fetch(ctx, jobID, forecastDate)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry{weather: w}
		c.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	w, _ := v.(*model.JobWeather)
	return w, nil
}

// Prefetch loads forecasts for several jobs concurrently and waits for them. Errors are dropped;
// a failed job is simply fetched again on its next Get.
func (c *Cache) Prefetch(ctx context.Context, items []model.VoteItem) {
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(jobID, date string) {
			defer wg.Done()
			_, _ = c.Get(ctx, jobID, date)
		}(item.InternalJobID, item.ForecastDate)
	}
	wg.Wait()
}
