package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"relapitch/internal/domain"
)

// CatalogLoader fetches lesson and quest content from a backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// CatalogRepository caches the content catalog with TTL to avoid repeated
// backing-store hits on every progress request.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	now := r.clock()

	r.mu.RLock()
	if r.expiresAt.After(now) {
		catalog := r.catalog
		r.mu.RUnlock()
		return catalog, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.expiresAt.After(now) {
			catalog := r.catalog
			r.mu.RUnlock()
			return catalog, nil
		}
		r.mu.RUnlock()

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}

		r.mu.Lock()
		r.catalog = catalog
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// StaticCatalogLoader is a simple loader backed by an in-memory catalog
// (useful for tests/demos and for running without Postgres).
type StaticCatalogLoader struct {
	catalog domain.Catalog
}

func NewStaticCatalogLoader(catalog domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: catalog}
}

func (l *StaticCatalogLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	return l.catalog, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
