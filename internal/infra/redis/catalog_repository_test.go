package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"relapitch/internal/domain"
	"relapitch/internal/infra/memory"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(sampleCatalog()),
	}
	repo := NewCatalogRepository(client, loader, time.Minute)

	catalog, err := repo.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(catalog.Quests) != 1 || catalog.Lessons[1].Title == "" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}

	// Second call hits the Redis copy, loader not incremented.
	if _, err := repo.GetCatalog(context.Background()); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	// Another instance shares the cached copy without touching its loader.
	other := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(sampleCatalog())}
	repo2 := NewCatalogRepository(client, other, time.Minute)
	if _, err := repo2.GetCatalog(context.Background()); err != nil {
		t.Fatalf("get catalog from second repo: %v", err)
	}
	if other.calls != 0 {
		t.Fatalf("expected shared redis cache, loader calls=%d", other.calls)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		Lessons: map[int]domain.Lesson{
			1: {ID: 1, Title: "Introduction to Pitch Recognition", Keyboard: true},
		},
		Quests: []domain.QuestDefinition{
			{ID: "listen_5", Kind: domain.QuestListenCount, Goal: 5, RewardPoints: 50},
		},
	}
}
