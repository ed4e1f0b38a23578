package memory

import (
	"context"
	"testing"
	"time"

	"relapitch/internal/domain"
)

func TestCatalogRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		CatalogLoader: NewStaticCatalogLoader(sampleCatalog()),
	}
	repo := NewCatalogRepository(loader, time.Minute)

	catalog, err := repo.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if len(catalog.Quests) != 1 || catalog.Lessons[1].Title == "" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}

	if _, err := repo.GetCatalog(context.Background()); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	CatalogLoader
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
