package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"relapitch/internal/domain"
)

// CatalogLoader loads lesson and quest JSONB rows from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	catalog := domain.Catalog{Lessons: make(map[int]domain.Lesson)}

	rows, err := l.pool.Query(ctx, `SELECT id, data FROM lessons ORDER BY id`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load lessons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan lesson: %w", err)
		}
		var lesson domain.Lesson
		if err := json.Unmarshal(raw, &lesson); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal lesson %d: %w", id, err)
		}
		lesson.ID = id
		catalog.Lessons[id] = lesson
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load lessons: %w", err)
	}

	questRows, err := l.pool.Query(ctx, `SELECT id, data FROM quests ORDER BY id`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load quests: %w", err)
	}
	defer questRows.Close()
	for questRows.Next() {
		var id string
		var raw []byte
		if err := questRows.Scan(&id, &raw); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan quest: %w", err)
		}
		var quest domain.QuestDefinition
		if err := json.Unmarshal(raw, &quest); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal quest %s: %w", id, err)
		}
		quest.ID = id
		catalog.Quests = append(catalog.Quests, quest)
	}
	if err := questRows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load quests: %w", err)
	}

	return catalog, nil
}
