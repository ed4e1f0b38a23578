package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"relapitch/internal/app"
	"relapitch/internal/domain"
	pgloader "relapitch/internal/infra/postgres"
	pgmigrations "relapitch/internal/infra/postgres/migrations"
	infraredis "relapitch/internal/infra/redis"
)

func TestProgressEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewCatalogLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalog := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewProgressService(sessionStore, catalog, 15)

	lesson, err := service.Lesson(ctx, 1)
	if err != nil {
		t.Fatalf("lesson from pg: %v", err)
	}
	if lesson.Title != "Introduction to Pitch Recognition" {
		t.Fatalf("unexpected lesson %+v", lesson)
	}

	// Lesson interactions award once and drive the lesson-count quest.
	for i := 1; i <= 3; i++ {
		result, err := service.LogItem(ctx, "u1", fmt.Sprintf("lesson_1_play%d", i), 5, domain.ItemLessonInteraction)
		if err != nil {
			t.Fatalf("log item %d: %v", i, err)
		}
		if i == 3 {
			if !result.Quest.Completed {
				t.Fatalf("expected quest done after 3 interactions, got %+v", result.Quest)
			}
			if result.TotalScore != 3*5+30 {
				t.Fatalf("expected 15 item points plus 30 reward, got %d", result.TotalScore)
			}
		}
	}

	// Progress survives a restart: a fresh store hydrates from Redis.
	rehydrated := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service2 := app.NewProgressService(rehydrated, catalog, 15)
	snapshot, err := service2.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("progress after restart: %v", err)
	}
	if snapshot.TotalScore != 45 || !snapshot.Quest.Completed {
		t.Fatalf("expected hydrated state, got %+v", snapshot)
	}

	// Duplicate award after the restart is still a no-op.
	dup, err := service2.LogItem(ctx, "u1", "lesson_1_play1", 5, domain.ItemLessonInteraction)
	if err != nil {
		t.Fatalf("dup log item: %v", err)
	}
	if dup.NewItem || dup.AwardedPoints != 0 || dup.TotalScore != 45 {
		t.Fatalf("ledger lost across restart, got %+v", dup)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "relapitch", "POSTGRES_PASSWORD": "relapass", "POSTGRES_DB": "relapitch"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://relapitch:relapass@%s:%s/relapitch?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	lesson := domain.Lesson{ID: 1, Title: "Introduction to Pitch Recognition", Content: "<h2>What is Relative Pitch?</h2>", Keyboard: true}
	lessonData, err := json.Marshal(lesson)
	if err != nil {
		t.Fatalf("marshal lesson: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO lessons (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, lesson.ID, string(lessonData)); err != nil {
		t.Fatalf("insert lesson: %v", err)
	}

	quest := domain.QuestDefinition{
		ID:           "lesson_3",
		Description:  "Try 3 lesson exercises",
		Kind:         domain.QuestLessonCount,
		Goal:         3,
		RewardPoints: 30,
	}
	questData, err := json.Marshal(quest)
	if err != nil {
		t.Fatalf("marshal quest: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quests (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quest.ID, string(questData)); err != nil {
		t.Fatalf("insert quest: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
