package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"relapitch/internal/app"
	"relapitch/internal/config"
	"relapitch/internal/domain"
	"relapitch/internal/infra/memory"
	pgloader "relapitch/internal/infra/postgres"
	redisinfra "relapitch/internal/infra/redis"
	transport "relapitch/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ear-training server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "5001"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(seedCatalog())
	if pool != nil {
		loader = pgloader.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisinfra.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewProgressServiceWithClock(store, catalog, cfg.Quiz.AnswerPoints, time.Now, cfg.Location())
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting relapitch on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedCatalog provides the built-in course content; swap the loader for the
// Postgres-backed one by configuring postgres.url.
func seedCatalog() domain.Catalog {
	return domain.Catalog{
		Lessons: map[int]domain.Lesson{
			1: {
				ID:    1,
				Title: "Introduction to Pitch Recognition",
				Content: `<h2>What is Relative Pitch?</h2>
<p>Relative pitch is the ability to identify or recreate a musical note by comparing it to a reference note. Unlike perfect pitch, it is a skill that can be developed through practice.</p>
<h2>Getting Started</h2>
<p>We start with the basic notes (C, D, E, F, G, A, B) and build your ability to recognize and reproduce them through listening exercises and singing practice.</p>`,
				Keyboard: true,
			},
			2: {
				ID:    2,
				Title: "Basic Note Recognition",
				Content: `<h2>Understanding Musical Notes</h2>
<p>In Western music, we use seven basic notes: C, D, E, F, G, A, and B. These notes repeat in higher and lower octaves.</p>
<h2>Practice Exercise</h2>
<p>Use the interactive keyboard to familiarize yourself with the sound of each note, starting with C and working up the scale.</p>`,
				Keyboard: true,
			},
			3: {
				ID:    3,
				Title: "Interval Training",
				Content: `<h2>What are Intervals?</h2>
<p>An interval is the distance between two notes. Common intervals include the unison, major second, major third, perfect fourth, and perfect fifth.</p>
<h2>Practice Exercise</h2>
<p>Play different intervals on the keyboard and try to recognize the unique sound of each one.</p>`,
				Keyboard: true,
			},
		},
		Quests: []domain.QuestDefinition{
			{
				ID:           "listen_5",
				Description:  "Identify 5 notes correctly in listen mode",
				Kind:         domain.QuestListenCount,
				Goal:         5,
				RewardPoints: 50,
			},
			{
				ID:           "sing_3",
				Description:  "Sing 3 notes correctly",
				Kind:         domain.QuestSingCount,
				Goal:         3,
				RewardPoints: 50,
			},
			{
				ID:           "lesson_3",
				Description:  "Try 3 lesson exercises",
				Kind:         domain.QuestLessonCount,
				Goal:         3,
				RewardPoints: 30,
			},
			{
				ID:           "listen_streak_3",
				Description:  "Get 3 listening answers right in a row",
				Kind:         domain.QuestListenStreak,
				Goal:         3,
				RewardPoints: 60,
			},
			{
				ID:           "combined_practice",
				Description:  "Complete one listening and one singing exercise",
				Kind:         domain.QuestCombinedPractice,
				Goal:         2,
				RewardPoints: 40,
			},
		},
	}
}
