package redis

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"relapitch/internal/app"
	"relapitch/internal/domain"
)

func TestSessionStorePersistsSnapshots(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	quest := domain.QuestDefinition{
		ID:           "listen_streak_3",
		Description:  "Get 3 listening answers right in a row",
		Kind:         domain.QuestListenStreak,
		Goal:         3,
		RewardPoints: 60,
	}
	state := domain.SessionState{
		Score:     65,
		Completed: []string{"lesson_1_playC", "quiz_listen_q1_correct"},
		Quest: domain.DailyQuestState{
			AssignedDate: "2026-08-29",
			Quest:        &quest,
			Progress:     domain.StreakProgress{Streak: 2},
		},
		Quiz: &domain.QuizAttemptState{
			Mode:          domain.ModeListen,
			ReferenceNote: "C4",
			Targets:       map[int]string{1: "G4", 2: "E4"},
		},
	}

	if err := store.Save(ctx, app.RestoreSession("u1", state)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("relapitch:session:u1") {
		t.Fatalf("expected redis key to be set")
	}

	// A fresh store (new process) hydrates the full state from Redis,
	// including the tagged progress variant and the hidden quiz targets.
	fresh := NewSessionStore(client, time.Minute)
	session, err := fresh.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := session.State(); !reflect.DeepEqual(got, state) {
		t.Fatalf("state round trip mismatch:\n got %+v\nwant %+v", got, state)
	}
}

func TestSessionStoreCreatesOnCleanMiss(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := store.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if session.State().Score != 0 {
		t.Fatalf("expected empty session on miss")
	}
}
