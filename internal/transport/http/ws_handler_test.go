package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"relapitch/internal/domain"
)

func TestProgressFeedPushesUpdates(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives immediately.
	initial := readProgress(t, conn)
	if initial.TotalScore != 0 {
		t.Fatalf("expected zero initial score, got %+v", initial)
	}

	// An award on the same session is pushed to the open feed.
	postJSON(t, server.URL+"/log_progress?userId=u1", map[string]any{
		"itemId":   "lesson_1_playC",
		"points":   5,
		"itemType": "lesson_interaction",
	}, nil)

	update := readProgress(t, conn)
	if update.TotalScore != 5 {
		t.Fatalf("expected pushed score 5, got %+v", update)
	}
}

func TestProgressFeedRequiresUser(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", resp.StatusCode)
	}
}

func readProgress(t *testing.T, conn *websocket.Conn) domain.ProgressSnapshot {
	t.Helper()
	var msg outboundMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "progress" {
		t.Fatalf("expected progress message, got %s", msg.Type)
	}
	return msg.Payload
}
