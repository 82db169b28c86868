package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeconnect/internal/app"
	"codeconnect/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizScoreFlow(t *testing.T) {
	conn := dialTestServer(t)

	_, payload := readNext(conn, t, "welcome")
	if payload["user"] == nil {
		t.Fatalf("expected user in welcome payload")
	}

	score := map[string]any{
		"type": "quizScore",
		"payload": map[string]any{
			"quizName": "Python Basics",
			"score":    85,
		},
	}
	if err := conn.WriteJSON(score); err != nil {
		t.Fatalf("write quizScore: %v", err)
	}

	// The ack and the broadcast activity event race; accept either order.
	recordedSeen := false
	activitySeen := false
	for i := 0; i < 3; i++ {
		typ, _ := readNext(conn, t, "")
		switch typ {
		case "scoreRecorded":
			recordedSeen = true
		case "activity":
			activitySeen = true
		}
		if recordedSeen && activitySeen {
			break
		}
	}
	if !recordedSeen || !activitySeen {
		t.Fatalf("expected scoreRecorded and activity, got scoreRecorded=%v activity=%v", recordedSeen, activitySeen)
	}
}

func TestWebSocketChatAutoReply(t *testing.T) {
	conn := dialTestServer(t)

	readNext(conn, t, "welcome")

	chat := map[string]any{
		"type": "chat",
		"payload": map[string]any{
			"toUserId": "u2",
			"message":  "hi",
		},
	}
	if err := conn.WriteJSON(chat); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	_, first := readNext(conn, t, "chat")
	if first["message"] != "hi" {
		t.Fatalf("expected own message echoed, got %+v", first)
	}
	_, second := readNext(conn, t, "chat")
	if second["fromUserId"] != "u2" {
		t.Fatalf("expected simulated reply from peer, got %+v", second)
	}
}

func TestWebSocketRejectsUnknownCommand(t *testing.T) {
	conn := dialTestServer(t)
	readNext(conn, t, "welcome")

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")
}

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	auth, err := app.NewAuthService(ctx, blobs)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	store, err := app.NewStoreService(ctx, blobs, auth, app.WithReplyDelay(30*time.Millisecond))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(store.Close)
	auth.OnLogout(store.CancelPendingReplies)

	wsHandler := NewWSHandler(auth, store)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws?name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
