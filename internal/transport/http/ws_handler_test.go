package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hitalk-quiz-service/internal/app"
	"hitalk-quiz-service/internal/domain"
	"hitalk-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute)
	service := app.NewGameService(store, quizRepo)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func countPlayers(payload map[string]any) int {
	players, _ := payload["players"].([]any)
	return len(players)
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	player := dial(t, server)

	// Host creates a game with inline questions.
	writeMsg(t, host, "create:game", map[string]any{
		"title": "T",
		"questions": []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectOptionIndex: 1},
			{ID: "q2", Text: "Capital of France?", Options: []string{"Lyon", "Nice", "Paris", "Marseille"}, CorrectOptionIndex: 2},
		},
	})
	created := readNext(host, t, "game:created")
	roomCode, _ := created["roomCode"].(string)
	if roomCode == "" {
		t.Fatalf("expected room code in %v", created)
	}

	// Player joins; both sides see a refreshed player list.
	writeMsg(t, player, "join:game", map[string]any{"roomCode": roomCode, "nickname": "Alice"})
	hostList := readNext(host, t, "player:joined")
	playerList := readNext(player, t, "player:joined")
	if countPlayers(hostList) != 2 || countPlayers(playerList) != 2 {
		t.Fatalf("expected 2 participants, host=%v player=%v", hostList, playerList)
	}

	// Host starts; everyone gets the first question.
	writeMsg(t, host, "start:game", map[string]any{"gameId": roomCode})
	readNext(host, t, "game:started")
	started := readNext(player, t, "game:started")
	if num, _ := started["questionNumber"].(float64); num != 1 {
		t.Fatalf("expected question number 1, got %v", started)
	}

	// Player answers; only the host is notified.
	writeMsg(t, player, "submit:answer", map[string]any{"gameId": roomCode, "optionIndex": 1})
	readNext(host, t, "answer:submitted")

	// Results go to the whole room.
	writeMsg(t, host, "show:results", map[string]any{"gameId": roomCode})
	readNext(host, t, "results:question")
	results := readNext(player, t, "results:question")
	if correct, _ := results["correctCount"].(float64); correct != 1 {
		t.Fatalf("expected one correct answer, got %v", results)
	}

	// Advance to the second question, then past the end.
	writeMsg(t, host, "next:question", map[string]any{"gameId": roomCode})
	readNext(host, t, "question:started")
	next := readNext(player, t, "question:started")
	if total, _ := next["totalQuestions"].(float64); total != 2 {
		t.Fatalf("expected totalQuestions 2, got %v", next)
	}

	writeMsg(t, host, "show:results", map[string]any{"gameId": roomCode})
	readNext(host, t, "results:question")
	readNext(player, t, "results:question")

	writeMsg(t, host, "next:question", map[string]any{"gameId": roomCode})
	readNext(host, t, "game:finished")
	finished := readNext(player, t, "game:finished")
	if _, ok := finished["finalScores"]; !ok {
		t.Fatalf("expected final scores, got %v", finished)
	}
}

func TestWebSocketRejectsNonHostStart(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	player := dial(t, server)

	writeMsg(t, host, "create:game", map[string]any{
		"title": "T",
		"questions": []domain.Question{
			{ID: "q1", Text: "Q", Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: 0},
		},
	})
	created := readNext(host, t, "game:created")
	roomCode, _ := created["roomCode"].(string)

	writeMsg(t, player, "join:game", map[string]any{"roomCode": roomCode, "nickname": "Mallory"})
	readNext(player, t, "player:joined")

	writeMsg(t, player, "start:game", map[string]any{"gameId": roomCode})
	errMsg := readNext(player, t, "error")
	if errMsg["message"] == "" {
		t.Fatalf("expected error message, got %v", errMsg)
	}
}

func TestWebSocketUnknownRoom(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server)
	writeMsg(t, conn, "join:game", map[string]any{"roomCode": "999999", "nickname": "Alice"})
	readNext(conn, t, "error")
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
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
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Payload
}
