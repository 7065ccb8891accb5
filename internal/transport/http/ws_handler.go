package http

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"

	"hitalk-quiz-service/internal/app"
	"hitalk-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createGamePayload struct {
	Title     string            `json:"title"`
	QuizID    string            `json:"quizId"`
	Questions []domain.Question `json:"questions"`
}

type joinGamePayload struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type gameRefPayload struct {
	GameID string `json:"gameId"`
}

type submitAnswerPayload struct {
	GameID      string `json:"gameId"`
	OptionIndex int    `json:"optionIndex"`
}

type gameCreatedPayload struct {
	GameID   string `json:"gameId"`
	RoomCode string `json:"roomCode"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and maps the message protocol
// onto game engine operations. Each connection gets a server-assigned ID that
// doubles as its participant identity for the lifetime of the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := newConnectionID()
	log.Printf("client connected: %s", connID)

	send := make(chan app.Event, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Set once the connection creates or joins a game.
	var (
		gameCode  string
		cancelSub func()
		pumpDone  chan struct{}
	)

	attach := func(code string) bool {
		updates, cancel, err := h.service.Subscribe(code, connID)
		if err != nil {
			return false
		}
		gameCode = code
		cancelSub = cancel
		pumpDone = make(chan struct{})
		go func() {
			defer close(pumpDone)
			for {
				select {
				case update, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- update:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return true
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "create:game":
			var payload createGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid create payload")
				continue
			}
			if gameCode != "" {
				send <- errorEvent("already in a game")
				continue
			}
			var session *app.Session
			if payload.QuizID != "" {
				session, err = h.service.CreateGameFromQuiz(r.Context(), connID, payload.QuizID)
			} else {
				session, err = h.service.CreateGame(r.Context(), connID, payload.Title, payload.Questions)
			}
			if err != nil {
				send <- errorEvent(userMessage(err, "Failed to create game"))
				continue
			}
			attach(session.Code())
			send <- app.Event{Type: "game:created", Payload: gameCreatedPayload{
				GameID:   session.Code(),
				RoomCode: session.Code(),
			}}
			log.Printf("game created: %s by %s", session.Code(), connID)

		case "join:game":
			var payload joinGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid join payload")
				continue
			}
			if gameCode != "" {
				send <- errorEvent("already in a game")
				continue
			}
			if _, err := h.service.Join(payload.RoomCode, connID, payload.Nickname); err != nil {
				send <- errorEvent(userMessage(err, "Failed to join game"))
				continue
			}
			attach(payload.RoomCode)
			// The join broadcast fired before this connection subscribed;
			// replay the current player list so the joiner sees themselves.
			if session, ok := h.service.GetGame(payload.RoomCode); ok {
				send <- app.Event{Type: app.EventPlayerJoined, Payload: app.PlayerListPayload{Players: session.Players()}}
			}
			log.Printf("player %s joined game %s", payload.Nickname, payload.RoomCode)

		case "start:game":
			var payload gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid start payload")
				continue
			}
			if _, err := h.service.Start(payload.GameID, connID); err != nil {
				send <- errorEvent(userMessage(err, "Cannot start game"))
				continue
			}
			log.Printf("game %s started", payload.GameID)

		case "next:question":
			var payload gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid next payload")
				continue
			}
			question, _, err := h.service.NextQuestion(payload.GameID, connID)
			if err != nil {
				send <- errorEvent(userMessage(err, "Failed to advance question"))
				continue
			}
			if question == nil {
				log.Printf("game %s finished", payload.GameID)
			}

		case "submit:answer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid answer payload")
				continue
			}
			if _, err := h.service.SubmitAnswer(payload.GameID, connID, payload.OptionIndex); err != nil {
				send <- errorEvent(userMessage(err, "Failed to submit answer"))
				continue
			}
			log.Printf("player %s answered in game %s", connID, payload.GameID)

		case "show:results":
			var payload gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorEvent("invalid results payload")
				continue
			}
			if _, err := h.service.ShowResults(payload.GameID, connID); err != nil {
				send <- errorEvent(userMessage(err, "Cannot show results"))
				continue
			}
			log.Printf("results shown for game %s", payload.GameID)

		default:
			send <- errorEvent("unsupported message type")
		}
	}

	log.Printf("client disconnected: %s", connID)
	if cancelSub != nil {
		cancelSub()
	}
	if gameCode != "" {
		h.service.Disconnect(connID)
	}

	close(closeSignals)
	if pumpDone != nil {
		<-pumpDone
	}
	close(send)
	<-writerDone
}

func errorEvent(message string) app.Event {
	return app.Event{Type: "error", Payload: errorPayload{Message: message}}
}

// userMessage translates engine sentinels into client-facing text; the core
// itself never produces user-visible strings.
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Game not found"
	case errors.Is(err, domain.ErrInvalidState):
		return "Game is not in the right state for that"
	case errors.Is(err, domain.ErrNotHost):
		return "Only the host can do that"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "Already answered this question"
	case errors.Is(err, domain.ErrNoQuestions):
		return "Cannot start a game with no questions"
	case errors.Is(err, domain.ErrQuizNotFound):
		return "Quiz not found"
	default:
		return fallback
	}
}

const connIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func newConnectionID() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = connIDCharset[rand.Intn(len(connIDCharset))]
	}
	return string(b)
}
