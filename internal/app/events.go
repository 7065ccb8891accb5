package app

import "hitalk-quiz-service/internal/domain"

// Event is a broadcast produced by the game engine. The transport layer only
// relays events; which audience receives what is decided here.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventPlayerJoined    = "player:joined"
	EventGameStarted     = "game:started"
	EventQuestionStarted = "question:started"
	EventAnswerSubmitted = "answer:submitted"
	EventQuestionResults = "results:question"
	EventGameFinished    = "game:finished"
)

// PlayerListPayload carries the refreshed participant list after a join or a
// lobby-phase disconnect.
type PlayerListPayload struct {
	Players []domain.Participant `json:"players"`
}

// GameStartedPayload announces the first question to the whole room.
type GameStartedPayload struct {
	CurrentQuestion domain.Question `json:"currentQuestion"`
	QuestionNumber  int             `json:"questionNumber"`
}

// QuestionStartedPayload announces a subsequent question with its 1-based ordinal.
type QuestionStartedPayload struct {
	Question       domain.Question `json:"question"`
	QuestionNumber int             `json:"questionNumber"`
	TotalQuestions int             `json:"totalQuestions"`
}

// AnswerSubmittedPayload tells the host that a participant answered, without
// revealing which option they picked.
type AnswerSubmittedPayload struct {
	PlayerID string `json:"playerId"`
}

// GameFinishedPayload carries the final leaderboard once questions are exhausted.
type GameFinishedPayload struct {
	FinalScores []domain.PlayerScore `json:"finalScores"`
}
