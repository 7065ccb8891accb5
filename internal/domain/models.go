package domain

import "time"

// GameState is the lifecycle phase of a session.
type GameState string

const (
	StateLobby    GameState = "lobby"
	StateQuestion GameState = "question"
	StateResults  GameState = "results"
	StateFinished GameState = "finished"
)

// Question models an MCQ question with four options and one correct index.
// The engine trusts callers to supply well-formed questions; option count and
// index range are not validated here.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	ImageURL           string   `json:"imageUrl,omitempty"`
}

// Quiz is a stored set of questions a host can create a session from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Participant is a connection registered in a session, host included.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"nickname"`
	Score        int    `json:"score"`
	IsHost       bool   `json:"isHost"`
}

// Answer records a participant's first (and only) submission for one question.
type Answer struct {
	OptionIndex  int       `json:"optionIndex"`
	IsCorrect    bool      `json:"isCorrect"`
	AnsweredAt   time.Time `json:"answeredAt"`
	TimeElapsed  float64   `json:"timeElapsed"` // seconds since the question started
	PointsEarned int       `json:"pointsEarned"`
}

// PlayerScore is a leaderboard row.
type PlayerScore struct {
	DisplayName string `json:"nickname"`
	Score       int    `json:"score"`
}

// QuestionResults is the end-of-round summary broadcast to every participant.
type QuestionResults struct {
	CorrectAnswer  int           `json:"correctAnswer"`
	CorrectCount   int           `json:"correctCount"`
	IncorrectCount int           `json:"incorrectCount"`
	Leaderboard    []PlayerScore `json:"leaderboard"`
}
