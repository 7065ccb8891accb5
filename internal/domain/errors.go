package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a room code.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrInvalidState is returned when an operation is attempted in a state
	// that does not permit it (joining mid-question, advancing from lobby, ...).
	ErrInvalidState = errors.New("operation not allowed in current game state")
	// ErrNotHost is returned when a non-host requester attempts a host-only operation.
	ErrNotHost = errors.New("only the host may perform this operation")
	// ErrAlreadyAnswered is returned when a participant submits twice for the same question.
	ErrAlreadyAnswered = errors.New("answer already submitted for this question")
	// ErrNoQuestions is returned when a session with no questions is started.
	ErrNoQuestions = errors.New("game has no questions")
	// ErrParticipantNotFound is returned when a connection acts in a session it never joined.
	ErrParticipantNotFound = errors.New("participant not found in game")
	// ErrQuizNotFound indicates stored quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
