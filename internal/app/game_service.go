package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"hitalk-quiz-service/internal/domain"
)

// SessionStore abstracts how the registry's sessions are kept (in-memory, Redis-marked, etc).
type SessionStore interface {
	// Insert stores a session under its room code, reporting false on collision.
	Insert(code string, session *Session) bool
	Get(code string) (*Session, bool)
	Delete(code string)
	// Find returns the first session matching the predicate.
	Find(match func(*Session) bool) (*Session, bool)
}

// QuizRepository loads stored quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

const roomCodeAttempts = 10

// GameService is the session registry plus the host-authorization boundary in
// front of the per-session engine.
type GameService struct {
	sessions SessionStore
	quizzes  QuizRepository
	now      func() time.Time
}

func NewGameService(store SessionStore, quizzes QuizRepository) *GameService {
	return NewGameServiceWithClock(store, quizzes, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic scoring timestamps.
func NewGameServiceWithClock(store SessionStore, quizzes QuizRepository, now func() time.Time) *GameService {
	return &GameService{sessions: store, quizzes: quizzes, now: now}
}

// CreateGame allocates a room code and registers a new lobby session with the
// creator as its host participant.
func (g *GameService) CreateGame(_ context.Context, hostConnectionID, title string, questions []domain.Question) (*Session, error) {
	for i := 0; i < roomCodeAttempts; i++ {
		code := generateRoomCode()
		session := newSessionWithClock(code, hostConnectionID, title, questions, g.now)
		if g.sessions.Insert(code, session) {
			return session, nil
		}
	}
	return nil, fmt.Errorf("could not allocate an unused room code after %d attempts", roomCodeAttempts)
}

// CreateGameFromQuiz creates a session from quiz content stored in the question bank.
func (g *GameService) CreateGameFromQuiz(ctx context.Context, hostConnectionID, quizID string) (*Session, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return g.CreateGame(ctx, hostConnectionID, quiz.Title, quiz.Questions)
}

// generateRoomCode draws a 6-digit numeric code uniformly from [100000, 999999].
func generateRoomCode() string {
	return fmt.Sprintf("%d", 100000+rand.Intn(900000))
}

// GetGame looks up a session by room code; absent is not an error.
func (g *GameService) GetGame(code string) (*Session, bool) {
	return g.sessions.Get(code)
}

// Join adds a participant to a lobby session.
func (g *GameService) Join(code, connectionID, nickname string) (*domain.Participant, error) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Join(connectionID, nickname)
}

// Start begins the game; host only.
func (g *GameService) Start(code, requesterID string) (*domain.Question, error) {
	session, err := g.hostSession(code, requesterID)
	if err != nil {
		return nil, err
	}
	return session.Start()
}

// NextQuestion advances past a results phase; host only. When the question
// list is exhausted it returns the final scores instead of a question.
func (g *GameService) NextQuestion(code, requesterID string) (*domain.Question, []domain.PlayerScore, error) {
	session, err := g.hostSession(code, requesterID)
	if err != nil {
		return nil, nil, err
	}
	question, err := session.NextQuestion()
	if err != nil {
		return nil, nil, err
	}
	if question == nil {
		return nil, session.FinalScores(), nil
	}
	return question, nil, nil
}

// SubmitAnswer records a participant's answer for the active question.
func (g *GameService) SubmitAnswer(code, connectionID string, optionIndex int) (*domain.Answer, error) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(connectionID, optionIndex)
}

// ShowResults reveals the current question's results; host only.
func (g *GameService) ShowResults(code, requesterID string) (*domain.QuestionResults, error) {
	session, err := g.hostSession(code, requesterID)
	if err != nil {
		return nil, err
	}
	return session.ShowResults()
}

// FinalScores returns the leaderboard for a session in any state.
func (g *GameService) FinalScores(code string) ([]domain.PlayerScore, error) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.FinalScores(), nil
}

// Subscribe attaches an event channel for one connection in a session.
func (g *GameService) Subscribe(code, connectionID string) (<-chan Event, func(), error) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe(connectionID)
	return ch, cancel, nil
}

// Disconnect handles a dropped connection: the participant is removed from
// whichever session they were in, and the session itself is deleted when the
// host left or nobody remains.
func (g *GameService) Disconnect(connectionID string) {
	session, ok := g.sessions.Find(func(s *Session) bool {
		return s.HasParticipant(connectionID)
	})
	if !ok {
		return
	}

	wasHost, empty := session.RemoveParticipant(connectionID)
	if wasHost || empty {
		g.sessions.Delete(session.Code())
		session.Close()
	}
}

func (g *GameService) hostSession(code, requesterID string) (*Session, error) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.HostID() != requesterID {
		return nil, domain.ErrNotHost
	}
	return session, nil
}
