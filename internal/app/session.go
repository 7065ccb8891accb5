package app

import (
	"math"
	"sort"
	"sync"
	"time"

	"hitalk-quiz-service/internal/domain"
)

// Session is one live quiz game from lobby through finished. All mutable game
// state lives here; every mutation goes through a method holding the mutex, so
// each operation is atomic from the caller's perspective.
type Session struct {
	code      string
	hostID    string
	title     string
	questions []domain.Question
	createdAt time.Time
	now       func() time.Time

	mu                sync.RWMutex
	state             domain.GameState
	currentIndex      int
	questionStartedAt time.Time
	participants      map[string]*domain.Participant
	joinOrder         []string
	answers           map[string]*domain.Answer
	subscribers       map[string]chan Event
}

// NewSession is exported for stores that need to seed sessions.
func NewSession(code, hostID, title string, questions []domain.Question) *Session {
	return newSessionWithClock(code, hostID, title, questions, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(code, hostID, title string, questions []domain.Question, now func() time.Time) *Session {
	return newSessionWithClock(code, hostID, title, questions, now)
}

func newSessionWithClock(code, hostID, title string, questions []domain.Question, now func() time.Time) *Session {
	s := &Session{
		code:         code,
		hostID:       hostID,
		title:        title,
		questions:    questions,
		createdAt:    now(),
		now:          now,
		state:        domain.StateLobby,
		currentIndex: -1,
		participants: make(map[string]*domain.Participant),
		answers:      make(map[string]*domain.Answer),
		subscribers:  make(map[string]chan Event),
	}
	s.addParticipantLocked(hostID, "Host", true)
	return s
}

func (s *Session) Code() string   { return s.code }
func (s *Session) HostID() string { return s.hostID }
func (s *Session) Title() string  { return s.title }

// State returns the current lifecycle phase.
func (s *Session) State() domain.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentQuestionIndex is -1 before the game starts.
func (s *Session) CurrentQuestionIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// QuestionCount reports how many questions the game was created with.
func (s *Session) QuestionCount() int { return len(s.questions) }

// Join registers a new participant while the game is still in the lobby and
// broadcasts the refreshed player list to the room.
func (s *Session) Join(connectionID, nickname string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return nil, domain.ErrInvalidState
	}

	p := s.addParticipantLocked(connectionID, nickname, false)
	s.emitLocked(nil, Event{Type: EventPlayerJoined, Payload: PlayerListPayload{Players: s.playersLocked()}})
	out := *p
	return &out, nil
}

func (s *Session) addParticipantLocked(connectionID, nickname string, isHost bool) *domain.Participant {
	if existing, ok := s.participants[connectionID]; ok {
		return existing
	}
	p := &domain.Participant{
		ConnectionID: connectionID,
		DisplayName:  nickname,
		Score:        0,
		IsHost:       isHost,
	}
	s.participants[connectionID] = p
	s.joinOrder = append(s.joinOrder, connectionID)
	return p
}

// Start moves lobby -> question and activates the first question.
func (s *Session) Start() (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return nil, domain.ErrInvalidState
	}
	if len(s.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	s.state = domain.StateQuestion
	s.currentIndex = 0
	s.questionStartedAt = s.now()
	s.answers = make(map[string]*domain.Answer)

	q := s.questions[0]
	s.emitLocked(nil, Event{Type: EventGameStarted, Payload: GameStartedPayload{
		CurrentQuestion: q,
		QuestionNumber:  1,
	}})
	return &q, nil
}

// SubmitAnswer records a participant's first submission for the active
// question and credits time-weighted points. Repeat submissions are rejected.
func (s *Session) SubmitAnswer(connectionID string, optionIndex int) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateQuestion || s.questionStartedAt.IsZero() {
		return nil, domain.ErrInvalidState
	}
	participant, ok := s.participants[connectionID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	if _, answered := s.answers[connectionID]; answered {
		return nil, domain.ErrAlreadyAnswered
	}

	question := s.questions[s.currentIndex]
	answeredAt := s.now()
	elapsed := answeredAt.Sub(s.questionStartedAt).Seconds()
	correct := optionIndex == question.CorrectOptionIndex

	points := 0
	if correct {
		points = scorePoints(elapsed)
	}

	answer := &domain.Answer{
		OptionIndex:  optionIndex,
		IsCorrect:    correct,
		AnsweredAt:   answeredAt,
		TimeElapsed:  elapsed,
		PointsEarned: points,
	}
	s.answers[connectionID] = answer
	participant.Score += points

	s.emitLocked([]string{s.hostID}, Event{Type: EventAnswerSubmitted, Payload: AnswerSubmittedPayload{
		PlayerID: connectionID,
	}})
	out := *answer
	return &out, nil
}

// scorePoints awards a full 1000 for an instant answer, decaying 10 points per
// second down to a 500 floor.
func scorePoints(elapsedSeconds float64) int {
	points := 1000 - int(math.Floor(elapsedSeconds*10))
	if points < 500 {
		points = 500
	}
	return points
}

// ShowResults moves question -> results, tallies the round, and broadcasts the
// summary to the whole room. No answers are accepted once this returns.
func (s *Session) ShowResults() (*domain.QuestionResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateQuestion {
		return nil, domain.ErrInvalidState
	}

	s.state = domain.StateResults

	correctCount, incorrectCount := 0, 0
	for _, answer := range s.answers {
		if answer.IsCorrect {
			correctCount++
		} else {
			incorrectCount++
		}
	}

	results := &domain.QuestionResults{
		CorrectAnswer:  s.questions[s.currentIndex].CorrectOptionIndex,
		CorrectCount:   correctCount,
		IncorrectCount: incorrectCount,
		Leaderboard:    s.leaderboardLocked(),
	}
	s.emitLocked(nil, Event{Type: EventQuestionResults, Payload: *results})
	return results, nil
}

// NextQuestion moves results -> question, or results -> finished when the
// question list is exhausted. A nil question with a nil error means finished;
// the final scores are broadcast in that case.
func (s *Session) NextQuestion() (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateResults {
		return nil, domain.ErrInvalidState
	}

	s.currentIndex++
	if s.currentIndex >= len(s.questions) {
		s.state = domain.StateFinished
		s.emitLocked(nil, Event{Type: EventGameFinished, Payload: GameFinishedPayload{
			FinalScores: s.leaderboardLocked(),
		}})
		return nil, nil
	}

	s.state = domain.StateQuestion
	s.questionStartedAt = s.now()
	s.answers = make(map[string]*domain.Answer)

	q := s.questions[s.currentIndex]
	s.emitLocked(nil, Event{Type: EventQuestionStarted, Payload: QuestionStartedPayload{
		Question:       q,
		QuestionNumber: s.currentIndex + 1,
		TotalQuestions: len(s.questions),
	}})
	return &q, nil
}

// FinalScores returns the leaderboard projection. It is not gated by state and
// is typically read after the game finishes.
func (s *Session) FinalScores() []domain.PlayerScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

// Players lists every participant, host included, in join order.
func (s *Session) Players() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playersLocked()
}

// HasParticipant reports whether a connection belongs to this session.
func (s *Session) HasParticipant(connectionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[connectionID]
	return ok
}

// RemoveParticipant drops a participant and any answer they had pending this
// round. It reports whether the host left and whether the session is now
// empty; the registry uses those to decide on deleting the whole session.
// While still in the lobby the refreshed player list is re-broadcast.
func (s *Session) RemoveParticipant(connectionID string) (wasHost, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[connectionID]
	if !ok {
		return false, len(s.participants) == 0
	}
	wasHost = participant.IsHost

	delete(s.participants, connectionID)
	delete(s.answers, connectionID)
	for i, id := range s.joinOrder {
		if id == connectionID {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}

	if s.state == domain.StateLobby {
		s.emitLocked(nil, Event{Type: EventPlayerJoined, Payload: PlayerListPayload{Players: s.playersLocked()}})
	}
	return wasHost, len(s.participants) == 0
}

// Subscribe registers an event channel for one connection. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe(connectionID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[connectionID] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[connectionID]; ok && existing == ch {
			delete(s.subscribers, connectionID)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close tears down every subscription; used when the registry deletes the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

// emitLocked fans an event out to subscribers. A nil audience means everyone;
// otherwise only the listed connection IDs receive it. Dropping the oldest
// buffered event keeps a slow client from blocking the round.
func (s *Session) emitLocked(audience []string, event Event) {
	deliver := func(ch chan Event) {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}

	if audience == nil {
		for _, ch := range s.subscribers {
			deliver(ch)
		}
		return
	}
	for _, id := range audience {
		if ch, ok := s.subscribers[id]; ok {
			deliver(ch)
		}
	}
}

func (s *Session) playersLocked() []domain.Participant {
	players := make([]domain.Participant, 0, len(s.participants))
	for _, id := range s.joinOrder {
		if p, ok := s.participants[id]; ok {
			players = append(players, *p)
		}
	}
	return players
}

// leaderboardLocked projects non-host participants sorted by score descending.
// The stable sort over join order keeps ties in the order players arrived.
func (s *Session) leaderboardLocked() []domain.PlayerScore {
	entries := make([]domain.PlayerScore, 0, len(s.participants))
	for _, id := range s.joinOrder {
		p, ok := s.participants[id]
		if !ok || p.IsHost {
			continue
		}
		entries = append(entries, domain.PlayerScore{DisplayName: p.DisplayName, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
