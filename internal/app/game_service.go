package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"live-quiz-service/internal/domain"
)

const (
	podiumSize        = 3
	playerBoardSize   = 5
	pinClaimAttempts  = 5
	defaultSaveWindow = 10 * time.Second
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore persists final rankings.
type ResultStore interface {
	SaveResults(ctx context.Context, result domain.GameResult) error
}

// PinClaimer reserves PINs across server instances.
type PinClaimer interface {
	Claim(ctx context.Context, pin string) (bool, error)
	Release(ctx context.Context, pin string) error
}

// CreateGameResult is returned to the host after create.
type CreateGameResult struct {
	PIN            string `json:"pin"`
	TotalQuestions int    `json:"totalQuestions"`
	Reattached     bool   `json:"reattached"`
}

// GameService contains the live game use cases invoked by the transport.
type GameService struct {
	registry   *Registry
	supervisor *Supervisor
	quizzes    QuizRepository
	results    ResultStore
	rooms      Broadcaster
	pins       PinClaimer

	grace      time.Duration
	saveWindow time.Duration
	saves      sync.WaitGroup
}

// Option configures a GameService.
type Option func(*GameService)

// WithPinClaimer enables cross-instance PIN reservation.
func WithPinClaimer(pins PinClaimer) Option {
	return func(s *GameService) { s.pins = pins }
}

// WithHostGracePeriod sets how long a disconnected host may take to return.
func WithHostGracePeriod(d time.Duration) Option {
	return func(s *GameService) { s.grace = d }
}

func NewGameService(registry *Registry, quizzes QuizRepository, results ResultStore, rooms Broadcaster, opts ...Option) *GameService {
	s := &GameService{
		registry:   registry,
		quizzes:    quizzes,
		results:    results,
		rooms:      rooms,
		grace:      DefaultHostGracePeriod,
		saveWindow: defaultSaveWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.supervisor = NewSupervisor(registry, rooms, s.pins, s.grace)
	return s
}

// Supervisor exposes the disconnect supervisor, e.g. to run the idle reaper.
func (s *GameService) Supervisor() *Supervisor { return s.supervisor }

// CreateGame opens a lobby for quizID, or re-attaches a returning host.
func (s *GameService) CreateGame(ctx context.Context, connID, quizID, hostID string) (CreateGameResult, error) {
	// The snapshot is fetched before the session exists, so nothing can race with it.
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			log.Printf("create game: load quiz %s: %v", quizID, err)
		}
		return CreateGameResult{}, domain.ErrQuizNotFound
	}

	// A host whose game is over may open the next one on the same connection.
	if previous, ok := s.registry.SessionByConnection(connID); ok && previous.IsHost(connID) && previous.Phase() == domain.PhaseFinished {
		s.supervisor.teardown(ctx, previous, "The game is over.")
	}

	for attempt := 0; attempt < pinClaimAttempts; attempt++ {
		session, reattached, err := s.registry.CreateSession(quiz, hostID, connID)
		if err != nil {
			return CreateGameResult{}, err
		}
		pin := session.PIN()
		if reattached {
			log.Printf("session %s: host re-attached", pin)
			s.rooms.JoinRoom(pin, connID)
			s.rooms.ToRoom(pin, Event{Type: EventHostReconnected, Payload: NoticePayload{Message: "The host is back."}})
			return CreateGameResult{PIN: pin, TotalQuestions: session.TotalQuestions(), Reattached: true}, nil
		}
		if !s.claimPin(ctx, pin) {
			s.registry.removeSessionID(pin, session.ID())
			continue
		}
		s.rooms.JoinRoom(pin, connID)
		log.Printf("session %s: created for quiz %s", pin, quizID)
		return CreateGameResult{PIN: pin, TotalQuestions: session.TotalQuestions()}, nil
	}
	return CreateGameResult{}, errors.New("could not allocate a game pin")
}

func (s *GameService) claimPin(ctx context.Context, pin string) bool {
	if s.pins == nil {
		return true
	}
	ok, err := s.pins.Claim(ctx, pin)
	if err != nil {
		// Degrade to single-instance uniqueness rather than refusing to host.
		log.Printf("session %s: claim pin: %v", pin, err)
		return true
	}
	return ok
}

// StartGame moves the lobby to the first question.
func (s *GameService) StartGame(_ context.Context, connID, pin string) error {
	if _, err := s.authorizeHost(pin, connID); err != nil {
		return err
	}
	view, err := s.registry.StartGame(pin)
	if err != nil {
		return err
	}
	s.rooms.ToRoom(pin, Event{Type: EventGameStarted, Payload: GameStartedPayload{TotalQuestions: view.Total}})
	s.rooms.ToRoom(pin, Event{Type: EventQuestion, Payload: view})
	return nil
}

// NextQuestion advances to and opens the next question.
func (s *GameService) NextQuestion(_ context.Context, connID, pin string) error {
	if _, err := s.authorizeHost(pin, connID); err != nil {
		return err
	}
	view, err := s.registry.NextQuestion(pin)
	if err != nil {
		return err
	}
	s.rooms.ToRoom(pin, Event{Type: EventQuestion, Payload: view})
	return nil
}

// CurrentQuestion lets a client resync its question screen.
func (s *GameService) CurrentQuestion(_ context.Context, pin string) (QuestionView, error) {
	return s.registry.CurrentQuestion(pin)
}

// RevealAnswer closes the answer window and sends results to host and players.
func (s *GameService) RevealAnswer(_ context.Context, connID, pin string) error {
	if _, err := s.authorizeHost(pin, connID); err != nil {
		return err
	}
	res, err := s.registry.RevealAnswer(pin)
	if err != nil {
		return err
	}
	s.rooms.ToConnection(res.HostConnID, Event{Type: EventQuestionResults, Payload: HostResultsPayload{
		QuestionIndex: res.QuestionIndex,
		CorrectIndex:  res.CorrectIndex,
		AnswerCounts:  res.Tally.AnswerCounts,
		CorrectCount:  res.Tally.CorrectCount,
		TotalAnswers:  res.Tally.TotalAnswers,
		TotalPlayers:  len(res.Results),
		Results:       res.Results,
	}})
	for _, r := range res.Results {
		s.rooms.ToConnection(r.ConnID, Event{Type: EventQuestionResults, Payload: PlayerResultPayload{
			QuestionIndex: res.QuestionIndex,
			CorrectIndex:  res.CorrectIndex,
			IsCorrect:     r.IsCorrect,
			PointsEarned:  r.PointsEarned,
			TotalScore:    r.TotalScore,
			Streak:        r.Streak,
		}})
	}
	return nil
}

// ShowLeaderboard sends the full ranking to the host and a trimmed view to each player.
func (s *GameService) ShowLeaderboard(_ context.Context, connID, pin string) error {
	if _, err := s.authorizeHost(pin, connID); err != nil {
		return err
	}
	standings, err := s.registry.Leaderboard(pin)
	if err != nil {
		return err
	}
	s.rooms.ToConnection(standings.HostConnID, Event{Type: EventLeaderboard, Payload: HostLeaderboardPayload{Rankings: standings.Entries}})

	top := lo.Subset(standings.Entries, 0, playerBoardSize)
	for _, entry := range standings.Entries {
		own := entry
		s.rooms.ToConnection(standings.ConnByID[entry.PlayerID], Event{Type: EventLeaderboard, Payload: PlayerLeaderboardPayload{
			Top:   top,
			You:   &own,
			Total: len(standings.Entries),
		}})
	}
	return nil
}

// EndGame finishes the game, broadcasts the podium and persists the ranking in
// the background. Persistence failures are logged only.
func (s *GameService) EndGame(_ context.Context, connID, pin string) ([]domain.LeaderboardEntry, error) {
	if _, err := s.authorizeHost(pin, connID); err != nil {
		return nil, err
	}
	result, _, err := s.registry.FinishGame(pin)
	if err != nil {
		return nil, err
	}
	s.rooms.ToRoom(pin, Event{Type: EventGameFinished, Payload: GameFinishedPayload{
		Podium:     lo.Subset(result.Entries, 0, podiumSize),
		AllResults: result.Entries,
	}})
	s.persist(result)
	return result.Entries, nil
}

func (s *GameService) persist(result domain.GameResult) {
	if s.results == nil {
		return
	}
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.saveWindow)
		defer cancel()
		if err := s.results.SaveResults(ctx, result); err != nil {
			log.Printf("session %s: save results: %v", result.PIN, err)
			return
		}
		log.Printf("session %s: saved %d results", result.PIN, len(result.Entries))
	}()
}

// Join adds a player to the lobby of pin.
func (s *GameService) Join(_ context.Context, connID, pin, nickname string) (domain.Player, error) {
	player, count, err := s.registry.AddPlayer(pin, connID, nickname)
	if err != nil {
		return domain.Player{}, err
	}
	s.rooms.JoinRoom(pin, connID)
	s.rooms.ToRoom(pin, Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Player: player, PlayerCount: count}})
	return player, nil
}

// SubmitAnswer records the caller's answer and updates the host's answer counter.
func (s *GameService) SubmitAnswer(_ context.Context, connID, pin string, optionIndex int) (domain.Answer, error) {
	res, err := s.registry.SubmitAnswer(pin, connID, optionIndex)
	if err != nil {
		return domain.Answer{}, err
	}
	s.rooms.ToConnection(res.HostConnID, Event{Type: EventAnswerCount, Payload: AnswerCountPayload{
		Count: res.Answered,
		Total: res.Players,
	}})
	return res.Answer, nil
}

// Leave removes the caller from pin.
func (s *GameService) Leave(_ context.Context, connID, pin string) error {
	session, ok := s.registry.SessionByConnection(connID)
	if !ok || session.PIN() != pin || session.IsHost(connID) {
		return domain.ErrUnknownPlayer
	}
	if _, _, ok := s.supervisor.PlayerLeft(connID); !ok {
		return domain.ErrUnknownPlayer
	}
	return nil
}

// Disconnect is called by the transport when a connection drops.
func (s *GameService) Disconnect(ctx context.Context, connID string) {
	s.supervisor.Disconnect(ctx, connID)
}

// Wait blocks until background result writes have finished.
func (s *GameService) Wait() {
	s.saves.Wait()
}

func (s *GameService) authorizeHost(pin, connID string) (*Session, error) {
	session, ok := s.registry.SessionByPin(pin)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !session.IsHost(connID) {
		return nil, domain.ErrNotHost
	}
	return session, nil
}
