package app

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

const maxNicknameLength = 20

// Session is the authoritative in-memory state of one live game.
// All fields are guarded by mu. Lock order is Registry.mu before Session.mu.
type Session struct {
	mu sync.Mutex

	id         string
	pin        string
	quizID     string
	hostID     string
	hostConnID string
	createdAt  time.Time
	lastActive time.Time
	now        func() time.Time

	phase             domain.Phase
	cursor            int
	questionStartedAt time.Time
	questions         []domain.Question

	players map[string]*domain.Player // keyed by connection id
	order   []string                  // connection ids in join order
	answers map[string]domain.Answer  // keyed by connection id, current question only

	hostTimer *time.Timer
}

// QuestionView is the player-safe projection of a question. It never carries
// correctness flags.
type QuestionView struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Points    int      `json:"points"`
}

// SubmitResult is returned to the caller of SubmitAnswer.
type SubmitResult struct {
	Answer     domain.Answer
	TotalScore int
	Answered   int
	Players    int
	HostConnID string
}

// PlayerResult is one player's outcome for the revealed question.
type PlayerResult struct {
	ConnID       string `json:"-"`
	PlayerID     string `json:"playerId"`
	Nickname     string `json:"nickname"`
	Answered     bool   `json:"answered"`
	OptionIndex  int    `json:"optionIndex"`
	IsCorrect    bool   `json:"isCorrect"`
	PointsEarned int    `json:"pointsEarned"`
	TotalScore   int    `json:"totalScore"`
	Streak       int    `json:"streak"`
}

// RevealResult is the outcome of closing an answer window.
type RevealResult struct {
	QuestionIndex int
	CorrectIndex  int
	Tally         scoring.TallyResult
	Results       []PlayerResult
	HostConnID    string
}

// Standings is a ranking plus the routing needed to address each player.
type Standings struct {
	Entries    []domain.LeaderboardEntry
	ConnByID   map[string]string // playerID -> connection id
	HostConnID string
}

func newSession(pin, quizID, hostID, hostConnID string, questions []domain.Question, now func() time.Time) *Session {
	ts := now()
	return &Session{
		id:         uuid.NewString(),
		pin:        pin,
		quizID:     quizID,
		hostID:     hostID,
		hostConnID: hostConnID,
		createdAt:  ts,
		lastActive: ts,
		now:        now,
		phase:      domain.PhaseLobby,
		cursor:     -1,
		questions:  questions,
		players:    make(map[string]*domain.Player),
		answers:    make(map[string]domain.Answer),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) PIN() string    { return s.pin }
func (s *Session) QuizID() string { return s.quizID }
func (s *Session) HostID() string { return s.hostID }

// TotalQuestions is fixed at creation.
func (s *Session) TotalQuestions() int { return len(s.questions) }

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) HostConnection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostConnID
}

// IsHost reports whether connID currently holds host authority.
func (s *Session) IsHost(connID string) bool {
	return connID != "" && s.HostConnection() == connID
}

func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Players returns copies of the roster in join order.
func (s *Session) Players() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// connections lists every connection routed to this session.
func (s *Session) connections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := append([]string{s.hostConnID}, s.order...)
	return conns
}

func (s *Session) reattachHost(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseLobby {
		return "", false
	}
	previous := s.hostConnID
	s.hostConnID = connID
	s.lastActive = s.now()
	s.stopHostTimerLocked()
	return previous, true
}

func (s *Session) addPlayer(connID, nickname string) (domain.Player, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return domain.Player{}, 0, domain.ErrWrongPhase
	}
	for _, p := range s.players {
		if strings.EqualFold(p.Nickname, nickname) {
			return domain.Player{}, 0, domain.ErrDuplicateNickname
		}
	}
	if _, ok := s.players[connID]; ok || connID == s.hostConnID {
		return domain.Player{}, 0, domain.ErrAlreadyJoined
	}

	now := s.now()
	player := &domain.Player{
		PlayerID: uuid.NewString(),
		Nickname: nickname,
		JoinedAt: now,
	}
	s.players[connID] = player
	s.order = append(s.order, connID)
	s.lastActive = now
	return *player, len(s.players), nil
}

func (s *Session) removePlayer(connID string) (domain.Player, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[connID]
	if !ok {
		return domain.Player{}, len(s.players), false
	}
	delete(s.players, connID)
	delete(s.answers, connID)
	s.order = lo.Without(s.order, connID)
	s.lastActive = s.now()
	return *player, len(s.players), true
}

func (s *Session) start() (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return QuestionView{}, domain.ErrWrongPhase
	}
	if len(s.players) == 0 {
		return QuestionView{}, domain.ErrNoPlayers
	}
	if len(s.questions) == 0 {
		return QuestionView{}, domain.ErrNoMoreQuestions
	}
	s.cursor = 0
	s.phase = domain.PhaseQuestion
	s.openWindowLocked()
	return s.viewLocked(), nil
}

func (s *Session) next() (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseResults && s.phase != domain.PhaseLeaderboard {
		return QuestionView{}, domain.ErrWrongPhase
	}
	if s.cursor+1 >= len(s.questions) {
		return QuestionView{}, domain.ErrNoMoreQuestions
	}
	s.cursor++
	s.phase = domain.PhaseQuestion
	s.openWindowLocked()
	return s.viewLocked(), nil
}

// current is a pure read; the answer window is only opened by start and next.
func (s *Session) current() (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 || s.phase == domain.PhaseFinished {
		return QuestionView{}, domain.ErrWrongPhase
	}
	return s.viewLocked(), nil
}

func (s *Session) submit(connID string, optionIndex int) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return SubmitResult{}, domain.ErrWrongPhase
	}
	player, ok := s.players[connID]
	if !ok {
		return SubmitResult{}, domain.ErrUnknownPlayer
	}
	if _, answered := s.answers[connID]; answered {
		return SubmitResult{}, domain.ErrAlreadyAnswered
	}

	question := s.questions[s.cursor]
	submittedAt := s.now()
	limitMs := question.TimeLimitDuration().Milliseconds()
	latency := scoring.ClampLatency(submittedAt.Sub(s.questionStartedAt).Milliseconds(), limitMs)
	correct := optionIndex == question.CorrectIndex() && optionIndex >= 0
	points := scoring.Score(correct, latency, limitMs, question.MaxPoints())

	answer := domain.Answer{
		PlayerID:          player.PlayerID,
		OptionIndex:       optionIndex,
		SubmittedAt:       submittedAt,
		ResponseLatencyMs: latency,
		IsCorrect:         correct,
		PointsEarned:      points,
	}
	s.answers[connID] = answer

	player.Score += points
	if correct {
		player.CurrentStreak++
	} else {
		player.CurrentStreak = 0
	}
	s.lastActive = submittedAt

	return SubmitResult{
		Answer:     answer,
		TotalScore: player.Score,
		Answered:   len(s.answers),
		Players:    len(s.players),
		HostConnID: s.hostConnID,
	}, nil
}

func (s *Session) reveal() (RevealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return RevealResult{}, domain.ErrWrongPhase
	}
	question := s.questions[s.cursor]
	correctIndex := question.CorrectIndex()

	answers := make([]domain.Answer, 0, len(s.answers))
	results := make([]PlayerResult, 0, len(s.order))
	for _, connID := range s.order {
		player := s.players[connID]
		answer, answered := s.answers[connID]
		if !answered {
			player.CurrentStreak = 0
			results = append(results, PlayerResult{
				ConnID:      connID,
				PlayerID:    player.PlayerID,
				Nickname:    player.Nickname,
				OptionIndex: -1,
				TotalScore:  player.Score,
			})
			continue
		}
		answers = append(answers, answer)
		results = append(results, PlayerResult{
			ConnID:       connID,
			PlayerID:     player.PlayerID,
			Nickname:     player.Nickname,
			Answered:     true,
			OptionIndex:  answer.OptionIndex,
			IsCorrect:    answer.IsCorrect,
			PointsEarned: answer.PointsEarned,
			TotalScore:   player.Score,
			Streak:       player.CurrentStreak,
		})
	}

	s.phase = domain.PhaseResults
	s.lastActive = s.now()
	return RevealResult{
		QuestionIndex: s.cursor,
		CorrectIndex:  correctIndex,
		Tally:         scoring.Tally(answers, len(question.Options), correctIndex),
		Results:       results,
		HostConnID:    s.hostConnID,
	}, nil
}

func (s *Session) leaderboard() (Standings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseResults && s.phase != domain.PhaseLeaderboard {
		return Standings{}, domain.ErrWrongPhase
	}
	s.phase = domain.PhaseLeaderboard
	s.lastActive = s.now()
	return s.standingsLocked(), nil
}

func (s *Session) finish() (domain.GameResult, Standings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseQuestion, domain.PhaseResults, domain.PhaseLeaderboard:
	default:
		return domain.GameResult{}, Standings{}, domain.ErrWrongPhase
	}
	s.phase = domain.PhaseFinished
	now := s.now()
	s.lastActive = now
	standings := s.standingsLocked()
	return domain.GameResult{
		SessionID:  s.id,
		PIN:        s.pin,
		QuizID:     s.quizID,
		HostID:     s.hostID,
		FinishedAt: now,
		Entries:    standings.Entries,
	}, standings, nil
}

func (s *Session) scheduleHostTimeout(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopHostTimerLocked()
	s.hostTimer = time.AfterFunc(d, fn)
}

func (s *Session) stopHostTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopHostTimerLocked()
}

func (s *Session) stopHostTimerLocked() {
	if s.hostTimer != nil {
		s.hostTimer.Stop()
		s.hostTimer = nil
	}
}

func (s *Session) openWindowLocked() {
	s.questionStartedAt = s.now()
	s.answers = make(map[string]domain.Answer)
	s.lastActive = s.questionStartedAt
}

func (s *Session) viewLocked() QuestionView {
	q := s.questions[s.cursor]
	return QuestionView{
		Index: s.cursor,
		Total: len(s.questions),
		Text:  q.Text,
		Type:  q.Type,
		Options: lo.Map(q.Options, func(opt domain.Option, _ int) string {
			return opt.Text
		}),
		TimeLimit: int(q.TimeLimitDuration() / time.Second),
		Points:    q.MaxPoints(),
	}
}

func (s *Session) rosterLocked() []domain.Player {
	return lo.Map(s.order, func(connID string, _ int) domain.Player {
		return *s.players[connID]
	})
}

func (s *Session) standingsLocked() Standings {
	conns := make(map[string]string, len(s.players))
	for connID, p := range s.players {
		conns[p.PlayerID] = connID
	}
	return Standings{
		Entries:    scoring.Rank(s.rosterLocked()),
		ConnByID:   conns,
		HostConnID: s.hostConnID,
	}
}

func validNickname(nickname string) bool {
	n := utf8.RuneCountInString(nickname)
	return n >= 1 && n <= maxNicknameLength
}
