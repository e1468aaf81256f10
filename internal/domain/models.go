package domain

import "time"

// Phase is the coarse lifecycle state of a live game.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseQuestion    Phase = "question"
	PhaseResults     Phase = "results"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseFinished    Phase = "finished"
)

const (
	DefaultQuestionType = "multiple_choice"
	DefaultTimeLimit    = 20   // seconds
	DefaultPoints       = 1000 // max points for an instant correct answer
)

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models a timed question with exactly one correct option.
type Question struct {
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	TimeLimit int      `json:"timeLimit"` // seconds, defaults to DefaultTimeLimit if zero
	Points    int      `json:"points"`    // defaults to DefaultPoints if zero
	Options   []Option `json:"options"`
}

// TimeLimitDuration returns the answer window of the question.
func (q Question) TimeLimitDuration() time.Duration {
	limit := q.TimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	return time.Duration(limit) * time.Second
}

// MaxPoints returns the points awarded for an instant correct answer.
func (q Question) MaxPoints() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// CorrectIndex returns the index of the correct option, or -1 if none is flagged.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// Quiz is the read-only snapshot a live game is created from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Clone deep-copies the quiz so a live game never shares option slices with a cache.
func (q Quiz) Clone() Quiz {
	out := Quiz{ID: q.ID, Title: q.Title, Questions: make([]Question, len(q.Questions))}
	for i, question := range q.Questions {
		question.Options = append([]Option(nil), question.Options...)
		if question.Type == "" {
			question.Type = DefaultQuestionType
		}
		out.Questions[i] = question
	}
	return out
}

// Player is one participant of a live game.
type Player struct {
	PlayerID      string    `json:"playerId"`
	Nickname      string    `json:"nickname"`
	Score         int       `json:"score"`
	CurrentStreak int       `json:"currentStreak"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// Answer is one submission for the current question.
type Answer struct {
	PlayerID          string    `json:"playerId"`
	OptionIndex       int       `json:"optionIndex"`
	SubmittedAt       time.Time `json:"submittedAt"`
	ResponseLatencyMs int64     `json:"responseLatencyMs"`
	IsCorrect         bool      `json:"isCorrect"`
	PointsEarned      int       `json:"pointsEarned"`
}

// LeaderboardEntry is a ranked snapshot of a player.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// GameResult is the final ranking handed to persistence when a game finishes.
type GameResult struct {
	SessionID  string             `json:"sessionId"`
	PIN        string             `json:"pin"`
	QuizID     string             `json:"quizId"`
	HostID     string             `json:"hostId"`
	FinishedAt time.Time          `json:"finishedAt"`
	Entries    []LeaderboardEntry `json:"entries"`
}
