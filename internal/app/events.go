package app

import (
	"encoding/json"

	"live-quiz-service/internal/domain"
)

// Outbound event types.
const (
	EventGameStarted      = "game:started"
	EventQuestion         = "game:question"
	EventAnswerCount      = "game:answer-count"
	EventQuestionResults  = "game:question-results"
	EventLeaderboard      = "game:leaderboard"
	EventGameFinished     = "game:finished"
	EventHostDisconnected = "game:host-disconnected"
	EventHostReconnected  = "game:host-reconnected"
	EventGameEnded        = "game:ended"
	EventPlayerJoined     = "player:joined"
	EventPlayerLeft       = "player:left"
)

// EventAck answers a client command; ID echoes the id the client sent.
const EventAck = "ack"

// Event is one notification pushed to a room or a single connection.
type Event struct {
	Type    string          `json:"type"`
	ID      json.RawMessage `json:"id,omitempty"`
	Payload any             `json:"payload"`
}

// Broadcaster delivers events to rooms keyed by PIN. Implementations may fan
// out across processes; membership is always local to the accepting process.
type Broadcaster interface {
	JoinRoom(pin, connID string)
	LeaveRoom(pin, connID string)
	CloseRoom(pin string)
	ToRoom(pin string, event Event)
	ToConnection(connID string, event Event)
}

type GameStartedPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type AnswerCountPayload struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// HostResultsPayload is the aggregate view of a revealed question.
type HostResultsPayload struct {
	QuestionIndex int            `json:"questionIndex"`
	CorrectIndex  int            `json:"correctIndex"`
	AnswerCounts  []int          `json:"answerCounts"`
	CorrectCount  int            `json:"correctCount"`
	TotalAnswers  int            `json:"totalAnswers"`
	TotalPlayers  int            `json:"totalPlayers"`
	Results       []PlayerResult `json:"results"`
}

// PlayerResultPayload is what one player learns when a question is revealed.
type PlayerResultPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	CorrectIndex  int  `json:"correctIndex"`
	IsCorrect     bool `json:"isCorrect"`
	PointsEarned  int  `json:"pointsEarned"`
	TotalScore    int  `json:"totalScore"`
	Streak        int  `json:"streak"`
}

type HostLeaderboardPayload struct {
	Rankings []domain.LeaderboardEntry `json:"rankings"`
}

// PlayerLeaderboardPayload carries the top of the board plus the player's own row.
type PlayerLeaderboardPayload struct {
	Top   []domain.LeaderboardEntry `json:"top"`
	You   *domain.LeaderboardEntry  `json:"you,omitempty"`
	Total int                       `json:"total"`
}

type GameFinishedPayload struct {
	Podium     []domain.LeaderboardEntry `json:"podium"`
	AllResults []domain.LeaderboardEntry `json:"allResults"`
}

type PlayerJoinedPayload struct {
	Player      domain.Player `json:"player"`
	PlayerCount int           `json:"playerCount"`
}

type PlayerLeftPayload struct {
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

type NoticePayload struct {
	Message string `json:"message"`
}
