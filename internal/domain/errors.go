package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a PIN does not resolve to a live game.
	ErrSessionNotFound = errors.New("game not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrWrongPhase is returned when an operation is not allowed in the current phase.
	ErrWrongPhase = errors.New("operation not allowed in the current game phase")
	// ErrNotHost is returned when a host command comes from another connection.
	ErrNotHost           = errors.New("only the host can do that")
	ErrEmptyQuiz         = errors.New("quiz has no questions")
	ErrNoPlayers         = errors.New("at least one player is required to start")
	ErrNoMoreQuestions   = errors.New("no more questions")
	ErrInvalidNickname   = errors.New("nickname must be 1-20 characters")
	ErrDuplicateNickname = errors.New("nickname already taken")
	ErrAlreadyJoined     = errors.New("already joined this game")
	// ErrAlreadyInGame is returned when a connection that is hosting or playing
	// another game tries to create one.
	ErrAlreadyInGame = errors.New("connection is already in another game")
	// ErrUnknownPlayer is returned when a connection acts before joining.
	ErrUnknownPlayer   = errors.New("player not found in game")
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrResultsNotFound is returned when no finished game was stored for a PIN.
	ErrResultsNotFound = errors.New("no results for this game")
)
