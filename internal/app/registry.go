package app

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

const defaultPinLength = 6

// Registry owns every live session of this process together with the
// connection routing tables used to resolve who sent a message.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session // pin -> session
	byHost      map[string]string   // quizID + hostID -> pin
	connSession map[string]string   // connection id -> pin
	connPlayer  map[string]string   // connection id -> player id

	now       func() time.Time
	pinLength int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithPinLength sets the number of digits of generated PINs.
func WithPinLength(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.pinLength = n
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:    make(map[string]*Session),
		byHost:      make(map[string]string),
		connSession: make(map[string]string),
		connPlayer:  make(map[string]string),
		now:         time.Now,
		pinLength:   defaultPinLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSession starts a lobby for quiz hosted by hostID. If the same host
// already has this quiz open in lobby, the connection is re-attached as host
// and reattached is true. A connection already routed to another session gets
// ErrAlreadyInGame.
func (r *Registry) CreateSession(quiz domain.Quiz, hostID, hostConnID string) (session *Session, reattached bool, err error) {
	if quiz.ID == "" {
		return nil, false, domain.ErrQuizNotFound
	}
	if len(quiz.Questions) == 0 {
		return nil, false, domain.ErrEmptyQuiz
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A connection belongs to at most one session. Only the lobby it already
	// hosts for this quiz may take it back.
	key := hostKey(quiz.ID, hostID)
	routed, isRouted := r.connSession[hostConnID]
	_, isPlayer := r.connPlayer[hostConnID]
	if isPlayer || (isRouted && r.byHost[key] != routed) {
		return nil, false, domain.ErrAlreadyInGame
	}
	if pin, ok := r.byHost[key]; ok {
		if existing, ok := r.sessions[pin]; ok {
			if previous, ok := existing.reattachHost(hostConnID); ok {
				if r.connSession[previous] == pin && previous != hostConnID {
					delete(r.connSession, previous)
				}
				r.connSession[hostConnID] = pin
				return existing, true, nil
			}
		}
	}
	if isRouted {
		return nil, false, domain.ErrAlreadyInGame
	}

	pin := r.newPinLocked()
	snapshot := quiz.Clone()
	session = newSession(pin, quiz.ID, hostID, hostConnID, snapshot.Questions, r.now)
	r.sessions[pin] = session
	r.byHost[key] = pin
	r.connSession[hostConnID] = pin
	return session, false, nil
}

// SessionByPin returns the live session for pin.
func (r *Registry) SessionByPin(pin string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[pin]
	return session, ok
}

// SessionByConnection resolves the session a connection belongs to, as host or player.
func (r *Registry) SessionByConnection(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pin, ok := r.connSession[connID]
	if !ok {
		return nil, false
	}
	session, ok := r.sessions[pin]
	return session, ok
}

// RemoveSession deletes the session and every routing entry that points at it.
// It is safe to call more than once; the result reports whether anything was removed.
func (r *Registry) RemoveSession(pin string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(pin)
}

// removeSessionID removes pin only while it still belongs to sessionID.
func (r *Registry) removeSessionID(pin, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[pin]; !ok || session.id != sessionID {
		return false
	}
	return r.removeLocked(pin)
}

func (r *Registry) removeLocked(pin string) bool {
	session, ok := r.sessions[pin]
	if !ok {
		return false
	}
	session.stopHostTimer()
	for _, connID := range session.connections() {
		if r.connSession[connID] == pin {
			delete(r.connSession, connID)
			delete(r.connPlayer, connID)
		}
	}
	key := hostKey(session.quizID, session.hostID)
	if r.byHost[key] == pin {
		delete(r.byHost, key)
	}
	delete(r.sessions, pin)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops pending host timers and drops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pin := range r.sessions {
		r.removeLocked(pin)
	}
}

// AddPlayer joins connID to the lobby of pin under nickname and returns the
// player count including the new player.
func (r *Registry) AddPlayer(pin, connID, nickname string) (domain.Player, int, error) {
	nickname = strings.TrimSpace(nickname)
	if !validNickname(nickname) {
		return domain.Player{}, 0, domain.ErrInvalidNickname
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[pin]
	if !ok {
		return domain.Player{}, 0, domain.ErrSessionNotFound
	}
	if routed, ok := r.connSession[connID]; ok && routed != pin {
		return domain.Player{}, 0, domain.ErrAlreadyJoined
	}
	player, count, err := session.addPlayer(connID, nickname)
	if err != nil {
		return domain.Player{}, 0, err
	}
	r.connSession[connID] = pin
	r.connPlayer[connID] = player.PlayerID
	return player, count, nil
}

// RemovePlayer drops the player bound to connID, in any phase.
func (r *Registry) RemovePlayer(connID string) (pin, playerID string, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, isPlayer := r.connPlayer[connID]
	if !isPlayer {
		return "", "", 0, false
	}
	pin = r.connSession[connID]
	delete(r.connPlayer, connID)
	delete(r.connSession, connID)

	session, found := r.sessions[pin]
	if !found {
		return pin, playerID, 0, true
	}
	_, remaining, _ = session.removePlayer(connID)
	return pin, playerID, remaining, true
}

// StartGame moves the lobby to the first question and opens its answer window.
func (r *Registry) StartGame(pin string) (QuestionView, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	return session.start()
}

// NextQuestion advances to the next question and opens its answer window.
// It returns domain.ErrNoMoreQuestions, without changing state, after the last one.
func (r *Registry) NextQuestion(pin string) (QuestionView, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	return session.next()
}

// CurrentQuestion returns the question under the cursor without touching the timer.
func (r *Registry) CurrentQuestion(pin string) (QuestionView, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	return session.current()
}

// SubmitAnswer records the first answer of connID for the open question and
// applies its points immediately.
func (r *Registry) SubmitAnswer(pin, connID string, optionIndex int) (SubmitResult, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return SubmitResult{}, domain.ErrSessionNotFound
	}
	return session.submit(connID, optionIndex)
}

// RevealAnswer closes the answer window and reports every player's outcome.
func (r *Registry) RevealAnswer(pin string) (RevealResult, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return RevealResult{}, domain.ErrSessionNotFound
	}
	return session.reveal()
}

// Leaderboard ranks all players and moves the session to the leaderboard phase.
func (r *Registry) Leaderboard(pin string) (Standings, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return Standings{}, domain.ErrSessionNotFound
	}
	return session.leaderboard()
}

// FinishGame ends the game and returns the final ranking.
func (r *Registry) FinishGame(pin string) (domain.GameResult, Standings, error) {
	session, ok := r.SessionByPin(pin)
	if !ok {
		return domain.GameResult{}, Standings{}, domain.ErrSessionNotFound
	}
	return session.finish()
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, session)
	}
	return out
}

// idleSessions lists sessions without activity since cutoff.
func (r *Registry) idleSessions(cutoff time.Time) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var idle []*Session
	for _, session := range r.sessions {
		if session.idleSince().Before(cutoff) {
			idle = append(idle, session)
		}
	}
	return idle
}

func (r *Registry) newPinLocked() string {
	for {
		pin := randomPin(r.pinLength)
		if _, taken := r.sessions[pin]; !taken {
			return pin
		}
	}
}

func randomPin(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	digits := make([]byte, n)
	for i, b := range buf {
		if i == 0 {
			digits[i] = '1' + b%9
			continue
		}
		digits[i] = '0' + b%10
	}
	return string(digits)
}

func hostKey(quizID, hostID string) string {
	return quizID + "\x00" + hostID
}
