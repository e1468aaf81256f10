package app

import (
	"context"
	"log"
	"time"

	"live-quiz-service/internal/domain"
)

const DefaultHostGracePeriod = 30 * time.Second

// Supervisor reacts to dropped connections: players leave at once, hosts get a
// grace period to come back before their game is torn down.
type Supervisor struct {
	registry *Registry
	rooms    Broadcaster
	pins     PinClaimer
	grace    time.Duration
	now      func() time.Time
}

func NewSupervisor(registry *Registry, rooms Broadcaster, pins PinClaimer, grace time.Duration) *Supervisor {
	if grace <= 0 {
		grace = DefaultHostGracePeriod
	}
	return &Supervisor{
		registry: registry,
		rooms:    rooms,
		pins:     pins,
		grace:    grace,
		now:      registry.now,
	}
}

// Disconnect handles a dropped connection.
func (s *Supervisor) Disconnect(ctx context.Context, connID string) {
	session, ok := s.registry.SessionByConnection(connID)
	if !ok {
		return
	}
	pin := session.PIN()

	if session.IsHost(connID) {
		s.rooms.LeaveRoom(pin, connID)
		if session.Phase() == domain.PhaseFinished {
			s.teardown(ctx, session, "The game is over.")
			return
		}
		log.Printf("session %s: host disconnected, waiting %s", pin, s.grace)
		s.rooms.ToRoom(pin, Event{
			Type:    EventHostDisconnected,
			Payload: NoticePayload{Message: "The host lost connection. Waiting for them to return..."},
		})
		sessionID := session.ID()
		session.scheduleHostTimeout(s.grace, func() {
			s.hostTimeout(pin, sessionID, connID)
		})
		return
	}

	s.PlayerLeft(connID)
}

// PlayerLeft removes the player bound to connID and tells the room.
func (s *Supervisor) PlayerLeft(connID string) (pin, playerID string, ok bool) {
	pin, playerID, remaining, ok := s.registry.RemovePlayer(connID)
	if !ok {
		return "", "", false
	}
	s.rooms.LeaveRoom(pin, connID)
	s.rooms.ToRoom(pin, Event{
		Type:    EventPlayerLeft,
		Payload: PlayerLeftPayload{PlayerID: playerID, PlayerCount: remaining},
	})
	return pin, playerID, true
}

// hostTimeout runs when the grace timer fires. State is re-read here: the host
// may have re-attached, or the PIN may now belong to a different session.
func (s *Supervisor) hostTimeout(pin, sessionID, connID string) {
	session, ok := s.registry.SessionByPin(pin)
	if !ok || session.ID() != sessionID || session.HostConnection() != connID {
		return
	}
	log.Printf("session %s: host did not return within %s", pin, s.grace)
	s.teardown(context.Background(), session, "The host left the game.")
}

// Teardown destroys the session behind pin and tells everyone still in the room.
func (s *Supervisor) Teardown(ctx context.Context, pin, reason string) {
	if session, ok := s.registry.SessionByPin(pin); ok {
		s.teardown(ctx, session, reason)
	}
}

func (s *Supervisor) teardown(ctx context.Context, session *Session, reason string) {
	pin := session.PIN()
	if !s.registry.removeSessionID(pin, session.ID()) {
		return
	}
	s.rooms.ToRoom(pin, Event{Type: EventGameEnded, Payload: NoticePayload{Message: reason}})
	s.rooms.CloseRoom(pin)
	if s.pins != nil {
		if err := s.pins.Release(ctx, pin); err != nil {
			log.Printf("session %s: release pin: %v", pin, err)
		}
	}
}

// ReapIdle tears down sessions with no activity for longer than maxIdle.
func (s *Supervisor) ReapIdle(ctx context.Context, maxIdle time.Duration) int {
	idle := s.registry.idleSessions(s.now().Add(-maxIdle))
	for _, session := range idle {
		log.Printf("session %s: idle for more than %s, closing", session.PIN(), maxIdle)
		s.teardown(ctx, session, "The game was closed after being idle.")
	}
	return len(idle)
}

// Shutdown ends every live game and releases its PIN.
func (s *Supervisor) Shutdown(ctx context.Context) int {
	sessions := s.registry.snapshot()
	for _, session := range sessions {
		s.teardown(ctx, session, "The server is shutting down.")
	}
	return len(sessions)
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (s *Supervisor) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReapIdle(ctx, maxIdle)
		}
	}
}
