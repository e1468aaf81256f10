package app_test

import (
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type sent struct {
	room   string
	connID string
	event  app.Event
}

// recordingRooms is an app.Broadcaster that keeps everything it was asked to send.
type recordingRooms struct {
	mu      sync.Mutex
	events  []sent
	members map[string]map[string]bool
	closed  map[string]bool
}

func newRecordingRooms() *recordingRooms {
	return &recordingRooms{
		members: make(map[string]map[string]bool),
		closed:  make(map[string]bool),
	}
}

func (r *recordingRooms) JoinRoom(pin, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[pin] == nil {
		r.members[pin] = make(map[string]bool)
	}
	r.members[pin][connID] = true
}

func (r *recordingRooms) LeaveRoom(pin, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[pin], connID)
}

func (r *recordingRooms) CloseRoom(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, pin)
	r.closed[pin] = true
}

func (r *recordingRooms) ToRoom(pin string, event app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{room: pin, event: event})
}

func (r *recordingRooms) ToConnection(connID string, event app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{connID: connID, event: event})
}

func (r *recordingRooms) ofType(typ string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, e := range r.events {
		if e.event.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingRooms) isClosed(pin string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed[pin]
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Basics",
		Questions: []domain.Question{
			{
				Text:      "Which one is not a Go keyword?",
				TimeLimit: 20,
				Points:    1000,
				Options: []domain.Option{
					{Text: "func"},
					{Text: "defer"},
					{Text: "class", IsCorrect: true},
					{Text: "select"},
				},
			},
			{
				Text:      "What is 2 + 2?",
				TimeLimit: 10,
				Points:    500,
				Options: []domain.Option{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
