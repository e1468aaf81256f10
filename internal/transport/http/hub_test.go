package http

import (
	"encoding/json"
	"testing"

	"live-quiz-service/internal/app"
)

func TestHubRoomDelivery(t *testing.T) {
	hub := NewHub()
	host := hub.Register("host")
	player := hub.Register("player")
	outsider := hub.Register("outsider")

	hub.JoinRoom("123456", "host")
	hub.JoinRoom("123456", "player")
	hub.JoinRoom("123456", "ghost") // never registered

	if got := hub.RoomSize("123456"); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}

	hub.ToRoom("123456", app.Event{Type: app.EventGameStarted, Payload: app.GameStartedPayload{TotalQuestions: 3}})
	for name, ch := range map[string]<-chan []byte{"host": host, "player": player} {
		select {
		case msg := <-ch:
			var event struct {
				Type    string                 `json:"type"`
				Payload app.GameStartedPayload `json:"payload"`
			}
			if err := json.Unmarshal(msg, &event); err != nil {
				t.Fatalf("%s: decode: %v", name, err)
			}
			if event.Type != app.EventGameStarted || event.Payload.TotalQuestions != 3 {
				t.Fatalf("%s: unexpected event %+v", name, event)
			}
		default:
			t.Fatalf("%s: expected a queued event", name)
		}
	}
	select {
	case msg := <-outsider:
		t.Fatalf("outsider received %s", msg)
	default:
	}

	hub.LeaveRoom("123456", "player")
	hub.ToConnection("player", app.Event{Type: app.EventAnswerCount})
	if len(player) != 1 {
		t.Fatalf("direct sends must not depend on room membership")
	}

	hub.CloseRoom("123456")
	if hub.RoomSize("123456") != 0 {
		t.Fatalf("expected closed room to be empty")
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("c1")
	hub.JoinRoom("123456", "c1")

	hub.Unregister("c1")
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed queue")
	}
	if hub.RoomSize("123456") != 0 {
		t.Fatalf("expected membership to be dropped")
	}
	// Sends to a gone connection are ignored.
	hub.ToConnection("c1", app.Event{Type: app.EventGameEnded})
	hub.Unregister("c1")
}

func TestHubDropsSlowConnection(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("slow")
	hub.JoinRoom("123456", "slow")

	for i := 0; i < sendBuffer+1; i++ {
		hub.ToRoom("123456", app.Event{Type: app.EventAnswerCount})
	}

	count := 0
	for range ch {
		count++
	}
	if count != sendBuffer {
		t.Fatalf("expected %d buffered events before drop, got %d", sendBuffer, count)
	}
	if hub.RoomSize("123456") != 0 {
		t.Fatalf("dropped connection must leave its rooms")
	}
}
