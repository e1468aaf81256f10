package redis

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
)

const fanoutChannel = "quiz:fanout"

const (
	kindRoom  = "room"
	kindConn  = "conn"
	kindClose = "close"
)

type envelope struct {
	Kind   string    `json:"kind"`
	Target string    `json:"target"`
	Event  app.Event `json:"event"`
}

type inboundEnvelope struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Event  struct {
		Type    string          `json:"type"`
		ID      json.RawMessage `json:"id"`
		Payload json.RawMessage `json:"payload"`
	} `json:"event"`
}

// Fanout is an app.Broadcaster that publishes every event through Redis so a
// room reaches its members on every instance. Room membership stays in the
// local broadcaster; Start delivers published events into it.
type Fanout struct {
	client *redis.Client
	local  app.Broadcaster
}

func NewFanout(client *redis.Client, local app.Broadcaster) *Fanout {
	return &Fanout{client: client, local: local}
}

// Start subscribes and returns once the subscription is confirmed. Delivery
// runs until ctx is done.
func (f *Fanout) Start(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, fanoutChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				f.deliver(msg.Payload)
			}
		}
	}()
	return nil
}

func (f *Fanout) JoinRoom(pin, connID string)  { f.local.JoinRoom(pin, connID) }
func (f *Fanout) LeaveRoom(pin, connID string) { f.local.LeaveRoom(pin, connID) }

func (f *Fanout) CloseRoom(pin string) {
	f.publish(envelope{Kind: kindClose, Target: pin})
}

func (f *Fanout) ToRoom(pin string, event app.Event) {
	f.publish(envelope{Kind: kindRoom, Target: pin, Event: event})
}

func (f *Fanout) ToConnection(connID string, event app.Event) {
	f.publish(envelope{Kind: kindConn, Target: connID, Event: event})
}

func (f *Fanout) publish(env envelope) {
	data, err := json.Marshal(env)
	if err == nil {
		err = f.client.Publish(context.Background(), fanoutChannel, data).Err()
	}
	if err != nil {
		// Local members still get the event.
		log.Printf("fanout: publish %s %s: %v", env.Kind, env.Target, err)
		f.apply(env.Kind, env.Target, env.Event)
	}
}

func (f *Fanout) deliver(raw string) {
	var in inboundEnvelope
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		log.Printf("fanout: decode: %v", err)
		return
	}
	f.apply(in.Kind, in.Target, app.Event{Type: in.Event.Type, ID: in.Event.ID, Payload: in.Event.Payload})
}

func (f *Fanout) apply(kind, target string, event app.Event) {
	switch kind {
	case kindRoom:
		f.local.ToRoom(target, event)
	case kindConn:
		f.local.ToConnection(target, event)
	case kindClose:
		f.local.CloseRoom(target)
	}
}
