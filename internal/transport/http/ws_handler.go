package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	replies  app.Broadcaster
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket endpoint. Acks are sent through replies,
// which must be the broadcaster the service publishes room events on, so a
// client sees a command's broadcasts and its ack in publish order. A nil
// replies sends acks through hub.
func NewWSHandler(service *app.GameService, hub *Hub, replies app.Broadcaster) *WSHandler {
	if replies == nil {
		replies = hub
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		replies: replies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	ID      json.RawMessage `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type createPayload struct {
	QuizID string `json:"quizId"`
	HostID string `json:"hostId"`
}

type pinPayload struct {
	PIN string `json:"pin"`
}

type joinPayload struct {
	PIN      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type answerPayload struct {
	PIN         string `json:"pin"`
	OptionIndex *int   `json:"optionIndex"`
}

type success struct {
	Success bool `json:"success"`
}

type createdAck struct {
	Success        bool   `json:"success"`
	PIN            string `json:"pin"`
	TotalQuestions int    `json:"totalQuestions"`
	Reattached     bool   `json:"reattached,omitempty"`
}

type joinedAck struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

type answeredAck struct {
	Success   bool  `json:"success"`
	LatencyMs int64 `json:"responseLatencyMs"`
}

type finishedAck struct {
	Success bool                      `json:"success"`
	Results []domain.LeaderboardEntry `json:"results"`
}

type questionAck struct {
	Success  bool             `json:"success"`
	Question app.QuestionView `json:"question"`
}

type failure struct {
	Error          string `json:"error"`
	IsLastQuestion bool   `json:"isLastQuestion,omitempty"`
}

var errBadPayload = errors.New("invalid payload")

// ServeWS upgrades HTTP requests to websockets and routes host and player
// commands into the game service. Every command is answered with an ack frame
// carrying the id the client sent.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	outbound := h.hub.Register(connID)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("ws write error: %v", err)
				break
			}
		}
		// Queue closed or write failed: unblock the reader.
		_ = conn.Close()
		for range outbound {
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		payload := h.dispatch(r.Context(), connID, inbound)
		h.replies.ToConnection(connID, app.Event{Type: app.EventAck, ID: inbound.ID, Payload: payload})
	}

	h.service.Disconnect(context.Background(), connID)
	h.hub.Unregister(connID)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, in inboundMessage) any {
	switch in.Type {
	case "host:create":
		var p createPayload
		if err := decode(in.Payload, &p); err != nil || p.QuizID == "" || p.HostID == "" {
			return failure{Error: "quizId and hostId are required"}
		}
		created, err := h.service.CreateGame(ctx, connID, p.QuizID, p.HostID)
		if err != nil {
			return fail(err)
		}
		return createdAck{Success: true, PIN: created.PIN, TotalQuestions: created.TotalQuestions, Reattached: created.Reattached}

	case "host:start", "host:reveal", "host:leaderboard", "host:next", "host:end", "game:current":
		var p pinPayload
		if err := decode(in.Payload, &p); err != nil || p.PIN == "" {
			return failure{Error: "pin is required"}
		}
		return h.hostCommand(ctx, connID, in.Type, p.PIN)

	case "player:join":
		var p joinPayload
		if err := decode(in.Payload, &p); err != nil || p.PIN == "" {
			return failure{Error: "pin is required"}
		}
		player, err := h.service.Join(ctx, connID, p.PIN, p.Nickname)
		if err != nil {
			return fail(err)
		}
		return joinedAck{Success: true, PlayerID: player.PlayerID, Nickname: player.Nickname}

	case "player:answer":
		var p answerPayload
		if err := decode(in.Payload, &p); err != nil || p.PIN == "" || p.OptionIndex == nil {
			return failure{Error: "pin and optionIndex are required"}
		}
		answer, err := h.service.SubmitAnswer(ctx, connID, p.PIN, *p.OptionIndex)
		if err != nil {
			return fail(err)
		}
		return answeredAck{Success: true, LatencyMs: answer.ResponseLatencyMs}

	case "player:leave":
		var p pinPayload
		if err := decode(in.Payload, &p); err != nil || p.PIN == "" {
			return failure{Error: "pin is required"}
		}
		if err := h.service.Leave(ctx, connID, p.PIN); err != nil {
			return fail(err)
		}
		return success{Success: true}

	default:
		return failure{Error: "unsupported message type"}
	}
}

func (h *WSHandler) hostCommand(ctx context.Context, connID, typ, pin string) any {
	var err error
	switch typ {
	case "host:start":
		err = h.service.StartGame(ctx, connID, pin)
	case "host:reveal":
		err = h.service.RevealAnswer(ctx, connID, pin)
	case "host:leaderboard":
		err = h.service.ShowLeaderboard(ctx, connID, pin)
	case "host:next":
		err = h.service.NextQuestion(ctx, connID, pin)
		if errors.Is(err, domain.ErrNoMoreQuestions) {
			return failure{Error: err.Error(), IsLastQuestion: true}
		}
	case "host:end":
		results, err := h.service.EndGame(ctx, connID, pin)
		if err != nil {
			return fail(err)
		}
		return finishedAck{Success: true, Results: results}
	case "game:current":
		view, err := h.service.CurrentQuestion(ctx, pin)
		if err != nil {
			return fail(err)
		}
		return questionAck{Success: true, Question: view}
	}
	if err != nil {
		return fail(err)
	}
	return success{Success: true}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

func fail(err error) failure {
	return failure{Error: err.Error()}
}
