package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/lib/logger/sl"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSHandler streams session snapshots to players and accepts answers over
// the same socket, as an alternative to polling.
type WSHandler struct {
	service  *app.SessionService
	validate *validator.Validate
	upgrader websocket.Upgrader

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service:  service,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeWait:  wsWriteWait,
		pongWait:   wsPongWait,
		pingPeriod: wsPingPeriod,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request and pushes a snapshot after every session
// change. Anonymous players pass their participant token as ?token=.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")
	user := UserFrom(r.Context())

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Default().Warn("ws upgrade failed", slog.String("session_id", sessionID), sl.Err(err))
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	// A failed write closes the connection so the read loop below returns.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(h.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			case <-writerDone:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "answer":
			var req submitAnswerRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				reply = errorMessage("invalid answer payload")
				break
			}
			if err := validateRequest(h.validate, &req); err != nil {
				reply = errorMessage(err.Error())
				break
			}
			result, err := h.service.SubmitAnswer(r.Context(), user, token, sessionID, req.submission())
			if err != nil {
				reply = errorMessage(err.Error())
				break
			}
			reply = outboundMessage[any]{Type: "answerResult", Payload: result}
		case "leaderboard":
			lb, err := h.service.Leaderboard(r.Context(), sessionID)
			if err != nil {
				reply = errorMessage(err.Error())
				break
			}
			reply = outboundMessage[any]{Type: "leaderboard", Payload: lb}
		default:
			reply = errorMessage("unsupported message type")
		}
		if !push(reply) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
