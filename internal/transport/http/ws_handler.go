package http

import (
	"encoding/json"
	"log"
	"net/http"

	"codeconnect/internal/app"
	"codeconnect/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler is the view-layer boundary: one websocket per client, carrying
// the platform's command set inbound and store events outbound.
type WSHandler struct {
	auth     *app.AuthService
	store    *app.StoreService
	upgrader websocket.Upgrader
}

func NewWSHandler(auth *app.AuthService, store *app.StoreService) *WSHandler {
	return &WSHandler{
		auth:  auth,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
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

type quizScorePayload struct {
	QuizName string `json:"quizName"`
	Score    int    `json:"score"`
}

type challengePayload struct {
	ChallengeID string `json:"challengeId"`
}

type resourcePayload struct {
	Title      string `json:"title"`
	ResourceID string `json:"resourceId"`
}

type friendRequestPayload struct {
	ToUserID   string `json:"toUserId"`
	ToUserName string `json:"toUserName"`
	RequestID  string `json:"requestId"`
}

type chatPayload struct {
	ToUserID string `json:"toUserId"`
	Message  string `json:"message"`
}

type welcomePayload struct {
	User           domain.User            `json:"user"`
	QuizScores     []domain.QuizScore     `json:"quizScores"`
	Challenges     []domain.Challenge     `json:"challenges"`
	Resources      []domain.DSAResource   `json:"resources"`
	FriendRequests []domain.FriendRequest `json:"friendRequests"`
	Friends        []domain.Friend        `json:"friends"`
	Activities     []domain.Activity      `json:"activities"`
}

// ServeWS upgrades the request and wires the connection into the store. A
// persisted identity is reused; otherwise the name query parameter logs the
// client in.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := h.auth.Current()
	if !ok {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}
		var err error
		user, err = h.auth.Login(r.Context(), name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.store.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				out := h.eventEnvelope(ev)
				select {
				case send <- out:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: welcomePayload{
		User:           user,
		QuizScores:     h.store.QuizScores(),
		Challenges:     h.store.Challenges(),
		Resources:      h.store.Resources(),
		FriendRequests: h.store.FriendRequests(),
		Friends:        h.store.Friends(),
		Activities:     h.store.Activities(),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleCommand(r, inbound, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleCommand(r *http.Request, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	switch inbound.Type {
	case "quizScore":
		var p quizScorePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		score, err := h.store.AddQuizScore(ctx, p.QuizName, p.Score)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "scoreRecorded", Payload: score}
	case "solveChallenge":
		var p challengePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		if err := h.store.SolveChallenge(ctx, p.ChallengeID); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "challengeSolved", Payload: p}
	case "uploadResource":
		var p resourcePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		resource, err := h.store.UploadResource(ctx, p.Title)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "resourceUploaded", Payload: resource}
	case "downloadResource":
		var p resourcePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		if err := h.store.RecordResourceDownload(ctx, p.ResourceID); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "downloadRecorded", Payload: p}
	case "friendRequest":
		var p friendRequestPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		request, err := h.store.SendFriendRequest(ctx, p.ToUserID, p.ToUserName)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "requestSent", Payload: request}
	case "acceptRequest":
		var p friendRequestPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		if err := h.store.AcceptFriendRequest(ctx, p.RequestID); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "friends", Payload: h.store.Friends()}
	case "rejectRequest":
		var p friendRequestPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		if err := h.store.RejectFriendRequest(ctx, p.RequestID); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "requests", Payload: h.store.FriendRequests()}
	case "chat":
		var p chatPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(err)
			return
		}
		// The sent message comes back through the event stream; no direct ack.
		if _, err := h.store.SendMessage(ctx, p.ToUserID, p.Message); err != nil {
			fail(err)
			return
		}
	case "logout":
		if err := h.auth.Logout(ctx); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "loggedOut", Payload: struct{}{}}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func (h *WSHandler) eventEnvelope(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventChat:
		return outboundMessage[any]{Type: "chat", Payload: ev.Message}
	default:
		return outboundMessage[any]{Type: "activity", Payload: ev.Activity}
	}
}
