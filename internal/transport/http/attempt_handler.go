package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"quiz-assessment-service/internal/app"
)

// AttemptHandler serves the quiz listing and the attempt websocket.
type AttemptHandler struct {
	service   *app.AttemptService
	newTicker app.TickerFactory
	upgrader  websocket.Upgrader
}

func NewAttemptHandler(service *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{
		service:   service,
		newTicker: app.NewTicker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WithTickerFactory replaces the one-second wall-clock ticker, for tests.
func (h *AttemptHandler) WithTickerFactory(f app.TickerFactory) *AttemptHandler {
	h.newTicker = f
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type attemptPayload struct {
	Resumed bool            `json:"resumed"`
	View    app.AttemptView `json:"view"`
}

// ListQuizzes serves GET /quizzes grouped by quiz group.
func (h *AttemptHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListQuizzesForUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// ServeWS starts or resumes the caller's attempt and upgrades to a websocket that carries
// navigation and answer actions in, and state, tick and submission events out.
func (h *AttemptHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	token := sessionToken(r)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	attempt, resumed, err := h.service.Start(ctx, token, quizID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := attempt.Subscribe()
	defer unsubscribe()

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
				select {
				case send <- eventMessage(attempt, ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "attempt", Payload: attemptPayload{Resumed: resumed, View: attempt.View()}}
	go attempt.Run(ctx, h.newTicker(time.Second))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, attempt, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	cancel()
	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatch applies one client action. Successful actions are reported through the attempt's
// event stream.
func (h *AttemptHandler) dispatch(ctx context.Context, attempt *app.Attempt, msg inboundMessage) error {
	switch msg.Type {
	case "navigate":
		var p navigatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errInvalidPayload
		}
		return attempt.NavigateTo(ctx, p.Index)
	case "next":
		return attempt.Next(ctx)
	case "previous":
		return attempt.Previous(ctx)
	case "select":
		var p selectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errInvalidPayload
		}
		if !attempt.HasOption(p.OptionID) {
			return errUnknownOption
		}
		_, err := attempt.SelectAnswer(ctx, p.OptionID)
		return err
	case "clear":
		return attempt.ClearAnswer(ctx)
	case "mark":
		_, err := attempt.MarkForReview(ctx)
		return err
	case "submit":
		_, err := attempt.Submit(ctx)
		return err
	case "reset":
		return attempt.Reset(ctx)
	}
	return errUnsupported
}

func eventMessage(attempt *app.Attempt, ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventTick:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Remaining}
	case app.EventSubmitted:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Result}
	case app.EventSubmitFailed:
		return outboundMessage[any]{Type: string(ev.Type), Payload: errorPayload{Message: ev.Error}}
	}
	return outboundMessage[any]{Type: string(ev.Type), Payload: attempt.View()}
}

// sessionToken reads the bearer token from the Authorization header, falling back to the
// token query parameter since browsers cannot set headers on websocket requests.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
