package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// WSHandler is the session shell: one websocket connection drives one
// player's session controller. Inbound messages carry raw UI events (taps,
// lifeline presses, drag gestures); outbound messages are the controller's
// render events.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	Key domain.AnswerKey `json:"key"`
}

type lifelinePayload struct {
	Kind domain.LifelineKind `json:"kind"`
}

type dragPayload struct {
	DeltaY float64 `json:"deltaY"`
}

type dialogPayload struct {
	Open bool `json:"open"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pumps UI events into the session engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	controller, err := h.service.NewSession(r.Context(), userID)
	if err != nil {
		_ = conn.WriteJSON(app.Event{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer controller.Close()

	errs := make(chan errorPayload, 8)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		events := controller.Events()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case e := <-errs:
				if err := conn.WriteJSON(app.Event{Type: "error", Payload: e}); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, controller, inbound, errs)
	}

	// Teardown: the session dies with the connection; detached backend calls
	// finish on their own.
	controller.Close()
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, controller *app.Controller, inbound inboundMessage, errs chan<- errorPayload) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		if err := controller.Start(ctx); err != nil && !silent(err) {
			sendErr(errs, err)
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(errs, errors.New("invalid answer payload"))
			return
		}
		controller.SelectAnswer(payload.Key)
	case "lifeline":
		var payload lifelinePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(errs, errors.New("invalid lifeline payload"))
			return
		}
		if err := controller.ActivateLifeline(ctx, payload.Kind); err != nil && !silent(err) {
			sendErr(errs, err)
		}
	case "drag":
		var payload dragPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		controller.HandleDrag(payload.DeltaY)
	case "release":
		controller.HandleRelease(ctx)
	case "continue":
		if err := controller.Continue(ctx); err != nil && !silent(err) {
			sendErr(errs, err)
		}
	case "restart":
		if err := controller.Restart(ctx); err != nil && !silent(err) {
			sendErr(errs, err)
		}
	case "dialog":
		var payload dialogPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		controller.SetDialogOpen(payload.Open)
	case "abandon":
		controller.Abandon()
	default:
		sendErr(errs, errors.New("unsupported message type"))
	}
}

// silent lists the no-op rejections the UI is told about through
// regular events (or not at all), never as error frames.
func silent(err error) bool {
	return errors.Is(err, domain.ErrAlreadySelected) ||
		errors.Is(err, domain.ErrStartInFlight) ||
		errors.Is(err, domain.ErrLifelineExhausted) ||
		errors.Is(err, domain.ErrLifelineActive) ||
		errors.Is(err, domain.ErrInsufficientCoins) ||
		errors.Is(err, domain.ErrNoLives)
}

func sendErr(errs chan<- errorPayload, err error) {
	select {
	case errs <- errorPayload{Message: err.Error()}:
	default:
	}
}
