package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
	"github.com/stemsi/quizdesk-portal/internal/session"
	ws "github.com/stemsi/quizdesk-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a quiz attempt over WebSocket.
type WSHandler struct {
	attemptService *service.AttemptService
	sessions       *session.Store
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, sessions *session.Store, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		sessions:       sessions,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Same contract as the attempt REST endpoints: answer, submit and ping.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	// Reject unknown or foreign attempts before upgrading.
	view, err := h.attemptService.Get(c.Request.Context(), rec.User.UserID, attemptID.String())
	if err != nil {
		failWith(c, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().
		Str("user_id", rec.User.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()

	// Logging out in another tab ends this stream too.
	events, unsubscribe, err := h.sessions.Subscribe(ctx, rec.ID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Session subscription failed")
		conn.WriteError(string(response.ErrInternal), response.GetMessage(response.ErrInternal))
		return
	}
	defer unsubscribe()
	go h.watchSession(ctx, conn, events, wsLog)

	wsLog.Info().Msg("Taker connected")
	conn.WriteTyped(ws.AttemptResponse{Event: ws.EventState, Attempt: view})

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, rec, attemptID.String(), &msg)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, rec, attemptID.String())
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *ws.Conn, rec *session.Record, attemptID string, msg *ws.RequestPayload) {
	if msg.QuestionID == "" || len(msg.QuestionID) > 64 || len(msg.Answer) > 10000 {
		conn.WriteError(string(response.ErrInvalidPayload), "questionId and answer are required")
		return
	}

	view, err := h.attemptService.Answer(ctx, rec.User.UserID, attemptID, msg.QuestionID, string(msg.Answer))
	if err != nil {
		writeWSError(conn, err)
		return
	}
	conn.WriteTyped(ws.AttemptResponse{Event: ws.EventAnswered, Attempt: view})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, rec *session.Record, attemptID string) {
	view, err := h.attemptService.Submit(ctx, rec, attemptID)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Submit over stream failed")
		writeWSError(conn, err)
		return
	}
	conn.WriteTyped(ws.AttemptResponse{Event: ws.EventSubmitted, Attempt: view})
}

// watchSession closes the socket once the session is deleted.
func (h *WSHandler) watchSession(ctx context.Context, conn *ws.Conn, events <-chan session.Event, wsLog zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.Kind != session.EventDeleted {
				continue
			}
			wsLog.Info().Msg("Session ended, closing attempt stream")
			conn.WriteTyped(ws.ErrorResponse{
				Event: ws.EventClosed,
				Code:  string(response.ErrSessionInvalidated),
				Error: response.GetMessage(response.ErrSessionInvalidated),
			})
			conn.Close()
			return
		}
	}
}

func writeWSError(conn *ws.Conn, err error) {
	_, code := classify(err)
	conn.WriteError(string(code), response.GetMessage(code))
}
