package websocket

import "github.com/stemsi/quizdesk-portal/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is every client frame. QuestionID and Answer are only read for answer.
type RequestPayload struct {
	Action     Action            `json:"action"`
	QuestionID string            `json:"questionId,omitempty"`
	Answer     model.AnswerValue `json:"answer,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventAnswered  Event = "answered"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
	EventClosed    Event = "closed"
)

// AttemptResponse carries the attempt after a state change. It is the same
// shape the REST endpoints return.
type AttemptResponse struct {
	Event   Event              `json:"event"`
	Attempt *model.AttemptView `json:"attempt"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
