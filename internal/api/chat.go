package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lexicon-id/putusan/internal/agent"
	"github.com/lexicon-id/putusan/internal/metrics"
)

// Asker runs one chat turn. Implemented by *agent.Agent.
type Asker interface {
	Ask(ctx context.Context, threadID, message string) (*agent.Answer, error)
}

// chatRequest is the JSON body form of a chat request. Query
// parameters take precedence when both are present.
type chatRequest struct {
	ThreadID    string `json:"thread_id"`
	UserMessage string `json:"user_message"`
}

// chatResponse is the chat endpoint payload.
type chatResponse struct {
	Response   string   `json:"response"`
	References []string `json:"references"`
}

type chatHandler struct {
	agent   Asker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// send handles POST /chatbot/user_message.
//
// thread_id and user_message arrive as query parameters or a JSON
// body. thread_id groups turns into a conversation; an unseen value
// starts a new one.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	threadID, userMessage, err := h.parseRequest(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	requestID, _ := requestIDFromContext(r.Context())
	h.logger.Info("received chat message",
		"thread_id", threadID,
		"message_preview", preview(userMessage, 50),
		"request_id", requestID,
	)

	start := time.Now()
	answer, err := h.agent.Ask(r.Context(), threadID, userMessage)
	duration := time.Since(start)

	if err != nil {
		h.metrics.RecordChatTurn("error", duration.Seconds())
		if errors.Is(err, agent.ErrEmptyMessage) {
			WriteError(w, http.StatusBadRequest, "invalid_request", "user_message must not be empty", h.logger)
			return
		}
		h.logger.Error("chat turn failed", "thread_id", threadID, "error", err, "request_id", requestID)
		WriteError(w, http.StatusInternalServerError, "agent_error", "failed to process message", h.logger)
		return
	}

	h.metrics.RecordChatTurn("ok", duration.Seconds())
	h.logger.Info("chat turn complete",
		"thread_id", threadID,
		"references", len(answer.References),
		"duration", duration,
		"request_id", requestID,
	)

	references := answer.References
	if references == nil {
		references = []string{}
	}
	WriteJSON(w, http.StatusOK, chatResponse{
		Response:   answer.Response,
		References: references,
	})
}

func (h *chatHandler) parseRequest(r *http.Request) (threadID, userMessage string, err error) {
	q := r.URL.Query()
	threadID = q.Get("thread_id")
	userMessage = q.Get("user_message")

	if (threadID == "" || userMessage == "") && r.Body != nil {
		var body chatRequest
		// Ignore decode errors: query-only requests carry no body.
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr == nil {
			if threadID == "" {
				threadID = body.ThreadID
			}
			if userMessage == "" {
				userMessage = body.UserMessage
			}
		}
	}

	if threadID == "" {
		return "", "", errors.New("thread_id is required")
	}
	if userMessage == "" {
		return "", "", errors.New("user_message is required")
	}
	return threadID, userMessage, nil
}

// preview truncates a message for log lines without splitting runes.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
