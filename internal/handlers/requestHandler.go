package handlers

import (
	"net/http"
	"strconv"

	"github.com/akolanti/landbot/internal/adapter"
	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/api"
	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
)

// Ask godoc
// @Summary      Ask the land-law expert
// @Description  Streams the answer as server-sent events. Each frame is data: {json} with type metadata, chunk, complete, saved or error.
// @Tags         Chatbot
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      api.AskRequest     true  "Question, optional base64 media and conversation"
// @Success      200      {string}  string             "event stream"
// @Failure      400      {object}  api.ErrorResponse  "Missing question or invalid media"
// @Failure      404      {object}  api.ErrorResponse  "Unknown conversation_id"
// @Router       /api/chatbot/ask/ [post]
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}

	var req api.AskRequest
	if err := decodeJSON(w, r, config.MaxAskBodyBytes, &req); err != nil {
		logRH.FromContext(ctx).Warn("Bad ask request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Requête invalide", string(chatbot.ErrorInvalidInput), err.Error())
		return
	}

	// every validation error is reported before the first stream byte
	turn, err := h.chat.Prepare(ctx, adapter.ToAskInput(req))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	sink := newSSESink(w)
	if err := h.chat.Stream(ctx, turn, sink); err != nil {
		logRH.FromContext(ctx).Warn("Stream ended early", "conversationId", turn.ConversationID, "error", err)
	}
}

// Conversation godoc
// @Summary      Continue a conversation
// @Description  Answers the last user message of the list in one response and appends the exchange to the conversation.
// @Tags         Chatbot
// @Accept       json
// @Produce      json
// @Param        request  body      api.ConverseRequest   true  "Messages and optional conversation id"
// @Success      200      {object}  api.ConverseResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /api/chatbot/conversation/ [post]
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}

	var req api.ConverseRequest
	if err := decodeJSON(w, r, config.MaxAskBodyBytes, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Liste de messages requise", string(chatbot.ErrorInvalidInput), err.Error())
		return
	}
	res, err := h.chat.Converse(ctx, adapter.ToConverseInput(req))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConverseResponse(res))
}

// ListConversations godoc
// @Summary      List conversations
// @Description  Active conversations, most recently updated first.
// @Tags         Conversations
// @Produce      json
// @Param        limit   query     int  false  "Page size (max 50)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {object}  api.ConversationListResponse
// @Failure      400     {object}  api.ErrorResponse
// @Router       /api/chatbot/conversations-list/ [get]
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryInt(r, "limit", config.ConversationsPageSize)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error(), string(chatbot.ErrorInvalidInput), "")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error(), string(chatbot.ErrorInvalidInput), "")
		return
	}
	if limit == 0 || limit > config.ConversationsPageSize {
		limit = config.ConversationsPageSize
	}

	list, err := h.chat.ListConversations(ctx, limit, offset)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationList(list, limit, offset))
}

// ConversationMessages godoc
// @Summary      Messages of a conversation
// @Tags         Conversations
// @Produce      json
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  api.MessagesResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/chatbot/conversation/{id}/messages/ [get]
func (h *Handler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conv, messages, err := h.chat.Messages(ctx, utils.GetChiURLParam(r, "id"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToMessagesResponse(conv, messages))
}

// Health godoc
// @Summary      Health check
// @Description  Checks the database, vector store and LLM. deep=true also runs a test generation.
// @Tags         Service
// @Produce      json
// @Param        deep  query     bool  false  "Run a test generation"
// @Success      200   {object}  api.HealthResponse
// @Failure      503   {object}  api.HealthResponse
// @Router       /api/chatbot/health/ [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	deep, _ := strconv.ParseBool(r.URL.Query().Get("deep"))
	report := h.chat.Health(r.Context(), deep)

	status := http.StatusOK
	if report.Status == chatbot.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, status, adapter.ToHealthResponse(report, h.modelName, deep))
}

// Info godoc
// @Summary      Chatbot description
// @Tags         Service
// @Produce      json
// @Success      200  {object}  api.InfoResponse
// @Router       /api/chatbot/info/ [get]
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, adapter.ToInfoResponse(h.modelName))
}
