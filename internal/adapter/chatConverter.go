package adapter

import (
	"encoding/json"
	"strings"

	"github.com/akolanti/landbot/internal/api"
	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
)

func ToHistory(messages []api.HistoryMessage) []chatModel.HistoryEntry {
	out := make([]chatModel.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatModel.HistoryEntry{
			Role:    chatModel.Role(strings.ToLower(strings.TrimSpace(m.Role))),
			Content: m.Content,
		})
	}
	return out
}

func ToAskInput(req api.AskRequest) chatbot.AskInput {
	return chatbot.AskInput{
		Question:            req.Question,
		ImageFile:           req.ImageFile,
		AudioFile:           req.AudioFile,
		ConversationID:      req.ConversationID,
		ConversationHistory: ToHistory(req.ConversationHistory),
		Context:             req.Context,
	}
}

func ToConverseInput(req api.ConverseRequest) chatbot.ConverseInput {
	return chatbot.ConverseInput{
		Messages:       ToHistory(req.Messages),
		ConversationID: req.ConversationID,
	}
}

func ToConverseResponse(res chatbot.ConverseResult) api.ConverseResponse {
	return api.ConverseResponse{
		Success: true,
		Message: api.ChatMessage{
			Role:      string(res.Message.Role),
			Content:   res.Message.Content,
			Timestamp: res.Message.CreatedAt,
			Source:    config.AnswerSource,
		},
		ConversationID: res.ConversationID,
		ContextUsed:    res.ContextUsed,
		Sources:        res.Sources,
	}
}

func ToConversationItem(conv chatModel.Conversation) api.ConversationItem {
	return api.ConversationItem{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func ToConversationList(list []chatModel.ConversationSummary, limit int, offset int) api.ConversationListResponse {
	items := make([]api.ConversationItem, 0, len(list))
	for _, s := range list {
		item := ToConversationItem(s.Conversation)
		item.MessagesCount = s.MessagesCount
		if s.LastMessage != nil {
			item.LastMessage = &api.LastMessage{
				Role:      string(s.LastMessage.Role),
				Content:   s.LastMessage.Content,
				Timestamp: s.LastMessage.CreatedAt,
			}
		}
		items = append(items, item)
	}
	return api.ConversationListResponse{
		Success:       true,
		Conversations: items,
		Count:         len(items),
		Limit:         limit,
		Offset:        offset,
	}
}

func ToMessagesResponse(conv chatModel.Conversation, messages []chatModel.Message) api.MessagesResponse {
	items := make([]api.MessageItem, 0, len(messages))
	for _, m := range messages {
		item := api.MessageItem{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			MediaType: string(m.MediaType),
			Timestamp: m.CreatedAt,
		}
		if len(m.ContextUsed) > 0 {
			var ctx map[string]any
			if err := json.Unmarshal(m.ContextUsed, &ctx); err == nil {
				item.ContextUsed = ctx
			}
		}
		items = append(items, item)
	}
	convItem := ToConversationItem(conv)
	convItem.MessagesCount = int64(len(items))
	return api.MessagesResponse{Success: true, Conversation: convItem, Messages: items}
}

func ToHealthResponse(report chatbot.HealthReport, model string, deep bool) api.HealthResponse {
	checks := make([]api.HealthCheck, 0, len(report.Checks))
	var testOK *bool
	for _, c := range report.Checks {
		checks = append(checks, api.HealthCheck{Name: c.Name, Status: c.Status, Detail: c.Detail})
		if deep && c.Name == "llm" {
			ok := c.Status == "ok"
			testOK = &ok
		}
	}
	return api.HealthResponse{
		Status:         report.Status,
		Service:        report.Service,
		Model:          model,
		KnowledgeBase:  "ANDF + Législation béninoise",
		TestSuccessful: testOK,
		Checks:         checks,
		Timestamp:      report.Timestamp,
	}
}

func ToInfoResponse(model string) api.InfoResponse {
	info := config.BotInfo
	return api.InfoResponse{
		Name:         info.Name,
		Version:      info.Version,
		Description:  info.Description,
		Capabilities: info.Capabilities,
		Languages:    info.Languages,
		DataSources:  info.DataSources,
		Model:        model,
		Features:     info.Features,
	}
}

func ToSearchResponse(query string, passages []commonModels.Passage) api.SearchResponse {
	hits := make([]api.SearchHit, 0, len(passages))
	for _, p := range passages {
		hits = append(hits, api.SearchHit{Content: p.Content, DocName: p.DocName, PageNum: p.PageNum, Score: p.Score})
	}
	return api.SearchResponse{Success: true, Query: query, Results: hits}
}
