// Package mcpserver exposes the knowledge base and the expert as MCP tools over stdio,
// so assistants such as IDE agents can query the land-law corpus directly.
package mcpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = logger_i.NewLogger("MCP")

var errEmptyQuery = errors.New("query is required")

type SearchInput struct {
	Query string `json:"query" jsonschema:"text to look up in the land-law knowledge base"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages, 1 to 20"`
}

type PassageOutput struct {
	Content string  `json:"content"`
	DocName string  `json:"doc_name"`
	PageNum int64   `json:"page_num"`
	Score   float32 `json:"score"`
}

type SearchOutput struct {
	Passages []PassageOutput `json:"passages"`
}

type AskInput struct {
	Question       string `json:"question" jsonschema:"question about Bénin land law or ANDF procedures, in French"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an existing conversation"`
}

type AskOutput struct {
	Answer         string   `json:"answer"`
	ConversationID string   `json:"conversation_id"`
	ContextUsed    int      `json:"context_used"`
	Sources        []string `json:"sources,omitempty"`
}

type ListInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size, at most 50"`
	Offset int `json:"offset,omitempty"`
}

type ConversationOutput struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	MessagesCount int64  `json:"messages_count"`
	UpdatedAt     string `json:"updated_at"`
}

type ListOutput struct {
	Conversations []ConversationOutput `json:"conversations"`
}

type tools struct {
	chat *chatbot.Service
	rag  rag.Service
}

func New(chat *chatbot.Service, ragService rag.Service) *mcp.Server {
	t := &tools{chat: chat, rag: ragService}
	server := mcp.NewServer(&mcp.Implementation{Name: "expert-foncier", Version: config.BotInfo.Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the ANDF and land-law knowledge base and return the best matching passages.",
	}, t.search)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_expert",
		Description: "Ask the Bénin land-law expert a question. The exchange is saved as a conversation.",
	}, t.ask)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List saved chatbot conversations, most recent first.",
	}, t.listConversations)
	return server
}

// Run serves on stdin/stdout until ctx ends or the client disconnects.
func Run(ctx context.Context, server *mcp.Server) error {
	logger.Info("MCP server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (t *tools) search(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, SearchOutput{}, errEmptyQuery
	}
	passages, err := t.rag.Search(ctx, query, in.Limit)
	if err != nil {
		logger.FromContext(ctx).Warn("search_knowledge failed", "error", err)
		return nil, SearchOutput{}, err
	}
	out := SearchOutput{Passages: make([]PassageOutput, 0, len(passages))}
	for _, p := range passages {
		out.Passages = append(out.Passages, PassageOutput{Content: p.Content, DocName: p.DocName, PageNum: p.PageNum, Score: p.Score})
	}
	return nil, out, nil
}

func (t *tools) ask(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	res, err := t.chat.Converse(ctx, chatbot.ConverseInput{
		Messages:       []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: in.Question}},
		ConversationID: in.ConversationID,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:         res.Message.Content,
		ConversationID: res.ConversationID,
		ContextUsed:    res.ContextUsed,
		Sources:        res.Sources,
	}, nil
}

func (t *tools) listConversations(ctx context.Context, req *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	list, err := t.chat.ListConversations(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, ListOutput{}, err
	}
	out := ListOutput{Conversations: make([]ConversationOutput, 0, len(list))}
	for _, c := range list {
		out.Conversations = append(out.Conversations, ConversationOutput{
			ID:            c.ID,
			Title:         c.Title,
			MessagesCount: c.MessagesCount,
			UpdatedAt:     c.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}
