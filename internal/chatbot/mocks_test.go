package chatbot_test

import (
	"context"
	"errors"

	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/rag"
)

type MockRAG struct {
	Chunks    []string
	Result    rag.Answer
	Err       error
	Checks    []rag.Check
	LastQuery rag.Query
	Streamed  bool
	// OnAnswer runs once the answer is produced.
	OnAnswer func()
}

func (m *MockRAG) Answer(ctx context.Context, query rag.Query, onChunk func(string) error) (rag.Answer, error) {
	m.LastQuery = query
	m.Streamed = onChunk != nil
	if m.Err != nil {
		return rag.Answer{}, m.Err
	}
	if onChunk != nil {
		for _, c := range m.Chunks {
			if err := onChunk(c); err != nil {
				return rag.Answer{}, err
			}
		}
	}
	if m.OnAnswer != nil {
		m.OnAnswer()
	}
	return m.Result, nil
}

func (m *MockRAG) Search(ctx context.Context, query string, limit int) ([]commonModels.Passage, error) {
	return nil, nil
}

func (m *MockRAG) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	return job
}

func (m *MockRAG) CheckHealth(ctx context.Context, deep bool) []rag.Check {
	return m.Checks
}

type recordingSink struct {
	events []chatModel.StreamEvent
	// failAt makes the n-th Send (1 based) fail, simulating a disconnect.
	failAt int
}

var errClientGone = errors.New("client gone")

func (s *recordingSink) Send(e chatModel.StreamEvent) error {
	if s.failAt > 0 && len(s.events)+1 == s.failAt {
		return errClientGone
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []chatModel.EventType {
	out := make([]chatModel.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type failingStore struct {
	chatModel.ConversationStore
	pingErr error
}

func (f failingStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f failingStore) CreateConversation(ctx context.Context, conv chatModel.Conversation) (chatModel.Conversation, error) {
	return conv, errors.New("disk full")
}
