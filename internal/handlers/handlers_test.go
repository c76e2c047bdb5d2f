package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/landbot/internal/api"
	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/data/database"
	"github.com/akolanti/landbot/internal/data/store"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/handlers"
	"github.com/akolanti/landbot/internal/job"
	"github.com/akolanti/landbot/internal/middleware"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/internal/server"
	"github.com/stretchr/testify/require"
)

const authToken = "test-token"

type MockRAG struct {
	Chunks    []string
	Text      string
	AnswerErr error
	Passages  []commonModels.Passage
	SearchErr error
	Checks    []rag.Check
}

func (m *MockRAG) Answer(ctx context.Context, q rag.Query, onChunk func(string) error) (rag.Answer, error) {
	if m.AnswerErr != nil {
		return rag.Answer{}, m.AnswerErr
	}
	if onChunk != nil {
		for _, c := range m.Chunks {
			if err := onChunk(c); err != nil {
				return rag.Answer{}, err
			}
		}
	}
	return rag.Answer{Text: m.Text, ContextUsed: 2, Sources: []string{"code-foncier.pdf"}}, nil
}

func (m *MockRAG) Search(ctx context.Context, q string, limit int) ([]commonModels.Passage, error) {
	return m.Passages, m.SearchErr
}

func (m *MockRAG) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	return j
}

func (m *MockRAG) CheckHealth(ctx context.Context, deep bool) []rag.Check {
	return m.Checks
}

type testEnv struct {
	router http.Handler
	rag    *MockRAG
	jobs   *job.Service
	dir    string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	mockRag := &MockRAG{
		Chunks: []string{"Le titre foncier ", "est délivré par l'ANDF."},
		Text:   "Le titre foncier est délivré par l'ANDF.",
		Checks: []rag.Check{{Name: "llm", Status: rag.CheckOK}},
	}
	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 4),
		DispatcherChannel: make(chan bool, 4),
		JobStore:          store.InitInMemoryJobStore(),
	})
	dir := t.TempDir()
	h := handlers.NewHandler(handlers.Deps{
		Chat:      chatbot.NewService(mockRag, store.NewSQLConversationStore(db)),
		Jobs:      jobs,
		RAG:       mockRag,
		ModelName: "gemini-test",
		UploadDir: dir,
	})
	settings := &config.Settings{Debug: true, AuthToken: authToken}
	return &testEnv{
		router: server.NewRouter(h, middleware.New(settings)),
		rag:    mockRag,
		jobs:   jobs,
		dir:    dir,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	req.Host = "localhost:8000"
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func readEvents(t *testing.T, body string) []chatModel.StreamEvent {
	t.Helper()
	var events []chatModel.StreamEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
		var e chatModel.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.False(t, body.Success)
	return body
}

func TestAsk_StreamsAndPersists(t *testing.T) {
	env := newEnv(t)
	rec := env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: "Qui délivre le titre foncier ?"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 5)
	require.Equal(t, chatModel.EventMetadata, events[0].Type)
	require.Equal(t, "ANDF + Expert IA", events[0].Source)
	require.Equal(t, chatModel.EventChunk, events[1].Type)
	require.Equal(t, chatModel.EventComplete, events[3].Type)
	require.Equal(t, env.rag.Text, events[3].FinalText)
	require.Equal(t, chatModel.EventSaved, events[4].Type)

	conversationID := events[4].ConversationID
	msgRec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/conversation/"+conversationID+"/messages/", nil))
	require.Equal(t, http.StatusOK, msgRec.Code)
	var messages api.MessagesResponse
	require.NoError(t, json.NewDecoder(msgRec.Body).Decode(&messages))
	require.Len(t, messages.Messages, 2)
	require.Equal(t, "user", messages.Messages[0].Role)
	require.EqualValues(t, 2, messages.Messages[1].ContextUsed["context_used"])
}

func TestAsk_ValidationErrorsBeforeStream(t *testing.T) {
	env := newEnv(t)

	rec := env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeError(t, rec)
	require.Equal(t, "Question requise", body.Error)
	require.Equal(t, "INVALID_INPUT", body.Code)

	rec = env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: "q", ConversationID: "3f2b6a7e-9c1d-4c1a-9b8e-5d2c1f0a7b6e"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: "q", AudioFile: "!!notbase64!!"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/ask/", strings.NewReader("{broken"))
	rec = env.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_GenerationFailureIsAnEvent(t *testing.T) {
	env := newEnv(t)
	env.rag.AnswerErr = errors.New("upstream down")

	rec := env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: "q"})
	require.Equal(t, http.StatusOK, rec.Code)
	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 2)
	require.Equal(t, chatModel.EventError, events[1].Type)
	require.False(t, events[1].Success)
}

func TestConversation(t *testing.T) {
	env := newEnv(t)

	rec := env.postJSON("/api/chatbot/conversation/", api.ConverseRequest{Messages: []api.HistoryMessage{
		{Role: "user", Content: "Qu'est-ce qu'un titre foncier ?"},
		{Role: "assistant", Content: "Un document officiel."},
		{Role: "user", Content: "Comment l'obtenir ?"},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	var res api.ConverseResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.True(t, res.Success)
	require.Equal(t, "assistant", res.Message.Role)
	require.Equal(t, env.rag.Text, res.Message.Content)
	require.Equal(t, "ANDF + Expert IA", res.Message.Source)
	require.Equal(t, 2, res.ContextUsed)
	require.NotEmpty(t, res.ConversationID)

	rec = env.postJSON("/api/chatbot/conversation/", api.ConverseRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Liste de messages requise", decodeError(t, rec).Error)

	rec = env.postJSON("/api/chatbot/conversation/", api.ConverseRequest{Messages: []api.HistoryMessage{{Role: "assistant", Content: "x"}}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Aucune question utilisateur trouvée", decodeError(t, rec).Error)

	env.rag.AnswerErr = errors.New("boom")
	rec = env.postJSON("/api/chatbot/conversation/", api.ConverseRequest{Messages: []api.HistoryMessage{{Role: "user", Content: "q"}}})
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListConversations(t *testing.T) {
	env := newEnv(t)
	for _, q := range []string{"première", "deuxième"} {
		rec := env.postJSON("/api/chatbot/ask/", api.AskRequest{Question: q})
		require.Equal(t, http.StatusOK, rec.Code)
		time.Sleep(5 * time.Millisecond)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/conversations-list/?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.ConversationListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, 2, list.Count)
	require.Equal(t, "deuxième", list.Conversations[0].Title)
	require.EqualValues(t, 2, list.Conversations[0].MessagesCount)
	require.Equal(t, "assistant", list.Conversations[0].LastMessage.Role)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/conversations-list/?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationMessages_NotFound(t *testing.T) {
	env := newEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/conversation/3f2b6a7e-9c1d-4c1a-9b8e-5d2c1f0a7b6e/messages/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndInfo(t *testing.T) {
	env := newEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/health/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "gemini-test", health.Model)
	require.Nil(t, health.TestSuccessful)

	env.rag.Checks = []rag.Check{{Name: "llm", Status: rag.CheckDown, Detail: "quota"}}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/health/?deep=true", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "unhealthy", health.Status)
	require.NotNil(t, health.TestSuccessful)
	require.False(t, *health.TestSuccessful)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/info/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info api.InfoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	require.Equal(t, "Expert Foncier Béninois", info.Name)
	require.Equal(t, "gemini-test", info.Model)
	require.Contains(t, info.Languages, "français")
}

func multipartUpload(t *testing.T, filename string, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("document_name", "Code foncier"))
	part, err := w.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestIngestAndStatus(t *testing.T) {
	env := newEnv(t)

	body, contentType := multipartUpload(t, "code.txt", "Le titre foncier est inattaquable.")
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/knowledge/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	body, contentType = multipartUpload(t, "code.txt", "Le titre foncier est inattaquable.")
	req = httptest.NewRequest(http.MethodPost, "/api/chatbot/knowledge/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken)
	rec = env.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var initRes api.InitJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&initRes))
	require.Equal(t, "status/"+initRes.Id, initRes.StatusURL)

	queued := <-env.jobs.JobChannel
	require.Equal(t, "Code foncier", queued.JobPayload.IngestFileName)
	require.True(t, queued.JobPayload.RemoveAfter)
	data, err := os.ReadFile(queued.JobPayload.IngestURL)
	require.NoError(t, err)
	require.Equal(t, "Le titre foncier est inattaquable.", string(data))

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot/knowledge/status/"+initRes.Id, nil)
	req.Header.Set("Authorization", "Bearer "+authToken)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var status api.JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Equal(t, "QUEUED", status.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot/knowledge/status/ghost", nil)
	req.Header.Set("Authorization", "Bearer "+authToken)
	rec = env.do(req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_RejectsUnsupportedType(t *testing.T) {
	env := newEnv(t)
	body, contentType := multipartUpload(t, "virus.exe", "MZ")
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/knowledge/ingest/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken)
	rec := env.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Unsupported document type", decodeError(t, rec).Error)

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSearch(t *testing.T) {
	env := newEnv(t)
	env.rag.Passages = []commonModels.Passage{{Content: "Le titre foncier...", DocName: "code.pdf", PageNum: 3, Score: 0.91}}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/knowledge/search/?q=titre", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res api.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Results, 1)
	require.EqualValues(t, 3, res.Results[0].PageNum)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/knowledge/search/", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.rag.SearchErr = rag.ErrNoVectorStore
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/knowledge/search/?q=titre", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
