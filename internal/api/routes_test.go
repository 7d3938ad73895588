package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/anvesha/vocalis/server/adapters/memory"
	"github.com/anvesha/vocalis/server/domain/entities"
	"github.com/anvesha/vocalis/server/domain/repositories"
	"github.com/anvesha/vocalis/server/usecase"
)

type stubCompletion struct {
	reply string
	err   error
}

func (s *stubCompletion) Complete(ctx context.Context, turns []repositories.ChatMessage) (string, error) {
	return s.reply, s.err
}

func newTestServer(t *testing.T) (*echo.Echo, *usecase.ConversationService) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := usecase.NewConversationStore(context.Background(), memory.NewConversationRepository(), logger)
	service := usecase.NewConversationService(store, &stubCompletion{reply: "hi there"}, "", logger)

	e := echo.New()
	InitRoutes(e, nil, service, logger)
	return e, service
}

func request(t *testing.T, e *echo.Echo, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := request(t, e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "vocalis-server") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateAndListConversations(t *testing.T) {
	e, _ := newTestServer(t)

	rec := request(t, e, http.MethodPost, "/api/v1/conversations", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created entities.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid conversation payload: %v", err)
	}
	if created.Name != "Chat 1" {
		t.Errorf("expected Chat 1, got %q", created.Name)
	}

	rec = request(t, e, http.MethodGet, "/api/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summaries []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid list payload: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("expected 1 conversation, got %d", len(summaries))
	}
}

func TestGetConversationNotFound(t *testing.T) {
	e, _ := newTestServer(t)

	rec := request(t, e, http.MethodGet, "/api/v1/conversations/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRenameConversation(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())

	rec := request(t, e, http.MethodPatch, "/api/v1/conversations/"+conversation.ID, `{"name":"Plans"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	renamed, _ := service.Store().Get(conversation.ID)
	if renamed.Name != "Plans" {
		t.Errorf("expected rename to persist, got %q", renamed.Name)
	}
}

func TestRenameConversationRejectsEmptyName(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())

	rec := request(t, e, http.MethodPatch, "/api/v1/conversations/"+conversation.ID, `{"name":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteConversation(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())

	rec := request(t, e, http.MethodDelete, "/api/v1/conversations/"+conversation.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := service.Store().Get(conversation.ID); ok {
		t.Error("conversation still present after delete")
	}
}

func TestSendMessage(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())

	rec := request(t, e, http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/messages", `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.UserMessage.Content != "hello" || resp.UserMessage.Sender != entities.SenderUser {
		t.Errorf("unexpected user message: %+v", resp.UserMessage)
	}
	if resp.BotMessage.Content != "hi there" || resp.BotMessage.Sender != entities.SenderBot {
		t.Errorf("unexpected bot message: %+v", resp.BotMessage)
	}
}

func TestListMessages(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())
	request(t, e, http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/messages", `{"text":"hello"}`)

	rec := request(t, e, http.MethodGet, "/api/v1/conversations/"+conversation.ID+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []entities.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("invalid messages payload: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Sender != entities.SenderUser || messages[1].Sender != entities.SenderBot {
		t.Errorf("unexpected ordering: %+v", messages)
	}
}

func TestSendMessageValidation(t *testing.T) {
	e, service := newTestServer(t)
	conversation := service.Store().Create(context.Background())

	rec := request(t, e, http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/messages", `{"text":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", rec.Code)
	}

	rec = request(t, e, http.MethodPost, "/api/v1/conversations/missing/messages", `{"text":"hello"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown conversation, got %d", rec.Code)
	}
}
