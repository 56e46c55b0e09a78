package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledgerlens/statementchat/model"
	"github.com/ledgerlens/statementchat/service"
)

func chatRouter(h *ChatHandler, sessionID string) *gin.Engine {
	router := gin.New()
	router.POST("/chat", func(c *gin.Context) {
		c.Set("session_id", sessionID)
		h.Ask(c)
	})
	router.GET("/chat", func(c *gin.Context) {
		c.Set("session_id", sessionID)
		h.Transcript(c)
	})
	router.POST("/reset", func(c *gin.Context) {
		c.Set("session_id", sessionID)
		h.Reset(c)
	})
	return router
}

func askBody(t *testing.T, question string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func sessionWithData(store *service.SessionStore) *service.Session {
	session := store.Create()
	v := 200.0
	store.PutBalanceSheet(session.ID, &model.BalanceSheet{
		StatementType: model.TypeBalanceSheet,
		TimePeriods:   []string{"Feb 2025"},
		Assets: map[string]model.AccountSeries{
			"Checking": {"Feb 2025": &v},
		},
	})
	return session
}

func TestChatHandlerAsk(t *testing.T) {
	store := newTestStore()
	session := sessionWithData(store)

	gen := &scriptedGenerator{
		codeResult: &service.CodeResult{
			Text:    "Your checking balance in Feb 2025 was $200.00.",
			Code:    []string{"print(200.0)"},
			Outputs: []string{"200.0"},
		},
	}
	handler := &ChatHandler{querier: service.NewQuerier(gen), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("POST", "/chat", askBody(t, "What was my checking balance in February?"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["answer"] != "Your checking balance in Feb 2025 was $200.00." {
		t.Errorf("Unexpected answer: %v", response["answer"])
	}

	// Question and answer both land in the transcript
	messages := store.Get(session.ID).Messages
	if len(messages) != 2 {
		t.Fatalf("Expected 2 transcript messages, got %d", len(messages))
	}
	if messages[0].Role != model.RoleUser || messages[1].Role != model.RoleAssistant {
		t.Error("Expected user question followed by assistant answer")
	}
}

func TestChatHandlerAskNoData(t *testing.T) {
	store := newTestStore()
	session := store.Create()

	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("POST", "/chat", askBody(t, "What is my net income?"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}

	// The refusal is still part of the transcript
	messages := store.Get(session.ID).Messages
	if len(messages) != 2 || !messages[1].IsError {
		t.Errorf("Expected error answer in transcript, got %+v", messages)
	}
}

func TestChatHandlerAskGenerationFailure(t *testing.T) {
	store := newTestStore()
	session := sessionWithData(store)

	gen := &scriptedGenerator{codeErr: errors.New("deadline exceeded")}
	handler := &ChatHandler{querier: service.NewQuerier(gen), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("POST", "/chat", askBody(t, "total assets?"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}

	// Stored records survive a failed question
	stored := store.Get(session.ID)
	if stored.BalanceSheet == nil {
		t.Error("Expected balance sheet to survive failed query")
	}
	messages := stored.Messages
	if len(messages) != 2 || !messages[1].IsError {
		t.Error("Expected error answer in transcript")
	}
}

func TestChatHandlerAskEmptyQuestion(t *testing.T) {
	store := newTestStore()
	session := sessionWithData(store)

	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, session.ID)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing question", body: `{}`},
		{name: "blank question", body: `{"question": "   "}`},
		{name: "not json", body: `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/chat", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestChatHandlerTranscript(t *testing.T) {
	store := newTestStore()
	session := store.Create()
	store.AppendMessage(session.ID, model.Message{Role: model.RoleUser, Content: "q1"})
	store.AppendMessage(session.ID, model.Message{Role: model.RoleAssistant, Content: "a1"})

	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("GET", "/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Messages []model.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(response.Messages))
	}
	if response.Messages[0].Content != "q1" {
		t.Errorf("Expected q1 first, got %s", response.Messages[0].Content)
	}
}

func TestChatHandlerTranscriptEmpty(t *testing.T) {
	store := newTestStore()
	session := store.Create()

	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("GET", "/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"messages":[]`)) {
		t.Errorf("Expected empty messages array, got %s", w.Body.String())
	}
}

func TestChatHandlerReset(t *testing.T) {
	store := newTestStore()
	session := sessionWithData(store)
	store.AppendMessage(session.ID, model.Message{Role: model.RoleUser, Content: "q1"})

	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, session.ID)

	req := httptest.NewRequest("POST", "/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	stored := store.Get(session.ID)
	if stored == nil {
		t.Fatal("Expected session to survive reset")
	}
	if stored.HasData() || len(stored.Messages) != 0 {
		t.Error("Expected reset to clear statements and transcript")
	}
}

func TestChatHandlerUnknownSession(t *testing.T) {
	store := newTestStore()
	handler := &ChatHandler{querier: service.NewQuerier(&scriptedGenerator{}), store: store}
	router := chatRouter(handler, "no-such-session")

	req := httptest.NewRequest("POST", "/chat", askBody(t, "hello?"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
