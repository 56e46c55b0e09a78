package service

import (
	"testing"
	"time"

	"github.com/ledgerlens/statementchat/model"
)

func newPL() *model.ProfitAndLoss {
	return &model.ProfitAndLoss{StatementType: model.TypeProfitAndLoss}
}

func newBS() *model.BalanceSheet {
	return &model.BalanceSheet{StatementType: model.TypeBalanceSheet, TimePeriods: []string{"Jan 2025"}}
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore(0, 0)

	session := store.Create()
	if session.ID == "" {
		t.Fatal("Expected non-empty session ID")
	}
	if session.HasData() {
		t.Error("Expected new session to have no data")
	}

	got := store.Get(session.ID)
	if got == nil || got.ID != session.ID {
		t.Errorf("Expected to get session %s back", session.ID)
	}

	if store.Get("no-such-session") != nil {
		t.Error("Expected nil for unknown session")
	}
}

func TestSessionStoreReplaceSameType(t *testing.T) {
	store := NewSessionStore(0, 0)
	session := store.Create()

	first := newPL()
	second := newPL()
	store.PutProfitAndLoss(session.ID, first)
	store.PutProfitAndLoss(session.ID, second)

	got := store.Get(session.ID)
	if got.ProfitAndLoss != second {
		t.Error("Expected second upload to replace the first")
	}
}

func TestSessionStoreTypeIsolation(t *testing.T) {
	store := NewSessionStore(0, 0)
	session := store.Create()

	pl := newPL()
	store.PutProfitAndLoss(session.ID, pl)
	store.PutBalanceSheet(session.ID, newBS())

	got := store.Get(session.ID)
	if got.ProfitAndLoss != pl {
		t.Error("Expected balance sheet upload to leave the P&L slot alone")
	}
	if got.BalanceSheet == nil {
		t.Error("Expected balance sheet to be stored")
	}
}

func TestSessionStoreDeleteStatement(t *testing.T) {
	store := NewSessionStore(0, 0)
	session := store.Create()
	store.PutProfitAndLoss(session.ID, newPL())

	if !store.DeleteStatement(session.ID, model.TypeProfitAndLoss) {
		t.Error("Expected delete of occupied slot to report true")
	}
	if store.DeleteStatement(session.ID, model.TypeProfitAndLoss) {
		t.Error("Expected delete of empty slot to report false")
	}
	if store.Get(session.ID).ProfitAndLoss != nil {
		t.Error("Expected P&L slot to be cleared")
	}
}

func TestSessionStoreReset(t *testing.T) {
	store := NewSessionStore(0, 0)
	session := store.Create()
	store.PutProfitAndLoss(session.ID, newPL())
	store.PutBalanceSheet(session.ID, newBS())
	store.AppendMessage(session.ID, model.Message{Role: model.RoleUser, Content: "hello"})

	if !store.Reset(session.ID) {
		t.Fatal("Expected reset to succeed")
	}

	got := store.Get(session.ID)
	if got == nil {
		t.Fatal("Expected session to survive reset")
	}
	if got.HasData() || len(got.Messages) != 0 {
		t.Error("Expected reset to clear statements and transcript")
	}
}

func TestSessionStoreTranscriptOrder(t *testing.T) {
	store := NewSessionStore(0, 0)
	session := store.Create()

	store.AppendMessage(session.ID, model.Message{Role: model.RoleUser, Content: "q1"})
	store.AppendMessage(session.ID, model.Message{Role: model.RoleAssistant, Content: "a1"})
	store.AppendMessage(session.ID, model.Message{Role: model.RoleUser, Content: "q2"})

	got := store.Get(session.ID)
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "q1" || got.Messages[1].Content != "a1" || got.Messages[2].Content != "q2" {
		t.Error("Expected messages in append order")
	}
}

func TestSessionStoreTTLEviction(t *testing.T) {
	store := NewSessionStore(0, time.Hour)
	session := store.Create()

	// Backdate the session past its TTL
	store.mu.Lock()
	store.sessions[session.ID].LastActiveAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	if store.Get(session.ID) != nil {
		t.Error("Expected idle session to be evicted on access")
	}
	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d sessions", store.Count())
	}
}

func TestSessionStoreMaxSessionsEviction(t *testing.T) {
	store := NewSessionStore(2, 0)

	oldest := store.Create()
	store.mu.Lock()
	store.sessions[oldest.ID].LastActiveAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	store.Create()
	store.Create()

	if store.Count() != 2 {
		t.Errorf("Expected 2 sessions after eviction, got %d", store.Count())
	}
	if store.Get(oldest.ID) != nil {
		t.Error("Expected longest-idle session to be evicted")
	}
}
