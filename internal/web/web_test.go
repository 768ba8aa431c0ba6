package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/analyzer"
	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/internal/orchestrator"
	"github.com/haasonsaas/conductor/internal/sessions"
	"github.com/haasonsaas/conductor/internal/tools"
	"github.com/haasonsaas/conductor/pkg/models"
)

type stubProvider struct{}

func (stubProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	ch := make(chan *agent.CompletionChunk, 1)
	ch <- &agent.CompletionChunk{Text: "hi there", Done: true}
	close(ch)
	return ch, nil
}
func (stubProvider) Name() string          { return "stub" }
func (stubProvider) Models() []agent.Model { return nil }
func (stubProvider) SupportsTools() bool   { return false }

func newTestHandler(t *testing.T) (*Handler, *sessions.MemoryStore) {
	t.Helper()
	dir := t.TempDir()

	catalogDoc := models.AgentCatalogDocument{Agents: []models.AgentDefinition{
		{ID: "granny", Name: "Granny", Active: true, Description: "grandmother persona", SystemPrompt: "be granny"},
	}}
	catalogPath := filepath.Join(dir, "catalog.json")
	raw, _ := json.Marshal(catalogDoc)
	os.WriteFile(catalogPath, raw, 0o644)
	reg, err := catalog.NewRegistry(catalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	knowledgeDoc := models.KnowledgeCatalogDocument{Documents: []models.KnowledgeDocument{
		{Key: "ciorba", Body: "sour soup", Keywords: []string{"ciorba"}},
	}}
	knowledgePath := filepath.Join(dir, "knowledge.json")
	raw, _ = json.Marshal(knowledgeDoc)
	os.WriteFile(knowledgePath, raw, 0o644)
	knowledge, err := catalog.NewKnowledgeRegistry(knowledgePath)
	if err != nil {
		t.Fatalf("load knowledge: %v", err)
	}

	store := sessions.NewMemoryStore()
	locks := sessions.NewSessionLockManager(5 * time.Second)
	az := analyzer.New(reg, knowledge, "granny")
	rt := tools.NewRuntime(nil, knowledge, 0)
	runner := agent.NewRunner(stubProvider{})
	orch := orchestrator.New(store, locks, reg, az, rt, runner, nil, nil, orchestrator.Config{DefaultAgent: "granny"})

	h := NewHandler(Config{Store: store, Orchestrator: orch, Agents: reg, Knowledge: knowledge})
	return h, store
}

func TestCreateAndGetChat(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/chats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var session models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a non-empty session id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/chats/"+session.ID, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
}

func TestGetChat_UnknownReturns404(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/chats/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSetSupervisor_TogglesMode(t *testing.T) {
	h, store := newTestHandler(t)
	session, _ := store.Create(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/chats/"+session.ID+"/supervisor?enabled=true", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !updated.SupervisorMode {
		t.Fatal("expected supervisor mode enabled")
	}
}

func TestSendMessage_ManualModeReturnsSessionAndEvents(t *testing.T) {
	h, store := newTestHandler(t)
	session, _ := store.Create(context.Background())
	session.Plan = models.ManualPlan{Entries: []models.PlanEntry{{AgentID: "granny", Enabled: true}}}
	store.Put(context.Background(), session)

	body, _ := json.Marshal(messageRequest{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/chats/"+session.ID+"/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Session *models.Session      `json:"session"`
		Events  []models.StreamEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) == 0 {
		t.Fatal("expected at least one stream event")
	}
	if len(resp.Session.History) < 2 {
		t.Fatalf("expected at least a user and an agent message, got %+v", resp.Session.History)
	}
}

func TestStreamMessage_EmitsNDJSON(t *testing.T) {
	h, store := newTestHandler(t)
	session, _ := store.Create(context.Background())
	session.Plan = models.ManualPlan{Entries: []models.PlanEntry{{AgentID: "granny", Enabled: true}}}
	store.Put(context.Background(), session)

	body, _ := json.Marshal(messageRequest{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/chats/"+session.ID+"/message/stream", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}
	lines := bytes.Count(rec.Body.Bytes(), []byte("\n"))
	if lines == 0 {
		t.Fatal("expected at least one NDJSON line")
	}
}

func TestListAgentsToolsKnowledge(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, path := range []string{"/agents", "/tools", "/knowledgebase"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCleanup_RemovesInactiveSessions(t *testing.T) {
	h, store := newTestHandler(t)
	store.Create(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/chats/cleanup", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Removed < 1 {
		t.Fatalf("expected at least 1 removed session, got %d", resp.Removed)
	}
}
