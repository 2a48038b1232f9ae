package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"crm_backend/internal/email"
	"crm_backend/internal/events"
	"crm_backend/internal/notification/inapp"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://crm.example.com/" }

type testSender struct {
	mu        sync.Mutex
	assigned  []email.LeadAssignedEmail
	assignTo  []string
	imports   []email.ImportCompletedEmail
	importTo  []string
	assignErr error
}

func (s *testSender) SendLeadAssignedEmail(_ context.Context, to string, data email.LeadAssignedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignTo = append(s.assignTo, to)
	s.assigned = append(s.assigned, data)
	return s.assignErr
}

func (s *testSender) SendImportCompletedEmail(_ context.Context, to string, data email.ImportCompletedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importTo = append(s.importTo, to)
	s.imports = append(s.imports, data)
	return nil
}

type testRecipients map[uuid.UUID]Recipient

func (r testRecipients) ResolveRecipient(_ context.Context, _ uuid.UUID, userID uuid.UUID) (Recipient, error) {
	rec, ok := r[userID]
	if !ok {
		return Recipient{}, errors.New("unknown user")
	}
	return rec, nil
}

func newTestModule(recipients RecipientResolver) (*Module, *inapp.MemoryStore, *testSender) {
	store := inapp.NewMemoryStore()
	sender := &testSender{}
	return New(store, sender, recipients, testNotificationConfig{}, logger.New("test")), store, sender
}

func TestLeadAssignedCreatesInAppNotificationAndEmail(t *testing.T) {
	m, store, sender := newTestModule(nil)
	bus := events.NewInMemoryBus(logger.New("test"))
	m.RegisterHandlers(bus)

	tenant, agent, lead := uuid.New(), uuid.New(), uuid.New()
	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead,
		TenantID:   tenant,
		AgentID:    agent,
		AgentName:  "Sara Khan",
		AgentEmail: "sara@example.com",
		LeadName:   "Ali",
		LeadPhone:  "+923211234567",
		Strategy:   "load",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	items, total, _ := store.Page(context.Background(), inapp.Inbox{TenantID: tenant, UserID: agent}, 10, 0)
	if total != 1 || items[0].ResourceID == nil || *items[0].ResourceID != lead {
		t.Fatalf("expected one notification for the lead, got %+v", items)
	}
	if len(sender.assigned) != 1 || sender.assignTo[0] != "sara@example.com" {
		t.Fatalf("expected one email to the agent, got %v", sender.assignTo)
	}
	if got := sender.assigned[0].LeadURL; got != "https://crm.example.com/leads/"+lead.String() {
		t.Fatalf("unexpected lead url %q", got)
	}
}

func TestLeadAssignedWithoutEmailSkipsMail(t *testing.T) {
	m, store, sender := newTestModule(nil)
	tenant, agent := uuid.New(), uuid.New()
	err := m.handleLeadAssigned(context.Background(), events.LeadAssigned{
		TenantID: tenant, AgentID: agent, LeadID: uuid.New(), LeadName: "Ali", LeadPhone: "+923211234567",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.assigned) != 0 {
		t.Fatalf("did not expect an email")
	}
	if n, _ := store.Unread(context.Background(), inapp.Inbox{TenantID: tenant, UserID: agent}); n != 1 {
		t.Fatalf("expected one unread notification, got %d", n)
	}
}

func TestLeadAssignedEmailFailureIsReported(t *testing.T) {
	m, store, sender := newTestModule(nil)
	sender.assignErr = errors.New("smtp down")
	tenant, agent := uuid.New(), uuid.New()
	err := m.handleLeadAssigned(context.Background(), events.LeadAssigned{
		TenantID: tenant, AgentID: agent, AgentEmail: "a@example.com", LeadID: uuid.New(), LeadName: "Ali", LeadPhone: "1",
	})
	if err == nil {
		t.Fatalf("expected the email error to surface")
	}
	if n, _ := store.Unread(context.Background(), inapp.Inbox{TenantID: tenant, UserID: agent}); n != 1 {
		t.Fatalf("expected the in-app notification despite the email failure")
	}
}

func TestImportCompletedNotifiesActor(t *testing.T) {
	actor := uuid.New()
	m, store, sender := newTestModule(testRecipients{actor: {Name: "Omar", Email: "omar@example.com"}})
	tenant, job := uuid.New(), uuid.New()

	err := m.handleImportCompleted(context.Background(), events.LeadImportCompleted{
		TenantID: tenant, ActorID: actor, JobID: &job, FileName: "leads.csv",
		CreatedCount: 3, SkippedCount: 1, ErrorCount: 2,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	items, _, _ := store.Page(context.Background(), inapp.Inbox{TenantID: tenant, UserID: actor}, 10, 0)
	if len(items) != 1 || items[0].Category != inapp.CategoryWarning || !strings.Contains(items[0].Content, "3 created") {
		t.Fatalf("unexpected notifications %+v", items)
	}
	if len(sender.importTo) != 1 || sender.importTo[0] != "omar@example.com" {
		t.Fatalf("expected the summary email, got %v", sender.importTo)
	}
}

func TestImportCompletedWithoutActorIsIgnored(t *testing.T) {
	m, store, _ := newTestModule(nil)
	tenant := uuid.New()
	if err := m.handleImportCompleted(context.Background(), events.LeadImportCompleted{TenantID: tenant, FileName: "x.csv"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, total, _ := store.Page(context.Background(), inapp.Inbox{TenantID: tenant}, 10, 0); total != 0 {
		t.Fatalf("expected no notifications")
	}
}

func TestInboxRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, store, _ := newTestModule(nil)
	tenant, user := uuid.New(), uuid.New()
	n, _ := store.Insert(context.Background(), inapp.Notification{TenantID: tenant, UserID: user, Title: "t", Content: "c", Category: "info"})
	_, _ = store.Insert(context.Background(), inapp.Notification{TenantID: uuid.New(), UserID: user, Title: "other", Content: "c", Category: "info"})

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, user)
		c.Set(httpkit.ContextTenantIDKey, tenant)
		c.Next()
	})
	m.handler.RegisterRoutes(engine.Group("/notifications"))

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	if rec := do(http.MethodGet, "/notifications/unread"); !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("expected one unread in this tenant, got %s", rec.Body.String())
	}
	if rec := do(http.MethodPatch, "/notifications/"+n.ID.String()+"/read"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/notifications/unread"); !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Fatalf("expected zero unread, got %s", rec.Body.String())
	}
	if rec := do(http.MethodDelete, "/notifications/"+uuid.NewString()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(http.MethodDelete, "/notifications/bad"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/notifications?limit=5"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("unexpected list %d %s", rec.Code, rec.Body.String())
	}
}
