package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/assignment"
	"crm_backend/internal/leads/imports"
	"crm_backend/internal/leads/intake"
	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/management"
	"crm_backend/internal/leads/matching"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/routing"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testServer struct {
	engine *gin.Engine
	tenant uuid.UUID
	store  *leadstest.Store
	agents []ports.Agent
}

func newTestServer(t *testing.T, withTenant bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.New("test")

	s := &testServer{tenant: uuid.New(), store: leadstest.NewStore()}
	dir := leadstest.NewDirectory()
	s.agents = dir.Add(s.tenant,
		ports.Agent{Name: "A", Email: "a@example.com", Role: "sales_agent", Active: true},
		ports.Agent{Name: "B", Email: "b@example.com", Role: "sales_agent", Active: true},
	)
	regions, err := assignment.NewRegions(nil)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	bus := events.NewInMemoryBus(log)
	matcher := matching.New(s.store, log)
	factory := intake.NewFactory(s.store, matcher, "PK")
	selector := assignment.NewSelector(s.store, s.store, s.store, dir, assignment.Options{
		Regions:           regions,
		AssignableRoles:   []string{"sales_agent"},
		FallbackAdminRole: "admin",
		DefaultDepartment: "sales",
	}, log)
	intakeSvc := intake.NewService(matcher, factory, selector, lock.NewMemoryLocker(), lock.DefaultPolicy(), bus, log)
	orch := imports.NewOrchestrator(s.store, factory, selector, bus, "placeholder.invalid", log)
	importSvc := imports.NewService(orch, s.store, leadstest.NewFiles(), &leadstest.Enqueuer{}, 2, log)

	h := New(intakeSvc, management.New(s.store), importSvc, routing.New(s.store, dir, log), validator.New(), 1<<20)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, []string{"admin"})
		if withTenant {
			c.Set(httpkit.ContextTenantIDKey, s.tenant)
		}
		c.Next()
	})
	h.RegisterRoutes(engine.Group("/leads"))
	h.RegisterAdminRoutes(engine.Group("/admin/location-routing"))
	s.engine = engine
	return s
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestIntakeCreatesThenReturnsExisting(t *testing.T) {
	s := newTestServer(t, true)
	body := map[string]any{"name": "Ali", "phone": "0321 1234567", "source": "web_form"}

	rec := s.do(http.MethodPost, "/leads/intake", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first transport.IntakeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.Created || first.AssignedAgent == nil || first.AssignedAgent.ID != s.agents[0].ID {
		t.Fatalf("unexpected response %+v", first)
	}

	rec = s.do(http.MethodPost, "/leads/intake", map[string]any{"phone": "+92 321 1234567"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var second transport.IntakeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &second)
	if second.Created || second.Lead.ID != first.Lead.ID {
		t.Fatalf("expected the existing lead, got %+v", second)
	}

	rec = s.do(http.MethodGet, "/leads/"+first.Lead.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for get, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/leads/lookup?phone=00923211234567", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), first.Lead.ID.String()) {
		t.Fatalf("expected lookup to find the lead, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestIntakeValidation(t *testing.T) {
	s := newTestServer(t, true)
	if rec := s.do(http.MethodPost, "/leads/intake", map[string]any{"name": "No phone"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/leads/intake", map[string]any{"phone": "0321 1234567", "source": "fax"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown source, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/leads/lookup", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty lookup, got %d", rec.Code)
	}
}

func TestRoutesRequireTenant(t *testing.T) {
	s := newTestServer(t, false)
	if rec := s.do(http.MethodPost, "/leads/intake", map[string]any{"phone": "0321 1234567"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGetUnknownLead(t *testing.T) {
	s := newTestServer(t, true)
	if rec := s.do(http.MethodGet, "/leads/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/leads/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestImportMultipartInlineAndQueued(t *testing.T) {
	s := newTestServer(t, true)

	post := func(data string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, _ := w.CreateFormFile("file", "leads.csv")
		_, _ = part.Write([]byte(data))
		_ = w.WriteField("defaultLeadType", "cold")
		_ = w.Close()
		req := httptest.NewRequest(http.MethodPost, "/leads/imports", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, req)
		return rec
	}

	rec := post("name,phone\nAli,0321 1111111\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an inline import, got %d: %s", rec.Code, rec.Body.String())
	}
	var inline transport.ImportSubmissionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &inline)
	if inline.Queued || inline.Result == nil || inline.Result.CreatedCount != 1 {
		t.Fatalf("unexpected inline response %+v", inline)
	}

	rec = post("name,phone\nA,0321 2222222\nB,0321 3333333\nC,0321 4444444\n")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for a queued import, got %d", rec.Code)
	}
	var queued transport.ImportSubmissionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &queued)

	rec = s.do(http.MethodGet, "/leads/imports/"+queued.Job.ID.String(), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"pending"`) {
		t.Fatalf("expected the pending job, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestImportJSONRowsMissingPhoneColumn(t *testing.T) {
	s := newTestServer(t, true)
	rec := s.do(http.MethodPost, "/leads/imports", map[string]any{
		"rows": []map[string]any{{"name": "Ali", "mobile": "0321 1111111"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoutingAdminFlow(t *testing.T) {
	s := newTestServer(t, true)

	if rec := s.do(http.MethodPost, "/admin/location-routing/locations", map[string]any{"city": " Lahore "}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodPost, "/admin/location-routing/users", map[string]any{"userId": s.agents[1].ID}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodPut, "/admin/location-routing/active", map[string]any{"active": true}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPut, "/admin/location-routing/active", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without active, got %d", rec.Code)
	}

	rec := s.do(http.MethodGet, "/admin/location-routing/next-user", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), s.agents[1].ID.String()) {
		t.Fatalf("expected next user B, got %d %s", rec.Code, rec.Body.String())
	}

	city := "lahore"
	intake := s.do(http.MethodPost, "/leads/intake", map[string]any{"phone": "0321 7654321", "city": city})
	if !strings.Contains(intake.Body.String(), s.agents[1].ID.String()) {
		t.Fatalf("expected location routing to pick B, got %s", intake.Body.String())
	}

	if rec := s.do(http.MethodGet, "/admin/location-routing/cities/Karachi", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unrouted city, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/admin/location-routing/users/"+s.agents[1].ID.String(), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/admin/location-routing/locations/Lahore", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
