package adapters

import (
	"bytes"
	"context"
	"io"
	"testing"

	"crm_backend/internal/adapters/storage"
	agentsrepo "crm_backend/internal/agents/repository"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeUsers struct {
	users      []agentsrepo.User
	lastFilter agentsrepo.ListFilter
}

func (f *fakeUsers) ListUsers(_ context.Context, _ uuid.UUID, filter agentsrepo.ListFilter) ([]agentsrepo.User, error) {
	f.lastFilter = filter
	return f.users, nil
}

func (f *fakeUsers) GetUser(_ context.Context, _ uuid.UUID, userID uuid.UUID) (agentsrepo.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return agentsrepo.User{}, agentsrepo.ErrNotFound
}

func strPtr(s string) *string { return &s }

func TestAgentDirectoryMapsUsers(t *testing.T) {
	branch := "lahore-main"
	users := &fakeUsers{users: []agentsrepo.User{
		{ID: uuid.New(), Email: "sara@example.com", FirstName: strPtr("Sara"), LastName: strPtr(" Khan "), Role: "sales_agent", Branch: &branch, Active: true},
		{ID: uuid.New(), Email: "omar.farooq@example.com", Role: "admin", Active: true},
	}}
	dir := NewAgentDirectory(users)

	agents, err := dir.ListAgents(context.Background(), uuid.New(), ports.AgentQuery{Roles: []string{"sales_agent", "admin"}, ActiveOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(agents) != 2 || agents[0].Name != "Sara Khan" || agents[1].Name != "Omar Farooq" {
		t.Fatalf("unexpected agents %+v", agents)
	}
	if agents[0].Branch == nil || *agents[0].Branch != branch {
		t.Fatalf("expected branch to carry over, got %v", agents[0].Branch)
	}
	if !users.lastFilter.ActiveOnly || len(users.lastFilter.Roles) != 2 {
		t.Fatalf("expected the query to be forwarded, got %+v", users.lastFilter)
	}

	if _, err := dir.GetAgent(context.Background(), uuid.New(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type memObjects struct {
	policy  storage.Policy
	objects map[string][]byte
}

func (m *memObjects) Put(_ context.Context, folder, fileName, contentType string, r io.Reader, size int64) (string, error) {
	if _, err := m.policy.Check(contentType, size); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := storage.ObjectKey(folder, fileName)
	m.objects[key] = data
	return key, nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestImportFileStoreRoundTrip(t *testing.T) {
	mem := &memObjects{policy: storage.ImportPolicy(1 << 20), objects: map[string][]byte{}}
	store := NewImportFileStore(mem)
	data := []byte("name,phone\nAli,0321 1111111\n")

	key, err := store.Upload(context.Background(), "tenant", "leads.csv", "text/csv", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc, err := store.Download(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("unexpected content %q", got)
	}
	if err := store.Delete(context.Background(), key); err != nil || len(mem.objects) != 0 {
		t.Fatalf("expected the object to be removed, err=%v", err)
	}

	if _, err := store.Upload(context.Background(), "tenant", "photo.png", "image/png", bytes.NewReader(data), int64(len(data))); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Download(context.Background(), key); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestNotificationRecipients(t *testing.T) {
	active := agentsrepo.User{ID: uuid.New(), Email: "nadia.aslam@example.com", Active: true}
	inactive := agentsrepo.User{ID: uuid.New(), Email: "old@example.com"}
	r := NewNotificationRecipients(&fakeUsers{users: []agentsrepo.User{active, inactive}})

	got, err := r.ResolveRecipient(context.Background(), uuid.New(), active.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != active.Email || got.Name != "Nadia Aslam" {
		t.Fatalf("unexpected recipient %+v", got)
	}
	if _, err := r.ResolveRecipient(context.Background(), uuid.New(), inactive.ID); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone for an inactive user, got %v", err)
	}
	if _, err := r.ResolveRecipient(context.Background(), uuid.New(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
