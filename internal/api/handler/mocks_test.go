package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/profile"
	"github.com/uplifor/aac-api/internal/relation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// serve routes req through a chi mux so URL parameters resolve, with
// identity attached when non-nil.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request, identity *auth.Identity) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	if identity != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mockAccounts struct {
	registerFn func(ctx context.Context, email, password, name string) (*auth.Session, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.Session, error)
}

func (m *mockAccounts) Register(ctx context.Context, email, password, name string) (*auth.Session, error) {
	return m.registerFn(ctx, email, password, name)
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	return m.loginFn(ctx, email, password)
}

type mockPrincipals struct {
	principals map[int64]*auth.Principal
	listErr    error
	updateErr  error
	updates    []auth.PrincipalUpdate
}

func (m *mockPrincipals) Create(_ context.Context, p *auth.Principal) error {
	p.ID = int64(len(m.principals) + 1)
	m.principals[p.ID] = p
	return nil
}

func (m *mockPrincipals) GetByID(_ context.Context, id int64) (*auth.Principal, error) {
	p, ok := m.principals[id]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrincipals) GetByEmail(_ context.Context, email string) (*auth.Principal, error) {
	for _, p := range m.principals {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, auth.ErrPrincipalNotFound
}

func (m *mockPrincipals) List(context.Context) ([]auth.Principal, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]auth.Principal, 0, len(m.principals))
	for id := int64(1); id <= int64(len(m.principals)); id++ {
		if p, ok := m.principals[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPrincipals) Update(_ context.Context, id int64, u auth.PrincipalUpdate) error {
	m.updates = append(m.updates, u)
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.principals[id]
	if !ok {
		return auth.ErrPrincipalNotFound
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	return nil
}

func (m *mockPrincipals) TouchLogin(context.Context, int64) error { return nil }

type mockRoleCache struct {
	invalidated []int64
}

func (m *mockRoleCache) Invalidate(id int64) { m.invalidated = append(m.invalidated, id) }

// stubRoles grants system admin to the listed principals and org admin per
// organization.
type stubRoles struct {
	admins    map[int64]bool
	orgAdmins map[int64]int64
}

func (s stubRoles) IsSystemAdmin(_ context.Context, id int64) (bool, error) {
	return s.admins[id], nil
}

func (s stubRoles) IsOrgAdmin(_ context.Context, id, org int64) (bool, error) {
	o, ok := s.orgAdmins[id]
	return ok && o == org, nil
}

func (s stubRoles) HoldsClass(context.Context, int64, int64) (bool, error) { return false, nil }

type edge struct{ from, to int64 }

type stubRelations struct {
	teaches map[edge]bool
	links   map[edge]relation.ParentLink
}

func (s stubRelations) IsTeacherOf(_ context.Context, t, st int64, _ *int64) bool {
	return s.teaches[edge{t, st}]
}

func (s stubRelations) IsParentOf(_ context.Context, p, c int64) bool {
	_, ok := s.links[edge{p, c}]
	return ok
}

func (s stubRelations) ParentLink(_ context.Context, p, c int64) (*relation.ParentLink, bool) {
	l, ok := s.links[edge{p, c}]
	if !ok {
		return nil, false
	}
	return &l, true
}

type mockProfiles struct {
	profiles map[int64]profile.Profile
	err      error
}

func (m *mockProfiles) GetByID(_ context.Context, id int64) (*profile.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

func (m *mockProfiles) ListByOwner(_ context.Context, owner int64) ([]profile.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []profile.Profile
	for id := int64(0); id < 1000; id++ {
		if p, ok := m.profiles[id]; ok && p.OwnerID == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProfiles) OwnerOf(_ context.Context, id int64) (int64, error) {
	p, ok := m.profiles[id]
	if !ok {
		return 0, profile.ErrProfileNotFound
	}
	return p.OwnerID, nil
}

// Fixture principals shared by the profile and access tests.
const (
	adminID   int64 = 1
	teacherID int64 = 2
	parentID  int64 = 3
	childID   int64 = 4
	outsider  int64 = 5
)

func fixtureProfiles() *mockProfiles {
	return &mockProfiles{profiles: map[int64]profile.Profile{
		10: {ID: 10, OwnerID: childID, DisplayName: "Home board"},
		11: {ID: 11, OwnerID: childID, DisplayName: "School board"},
		20: {ID: 20, OwnerID: outsider, DisplayName: "Other"},
	}}
}

func fixtureEngine(profiles authz.ProfileOwners) *authz.Engine {
	roles := stubRoles{admins: map[int64]bool{adminID: true}, orgAdmins: map[int64]int64{outsider: 42}}
	relations := stubRelations{
		teaches: map[edge]bool{{teacherID, childID}: true},
		links: map[edge]relation.ParentLink{
			{parentID, childID}: {ParentID: parentID, ChildID: childID, RelationshipType: "parent", CanManageProfile: true, CanViewProgress: true},
		},
	}
	return authz.NewEngine(roles, relations, profiles, nil)
}
