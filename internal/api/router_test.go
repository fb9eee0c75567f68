package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specpkg "github.com/uplifor/aac-api/api"
	"github.com/uplifor/aac-api/internal/api"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/database"
	"github.com/uplifor/aac-api/internal/metrics"
	"github.com/uplifor/aac-api/internal/profile"
	"github.com/uplifor/aac-api/internal/ratelimit"
	"github.com/uplifor/aac-api/internal/relation"
	"github.com/uplifor/aac-api/internal/role"
	"github.com/uplifor/aac-api/internal/token"
)

type memPrincipals struct {
	mu   sync.Mutex
	byID map[int64]*auth.Principal
}

func (m *memPrincipals) Create(_ context.Context, p *auth.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, p.Email) {
			return auth.ErrDuplicateEmail
		}
	}
	p.ID = int64(len(m.byID) + 1)
	p.CreatedAt = time.Now().UTC()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPrincipals) GetByID(_ context.Context, id int64) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, auth.ErrPrincipalNotFound
}

func (m *memPrincipals) List(context.Context) ([]auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auth.Principal, 0, len(m.byID))
	for id := int64(1); id <= int64(len(m.byID)); id++ {
		out = append(out, *m.byID[id])
	}
	return out, nil
}

func (m *memPrincipals) Update(_ context.Context, id int64, u auth.PrincipalUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
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

func (m *memPrincipals) TouchLogin(context.Context, int64) error { return nil }

type noAssignments struct{}

func (noAssignments) ActiveAssignments(context.Context, int64) ([]role.Assignment, error) {
	return nil, nil
}

type noRelations struct{}

func (noRelations) HasActiveAssignment(context.Context, relation.AssignmentQuery) (bool, error) {
	return false, nil
}

func (noRelations) StudentsOfTeacher(context.Context, relation.AssignmentQuery) ([]relation.Student, error) {
	return nil, nil
}

func (noRelations) AllStudents(context.Context, *int64) ([]relation.Student, error) {
	return nil, nil
}

func (noRelations) ParentLink(context.Context, int64, int64) (*relation.ParentLink, error) {
	return nil, relation.ErrLinkNotFound
}

func (noRelations) ChildrenOf(context.Context, int64) ([]relation.Child, error) {
	return nil, nil
}

type noProfiles struct{}

func (noProfiles) GetByID(context.Context, int64) (*profile.Profile, error) {
	return nil, profile.ErrProfileNotFound
}

func (noProfiles) ListByOwner(context.Context, int64) ([]profile.Profile, error) { return nil, nil }

func (noProfiles) OwnerOf(context.Context, int64) (int64, error) {
	return 0, profile.ErrProfileNotFound
}

type testServer struct {
	handler    *chi.Mux
	principals *memPrincipals
	accounts   *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	principals := &memPrincipals{byID: map[int64]*auth.Principal{}}
	codec := token.New("router-test-secret")
	accounts := auth.NewService(principals, auth.NewHasher(4), codec, time.Hour)

	m := metrics.New()
	graph := role.NewGraph(noAssignments{}, 0, 0)
	resolver := relation.NewResolver(noRelations{}, database.AllCapabilities, authz.NewAdmins(graph, principals), relation.WithMetrics(m))
	engine := authz.NewEngine(graph, resolver, noProfiles{}, m)

	policy := ratelimit.Policy{
		Rules:   []ratelimit.Rule{{Name: "register", Match: []string{"/register"}, Limit: 2, Window: time.Minute}},
		Default: ratelimit.Rule{Name: "default", Limit: 100, Window: time.Minute},
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisEventLog(client, 2*time.Minute), ratelimit.WithMetrics(m))

	router := api.NewRouter(api.RouterDeps{
		Version:        "test",
		OpenAPISpec:    specpkg.OpenAPISpec,
		Accounts:       accounts,
		Authenticator:  accounts,
		Principals:     principals,
		Roles:          graph,
		Engine:         engine,
		Relations:      resolver,
		Profiles:       noProfiles{},
		Limiter:        limiter,
		Policy:         policy,
		TokenVerifier:  codec,
		Metrics:        m,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	return &testServer{handler: router, principals: principals, accounts: accounts}
}

func (s *testServer) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func tokenFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aac_http_requests_total")
}

func TestRouter_OperationalEndpointsDoNotConsumeBudget(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 3; i++ {
		for _, path := range []string{"/health", "/metrics", "/openapi.json"} {
			w := s.do(http.MethodGet, path, "", "")
			require.Equal(t, http.StatusOK, w.Code, path)
			assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"), path)
		}
	}

	w := s.do(http.MethodPost, "/user/register", `{"email":"ops@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/user/register", `{"email":"ada@example.com","password":"hunter22","name":"Ada"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = s.do(http.MethodPost, "/user/login", `{"email":"ada@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	raw := tokenFrom(t, w)

	w = s.do(http.MethodGet, "/user/me", "", raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ada@example.com"`)

	w = s.do(http.MethodGet, "/user/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/user/me", "", raw+"x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RegisterIsRateLimited(t *testing.T) {
	s := newTestServer(t)

	for i, email := range []string{"a@example.com", "b@example.com"} {
		w := s.do(http.MethodPost, "/user/register", `{"email":"`+email+`","password":"hunter22"}`, "")
		require.Equal(t, http.StatusCreated, w.Code, "request %d", i)
	}

	w := s.do(http.MethodPost, "/user/register", `{"email":"c@example.com","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"error":"rate_limit_exceeded"`)

	_, err := s.principals.GetByEmail(context.Background(), "c@example.com")
	assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
}

func TestRouter_RoleGates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/user/register", `{"email":"student@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	student := tokenFrom(t, w)

	w = s.do(http.MethodGet, "/teacher/students", "", student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied - teacher role required")

	w = s.do(http.MethodGet, "/parent/children", "", student)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/admin/users", "", student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")

	created, err := s.accounts.BootstrapAdmin(context.Background(), "root@example.com", "rootpass1", "Root")
	require.NoError(t, err)
	require.True(t, created)
	w = s.do(http.MethodPost, "/user/login", `{"email":"root@example.com","password":"rootpass1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	admin := tokenFrom(t, w)

	w = s.do(http.MethodGet, "/admin/users", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/teacher/students", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, "/admin/users/1", `{"role":"teacher"}`, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/teacher/students", "", student)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	w = s.do(http.MethodPatch, "/admin/users/1", `{"isActive":false}`, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/user/me", "", student)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AccessCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/user/register", `{"email":"kid@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	raw := tokenFrom(t, w)

	w = s.do(http.MethodGet, "/access/student_data/1", "", raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"allowed":true,"reason":"self"}}`, w.Body.String())

	w = s.do(http.MethodGet, "/access/student_data/2", "", raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"allowed":false,"reason":"denied"}}`, w.Body.String())

	w = s.do(http.MethodGet, "/profiles/5", "", raw)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_PreflightNotCounted(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/user/register", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		s.handler.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	}

	w := s.do(http.MethodPost, "/user/register", `{"email":"a@example.com","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}
