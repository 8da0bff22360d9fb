package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository/memrepo"
	"github.com/yakoovad/teambuilder/internal/service"
	"go.uber.org/zap"
)

type stubDirectory struct {
	names map[string]string
}

func (s *stubDirectory) Authorize(context.Context) (directory.Token, error) {
	return "service-token", nil
}

func (s *stubDirectory) Validate(_ context.Context, email string, token string) error {
	if _, ok := s.names[email]; !ok || token != "valid" {
		return directory.ErrAuth
	}
	return nil
}

func (s *stubDirectory) ResolveName(_ context.Context, _ directory.Token, email string) (string, error) {
	name, ok := s.names[email]
	if !ok {
		return "", directory.ErrNotFound
	}
	return name, nil
}

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	auth.TokenSecretKey = "handler-test-secret"

	dir := &stubDirectory{names: map[string]string{
		"u1@x.com":    "User One",
		"u2@x.com":    "User Two",
		"u3@x.com":    "User Three",
		"admin@x.com": "Admin",
	}}

	store := memrepo.New()
	tx := store.Transactor()

	health, err := NewHealthChecker("test", PingCheck("store", false, func(context.Context) error { return nil }))
	require.NoError(t, err)

	h := NewHandler(zap.NewNop()).
		WithHealthChecker(health).
		WithTeamService(service.NewTeamService(tx).WithUserRepo(store.Users()).WithTeamRepo(store.Teams()).WithDirectory(dir)).
		WithUnifyService(service.NewUnifyService(tx).WithUserRepo(store.Users()).WithTeamRepo(store.Teams())).
		WithMatchService(service.NewMatchService().WithUserRepo(store.Users()).WithTeamRepo(store.Teams()).WithDirectory(dir)).
		WithUserService(service.NewUserService(tx).WithUserRepo(store.Users()).WithDirectory(dir)).
		WithSessionService(service.NewSessionService(dir, time.Hour).WithAdmins([]string{"admin@x.com"}))

	e := echo.New()
	h.RegisterRoutes(e)

	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func userToken(t *testing.T, email string) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.TokenTypeUser, email, time.Hour)
	require.NoError(t, err)
	return token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) service.ErrorCode {
	t.Helper()
	var body struct {
		Error service.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func TestHandler_StartSession(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedType auth.TokenType
	}{
		{
			name:         "user",
			body:         `{"email":"U1@x.com","token":"valid"}`,
			expectedCode: http.StatusOK,
			expectedType: auth.TokenTypeUser,
		},
		{
			name:         "admin",
			body:         `{"email":"admin@x.com","token":"valid"}`,
			expectedCode: http.StatusOK,
			expectedType: auth.TokenTypeAdmin,
		},
		{
			name:         "bad directory token",
			body:         `{"email":"u1@x.com","token":"nope"}`,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "malformed email",
			body:         `{"email":"not-an-email","token":"valid"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "broken json",
			body:         `{"email":`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/auth/session", "", tt.body)
			require.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())

			if tt.expectedCode != http.StatusOK {
				return
			}

			var session service.Session
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
			assert.Equal(t, tt.expectedType, session.Type)

			claims, err := auth.VerifyToken(session.Token)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(claims.Email()), claims.Email())
		})
	}
}

func TestHandler_Auth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/teams", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.ErrorCodeInvalidAuth, errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/teams", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/users", userToken(t, "u1@x.com"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := auth.GenerateToken(auth.TokenTypeAdmin, "admin@x.com", time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/users?hasateam=false", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/users?hasateam=maybe", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TeamLifecycle(t *testing.T) {
	s := newTestServer(t)
	u1, u2, u3 := userToken(t, "u1@x.com"), userToken(t, "u2@x.com"), userToken(t, "u3@x.com")

	rec := s.do(t, http.MethodPost, "/teams", u1, `{"name":"teamA","desc":"a","skills":["Rust"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var team model.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &team))
	assert.Equal(t, []string{"u1@x.com"}, team.Members)
	assert.Equal(t, []string{"rust"}, team.WantedSkills)

	rec = s.do(t, http.MethodPost, "/teams", u1, `{"name":"teamA2","desc":"a","skills":["go"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.ErrorCodeUserInTeam, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/teams", u2, `{"name":"teamB","desc":"b","skills":["go"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/teams/teamA/invite", u1, `{"name":"teamB"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/teams/teamB/invite", u2, `{"name":"teamA"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.ErrorCodeConflictingInvite, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/teams/teamB/confirm", u2, `{"name":"teamA"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &team))
	assert.Equal(t, "teamA", team.Name)
	assert.Equal(t, []string{"u1@x.com", "u2@x.com"}, team.Members)

	rec = s.do(t, http.MethodGet, "/teams/teamB", u2, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/teams/teamA", u2, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &team))
	assert.Equal(t, []string{"User One", "User Two"}, team.Names)

	rec = s.do(t, http.MethodPost, "/teams/teamA/members", u2, `{"email":"U3@x.com"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/teams/teamA/leave", u3, "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/teams/teamA/leave", u3, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrorCodeNotAMember, errorCode(t, rec))
}

func TestHandler_InvalidRequests(t *testing.T) {
	s := newTestServer(t)
	u1 := userToken(t, "u1@x.com")

	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		expectedCode int
		errorCode    service.ErrorCode
	}{
		{
			name:         "team without skills",
			method:       http.MethodPost,
			path:         "/teams",
			body:         `{"name":"t","desc":"d","skills":[]}`,
			expectedCode: http.StatusBadRequest,
			errorCode:    service.ErrorCodeInvalidBody,
		},
		{
			name:         "invite without name",
			method:       http.MethodPost,
			path:         "/teams/teamA/invite",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			errorCode:    service.ErrorCodeInvalidBody,
		},
		{
			name:         "reject with nothing pending",
			method:       http.MethodPost,
			path:         "/teams/teamA/reject",
			body:         `{"name":"teamZ"}`,
			expectedCode: http.StatusUnprocessableEntity,
			errorCode:    service.ErrorCodeNotInvited,
		},
		{
			name:         "self invite",
			method:       http.MethodPost,
			path:         "/teams/teamA/invite",
			body:         `{"name":"teamA"}`,
			expectedCode: http.StatusUnprocessableEntity,
			errorCode:    service.ErrorCodeSelfInvite,
		},
		{
			name:         "join with unknown account",
			method:       http.MethodPost,
			path:         "/teams/teamA/members",
			body:         `{"email":"stranger@x.com"}`,
			expectedCode: http.StatusNotFound,
			errorCode:    service.ErrorCodeInvalidUser,
		},
		{
			name:         "matches for unknown team",
			method:       http.MethodGet,
			path:         "/matches/ghost",
			expectedCode: http.StatusNotFound,
			errorCode:    service.ErrorCodeTeamNotFound,
		},
	}

	rec := s.do(t, http.MethodPost, "/teams", u1, `{"name":"teamA","desc":"a","skills":["rust"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, u1, tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errorCode, errorCode(t, rec))
		})
	}
}

func TestHandler_ProfilesAndMatches(t *testing.T) {
	s := newTestServer(t)
	u1, u3 := userToken(t, "u1@x.com"), userToken(t, "u3@x.com")

	rec := s.do(t, http.MethodPost, "/users", u3, `{"skills":["Rust","go"],"bio":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/users", u3, `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/profile", u3, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "User Three", user.Name)
	assert.Equal(t, []string{"rust", "go"}, user.Skills)

	rec = s.do(t, http.MethodGet, "/matches", u1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrorCodeNotAMember, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/teams", u1, `{"name":"teamA","desc":"a","skills":["rust"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/matches", u1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var candidates []model.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, "u3@x.com", candidates[0].ID)
	assert.Equal(t, "User Three", candidates[0].Name)

	rec = s.do(t, http.MethodGet, "/teams?filter=RUST", u3, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []model.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "teamA", teams[0].Name)

	rec = s.do(t, http.MethodPut, "/teams/teamA", u1, `{"wanted_skills":["python"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/matches/teamA", u1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrorCodeNoMatches, errorCode(t, rec))
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	failing, err := NewHealthChecker("test", PingCheck("store", false, func(context.Context) error {
		return errors.New("down")
	}))
	require.NoError(t, err)

	e := echo.New()
	e.GET("/health", failing.HealthCheck())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
