package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"otp-relay/internal/db/dbtest"
	"otp-relay/internal/linker"
	linkerrepo "otp-relay/internal/linker/repository"
	"otp-relay/internal/project/repository"
	responderrepo "otp-relay/internal/responder/repository"
	"otp-relay/internal/security"
	"otp-relay/internal/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type auditCall struct{ projectID, actor, action, resource string }

type auditStub struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *auditStub) LogEvent(_ context.Context, projectID, actor, action, resource, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{projectID, actor, action, resource})
}

type fixture struct {
	router   *gin.Engine
	projects *repository.PostgresRepository
	hasher   *security.Hasher
	audit    *auditStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	dbtest.SeedSlackBinding(t, conn, "p1", "s1", "C1")

	projects := repository.NewPostgresRepository(conn)
	hasher := security.NewHasher(4)
	a := &auditStub{}
	linkers := linker.NewService(linkerrepo.NewPostgresRepository(conn), projects, nil, nil, zap.NewNop(), time.Hour)
	h := NewHandler(projects, responderrepo.NewPostgresRepository(conn), linkers, hasher, a, zap.NewNop())

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextOperator, "alice")
		c.Next()
	})
	h.Register(api)
	return &fixture{router: r, projects: projects, hasher: hasher, audit: a}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/projects", `{"repo_owner":"acme","repo_name":"gadgets"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Project projectView `json:"project"`
		Secret  string      `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, strings.HasPrefix(out.Secret, security.SecretPrefix))
	assert.Equal(t, "gadgets", out.Project.RepoName)
	assert.Nil(t, out.Project.Responder)

	stored, err := f.projects.GetByID(context.Background(), out.Project.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, out.Secret, stored.SecretHash)
	assert.NoError(t, f.hasher.Compare(stored.SecretHash, []byte(out.Secret)))
	assert.NotContains(t, w.Body.String(), stored.SecretHash)

	require.Len(t, f.audit.calls, 1)
	assert.Equal(t, auditCall{out.Project.ID, "alice", "create", "project"}, f.audit.calls[0])
}

func TestCreateProject_Rejections(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/projects", `{"repo_owner":"acme","repo_name":"widgets"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/projects", `{"repo_owner":"acme"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/projects", `{"repo_owner":"ac/me","repo_name":"x"}`).Code)
}

func TestGetProject(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/projects/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var v projectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	require.NotNil(t, v.Responder)
	assert.Equal(t, responderView{Platform: "slack", DestinationID: "C1", WorkspaceID: "T1"}, *v.Responder)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/projects/nope", "").Code)
}

func TestCreateLinker(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/projects/p1/linkers/feishu", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
		Command  string `json:"command"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "feishu", out.Platform)
	assert.Equal(t, "/cfa-link "+out.Token, out.Command)

	again := f.do(http.MethodPost, "/api/projects/p1/linkers/feishu", "")
	assert.Contains(t, again.Body.String(), out.Token, "pending linker is reused")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/projects/p1/linkers/teams", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/projects/nope/linkers/slack", "").Code)
}

func TestUpdateResponder(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPatch, "/api/projects/p1/responders/slack", `{"user_to_mention":"U9"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v projectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	require.NotNil(t, v.Responder)
	assert.Equal(t, "C1", v.Responder.DestinationID, "omitted destination is kept")
	assert.Equal(t, "U9", v.Responder.UserToMention)

	w = f.do(http.MethodPatch, "/api/projects/p1/responders/slack", `{"destination_id":"C2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "C2", v.Responder.DestinationID)
	assert.Equal(t, "U9", v.Responder.UserToMention, "omitted mention is kept")

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPatch, "/api/projects/p1/responders/feishu", `{"destination_id":"oc_1"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPatch, "/api/projects/nope/responders/slack", `{}`).Code)
}

func TestResetResponders(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/projects/p1/responders", "").Code)

	w := f.do(http.MethodGet, "/api/projects/p1", "")
	var v projectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Nil(t, v.Responder)

	require.Len(t, f.audit.calls, 1)
	assert.Equal(t, auditCall{"p1", "alice", "reset", "responder"}, f.audit.calls[0])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/projects/nope/responders", "").Code)
}
