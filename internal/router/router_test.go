package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/config"
	"helpdesk/internal/models"
	"helpdesk/internal/repository/memory"
	"helpdesk/internal/service"
	"helpdesk/internal/utils"
)

type env struct {
	t   *testing.T
	h   http.Handler
	svc *service.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	utils.HashCost = 4
	repos := memory.New().Repos()
	cfg := config.Config{Env: "test", Origin: "http://localhost:3000", Secret: "test-secret"}
	return &env{
		t:   t,
		h:   New(zerolog.Nop(), repos, cfg),
		svc: service.NewAuthService(repos.Users, cfg.Secret),
	}
}

func (e *env) user(email string, role models.Role) (models.User, string) {
	e.t.Helper()
	u, err := e.svc.CreateUser(context.Background(), email, email, "secret1", role)
	require.NoError(e.t, err)
	tok, _, err := e.svc.Login(context.Background(), email, "secret1")
	require.NoError(e.t, err)
	return *u, tok
}

func (e *env) do(method, path, token string, body any, out any) int {
	e.t.Helper()
	var rd bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&rd).Encode(body))
	}
	req := httptest.NewRequest(method, path, &rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestRegisterLoginMe(t *testing.T) {
	e := newEnv(t)
	reg := map[string]string{"name": "Cat", "email": "cat@desk.io", "password": "secret1"}

	var u models.User
	require.Equal(t, http.StatusCreated, e.do("POST", "/auth/register", "", reg, &u))
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.Equal(t, http.StatusConflict, e.do("POST", "/auth/register", "", reg, nil))

	var res models.LoginResult
	require.Equal(t, http.StatusOK, e.do("POST", "/auth/login", "", map[string]string{"email": "cat@desk.io", "password": "secret1"}, &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.User.ID)

	assert.Equal(t, http.StatusUnauthorized, e.do("POST", "/auth/login", "", map[string]string{"email": "cat@desk.io", "password": "nope"}, nil))

	var me models.User
	require.Equal(t, http.StatusOK, e.do("GET", "/auth/me", res.Token, nil, &me))
	assert.Equal(t, "cat@desk.io", me.Email)

	assert.Equal(t, http.StatusUnauthorized, e.do("GET", "/auth/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do("GET", "/auth/me", "garbage", nil, nil))
}

func TestTicketLifecycle(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.user("root@desk.io", models.RoleAdmin)
	agent, agentTok := e.user("ann@desk.io", models.RoleAgent)
	cust, custTok := e.user("cat@desk.io", models.RoleCustomer)

	var created models.Ticket
	require.Equal(t, http.StatusCreated, e.do("POST", "/tickets", custTok,
		models.NewTicket{Subject: "Printer jam", Description: "tray 2", PriorityID: 4}, &created))
	assert.Equal(t, cust.ID, created.CreatedBy)
	assert.Equal(t, "open", created.StatusName)
	assert.Equal(t, cust.Email, created.CreatedByName)

	// agents and admins do not open tickets
	assert.Equal(t, http.StatusForbidden, e.do("POST", "/tickets", agentTok,
		models.NewTicket{Subject: "x", Description: "y", PriorityID: 4}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/tickets", custTok,
		models.NewTicket{Subject: "", Description: "y", PriorityID: 4}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/tickets", custTok,
		models.NewTicket{Subject: "x", Description: "y", PriorityID: 999}, nil))

	path := fmt.Sprintf("/tickets/%d", created.ID)

	// not assigned yet: invisible to the agent
	var list []models.Ticket
	require.Equal(t, http.StatusOK, e.do("GET", "/tickets", agentTok, nil, &list))
	assert.Empty(t, list)
	assert.Equal(t, http.StatusForbidden, e.do("GET", path, agentTok, nil, nil))

	// agents cannot assign, admins can
	assert.Equal(t, http.StatusForbidden, e.do("PATCH", path, agentTok, map[string]int64{"assigned_to": agent.ID}, nil))
	var patched models.Ticket
	require.Equal(t, http.StatusOK, e.do("PATCH", path, adminTok, map[string]int64{"assigned_to": agent.ID}, &patched))
	assert.Equal(t, agent.Email, patched.AssignedToName)

	require.Equal(t, http.StatusOK, e.do("GET", "/tickets", agentTok, nil, &list))
	require.Len(t, list, 1)

	// status change returns the refreshed name
	require.Equal(t, http.StatusOK, e.do("PATCH", path, agentTok, map[string]int64{"status_id": 2}, &patched))
	assert.Equal(t, int64(2), patched.StatusID)
	assert.Equal(t, "in progress", patched.StatusName)

	assert.Equal(t, http.StatusBadRequest, e.do("PATCH", path, adminTok, map[string]int64{}, nil))
	assert.Equal(t, http.StatusForbidden, e.do("PATCH", path, custTok, map[string]int64{"status_id": 3}, nil))
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/tickets/9999", adminTok, nil, nil))

	// comments
	var c models.TicketComment
	require.Equal(t, http.StatusCreated, e.do("POST", path+"/comments", custTok, models.NewComment{Content: "any news?"}, &c))
	assert.Equal(t, cust.Email, c.AuthorName)
	var comments []models.TicketComment
	require.Equal(t, http.StatusOK, e.do("GET", path+"/comments", agentTok, nil, &comments))
	require.Len(t, comments, 1)

	// closed tickets take no comments
	require.Equal(t, http.StatusOK, e.do("PATCH", path, agentTok, map[string]int64{"status_id": 3}, &patched))
	assert.Equal(t, "closed", patched.StatusName)
	assert.Equal(t, http.StatusForbidden, e.do("POST", path+"/comments", custTok, models.NewComment{Content: "reopen?"}, nil))

	// delete is admin only
	assert.Equal(t, http.StatusForbidden, e.do("DELETE", path, agentTok, nil, nil))
	assert.Equal(t, http.StatusNoContent, e.do("DELETE", path, adminTok, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do("DELETE", path, adminTok, nil, nil))
}

func TestTicketListScopedByRole(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.user("root@desk.io", models.RoleAdmin)
	_, aTok := e.user("a@desk.io", models.RoleCustomer)
	_, bTok := e.user("b@desk.io", models.RoleCustomer)

	for i, tok := range []string{aTok, aTok, bTok} {
		require.Equal(t, http.StatusCreated, e.do("POST", "/tickets", tok,
			models.NewTicket{Subject: fmt.Sprintf("t%d", i), Description: "d", PriorityID: 4}, nil))
	}

	var list []models.Ticket
	require.Equal(t, http.StatusOK, e.do("GET", "/tickets", aTok, nil, &list))
	assert.Len(t, list, 2)
	require.Equal(t, http.StatusOK, e.do("GET", "/tickets", bTok, nil, &list))
	assert.Len(t, list, 1)
	require.Equal(t, http.StatusOK, e.do("GET", "/tickets", adminTok, nil, &list))
	assert.Len(t, list, 3)
	assert.Equal(t, "t2", list[0].Subject, "newest first")

	require.Equal(t, http.StatusOK, e.do("GET", "/tickets?status_id=2", adminTok, nil, &list))
	assert.Empty(t, list)
	assert.Equal(t, http.StatusUnauthorized, e.do("GET", "/tickets", "", nil, nil))
}

func TestCatalogAndUsers(t *testing.T) {
	e := newEnv(t)
	admin, adminTok := e.user("root@desk.io", models.RoleAdmin)
	agent, agentTok := e.user("ann@desk.io", models.RoleAgent)

	var statuses []models.Status
	require.Equal(t, http.StatusOK, e.do("GET", "/statuses", agentTok, nil, &statuses))
	assert.Len(t, statuses, 3)

	var st models.Status
	require.Equal(t, http.StatusCreated, e.do("POST", "/statuses", adminTok, models.NamedEntity{Name: "waiting"}, &st))
	assert.Equal(t, "waiting", st.Name)
	assert.Equal(t, http.StatusForbidden, e.do("POST", "/priorities", agentTok, models.NamedEntity{Name: "urgent"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do("POST", "/priorities", adminTok, models.NamedEntity{Name: " "}, nil))

	var u models.User
	nu := models.NewUser{Name: "Bob", Email: "bob@desk.io", Password: "secret1", Role: models.RoleAgent}
	require.Equal(t, http.StatusCreated, e.do("POST", "/users", adminTok, nu, &u))
	assert.Equal(t, models.RoleAgent, u.Role)
	assert.Equal(t, http.StatusConflict, e.do("POST", "/users", adminTok, nu, nil))
	assert.Equal(t, http.StatusForbidden, e.do("GET", "/users", agentTok, nil, nil))

	var all []models.User
	require.Equal(t, http.StatusOK, e.do("GET", "/users", adminTok, nil, &all))
	assert.Len(t, all, 3)

	// self or admin
	assert.Equal(t, http.StatusOK, e.do("GET", fmt.Sprintf("/users/%d", agent.ID), agentTok, nil, nil))
	assert.Equal(t, http.StatusForbidden, e.do("GET", fmt.Sprintf("/users/%d", admin.ID), agentTok, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/users/9999", adminTok, nil, nil))
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusOK, e.do("GET", "/healthz", "", nil, nil))

	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "helpdesk_http_requests_total")
}
