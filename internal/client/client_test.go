package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/authz"
	"helpdesk/internal/config"
	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/notify"
	"helpdesk/internal/repository"
	"helpdesk/internal/repository/memory"
	"helpdesk/internal/router"
	"helpdesk/internal/service"
	"helpdesk/internal/tokenstore"
	"helpdesk/internal/transport"
	"helpdesk/internal/utils"
	"helpdesk/internal/view"
)

type backend struct {
	srv   *httptest.Server
	repos repository.Repos
	auth  *service.AuthService
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	utils.HashCost = 4
	repos := memory.New().Repos()
	cfg := config.Config{Env: "test", Origin: "*", Secret: "test-secret"}
	srv := httptest.NewServer(router.New(zerolog.Nop(), repos, cfg))
	t.Cleanup(srv.Close)
	return &backend{srv: srv, repos: repos, auth: service.NewAuthService(repos.Users, cfg.Secret)}
}

func (b *backend) seed(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	u, err := b.auth.CreateUser(context.Background(), email, email, "secret1", role)
	require.NoError(t, err)
	return *u
}

func (b *backend) client(t *testing.T, tokens tokenstore.Store) (*Client, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	c, err := New(Options{
		BaseURL:   b.srv.URL,
		Tokens:    tokens,
		Notify:    rec,
		Log:       zerolog.Nop(),
		Transport: []transport.Option{transport.WithHTTPClient(b.srv.Client())},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, rec
}

func login(t *testing.T, c *Client, email string) {
	t.Helper()
	_, err := c.Session.Login(context.Background(), models.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
}

func TestRegisterLoginAndCreateRoundTrip(t *testing.T) {
	b := newBackend(t)
	tokens := tokenstore.NewMemory("")
	c, _ := b.client(t, tokens)
	ctx := context.Background()

	sess := c.Bootstrap(ctx)
	assert.True(t, sess.IsInitialized)
	assert.False(t, sess.IsAuthenticated)

	sess, err := c.Session.RegisterAndLogin(ctx, models.Registration{Name: "Cat", Email: "cat@desk.io", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, sess.IsAuthenticated)
	assert.Equal(t, models.RoleCustomer, sess.User.Role)
	saves, _ := tokens.Counts()
	assert.Equal(t, 1, saves)

	require.NoError(t, c.LoadDashboard(ctx))
	assert.Len(t, c.Statuses.Items(), 3)
	assert.Len(t, c.Priorities.Items(), 3)

	created, err := c.Tickets.Create(ctx, models.NewTicket{Subject: "Printer jam", Description: "tray 2", PriorityID: 4})
	require.NoError(t, err)

	_, err = c.Tickets.FetchAll(ctx)
	require.NoError(t, err)
	list := c.Tickets.List()
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])
}

func TestWrongPasswordAndDuplicateEmail(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "cat@desk.io", models.RoleCustomer)
	tokens := tokenstore.NewMemory("")
	c, rec := b.client(t, tokens)
	ctx := context.Background()

	sess, err := c.Session.Login(ctx, models.Credentials{Email: "cat@desk.io", Password: "wrong1"})
	assert.True(t, failure.Is(err, failure.AuthenticationFailure))
	assert.False(t, sess.IsAuthenticated)
	assert.Empty(t, rec.Errors(), "bad credentials are not an expired session")
	saves, _ := tokens.Counts()
	assert.Zero(t, saves)

	_, err = c.Session.Register(ctx, models.Registration{Name: "Cat", Email: "cat@desk.io", Password: "secret1"})
	assert.True(t, failure.Is(err, failure.Conflict))
	assert.Equal(t, "the email is already registered", failure.UserMessage(err))
}

func TestRestoreSession(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "ann@desk.io", models.RoleAgent)
	tokens := tokenstore.NewMemory("")

	first, _ := b.client(t, tokens)
	login(t, first, "ann@desk.io")

	second, _ := b.client(t, tokens)
	sess := second.Bootstrap(context.Background())
	require.True(t, sess.IsAuthenticated)
	assert.Equal(t, "ann@desk.io", sess.User.Email)

	// a bad token is dropped silently
	bad := tokenstore.NewMemory("not-a-jwt")
	third, rec := b.client(t, bad)
	sess = third.Bootstrap(context.Background())
	assert.True(t, sess.IsInitialized)
	assert.False(t, sess.IsAuthenticated)
	_, ok, _ := bad.Load()
	assert.False(t, ok)
	assert.Equal(t, []string{transport.MsgSessionExpired}, rec.Errors())
}

func TestExpiredSessionLogsOutAndClearsCaches(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "root@desk.io", models.RoleAdmin)
	tokens := tokenstore.NewMemory("")
	c, rec := b.client(t, tokens)
	ctx := context.Background()
	login(t, c, "root@desk.io")
	require.NoError(t, c.LoadDashboard(ctx))
	require.NotEmpty(t, c.Statuses.Items())

	// server forgets the token
	require.NoError(t, tokens.Save("forged"))
	_, err := c.Tickets.FetchAll(ctx)
	assert.True(t, failure.Is(err, failure.AuthenticationFailure))

	assert.False(t, c.Session.Authenticated())
	assert.Empty(t, c.Statuses.Items())
	_, ok, _ := tokens.Load()
	assert.False(t, ok)
	assert.Contains(t, rec.Errors(), transport.MsgSessionExpired)
	assert.Equal(t, authz.Decision{Outcome: authz.Redirect, Target: authz.LoginPath}, c.Check(authz.ScreenTickets))
}

func TestStatusUpdateKeepsNamesConsistent(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "root@desk.io", models.RoleAdmin)
	agent := b.seed(t, "ann@desk.io", models.RoleAgent)
	b.seed(t, "cat@desk.io", models.RoleCustomer)
	ctx := context.Background()

	cust, _ := b.client(t, tokenstore.NewMemory(""))
	login(t, cust, "cat@desk.io")
	tk, err := cust.Tickets.Create(ctx, models.NewTicket{Subject: "VPN down", Description: "since 9am", PriorityID: 5})
	require.NoError(t, err)

	admin, _ := b.client(t, tokenstore.NewMemory(""))
	login(t, admin, "root@desk.io")
	require.NoError(t, admin.LoadDashboard(ctx))
	assert.Equal(t, []models.User{agent}, admin.Users.Agents())
	_, err = admin.Tickets.Assign(ctx, tk.ID, agent.ID)
	require.NoError(t, err)

	ag, _ := b.client(t, tokenstore.NewMemory(""))
	login(t, ag, "ann@desk.io")
	require.NoError(t, ag.LoadDashboard(ctx))
	_, err = ag.Tickets.FetchByID(ctx, tk.ID)
	require.NoError(t, err)

	closed, ok := func() (models.Status, bool) {
		for _, s := range ag.Statuses.Items() {
			if s.Name == "closed" {
				return s, true
			}
		}
		return models.Status{}, false
	}()
	require.True(t, ok)

	_, err = ag.Tickets.UpdateStatus(ctx, tk.ID, closed.ID)
	require.NoError(t, err)

	got := ag.Tickets.List()
	require.Len(t, got, 1)
	assert.Equal(t, closed.ID, got[0].StatusID)
	assert.Equal(t, "closed", got[0].StatusName)
	sel, ok := ag.Tickets.Selected()
	require.True(t, ok)
	assert.Equal(t, "closed", sel.StatusName)

	// closed: the gate refuses before any round trip
	_, err = ag.Tickets.PostComment(ctx, tk.ID, "done")
	assert.True(t, failure.Is(err, failure.AuthorizationDenied))
}

func TestVisibleTicketsForCustomer(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "cat@desk.io", models.RoleCustomer)
	ctx := context.Background()
	c, _ := b.client(t, tokenstore.NewMemory(""))
	login(t, c, "cat@desk.io")

	for _, s := range []string{"Printer jam", "VPN down", "new printer toner"} {
		_, err := c.Tickets.Create(ctx, models.NewTicket{Subject: s, Description: "d", PriorityID: 4})
		require.NoError(t, err)
	}
	got := c.VisibleTickets(view.Query{Search: "PRINTER"})
	require.Len(t, got, 2)
	for _, tk := range got {
		assert.Contains(t, []string{"Printer jam", "new printer toner"}, tk.Subject)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	b := newBackend(t)
	b.seed(t, "cat@desk.io", models.RoleCustomer)
	tokens := tokenstore.NewMemory("")
	c, _ := b.client(t, tokens)
	login(t, c, "cat@desk.io")

	c.Session.Logout()
	first := c.Session.Current()
	c.Session.Logout()
	assert.Equal(t, first, c.Session.Current())
	assert.False(t, first.IsAuthenticated)
	assert.Nil(t, first.User)
	assert.Empty(t, first.Token)
	_, ok, _ := tokens.Load()
	assert.False(t, ok)
}

func TestNewRequiresTokenStore(t *testing.T) {
	_, err := New(Options{BaseURL: "http://localhost:4000"})
	assert.Error(t, err)
}
