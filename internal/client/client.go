// Package client assembles the helpdesk client core: token storage,
// transport, session, collections and the derived ticket view.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"helpdesk/internal/async"
	"helpdesk/internal/authz"
	"helpdesk/internal/models"
	"helpdesk/internal/notify"
	"helpdesk/internal/session"
	"helpdesk/internal/store"
	"helpdesk/internal/tokenstore"
	"helpdesk/internal/transport"
	"helpdesk/internal/view"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  tokenstore.Store
	Notify  notify.Sink
	Log     zerolog.Logger
	// Transport options appended after the defaults (tests pass WithHTTPClient).
	Transport []transport.Option
}

type Client struct {
	API        *transport.Client
	Session    *session.Store
	Tickets    *store.Tickets
	Statuses   *store.Catalog[models.Status]
	Priorities *store.Catalog[models.Priority]
	Users      *store.Users
	View       *view.Deriver

	log   zerolog.Logger
	unsub func()
}

func New(o Options) (*Client, error) {
	if o.Tokens == nil {
		return nil, fmt.Errorf("client: token store is required")
	}
	if o.Notify == nil {
		o.Notify = notify.NewLog(o.Log)
	}
	topts := []transport.Option{
		transport.WithNotifier(o.Notify),
		transport.WithLogger(o.Log),
	}
	if o.Timeout > 0 {
		topts = append(topts, transport.WithTimeout(o.Timeout))
	}
	topts = append(topts, o.Transport...)
	api := transport.New(o.BaseURL, o.Tokens, topts...)

	sess := session.New(api, o.Tokens, o.Log)
	api.OnAuthFailure(sess.HandleAuthFailure)

	ticketsArea := async.NewArea("tickets", o.Log)
	usersArea := async.NewArea("users", o.Log)

	c := &Client{
		API:        api,
		Session:    sess,
		Tickets:    store.NewTickets(api, sess, ticketsArea, o.Log),
		Statuses:   store.NewStatuses(api, sess, ticketsArea),
		Priorities: store.NewPriorities(api, sess, ticketsArea),
		Users:      store.NewUsers(api, sess, usersArea, o.Log),
		log:        o.Log,
	}
	d, err := view.NewDeriver(c.Tickets, 128)
	if err != nil {
		return nil, err
	}
	c.View = d

	// cached records belong to the user who fetched them
	c.unsub = sess.Subscribe(func(s session.Session) {
		if !s.IsAuthenticated {
			c.reset()
		}
	})
	return c, nil
}

func (c *Client) reset() {
	c.Tickets.Reset()
	c.Statuses.Reset()
	c.Priorities.Reset()
	c.Users.Reset()
	c.View.Purge()
}

// Close detaches the session listener.
func (c *Client) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// Bootstrap restores the persisted session. It never fails; an unusable token
// just leaves the client logged out.
func (c *Client) Bootstrap(ctx context.Context) session.Session {
	return c.Session.RestoreSession(ctx)
}

// LoadDashboard fetches tickets, statuses and priorities in parallel. The
// first failure cancels the rest.
func (c *Client) LoadDashboard(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.Tickets.FetchAll(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.Statuses.FetchAll(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.Priorities.FetchAll(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if authz.CanAssign(c.Session.CurrentUser()) {
		if _, err := c.Users.FetchAll(ctx); err != nil {
			c.log.Warn().Err(err).Msg("assignee list unavailable")
		}
	}
	return nil
}

// VisibleTickets is the derived list for the current session user.
func (c *Client) VisibleTickets(q view.Query) []models.Ticket {
	return c.View.Tickets(c.Session.CurrentUser(), q)
}

// Check evaluates a screen's route gate against the current session.
func (c *Client) Check(s authz.Screen) authz.Decision {
	return authz.Check(c.Session.Current(), s)
}
