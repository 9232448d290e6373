package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"helpdesk/internal/authz"
	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/view"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{
	"login", "register", "logout", "whoami",
	"tickets", "show", "new", "comment", "update", "delete",
	"statuses", "priorities", "users",
}

var commands = map[string]command{
	"login":      {"log in and remember the session", cmdLogin},
	"register":   {"create a customer account and log in", cmdRegister},
	"logout":     {"forget the session", cmdLogout},
	"whoami":     {"show the logged-in user", cmdWhoami},
	"tickets":    {"list visible tickets", cmdTickets},
	"show":       {"show a ticket and its comments", cmdShow},
	"new":        {"open a ticket (customers)", cmdNew},
	"comment":    {"comment on a ticket", cmdComment},
	"update":     {"change status, priority or assignee", cmdUpdate},
	"delete":     {"delete a ticket (admins)", cmdDelete},
	"statuses":   {"list or create statuses", cmdStatuses},
	"priorities": {"list or create priorities", cmdPriorities},
	"users":      {"list or create users (admins)", cmdUsers},
}

// cliNavigator turns route-gate redirects into errors.
type cliNavigator struct{ target string }

func (n *cliNavigator) Navigate(path string) { n.target = path }

// enter restores the session and applies screen's route gate.
func (a *app) enter(ctx context.Context, screen authz.Screen) error {
	a.c.Bootstrap(ctx)
	nav := &cliNavigator{}
	if authz.Enforce(nav, a.c.Check(screen)) {
		return nil
	}
	if nav.target == authz.LoginPath {
		return failure.New(failure.AuthenticationFailure, "cli", "not logged in, run: helpdesk login")
	}
	return failure.Denied("cli")
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseID(args []string, what string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, failure.New(failure.ValidationFailure, "cli", what+" id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, failure.New(failure.ValidationFailure, "cli", "invalid "+what+" id "+strconv.Quote(args[0]))
	}
	return id, args[1:], nil
}

func passwordFlag(fs *pflag.FlagSet) *string {
	return fs.String("password", os.Getenv("HELPDESK_PASSWORD"), "password (default $HELPDESK_PASSWORD)")
}

// ----------------------------------------------------------------------------
// session
// ----------------------------------------------------------------------------

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := passwordFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.c.Bootstrap(ctx)
	s, err := a.c.Session.Login(ctx, models.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	a.note.Success(fmt.Sprintf("logged in as %s (%s)", s.User.Name, s.User.Role))
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := passwordFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.c.Bootstrap(ctx)
	s, err := a.c.Session.RegisterAndLogin(ctx, models.Registration{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	a.note.Success("registered and logged in as " + s.User.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.c.Session.Logout()
	a.note.Success("logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.enter(ctx, authz.ScreenDashboard); err != nil {
		return err
	}
	u := a.c.Session.CurrentUser()
	fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	return nil
}

// ----------------------------------------------------------------------------
// tickets
// ----------------------------------------------------------------------------

func cmdTickets(ctx context.Context, a *app, args []string) error {
	fs := newFlags("tickets")
	search := fs.StringP("search", "s", "", "case-insensitive subject filter")
	status := fs.Int64("status", 0, "status id (0 = all)")
	order := fs.String("order", "asc", "priority order: asc|desc")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenTickets); err != nil {
		return err
	}
	if err := a.c.LoadDashboard(ctx); err != nil {
		return err
	}

	list := a.c.VisibleTickets(view.Query{Search: *search, StatusID: *status, Order: view.ParseOrder(*order)})
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBJECT\tSTATUS\tPRIORITY\tASSIGNEE")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Subject, t.StatusName, a.priorityName(t.PriorityID), orDash(t.AssignedToName))
	}
	return tw.Flush()
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	id, _, err := parseID(args, "ticket")
	if err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenTicketDetail); err != nil {
		return err
	}
	if _, err := a.c.Priorities.FetchAll(ctx); err != nil {
		return err
	}
	defer a.c.Tickets.ClearSelected()
	t, err := a.c.Tickets.FetchByID(ctx, id)
	if err != nil {
		return err
	}
	comments, err := a.c.Tickets.FetchComments(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "#%d %s\n", t.ID, t.Subject)
	fmt.Fprintf(a.out, "status: %s  priority: %s  opened by: %s  assignee: %s\n",
		t.StatusName, a.priorityName(t.PriorityID), t.CreatedByName, orDash(t.AssignedToName))
	fmt.Fprintf(a.out, "\n%s\n", t.Description)
	for _, c := range comments {
		fmt.Fprintf(a.out, "\n[%s] %s:\n  %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.AuthorName, c.Content)
	}
	return nil
}

func cmdNew(ctx context.Context, a *app, args []string) error {
	fs := newFlags("new")
	subject := fs.String("subject", "", "short summary")
	desc := fs.String("description", "", "what happened")
	prio := fs.Int64("priority", 0, "priority id (see: helpdesk priorities)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenNewTicket); err != nil {
		return err
	}
	t, err := a.c.Tickets.Create(ctx, models.NewTicket{Subject: *subject, Description: *desc, PriorityID: *prio})
	if err != nil {
		return err
	}
	a.note.Success(fmt.Sprintf("created ticket #%d", t.ID))
	return nil
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	id, rest, err := parseID(args, "ticket")
	if err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenTicketDetail); err != nil {
		return err
	}
	defer a.c.Tickets.ClearSelected()
	// the gate needs the ticket's status before anything is posted
	if _, err := a.c.Tickets.FetchByID(ctx, id); err != nil {
		return err
	}
	c, err := a.c.Tickets.PostComment(ctx, id, strings.Join(rest, " "))
	if err != nil {
		return err
	}
	a.note.Success(fmt.Sprintf("comment #%d added", c.ID))
	return nil
}

func cmdUpdate(ctx context.Context, a *app, args []string) error {
	id, rest, err := parseID(args, "ticket")
	if err != nil {
		return err
	}
	fs := newFlags("update")
	status := fs.Int64("status", 0, "new status id")
	prio := fs.Int64("priority", 0, "new priority id (admins)")
	assign := fs.Int64("assign", 0, "assignee user id (admins)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenTicketDetail); err != nil {
		return err
	}

	var p models.TicketPatch
	if fs.Changed("status") {
		p.StatusID = status
	}
	if fs.Changed("priority") {
		p.PriorityID = prio
	}
	if fs.Changed("assign") {
		p.AssignedTo = assign
	}
	t, err := a.c.Tickets.Update(ctx, id, p)
	if err != nil {
		return err
	}
	a.note.Success(fmt.Sprintf("#%d now %s, assignee %s", t.ID, t.StatusName, orDash(t.AssignedToName)))
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	id, _, err := parseID(args, "ticket")
	if err != nil {
		return err
	}
	if err := a.enter(ctx, authz.ScreenTickets); err != nil {
		return err
	}
	if err := a.c.Tickets.Remove(ctx, id); err != nil {
		return err
	}
	a.note.Success(fmt.Sprintf("deleted ticket #%d", id))
	return nil
}

// ----------------------------------------------------------------------------
// catalog + users
// ----------------------------------------------------------------------------

func cmdStatuses(ctx context.Context, a *app, args []string) error {
	fs := newFlags("statuses")
	create := fs.String("create", "", "create a status with this name (admins)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *create != "" {
		if err := a.enter(ctx, authz.ScreenCatalog); err != nil {
			return err
		}
		s, err := a.c.Statuses.Create(ctx, *create)
		if err != nil {
			return err
		}
		a.note.Success(fmt.Sprintf("created status %d %s", s.ID, s.Name))
		return nil
	}
	if err := a.enter(ctx, authz.ScreenDashboard); err != nil {
		return err
	}
	items, err := a.c.Statuses.FetchAll(ctx)
	if err != nil {
		return err
	}
	for _, s := range items {
		fmt.Fprintf(a.out, "%d\t%s\n", s.ID, s.Name)
	}
	return nil
}

func cmdPriorities(ctx context.Context, a *app, args []string) error {
	fs := newFlags("priorities")
	create := fs.String("create", "", "create a priority with this name (admins)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *create != "" {
		if err := a.enter(ctx, authz.ScreenCatalog); err != nil {
			return err
		}
		p, err := a.c.Priorities.Create(ctx, *create)
		if err != nil {
			return err
		}
		a.note.Success(fmt.Sprintf("created priority %d %s", p.ID, p.Name))
		return nil
	}
	if err := a.enter(ctx, authz.ScreenDashboard); err != nil {
		return err
	}
	items, err := a.c.Priorities.FetchAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range items {
		fmt.Fprintf(a.out, "%d\t%s\n", p.ID, p.Name)
	}
	return nil
}

func cmdUsers(ctx context.Context, a *app, args []string) error {
	fs := newFlags("users")
	create := fs.Bool("create", false, "create a user instead of listing")
	agents := fs.Bool("agents", false, "only list assignable agents")
	name := fs.String("name", "", "new user's name")
	email := fs.String("email", "", "new user's email")
	role := fs.String("role", string(models.RoleCustomer), "customer|agent|admin")
	password := passwordFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *create {
		if err := a.enter(ctx, authz.ScreenCreateUser); err != nil {
			return err
		}
		r, ok := models.ParseRole(*role)
		if !ok {
			return failure.New(failure.ValidationFailure, "cli", fmt.Sprintf("unknown role %q (customer|agent|admin)", *role))
		}
		u, err := a.c.Users.Create(ctx, models.NewUser{Name: *name, Email: *email, Password: *password, Role: r})
		if err != nil {
			return err
		}
		a.note.Success(fmt.Sprintf("created user %d %s (%s)", u.ID, *email, r))
		return nil
	}

	if err := a.enter(ctx, authz.ScreenUsers); err != nil {
		return err
	}
	if _, err := a.c.Users.FetchAll(ctx); err != nil {
		return err
	}
	list := a.c.Users.All()
	if *agents {
		list = a.c.Users.Agents()
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return tw.Flush()
}

func (a *app) priorityName(id int64) string {
	if p, ok := a.c.Priorities.Lookup(id); ok {
		return p.Name
	}
	return strconv.FormatInt(id, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
