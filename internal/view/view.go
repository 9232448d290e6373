// Package view derives the ticket list a screen shows from the cached
// collection, the session user and the filter controls.
package view

import (
	"fmt"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"helpdesk/internal/authz"
	"helpdesk/internal/models"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts "asc" or "desc"; anything else falls back to Asc.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Query holds the list controls. StatusID 0 means every status.
type Query struct {
	Search   string
	StatusID int64
	Order    Order
}

// Derive applies visibility, status filter, subject search and a stable
// sort by priority id. The input slice is never modified.
func Derive(u *models.User, tickets []models.Ticket, q Query) []models.Ticket {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !authz.CanViewTicket(u, t) {
			continue
		}
		if q.StatusID != 0 && t.StatusID != q.StatusID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Subject), needle) {
			continue
		}
		out = append(out, t)
	}

	desc := q.Order == Desc
	slices.SortStableFunc(out, func(a, b models.Ticket) int {
		switch {
		case a.PriorityID == b.PriorityID:
			return 0
		case (a.PriorityID < b.PriorityID) != desc:
			return -1
		default:
			return 1
		}
	})
	return out
}

// Source is the collection a Deriver reads from.
type Source interface {
	List() []models.Ticket
	Version() uint64
}

type cacheKey struct {
	version uint64
	userID  int64
	role    models.Role
	query   string
}

// Deriver memoizes Derive per (collection version, user, query). Any change
// to the collection bumps its version so stale entries are never hit.
type Deriver struct {
	src   Source
	cache *lru.Cache[cacheKey, []models.Ticket]
}

func NewDeriver(src Source, size int) (*Deriver, error) {
	if size <= 0 {
		size = 64
	}
	c, err := lru.New[cacheKey, []models.Ticket](size)
	if err != nil {
		return nil, fmt.Errorf("view cache: %w", err)
	}
	return &Deriver{src: src, cache: c}, nil
}

func (d *Deriver) Tickets(u *models.User, q Query) []models.Ticket {
	// read the version before the list so a concurrent change can only make
	// the cached entry newer than its key, never older
	ver := d.src.Version()
	k := cacheKey{version: ver, query: fmt.Sprintf("%s\x00%d\x00%s", strings.ToLower(strings.TrimSpace(q.Search)), q.StatusID, q.Order)}
	if u != nil {
		k.userID, k.role = u.ID, u.Role
	}
	if v, ok := d.cache.Get(k); ok {
		return slices.Clone(v)
	}
	v := Derive(u, d.src.List(), q)
	d.cache.Add(k, v)
	return slices.Clone(v)
}

// Purge drops every memoized result.
func (d *Deriver) Purge() { d.cache.Purge() }
