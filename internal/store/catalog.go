package store

import (
	"context"
	"strings"
	"sync"

	"helpdesk/internal/async"
	"helpdesk/internal/authz"
	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/validate"
)

// Catalog is an admin-managed reference list (statuses, priorities). Items
// are only ever created, never updated or deleted.
type Catalog[T keyed] struct {
	api      API
	who      Principal
	area     *async.Area
	path     string
	fetchOp  async.Op
	createOp async.Op

	mu    sync.RWMutex
	items []T
	gen   uint64
}

func NewStatuses(api API, who Principal, area *async.Area) *Catalog[models.Status] {
	return &Catalog[models.Status]{
		api: api, who: who, area: area, path: "/statuses",
		fetchOp:  async.Op{Name: "statuses.fetchAll", FailMessage: "failed to load statuses"},
		createOp: async.Op{Name: "statuses.create", FailMessage: "failed to create status"},
	}
}

func NewPriorities(api API, who Principal, area *async.Area) *Catalog[models.Priority] {
	return &Catalog[models.Priority]{
		api: api, who: who, area: area, path: "/priorities",
		fetchOp:  async.Op{Name: "priorities.fetchAll", FailMessage: "failed to load priorities"},
		createOp: async.Op{Name: "priorities.create", FailMessage: "failed to create priority"},
	}
}

func (c *Catalog[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.items)
}

func (c *Catalog[T]) Lookup(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.items, id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Catalog[T]) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Catalog[T]) FetchAll(ctx context.Context) ([]T, error) {
	gen := c.generation()
	items, err := async.Run(ctx, c.area, c.fetchOp, func(ctx context.Context) ([]T, error) {
		var out []T
		err := c.api.Get(ctx, c.path, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil, errReset(c.fetchOp.Name)
	}
	c.items = dedupe(items)
	return clone(items), nil
}

// Create appends the server's new entry to the end of the list.
func (c *Catalog[T]) Create(ctx context.Context, name string) (T, error) {
	var zero T
	if !authz.CanManageCatalog(c.who.CurrentUser()) {
		return zero, failure.Denied(c.createOp.Name)
	}
	in := models.NamedEntity{Name: strings.TrimSpace(name)}
	if err := validate.Struct(c.createOp.Name, in); err != nil {
		return zero, err
	}

	gen := c.generation()
	item, err := async.Run(ctx, c.area, c.createOp, func(ctx context.Context) (T, error) {
		var out T
		err := c.api.Post(ctx, c.path, in, &out)
		return out, err
	})
	if err != nil {
		return zero, err
	}
	if item.Key() == 0 {
		return zero, failure.New(failure.ServerFailure, c.createOp.Name, "server returned an entry without id")
	}

	c.mu.Lock()
	if c.gen == gen {
		c.items = appendUnique(c.items, item)
	}
	c.mu.Unlock()
	return item, nil
}

func (c *Catalog[T]) Reset() {
	c.mu.Lock()
	c.items = nil
	c.gen++
	c.mu.Unlock()
}
