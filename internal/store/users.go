package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"helpdesk/internal/async"
	"helpdesk/internal/authz"
	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/validate"
)

var (
	opFetchUsers = async.Op{Name: "users.fetchAll", FailMessage: "failed to load users"}
	opFetchUser  = async.Op{Name: "users.fetchById", FailMessage: "failed to load user"}
	opCreateUser = async.Op{Name: "users.create", FailMessage: "failed to create user"}
)

// Users is the admin-only user directory.
type Users struct {
	api  API
	who  Principal
	area *async.Area
	log  zerolog.Logger

	mu  sync.RWMutex
	all []models.User
	gen uint64
}

func NewUsers(api API, who Principal, area *async.Area, log zerolog.Logger) *Users {
	return &Users{
		api:  api,
		who:  who,
		area: area,
		log:  log.With().Str("component", "users").Logger(),
	}
}

func (s *Users) Projection() async.Projection { return s.area.Projection() }

func (s *Users) All() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.all)
}

// Agents returns the users a ticket may be assigned to.
func (s *Users) Agents() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.all {
		if u.Role == models.RoleAgent {
			out = append(out, u)
		}
	}
	return out
}

func (s *Users) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *Users) FetchAll(ctx context.Context) ([]models.User, error) {
	if !authz.CanManageUsers(s.who.CurrentUser()) {
		return nil, failure.Denied(opFetchUsers.Name)
	}
	gen := s.generation()
	list, err := async.Run(ctx, s.area, opFetchUsers, func(ctx context.Context) ([]models.User, error) {
		var out []models.User
		err := s.api.Get(ctx, "/users", &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, errReset(opFetchUsers.Name)
	}
	s.all = dedupe(list)
	return clone(list), nil
}

func (s *Users) FetchByID(ctx context.Context, id int64) (models.User, error) {
	if !authz.CanManageUsers(s.who.CurrentUser()) {
		return models.User{}, failure.Denied(opFetchUser.Name)
	}
	return async.Run(ctx, s.area, opFetchUser, func(ctx context.Context) (models.User, error) {
		var out models.User
		err := s.api.Get(ctx, fmt.Sprintf("/users/%d", id), &out)
		return out, err
	})
}

// Create adds a user and then reloads the whole directory instead of trusting
// the shape of the creation response.
func (s *Users) Create(ctx context.Context, in models.NewUser) (models.User, error) {
	if !authz.CanManageUsers(s.who.CurrentUser()) {
		return models.User{}, failure.Denied(opCreateUser.Name)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(opCreateUser.Name, in); err != nil {
		return models.User{}, err
	}

	u, err := async.Run(ctx, s.area, opCreateUser, func(ctx context.Context) (models.User, error) {
		var out models.User
		err := s.api.Post(ctx, "/users", in, &out)
		return out, err
	})
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.FetchAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("user list refresh after create failed")
	}
	return u, nil
}

func (s *Users) Reset() {
	s.mu.Lock()
	s.all = nil
	s.gen++
	s.mu.Unlock()
	s.area.ClearError()
}
