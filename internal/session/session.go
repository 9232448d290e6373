// Package session owns the authenticated-user lifecycle: restore at startup,
// login, register, logout. It is the only writer of the durable token.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/tokenstore"
	"helpdesk/internal/transport"
	"helpdesk/internal/validate"
)

// MsgBadCredentials is the message of a rejected login.
const MsgBadCredentials = "invalid email or password"

// Session is an immutable snapshot.
// IsAuthenticated holds exactly when User != nil and Token != "".
type Session struct {
	User            *models.User
	Token           string
	IsAuthenticated bool
	IsInitialized   bool
}

func (s Session) Initialized() bool         { return s.IsInitialized }
func (s Session) Authenticated() bool       { return s.IsAuthenticated }
func (s Session) CurrentUser() *models.User { return s.User }

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// API is the subset of the transport the session needs.
type API interface {
	Get(ctx context.Context, path string, out any, opts ...transport.CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...transport.CallOption) error
}

type Store struct {
	api    API
	tokens tokenstore.Store
	log    zerolog.Logger

	mu        sync.RWMutex
	state     Session
	epoch     uint64 // bumped by every logout; stale results compare against it
	restored  bool
	nextSub   int
	listeners map[int]func(Session)
}

func New(api API, tokens tokenstore.Store, log zerolog.Logger) *Store {
	return &Store{
		api:       api,
		tokens:    tokens,
		log:       log.With().Str("component", "session").Logger(),
		listeners: make(map[int]func(Session)),
	}
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Initialized() bool         { return s.Current().IsInitialized }
func (s *Store) Authenticated() bool       { return s.Current().IsAuthenticated }
func (s *Store) CurrentUser() *models.User { return s.Current().User }

// Subscribe registers fn for every session change and returns its cancel func.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(snap Session) {
	s.mu.RLock()
	fns := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snap.clone())
	}
}

// commit replaces the state unless a logout happened since epoch was read.
func (s *Store) commit(epoch uint64, next Session) (Session, bool) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.state.IsInitialized = true
		snap := s.state.clone()
		s.mu.Unlock()
		s.emit(snap)
		return snap, false
	}
	s.state = next
	snap := s.state.clone()
	s.mu.Unlock()
	s.emit(snap)
	return snap, true
}

// RestoreSession recovers the session from the stored token. It runs once per
// Store; failures fall back to an anonymous, initialized session silently.
func (s *Store) RestoreSession(ctx context.Context) Session {
	s.mu.Lock()
	if s.restored {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap
	}
	s.restored = true
	epoch := s.epoch
	s.mu.Unlock()

	tok, ok, err := s.tokens.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("token load failed")
	}
	if err != nil || !ok {
		snap, _ := s.commit(epoch, Session{IsInitialized: true})
		return snap
	}

	var u models.User
	if err := s.api.Get(ctx, "/auth/me", &u); err != nil {
		s.log.Info().Err(err).Str("kind", failure.KindOf(err).String()).Msg("session restore failed")
		snap, _ := s.commit(epoch, Session{IsInitialized: true})
		return snap
	}

	snap, ok := s.commit(epoch, Session{User: &u, Token: tok, IsAuthenticated: true, IsInitialized: true})
	if ok {
		s.log.Debug().Int64("user_id", u.ID).Msg("session restored")
	}
	return snap
}

// Login exchanges credentials for a token. The caller owns user-visible
// error reporting; a wrong password comes back as AuthenticationFailure.
func (s *Store) Login(ctx context.Context, c models.Credentials) (Session, error) {
	const op = "session.login"
	c.Email = strings.TrimSpace(c.Email)
	if err := validate.Struct(op, c); err != nil {
		return s.Current(), err
	}

	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	var res models.LoginResult
	if err := s.api.Post(ctx, "/auth/login", c, &res, transport.SkipAuthHook()); err != nil {
		s.log.Info().Err(err).Msg("login failed")
		if failure.Is(err, failure.AuthenticationFailure) {
			return s.Current(), &failure.Error{Kind: failure.AuthenticationFailure, Op: op, Message: MsgBadCredentials, Err: err}
		}
		return s.Current(), failure.WithOp(op, err)
	}
	if res.Token == "" {
		return s.Current(), failure.New(failure.ServerFailure, op, "login response carried no token")
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return s.Current(), failure.New(failure.AuthenticationFailure, op, "session was reset during login")
	}
	if err := s.tokens.Save(res.Token); err != nil {
		s.mu.Unlock()
		return s.Current(), failure.Wrap(failure.Unknown, op, err)
	}
	u := res.User
	s.state = Session{User: &u, Token: res.Token, IsAuthenticated: true, IsInitialized: true}
	snap := s.state.clone()
	s.mu.Unlock()

	s.emit(snap)
	s.log.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("logged in")
	return snap, nil
}

// Register creates an account without authenticating. An existing email
// comes back as Conflict.
func (s *Store) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	const op = "session.register"
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if err := validate.Struct(op, r); err != nil {
		return nil, err
	}
	var u models.User
	if err := s.api.Post(ctx, "/auth/register", r, &u); err != nil {
		return nil, failure.WithOp(op, err)
	}
	return &u, nil
}

// RegisterAndLogin registers and then logs in with the same credentials.
func (s *Store) RegisterAndLogin(ctx context.Context, r models.Registration) (Session, error) {
	if _, err := s.Register(ctx, r); err != nil {
		return s.Current(), err
	}
	return s.Login(ctx, models.Credentials{Email: r.Email, Password: r.Password})
}

// Logout clears the session and the durable token. Safe to call repeatedly.
func (s *Store) Logout() {
	s.mu.Lock()
	s.epoch++
	if err := s.tokens.Delete(); err != nil {
		s.log.Warn().Err(err).Msg("token delete failed")
	}
	s.state = Session{IsInitialized: true}
	snap := s.state.clone()
	s.mu.Unlock()

	s.emit(snap)
}

// HandleAuthFailure is installed as the transport's 401 callback.
func (s *Store) HandleAuthFailure() {
	s.log.Info().Msg("server rejected credentials, logging out")
	s.Logout()
}
