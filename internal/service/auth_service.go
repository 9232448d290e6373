package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

const tokenTTL = 24 * time.Hour

type AuthService struct {
	users         repository.UserRepository
	sessionSecret string
}

func NewAuthService(users repository.UserRepository, sessionSecret string) *AuthService {
	return &AuthService{users: users, sessionSecret: sessionSecret}
}

// Register is self sign-up; the account is always a customer.
func (a *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	return a.CreateUser(ctx, email, name, password, models.RoleCustomer)
}

// CreateUser is the admin path and may grant any role.
func (a *AuthService) CreateUser(ctx context.Context, email, name, password string, role models.Role) (*models.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || len(password) < 6 || !role.Valid() {
		return nil, ErrInvalidInput
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return a.users.Create(ctx, email, name, role, hash)
}

func (a *AuthService) Login(ctx context.Context, email, password string) (token string, user *models.User, err error) {
	u, hash, err := a.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(hash, password) {
		return "", nil, ErrInvalidCredentials
	}
	tok, err := utils.SignJWT(a.sessionSecret, u.ID, string(u.Role), tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// EnsureAdmin creates the bootstrap admin unless the email is already taken.
func (a *AuthService) EnsureAdmin(ctx context.Context, email, name, password string) error {
	_, err := a.CreateUser(ctx, email, name, password, models.RoleAdmin)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil
	}
	return err
}
