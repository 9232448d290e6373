package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"helpdesk/internal/middleware"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
	"helpdesk/internal/utils"
)

type AuthHTTP struct {
	svc   *service.AuthService
	users repository.UserRepository
	log   zerolog.Logger
}

func NewAuthHTTP(s *service.AuthService, users repository.UserRepository, log zerolog.Logger) *AuthHTTP {
	return &AuthHTTP{svc: s, users: users, log: log}
}

// POST /auth/register
func (h *AuthHTTP) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		u, err := h.svc.Register(r.Context(), in.Email, in.Name, in.Password)
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			utils.Error(w, http.StatusConflict, "email already registered")
			return
		case errors.Is(err, service.ErrInvalidInput):
			utils.Error(w, http.StatusBadRequest, "name, email and a password of at least 6 characters are required")
			return
		case err != nil:
			h.log.Error().Err(err).Msg("register failed")
			utils.Error(w, http.StatusInternalServerError, "registration failed")
			return
		}
		utils.JSON(w, http.StatusCreated, u)
	}
}

// POST /auth/login
func (h *AuthHTTP) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		token, u, err := h.svc.Login(r.Context(), in.Email, in.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			utils.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Msg("login failed")
			utils.Error(w, http.StatusInternalServerError, "login failed")
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"user": u, "token": token})
	}
}

// GET /auth/me
func (h *AuthHTTP) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _, ok := middleware.Caller(r.Context())
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		u, err := h.users.GetByID(r.Context(), uid)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if u == nil {
			// token outlived its account
			utils.Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}
