package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
	"helpdesk/internal/utils"
	"helpdesk/internal/validate"
)

type UserHTTP struct {
	repo repository.UserRepository
	svc  *service.AuthService
	log  zerolog.Logger
}

func NewUserHTTP(r repository.UserRepository, svc *service.AuthService, log zerolog.Logger) *UserHTTP {
	return &UserHTTP{repo: r, svc: svc, log: log}
}

// GET /users
func (h *UserHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.repo.List(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("list users")
			utils.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		utils.JSON(w, http.StatusOK, users)
	}
}

// GET /users/{id}
func (h *UserHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.PathID(chi.URLParam(r, "id"))
		if !ok {
			utils.Error(w, http.StatusBadRequest, "invalid id")
			return
		}
		u, err := h.repo.GetByID(r.Context(), id)
		if err != nil {
			h.log.Error().Err(err).Msg("get user")
			utils.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		if u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// POST /users (admins pick the role)
func (h *UserHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.NewUser
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := validate.Struct("users.create", in); err != nil {
			utils.Error(w, http.StatusBadRequest, failure.UserMessage(err))
			return
		}
		u, err := h.svc.CreateUser(r.Context(), in.Email, in.Name, in.Password, in.Role)
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			utils.Error(w, http.StatusConflict, "email already registered")
			return
		case errors.Is(err, service.ErrInvalidInput):
			utils.Error(w, http.StatusBadRequest, "invalid input")
			return
		case err != nil:
			h.log.Error().Err(err).Msg("create user")
			utils.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		utils.JSON(w, http.StatusCreated, u)
	}
}
