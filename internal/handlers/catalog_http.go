package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/utils"
	"helpdesk/internal/validate"
)

// CatalogHTTP serves the status and priority reference lists.
type CatalogHTTP struct {
	repo repository.CatalogRepository
	log  zerolog.Logger
}

func NewCatalogHTTP(r repository.CatalogRepository, log zerolog.Logger) *CatalogHTTP {
	return &CatalogHTTP{repo: r, log: log}
}

func (h *CatalogHTTP) Statuses() http.HandlerFunc {
	return list(h.log, h.repo.Statuses)
}

func (h *CatalogHTTP) Priorities() http.HandlerFunc {
	return list(h.log, h.repo.Priorities)
}

func (h *CatalogHTTP) CreateStatus() http.HandlerFunc {
	return create(h.log, h.repo.CreateStatus)
}

func (h *CatalogHTTP) CreatePriority() http.HandlerFunc {
	return create(h.log, h.repo.CreatePriority)
}

func list[T any](log zerolog.Logger, fetch func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fetch(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("catalog list")
			utils.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		utils.JSON(w, http.StatusOK, items)
	}
}

func create[T any](log zerolog.Logger, insert func(context.Context, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.NamedEntity
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.Name = strings.TrimSpace(in.Name)
		if err := validate.Struct("catalog.create", in); err != nil {
			utils.Error(w, http.StatusBadRequest, failure.UserMessage(err))
			return
		}
		item, err := insert(r.Context(), in.Name)
		if err != nil {
			log.Error().Err(err).Msg("catalog create")
			utils.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		utils.JSON(w, http.StatusCreated, item)
	}
}
