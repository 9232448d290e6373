package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"helpdesk/internal/authz"
	"helpdesk/internal/failure"
	"helpdesk/internal/middleware"
	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/utils"
	"helpdesk/internal/validate"
)

// TicketHTTP wires HTTP endpoints to repositories.
type TicketHTTP struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	catalog repository.CatalogRepository
	log     zerolog.Logger
}

func NewTicketHTTP(tickets repository.TicketRepository, users repository.UserRepository, catalog repository.CatalogRepository, log zerolog.Logger) *TicketHTTP {
	return &TicketHTTP{tickets: tickets, users: users, catalog: catalog, log: log}
}

// caller is the authenticated principal as the authorization gate sees it.
func caller(r *http.Request) *models.User {
	uid, role, ok := middleware.Caller(r.Context())
	if !ok {
		return nil
	}
	return &models.User{ID: uid, Role: models.Role(role)}
}

func (h *TicketHTTP) fail(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("ticket request failed")
	utils.Error(w, http.StatusInternalServerError, "internal error")
}

// load fetches {id} and enforces visibility. It writes the error response
// itself and returns nil when the handler should stop.
func (h *TicketHTTP) load(w http.ResponseWriter, r *http.Request) *models.Ticket {
	id, ok := utils.PathID(chi.URLParam(r, "id"))
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	t, err := h.tickets.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return nil
	}
	if t == nil {
		utils.Error(w, http.StatusNotFound, "ticket not found")
		return nil
	}
	if !authz.CanViewTicket(caller(r), *t) {
		utils.Error(w, http.StatusForbidden, "forbidden")
		return nil
	}
	return t
}

// -----------------------------------------------------------------------------
// GET /tickets, scoped by role
// -----------------------------------------------------------------------------
func (h *TicketHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := caller(r)
		f := repository.TicketFilter{StatusID: utils.QueryInt64(r.URL.Query(), "status_id", 0)}
		switch u.Role {
		case models.RoleCustomer:
			f.CreatedBy = u.ID
		case models.RoleAgent:
			f.AssignedTo = u.ID
		case models.RoleAdmin:
		default:
			utils.Error(w, http.StatusForbidden, "forbidden")
			return
		}

		items, err := h.tickets.List(r.Context(), f)
		if err != nil {
			h.fail(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, items)
	}
}

// -----------------------------------------------------------------------------
// GET /tickets/{id}
// -----------------------------------------------------------------------------
func (h *TicketHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t := h.load(w, r); t != nil {
			utils.JSON(w, http.StatusOK, t)
		}
	}
}

// -----------------------------------------------------------------------------
// POST /tickets (customers)
// -----------------------------------------------------------------------------
func (h *TicketHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.NewTicket
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.Subject = strings.TrimSpace(in.Subject)
		in.Description = strings.TrimSpace(in.Description)
		if err := validate.Struct("tickets.create", in); err != nil {
			utils.Error(w, http.StatusBadRequest, failure.UserMessage(err))
			return
		}
		if !h.priorityExists(w, r, in.PriorityID) {
			return
		}

		t := &models.Ticket{
			Subject:     in.Subject,
			Description: in.Description,
			PriorityID:  in.PriorityID,
			CreatedBy:   caller(r).ID,
		}
		if err := h.tickets.Create(r.Context(), t); err != nil {
			h.fail(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, t)
	}
}

// -----------------------------------------------------------------------------
// PATCH /tickets/{id}: responds with the reloaded ticket so the *_name
// columns always match the ids
// -----------------------------------------------------------------------------
func (h *TicketHTTP) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.TicketPatch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if p.Empty() {
			utils.Error(w, http.StatusBadRequest, "nothing to update")
			return
		}
		if !authz.CanUpdate(caller(r), p) {
			utils.Error(w, http.StatusForbidden, "forbidden")
			return
		}
		if err := validate.Struct("tickets.update", p); err != nil {
			utils.Error(w, http.StatusBadRequest, failure.UserMessage(err))
			return
		}

		t := h.load(w, r)
		if t == nil {
			return
		}
		if p.StatusID != nil && !h.statusExists(w, r, *p.StatusID) {
			return
		}
		if p.PriorityID != nil && !h.priorityExists(w, r, *p.PriorityID) {
			return
		}
		if p.AssignedTo != nil {
			a, err := h.users.GetByID(r.Context(), *p.AssignedTo)
			if err != nil {
				h.fail(w, err)
				return
			}
			if a == nil {
				utils.Error(w, http.StatusBadRequest, "unknown assignee")
				return
			}
		}

		if err := h.tickets.Update(r.Context(), t.ID, p); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "ticket not found")
				return
			}
			h.fail(w, err)
			return
		}
		updated, err := h.tickets.Get(r.Context(), t.ID)
		if err != nil {
			h.fail(w, err)
			return
		}
		if updated == nil {
			utils.Error(w, http.StatusNotFound, "ticket not found")
			return
		}
		utils.JSON(w, http.StatusOK, updated)
	}
}

// -----------------------------------------------------------------------------
// DELETE /tickets/{id} (admins)
// -----------------------------------------------------------------------------
func (h *TicketHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.PathID(chi.URLParam(r, "id"))
		if !ok {
			utils.Error(w, http.StatusBadRequest, "invalid id")
			return
		}
		if err := h.tickets.Delete(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "ticket not found")
				return
			}
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// -----------------------------------------------------------------------------
// GET /tickets/{id}/comments
// -----------------------------------------------------------------------------
func (h *TicketHTTP) Comments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := h.load(w, r)
		if t == nil {
			return
		}
		items, err := h.tickets.ListComments(r.Context(), t.ID)
		if err != nil {
			h.fail(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, items)
	}
}

// -----------------------------------------------------------------------------
// POST /tickets/{id}/comments (not on closed tickets)
// -----------------------------------------------------------------------------
func (h *TicketHTTP) AddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.NewComment
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.Content = strings.TrimSpace(in.Content)
		if in.Content == "" {
			utils.Error(w, http.StatusBadRequest, "content is required")
			return
		}

		t := h.load(w, r)
		if t == nil {
			return
		}
		if !authz.CanComment(caller(r), *t) {
			utils.Error(w, http.StatusForbidden, "ticket is closed")
			return
		}
		c, err := h.tickets.AddComment(r.Context(), t.ID, caller(r).ID, in.Content)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "ticket not found")
				return
			}
			h.fail(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, c)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *TicketHTTP) statusExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	items, err := h.catalog.Statuses(r.Context())
	if err != nil {
		h.fail(w, err)
		return false
	}
	for _, s := range items {
		if s.ID == id {
			return true
		}
	}
	utils.Error(w, http.StatusBadRequest, "unknown status")
	return false
}

func (h *TicketHTTP) priorityExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	items, err := h.catalog.Priorities(r.Context())
	if err != nil {
		h.fail(w, err)
		return false
	}
	for _, p := range items {
		if p.ID == id {
			return true
		}
	}
	utils.Error(w, http.StatusBadRequest, "unknown priority")
	return false
}
