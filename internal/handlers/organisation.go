package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alumninet/apiserver/internal/services"
	"github.com/alumninet/apiserver/internal/store"
	"github.com/alumninet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// OrganisationHandler serves the organisation registry.
type OrganisationHandler struct {
	orgService  *services.OrganisationService
	userService *services.UserService
}

func NewOrganisationHandler(orgService *services.OrganisationService, userService *services.UserService) *OrganisationHandler {
	return &OrganisationHandler{
		orgService:  orgService,
		userService: userService,
	}
}

// OrganisationRouter registers organisation routes on the given router.
// All routes require authentication.
func OrganisationRouter(r chi.Router, handler *OrganisationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Get("/{organisationID}", handler.Members)
}

type OrganisationListResponse struct {
	Organisations []types.Organisation `json:"organisations"`
}

// List returns every organisation, sorted by name.
func (h *OrganisationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list organisations")
		return
	}
	writeJSON(w, http.StatusOK, OrganisationListResponse{Organisations: orgs})
}

type OrganisationMembersResponse struct {
	Organisation types.Organisation `json:"organisation"`
	Members      []types.User       `json:"members"`
}

// Members returns the users linked to one organisation. A nonexistent
// organisation is a 404, not an empty list.
func (h *OrganisationHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "organisationID"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid organisation id")
		return
	}

	org, err := h.orgService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "organisation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch organisation")
		return
	}

	members, err := h.userService.ListByOrganisation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	writeJSON(w, http.StatusOK, OrganisationMembersResponse{Organisation: org, Members: members})
}
