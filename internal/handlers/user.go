package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alumninet/apiserver/internal/services"
	"github.com/alumninet/apiserver/internal/store"
	"github.com/alumninet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves profile reads and self-service profile edits.
type UserHandler struct {
	userService *services.UserService
	orgService  *services.OrganisationService
	avatars     *services.AvatarService
}

// NewUserHandler constructs a UserHandler. avatars may be nil when no
// object storage is configured; the picture endpoint then returns 503.
func NewUserHandler(
	userService *services.UserService,
	orgService *services.OrganisationService,
	avatars *services.AvatarService,
) *UserHandler {
	return &UserHandler{
		userService: userService,
		orgService:  orgService,
		avatars:     avatars,
	}
}

// UserRouter registers user routes on the given router. All routes
// require authentication.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.Me)
	r.Get("/alumni", handler.ListAlumni)
	r.Put("/edit", handler.Edit)
	r.Put("/picture", handler.UploadPicture)
	r.Get("/{userID}", handler.GetByID)
}

// Me returns the authenticated user's own profile. The target id
// always comes from the token, never from the client.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UserListResponse struct {
	Users []types.User `json:"users"`
}

// ListAlumni returns all ALUMNI profiles, newest first.
func (h *UserHandler) ListAlumni(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListAlumni(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alumni")
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: users})
}

// GetByID returns a single profile with its organisation expanded.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Edit applies a sparse patch to the authenticated user's own record.
// Only fields present in the body change; an explicit null clears an
// optional field.
func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	patch, orgName, err := parseEditRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if orgName.present {
		if orgName.value == "" {
			patch.SetOrganisationID = true
			patch.OrganisationID = nil
		} else {
			org, err := h.orgService.GetOrCreateByName(r.Context(), orgName.value)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to resolve organisation")
				return
			}
			patch.SetOrganisationID = true
			patch.OrganisationID = &org.ID
		}
	}

	updated, err := h.userService.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusBadRequest, "email already registered")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UploadPicture stores a new avatar for the authenticated user.
func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage not configured")
		return
	}

	if err := r.ParseMultipartForm(services.MaxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("picture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "picture file is required")
		return
	}
	data, err := readFileLimited(file, services.MaxAvatarBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.avatars.Upload(r.Context(), userID, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotAnImage):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store avatar")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// optionalString distinguishes "absent" from "present but empty/null".
type optionalString struct {
	present bool
	value   string
}

// parseEditRequest decodes the sparse patch body. Unknown keys are
// ignored; "organisation" is returned separately because it needs a
// registry lookup before it becomes part of the patch.
func parseEditRequest(body io.Reader) (types.UserPatch, optionalString, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return types.UserPatch{}, optionalString{}, errors.New("invalid request")
	}

	var patch types.UserPatch
	strField := func(key string) (*string, error) {
		msg, ok := raw[key]
		if !ok {
			return nil, nil
		}
		if string(msg) == "null" {
			empty := ""
			return &empty, nil
		}
		var value string
		if err := json.Unmarshal(msg, &value); err != nil {
			return nil, errors.New("invalid " + key)
		}
		return &value, nil
	}

	var err error
	if patch.Name, err = strField("name"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Bio, err = strField("bio"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Github, err = strField("github"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Linkedin, err = strField("linkedin"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Website, err = strField("website"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Batch, err = strField("batch"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}

	if patch.Email, err = strField("email"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return types.UserPatch{}, optionalString{}, errors.New("email cannot be empty")
		}
		patch.Email = &email
	}

	if patch.Role, err = strField("role"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	}
	if patch.Role != nil && !types.ValidRole(*patch.Role) {
		return types.UserPatch{}, optionalString{}, errors.New("invalid role")
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return types.UserPatch{}, optionalString{}, errors.New("name cannot be empty")
	}
	if patch.Batch != nil && strings.TrimSpace(*patch.Batch) == "" {
		return types.UserPatch{}, optionalString{}, errors.New("batch cannot be empty")
	}

	var orgName optionalString
	if org, err := strField("organisation"); err != nil {
		return types.UserPatch{}, optionalString{}, err
	} else if org != nil {
		orgName = optionalString{present: true, value: strings.TrimSpace(*org)}
	}

	return patch, orgName, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
