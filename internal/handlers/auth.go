package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alumninet/apiserver/internal/metrics"
	"github.com/alumninet/apiserver/internal/services"
	"github.com/alumninet/apiserver/internal/store"
	"github.com/alumninet/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

var validate = validator.New()

// AuthHandler provides registration and JWT login endpoints.
type AuthHandler struct {
	userService *services.UserService
	orgService  *services.OrganisationService
	events      *services.Events
	collector   *metrics.Collector
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	userService *services.UserService,
	orgService *services.OrganisationService,
	events *services.Events,
	collector *metrics.Collector,
	jwtSecret string,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		orgService:  orgService,
		events:      events,
		collector:   collector,
		secret:      []byte(jwtSecret),
		tokenTTL:    defaultTokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
}

// RequireAuth parses the bearer token, resolves the bound user, and
// injects the user id into the request context. Any failure stops the
// request with a 401 before business logic runs.
func RequireAuth(jwtSecret string, userService *services.UserService) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "token missing")
				return
			}

			userID, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			// A structurally valid token is only worth something if
			// the user it names still exists.
			if _, err := userService.GetByID(r.Context(), userID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Name         string `json:"name" validate:"required"`
	Batch        string `json:"batch" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=STUDENT ALUMNI"`
	Github       string `json:"github"`
	Linkedin     string `json:"linkedin"`
	Website      string `json:"website"`
	Bio          string `json:"bio"`
	Organisation string `json:"organisation"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User types.User `json:"user"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Batch = strings.TrimSpace(req.Batch)
	req.Organisation = strings.TrimSpace(req.Organisation)

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := types.User{
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		Batch:        req.Batch,
		Github:       req.Github,
		Linkedin:     req.Linkedin,
		Website:      req.Website,
		Bio:          req.Bio,
		PasswordHash: string(hashed),
	}

	if req.Organisation != "" {
		org, err := h.orgService.GetOrCreateByName(r.Context(), req.Organisation)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve organisation")
			return
		}
		user.OrganisationID = &org.ID
		user.Organisation = &org
	}

	created, err := h.userService.Create(r.Context(), user)
	if err != nil {
		// The unique constraint is the authority; the pre-check above
		// only catches the common case early.
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	created.Organisation = user.Organisation

	h.collector.RecordRegistration(created.Role)
	h.events.UserRegistered(r.Context(), services.RegisteredEvent{
		UserID:       created.ID,
		Email:        created.Email,
		Name:         created.Name,
		Role:         created.Role,
		Batch:        created.Batch,
		Organisation: req.Organisation,
		RegisteredAt: created.CreatedAt,
	})

	writeJSON(w, http.StatusCreated, RegisterResponse{User: created})
}

// Login verifies credentials and returns a JWT bound to the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.collector.RecordLogin(false)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.collector.RecordLogin(false)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	h.collector.RecordLogin(true)
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Role: user.Role})
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return strings.ToLower(fe.Field()) + " failed " + fe.Tag() + " validation"
	}
	return "invalid request"
}

func issueToken(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (int64, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID < 1 {
		return 0, errors.New("invalid subject")
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
