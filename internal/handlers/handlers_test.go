package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alumninet/apiserver/internal/services"
	"github.com/alumninet/apiserver/internal/storage"
	"github.com/alumninet/apiserver/internal/store"
	"github.com/alumninet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const testJWTSecret = "test-secret"

// --- in-memory fakes ---

type fakeOrgRepo struct {
	mu     sync.Mutex
	nextID int64
	orgs   map[int64]types.Organisation
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[int64]types.Organisation)}
}

func (f *fakeOrgRepo) GetByID(ctx context.Context, id int64) (types.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[id]
	if !ok {
		return types.Organisation{}, store.ErrNotFound
	}
	return org, nil
}

func (f *fakeOrgRepo) GetOrCreateByName(ctx context.Context, name string) (types.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, org := range f.orgs {
		if org.Name == name {
			return org, nil
		}
	}
	f.nextID++
	org := types.Organisation{ID: f.nextID, Name: name}
	f.orgs[org.ID] = org
	return org, nil
}

func (f *fakeOrgRepo) List(ctx context.Context) ([]types.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orgs := make([]types.Organisation, 0, len(f.orgs))
	for _, org := range f.orgs {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]types.User
	orgs   *fakeOrgRepo
}

func newFakeUserRepo(orgs *fakeOrgRepo) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]types.User), orgs: orgs}
}

func (f *fakeUserRepo) expand(user types.User) types.User {
	user.Organisation = nil
	if user.OrganisationID != nil {
		if org, ok := f.orgs.orgs[*user.OrganisationID]; ok {
			user.Organisation = &org
		}
	}
	return user
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return f.expand(user), nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return f.expand(user), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return f.expand(user), nil
}

func (f *fakeUserRepo) List(ctx context.Context, opts store.ListOptions) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0)
	for _, user := range f.users {
		if opts.Role != "" && user.Role != opts.Role {
			continue
		}
		if opts.OrganisationID != nil &&
			(user.OrganisationID == nil || *user.OrganisationID != *opts.OrganisationID) {
			continue
		}
		users = append(users, f.expand(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (f *fakeUserRepo) UpdateByID(ctx context.Context, id int64, patch types.UserPatch) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range f.users {
			if otherID != id && other.Email == *patch.Email {
				return types.User{}, store.ErrDuplicate
			}
		}
		user.Email = *patch.Email
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Batch != nil {
		user.Batch = *patch.Batch
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Website != nil {
		user.Website = *patch.Website
	}
	if patch.Github != nil {
		user.Github = *patch.Github
	}
	if patch.Linkedin != nil {
		user.Linkedin = *patch.Linkedin
	}
	if patch.Picture != nil {
		user.Picture = *patch.Picture
	}
	if patch.SetOrganisationID {
		user.OrganisationID = patch.OrganisationID
	}
	user.UpdatedAt = time.Now()
	f.users[id] = user
	return f.expand(user), nil
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) URL(key string) string { return "https://cdn.test/" + key }
func (f *fakeObjectStorage) Bucket() string        { return "avatars" }

// --- fixture ---

type testEnv struct {
	router   *chi.Mux
	userRepo *fakeUserRepo
	orgRepo  *fakeOrgRepo
	objects  *fakeObjectStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	orgRepo := newFakeOrgRepo()
	userRepo := newFakeUserRepo(orgRepo)
	objects := newFakeObjectStorage()

	userService := services.NewUserService(userRepo)
	orgService := services.NewOrganisationService(orgRepo)
	avatarService := services.NewAvatarService(storage.NewStorage(objects), userRepo)

	authMiddleware := RequireAuth(testJWTSecret, userService)
	authHandler := NewAuthHandler(userService, orgService, nil, nil, testJWTSecret)
	userHandler := NewUserHandler(userService, orgService, avatarService)
	orgHandler := NewOrganisationHandler(orgService, userService)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, authHandler)
		})
		r.Route("/user", func(r chi.Router) {
			UserRouter(r, userHandler, authMiddleware)
		})
		r.Route("/organisation", func(r chi.Router) {
			OrganisationRouter(r, orgHandler, authMiddleware)
		})
	})

	return &testEnv{
		router:   router,
		userRepo: userRepo,
		orgRepo:  orgRepo,
		objects:  objects,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

// doWithHeader sends a request with a raw Authorization header value,
// empty meaning no header at all.
func (e *testEnv) doWithHeader(t *testing.T, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func (e *testEnv) register(t *testing.T, req RegisterRequest) types.User {
	t.Helper()
	recorder := e.do(t, http.MethodPost, "/api/auth/register", "", req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register %s: got status %d, body %s", req.Email, recorder.Code, recorder.Body.String())
	}
	var resp RegisterResponse
	decode(t, recorder, &resp)
	return resp.User
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	recorder := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login %s: got status %d, body %s", email, recorder.Code, recorder.Body.String())
	}
	var resp LoginResponse
	decode(t, recorder, &resp)
	return resp.Token
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func studentRequest(email string) RegisterRequest {
	return RegisterRequest{
		Email:    email,
		Password: "secret-pass-1",
		Name:     "Student One",
		Batch:    "2024",
		Role:     types.RoleStudent,
	}
}

func alumniRequest(email, organisation string) RegisterRequest {
	return RegisterRequest{
		Email:        email,
		Password:     "secret-pass-1",
		Name:         "Alumni One",
		Batch:        "2019",
		Role:         types.RoleAlumni,
		Organisation: organisation,
	}
}
