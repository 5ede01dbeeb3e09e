package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lexia-auth/internal/events"
	"lexia-auth/internal/oauth"
	"lexia-auth/internal/repository"
	"lexia-auth/internal/service"
)

const testJWTSecret = "test-secret"

type mockEmailSender struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (m *mockEmailSender) SendVerificationEmail(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, link)
	return nil
}

type fakeProvider struct {
	name    string
	profile oauth.Profile
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (oauth.Profile, error) {
	if code != "good-code" {
		return oauth.Profile{}, oauth.ErrExchangeFailed
	}
	return p.profile, nil
}

type testEnv struct {
	router http.Handler
	store  *repository.FileUserStore
	users  *service.UserService
	jwt    *service.JWTService
	states service.OAuthStateStore
	sender *mockEmailSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := repository.NewFileUserStore(filepath.Join(t.TempDir(), "users.json"))
	sender := &mockEmailSender{}
	userSvc := service.NewUserService(
		logger,
		store,
		service.NewBcryptHasher(bcrypt.MinCost),
		service.DefaultLockoutPolicy(),
		sender,
		events.NewNopPublisher(),
		"http://frontend.test",
	)
	adminSvc := service.NewAdminService(store)
	jwtSvc := service.NewJWTService(testJWTSecret, 0, 0)
	states := service.NewMemoryOAuthStateStore()
	providers := oauth.NewRegistry(&fakeProvider{
		name: "google",
		profile: oauth.Profile{
			ID:         "g-1",
			Email:      "grace@example.com",
			GivenName:  "Grace",
			FamilyName: "Hopper",
		},
	})

	router := NewRouter(RouterDeps{
		Logger:        logger,
		Authenticator: NewAuthenticator(logger, jwtSvc, userSvc),
		AdminServ:     adminSvc,
		AuthH:         NewAuthHandler(logger, userSvc, jwtSvc, false),
		OAuthH:        NewOAuthHandler(logger, providers, states, userSvc, jwtSvc, "http://frontend.test"),
		UserH:         NewUserHandler(logger, userSvc, false),
		AdminH:        NewAdminHandler(logger, adminSvc, false),
		HealthH:       NewHealthHandler(store, providers.Names()),
	})
	return &testEnv{
		router: router,
		store:  store,
		users:  userSvc,
		jwt:    jwtSvc,
		states: states,
		sender: sender,
	}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return performRequestWithHeaders(r, method, path, body, nil)
}

func performRequestWithHeaders(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "secret123",
		"userType":  "parent",
	}
}

// registerUser devuelve el token y el id de una cuenta nueva.
func registerUser(t *testing.T, env *testEnv, email string) (string, string) {
	t.Helper()
	rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody(email))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user in %v", body)
	}
	token, _ := body["token"].(string)
	id, _ := user["id"].(string)
	if token == "" || id == "" {
		t.Fatalf("expected token and id, got %v", body)
	}
	return token, id
}
