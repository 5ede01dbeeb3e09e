package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"lexia-auth/internal/service"
)

func TestOAuthHandlerBegin(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.router, http.MethodGet, "/auth/google", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in %s", loc)
	}
	ok, err := env.states.Consume(state, "google")
	if err != nil || !ok {
		t.Fatalf("state must be stored for google: %v %v", ok, err)
	}

	rec = performRequest(env.router, http.MethodGet, "/auth/myspace", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown provider: expected 404, got %d", rec.Code)
	}
}

func TestOAuthHandlerCallback_Success(t *testing.T) {
	env := newTestEnv(t)
	if err := env.states.Save("state-1", "google", service.OAuthStateTTL); err != nil {
		t.Fatalf("save state: %v", err)
	}

	rec := performRequest(env.router, http.MethodGet, "/auth/google/callback?code=good-code&state=state-1", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	prefix := "http://frontend.test/auth/success?token="
	if !strings.HasPrefix(loc, prefix) {
		t.Fatalf("unexpected redirect: %s", loc)
	}
	claims, err := env.jwt.Verify(strings.TrimPrefix(loc, prefix))
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	user, err := env.store.FindByID(context.Background(), claims.UserID)
	if err != nil {
		t.Fatalf("social user not stored: %v", err)
	}
	if user.Email != "grace@example.com" || !user.IsEmailVerified || user.LastLogin == nil {
		t.Fatalf("unexpected social user: %+v", user)
	}

	rec = performRequest(env.router, http.MethodGet, "/auth/google/callback?code=good-code&state=state-1", nil)
	if loc := rec.Header().Get("Location"); loc != "http://frontend.test/login?error=google_auth_failed" {
		t.Fatalf("state must be single use, got redirect %s", loc)
	}
}

func TestOAuthHandlerCallback_Failures(t *testing.T) {
	env := newTestEnv(t)
	failed := "http://frontend.test/login?error=google_auth_failed"

	cases := map[string]string{
		"missing state":  "/auth/google/callback?code=good-code",
		"consent denied": "/auth/google/callback?error=access_denied&state=s",
	}
	for name, path := range cases {
		rec := performRequest(env.router, http.MethodGet, path, nil)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != failed {
			t.Fatalf("%s: unexpected response %d %s", name, rec.Code, rec.Header().Get("Location"))
		}
	}

	if err := env.states.Save("state-2", "google", service.OAuthStateTTL); err != nil {
		t.Fatalf("save state: %v", err)
	}
	rec := performRequest(env.router, http.MethodGet, "/auth/google/callback?code=bad-code&state=state-2", nil)
	if rec.Header().Get("Location") != failed {
		t.Fatalf("exchange failure: unexpected redirect %s", rec.Header().Get("Location"))
	}

	rec = performRequest(env.router, http.MethodGet, "/auth/github/callback?code=good-code&state=x", nil)
	if rec.Header().Get("Location") != "http://frontend.test/login?error=github_auth_failed" {
		t.Fatalf("disabled provider: unexpected redirect %s", rec.Header().Get("Location"))
	}
}

func TestOAuthHandlerCallback_LinksExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	_, existingID := registerUser(t, env, "grace@example.com")
	if err := env.states.Save("state-3", "google", service.OAuthStateTTL); err != nil {
		t.Fatalf("save state: %v", err)
	}

	rec := performRequest(env.router, http.MethodGet, "/auth/google/callback?code=good-code&state=state-3", nil)
	loc := rec.Header().Get("Location")
	prefix := "http://frontend.test/auth/success?token="
	if !strings.HasPrefix(loc, prefix) {
		t.Fatalf("unexpected redirect: %s", loc)
	}
	claims, err := env.jwt.Verify(strings.TrimPrefix(loc, prefix))
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != existingID {
		t.Fatalf("expected token for existing account %s, got %s", existingID, claims.UserID)
	}
	user, err := env.store.FindByID(context.Background(), existingID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if len(user.SocialAccounts) != 1 || user.SocialAccounts[0].Provider != "google" || user.SocialAccounts[0].ProviderID != "g-1" {
		t.Fatalf("expected linked google identity, got %+v", user.SocialAccounts)
	}
	stats, err := env.store.Stats(context.Background())
	if err != nil || stats.TotalUsers != 1 {
		t.Fatalf("no account must be created: %+v %v", stats, err)
	}
}
