package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestServer(t *testing.T, userinfo map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	})
	for path, body := range userinfo {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(name string, srv *httptest.Server, fetch profileFetcher) *oauth2Provider {
	return &oauth2Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:5000/auth/" + name + "/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/auth",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"email"},
		},
		fetch:   fetch,
		timeout: 5 * time.Second,
	}
}

func TestGoogleExchange(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/userinfo": `{"sub":"g-1","email":"Ada@Example.com","name":"Ada Lovelace","given_name":"Ada","family_name":"Lovelace","picture":"https://img/ada.png"}`,
	})
	p := testProvider("google", srv, fetchGoogle(srv.URL+"/userinfo"))

	profile, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.ID != "g-1" || profile.GivenName != "Ada" || profile.FamilyName != "Lovelace" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", profile.Email)
	}
}

func TestExchangeRejectsBadCode(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/userinfo": `{"sub":"g-1"}`})
	p := testProvider("google", srv, fetchGoogle(srv.URL+"/userinfo"))

	_, err := p.Exchange(context.Background(), "bad-code")
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
	if _, err := p.Exchange(context.Background(), ""); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed for empty code, got %v", err)
	}
}

func TestExchangeRequiresSubject(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/userinfo": `{"email":"x@example.com"}`})
	p := testProvider("linkedin", srv, fetchLinkedIn(srv.URL+"/userinfo"))

	if _, err := p.Exchange(context.Background(), "good-code"); !errors.Is(err, ErrProfileFailed) {
		t.Fatalf("expected ErrProfileFailed, got %v", err)
	}
}

func TestGitHubFallsBackToPrimaryEmail(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/user":        `{"id":4242,"login":"octo","name":"","email":null,"avatar_url":"https://img/octo.png"}`,
		"/user/emails": `[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`,
	})
	p := testProvider("github", srv, fetchGitHub(srv.URL+"/user", srv.URL+"/user/emails"))

	profile, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.ID != "4242" || profile.Username != "octo" || profile.Email != "octo@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestFacebookPicture(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/me": `{"id":"fb-7","name":"Grace Hopper","first_name":"Grace","last_name":"Hopper","picture":{"data":{"url":"https://img/grace.png"}}}`,
	})
	p := testProvider("facebook", srv, fetchFacebook(srv.URL+"/me"))

	profile, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.Picture != "https://img/grace.png" || profile.Email != "" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	srv := newTestServer(t, nil)
	p := testProvider("google", srv, fetchGoogle(srv.URL+"/userinfo"))

	raw := p.AuthCodeURL("state-abc")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Query().Get("state") != "state-abc" || !strings.HasPrefix(raw, srv.URL+"/auth") {
		t.Fatalf("unexpected auth url: %s", raw)
	}
}

func TestRegistrySkipsDisabledProviders(t *testing.T) {
	reg := NewRegistry(
		NewGoogle(Credentials{ClientID: "id", ClientSecret: "secret"}),
		NewFacebook(Credentials{}),
		NewGitHub(Credentials{ClientID: "id"}),
		NewLinkedIn(Credentials{ClientID: "id", ClientSecret: "secret"}),
	)
	names := reg.Names()
	if len(names) != 2 || names[0] != "google" || names[1] != "linkedin" {
		t.Fatalf("unexpected providers: %v", names)
	}
	if _, ok := reg.Get("GOOGLE"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
	if _, ok := reg.Get("facebook"); ok {
		t.Fatalf("facebook must be disabled without credentials")
	}
}
