package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"lexia-auth/internal/domain"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,first_name,last_name,email,picture"
	githubUserURL       = "https://api.github.com/user"
	githubEmailsURL     = "https://api.github.com/user/emails"
	linkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"

	exchangeTimeout = 15 * time.Second
)

// Credentials agrupa lo necesario para registrar un proveedor.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c Credentials) enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func newProvider(name string, creds Credentials, endpoint oauth2.Endpoint, scopes []string, fetch profileFetcher) Provider {
	if !creds.enabled() {
		return nil
	}
	return &oauth2Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		fetch:   fetch,
		timeout: exchangeTimeout,
	}
}

// NewGoogle devuelve nil si faltan credenciales.
func NewGoogle(creds Credentials) Provider {
	return newProvider(domain.ProviderGoogle, creds, endpoints.Google, []string{"profile", "email"}, fetchGoogle(googleUserInfoURL))
}

func NewFacebook(creds Credentials) Provider {
	return newProvider(domain.ProviderFacebook, creds, endpoints.Facebook, []string{"email"}, fetchFacebook(facebookUserInfoURL))
}

func NewGitHub(creds Credentials) Provider {
	return newProvider(domain.ProviderGitHub, creds, endpoints.GitHub, []string{"user:email"}, fetchGitHub(githubUserURL, githubEmailsURL))
}

func NewLinkedIn(creds Credentials) Provider {
	return newProvider(domain.ProviderLinkedIn, creds, endpoints.LinkedIn, []string{"openid", "profile", "email"}, fetchLinkedIn(linkedInUserInfoURL))
}

func fetchGoogle(url string) profileFetcher {
	return func(ctx context.Context, client *http.Client) (Profile, error) {
		var body struct {
			Sub        string `json:"sub"`
			Email      string `json:"email"`
			Name       string `json:"name"`
			GivenName  string `json:"given_name"`
			FamilyName string `json:"family_name"`
			Picture    string `json:"picture"`
		}
		if err := getJSON(ctx, client, url, &body); err != nil {
			return Profile{}, err
		}
		return Profile{
			ID:          body.Sub,
			Email:       body.Email,
			DisplayName: body.Name,
			GivenName:   body.GivenName,
			FamilyName:  body.FamilyName,
			Picture:     body.Picture,
		}, nil
	}
}

func fetchFacebook(url string) profileFetcher {
	return func(ctx context.Context, client *http.Client) (Profile, error) {
		var body struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
			Picture   struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"picture"`
		}
		if err := getJSON(ctx, client, url, &body); err != nil {
			return Profile{}, err
		}
		return Profile{
			ID:          body.ID,
			Email:       body.Email,
			DisplayName: body.Name,
			GivenName:   body.FirstName,
			FamilyName:  body.LastName,
			Picture:     body.Picture.Data.URL,
		}, nil
	}
}

// fetchGitHub consulta /user/emails cuando el email del perfil es privado.
func fetchGitHub(userURL, emailsURL string) profileFetcher {
	return func(ctx context.Context, client *http.Client) (Profile, error) {
		var body struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, userURL, &body); err != nil {
			return Profile{}, err
		}
		profile := Profile{
			Email:       body.Email,
			DisplayName: body.Name,
			Username:    body.Login,
			Picture:     body.AvatarURL,
		}
		if body.ID != 0 {
			profile.ID = strconv.FormatInt(body.ID, 10)
		}
		if profile.Email == "" {
			var emails []struct {
				Email    string `json:"email"`
				Primary  bool   `json:"primary"`
				Verified bool   `json:"verified"`
			}
			if err := getJSON(ctx, client, emailsURL, &emails); err == nil {
				for _, e := range emails {
					if e.Primary && e.Verified {
						profile.Email = e.Email
						break
					}
				}
			}
		}
		return profile, nil
	}
}

func fetchLinkedIn(url string) profileFetcher {
	return func(ctx context.Context, client *http.Client) (Profile, error) {
		var body struct {
			Sub        string `json:"sub"`
			Name       string `json:"name"`
			GivenName  string `json:"given_name"`
			FamilyName string `json:"family_name"`
			Email      string `json:"email"`
			Picture    string `json:"picture"`
		}
		if err := getJSON(ctx, client, url, &body); err != nil {
			return Profile{}, err
		}
		return Profile{
			ID:          body.Sub,
			Email:       body.Email,
			DisplayName: body.Name,
			GivenName:   body.GivenName,
			FamilyName:  body.FamilyName,
			Picture:     body.Picture,
		}, nil
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("userinfo http error: status=%d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
