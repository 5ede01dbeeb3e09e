// Package oauth implementa el intercambio de codigos OAuth2 y la lectura del
// perfil de usuario para cada proveedor social soportado.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrExchangeFailed = errors.New("oauth code exchange failed")
	ErrProfileFailed  = errors.New("oauth profile fetch failed")
)

// Profile es la identidad normalizada que devuelve un proveedor.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	GivenName   string
	FamilyName  string
	Username    string
	Picture     string
}

// Provider construye la URL de consentimiento y resuelve el perfil a partir del codigo.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

type profileFetcher func(ctx context.Context, client *http.Client) (Profile, error)

type oauth2Provider struct {
	name    string
	config  *oauth2.Config
	fetch   profileFetcher
	timeout time.Duration
}

func (p *oauth2Provider) Name() string { return p.name }

func (p *oauth2Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *oauth2Provider) Exchange(ctx context.Context, code string) (Profile, error) {
	if strings.TrimSpace(code) == "" {
		return Profile{}, fmt.Errorf("%w: missing code", ErrExchangeFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %w", ErrExchangeFailed, p.name, err)
	}
	profile, err := p.fetch(ctx, p.config.Client(ctx, tok))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %w", ErrProfileFailed, p.name, err)
	}
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("%w: %s returned no subject", ErrProfileFailed, p.name)
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return profile, nil
}

// Registry agrupa los proveedores habilitados por nombre.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names devuelve los proveedores habilitados en orden alfabetico.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
