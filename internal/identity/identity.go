// Package identity resolves the caller of an HTTP request.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// Header names used by HeaderProvider.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is an authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Provider extracts the identity of a request.
type Provider interface {
	Identify(r *http.Request) (Identity, error)
}

// HeaderProvider trusts identity headers set by a proxy in front of the API.
// Use it for development or behind an authenticating gateway only.
type HeaderProvider struct{}

// Identify reads X-User-ID and X-User-Email.
func (HeaderProvider) Identify(r *http.Request) (Identity, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: id, Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail))}, nil
}

// GoogleProvider validates Google-issued ID tokens sent as bearer tokens.
type GoogleProvider struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleProvider accepts tokens issued for audience.
func NewGoogleProvider(audience string) *GoogleProvider {
	return &GoogleProvider{audience: audience, validate: idtoken.Validate}
}

// Identify validates the bearer token and maps its subject and e-mail claim.
func (p *GoogleProvider) Identify(r *http.Request) (Identity, error) {
	token, ok := bearerToken(r)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	payload, err := p.validate(r.Context(), token, p.audience)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if payload.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	email, _ := payload.Claims["email"].(string)
	return Identity{UserID: payload.Subject, Email: email}, nil
}

// NewProvider returns the provider named by kind: "header" or "google".
func NewProvider(kind, audience string) (Provider, error) {
	switch kind {
	case "", "header":
		return HeaderProvider{}, nil
	case "google":
		if audience == "" {
			return nil, fmt.Errorf("identity: google provider needs an audience")
		}
		return NewGoogleProvider(audience), nil
	default:
		return nil, fmt.Errorf("identity: unknown provider %q", kind)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
