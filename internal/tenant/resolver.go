// Package tenant resolves which tenant a request acts for. The internal surface
// trusts a path parameter; the management surface trusts only verified bearer claims.
package tenant

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/identity"
)

// Resolver extracts the caller's identity from a request.
type Resolver interface {
	Resolve(r *http.Request) (identity.Identity, error)
}

// ParamResolver reads the tenant from a chi URL parameter. It is meant for
// service-to-service routes behind the gateway.
type ParamResolver struct {
	Param string
}

// Resolve implements Resolver.
func (p ParamResolver) Resolve(r *http.Request) (identity.Identity, error) {
	t := chi.URLParam(r, p.Param)
	if t == "" {
		return identity.Identity{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, p.Param)
	}
	return identity.Identity{Tenant: t}, nil
}

// ClaimResolver reads the tenant from a verified bearer token.
type ClaimResolver struct {
	Verifier *Verifier
}

// Resolve implements Resolver. Every failure wraps domain.ErrUnauthorized.
func (c ClaimResolver) Resolve(r *http.Request) (identity.Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return identity.Identity{}, err
	}
	return c.Verifier.Verify(token)
}

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthorized)
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: authorization header must use Bearer scheme", domain.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}
