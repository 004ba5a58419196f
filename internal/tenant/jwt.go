package tenant

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/identity"
)

// Claims are the bearer token claims issued by the device management gateway.
type Claims struct {
	Tenant string `json:"mender.tenant,omitempty"`
	User   bool   `json:"mender.user,omitempty"`
	Device bool   `json:"mender.device,omitempty"`
	jwt.RegisteredClaims
}

// VerifierConfig holds the token verification keys. At least one is required.
type VerifierConfig struct {
	HMACSecret       string
	RSAPublicKeyPath string
}

// Verifier checks token signatures and expiry.
type Verifier struct {
	secret []byte
	rsaKey *rsa.PublicKey
	parser *jwt.Parser
}

// NewVerifier creates a verifier accepting HS256 tokens when a secret is set and
// RS256 tokens when a public key is set.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{}
	var methods []string
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.RSAPublicKeyPath != "" {
		pem, err := os.ReadFile(cfg.RSAPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		v.rsaKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("a JWT secret or public key is required")
	}
	v.parser = jwt.NewParser(jwt.WithValidMethods(methods))
	return v, nil
}

// Verify parses the token and returns the identity it carries.
func (v *Verifier) Verify(token string) (identity.Identity, error) {
	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.key); err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.Tenant == "" {
		return identity.Identity{}, fmt.Errorf("%w: token carries no tenant", domain.ErrUnauthorized)
	}
	return identity.Identity{
		Subject:  claims.Subject,
		Tenant:   claims.Tenant,
		IsUser:   claims.User,
		IsDevice: claims.Device,
	}, nil
}

func (v *Verifier) key(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
}
