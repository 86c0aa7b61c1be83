package server

import (
	"errors"
	"fmt"
	"time"

	"arena-server/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenLeeway = 30 * time.Second

var (
	ErrNoToken      = errors.New("token required")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is who a connection plays as
type Identity struct {
	ClientID string
	Name     string
	Guest    bool
}

// Verifier checks HS256 tokens issued by an external account service.
// Tokens carry the client id in "sub" and an optional display name in "name".
type Verifier struct {
	secret      []byte
	issuer      string
	allowGuests bool
	parser      *jwt.Parser
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewVerifier builds a verifier from the auth config. With no secret every
// connection is a guest.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Verifier{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		allowGuests: cfg.AllowGuests || cfg.JWTSecret == "",
		parser:      jwt.NewParser(opts...),
	}
}

// Verify resolves a token to an identity. An empty token yields a guest
// when guests are allowed.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" || len(v.secret) == 0 {
		if !v.allowGuests {
			return Identity{}, ErrNoToken
		}
		id := uuid.NewString()
		return Identity{ClientID: "guest-" + id, Name: "Guest_" + id[:4], Guest: true}, nil
	}

	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return Identity{ClientID: c.Subject, Name: name}, nil
}

// Issue signs a token for clientID; used by tests and the token subcommand
func (v *Verifier) Issue(clientID, name string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("no jwt secret configured")
	}
	now := time.Now()
	c := claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
