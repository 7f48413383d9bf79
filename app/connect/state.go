package connect

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateTTL matches the lifetime of the CSRF cookie.
const StateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("invalid OAuth state")

type State struct {
	SiteID string
	CSRF   string
}

type stateClaims struct {
	jwt.RegisteredClaims
	SiteID string `json:"site_id"`
	CSRF   string `json:"csrf"`
}

// StateCodec signs and verifies the OAuth state parameter as an HS256 JWT.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateCodec(secret []byte) *StateCodec {
	return &StateCodec{
		secret: secret,
		ttl:    StateTTL,
		now:    time.Now,
	}
}

func (c *StateCodec) Encode(state State) (string, error) {
	now := c.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		SiteID: state.SiteID,
		CSRF:   state.CSRF,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

func (c *StateCodec) Decode(raw string) (*State, error) {
	token, err := jwt.ParseWithClaims(raw, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.SiteID == "" || claims.CSRF == "" {
		return nil, ErrInvalidState
	}

	return &State{SiteID: claims.SiteID, CSRF: claims.CSRF}, nil
}

// RandomSecret returns a fresh 32-byte signing key.
func RandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate state secret: %w", err)
	}
	return secret, nil
}
