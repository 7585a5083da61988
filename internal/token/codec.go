// Package token signs and verifies access tokens with an asymmetric key pair.
package token

import (
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.TokenCodec = (*Codec)(nil)

// Codec implements model.TokenCodec on top of golang-jwt. It is stateless
// apart from its keys and never consults the revocation store.
type Codec struct {
	method     jwt.SigningMethod
	privateKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, used for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec for alg. privatePEM may be empty, in which case the
// codec can only verify and Sign returns model.ErrConfiguration. publicPEM may
// be empty when it can be derived from privatePEM.
func NewCodec(alg string, privatePEM, publicPEM []byte, opts ...Option) (*Codec, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", model.ErrConfiguration, alg)
	}

	c := &Codec{method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if len(privatePEM) > 0 {
		priv, pub, err := parsePrivateKey(method, privatePEM)
		if err != nil {
			return nil, fmt.Errorf("%w: private key: %w", model.ErrConfiguration, err)
		}
		c.privateKey = priv
		c.publicKey = pub
	}

	if len(publicPEM) > 0 {
		pub, err := parsePublicKey(method, publicPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %w", model.ErrConfiguration, err)
		}
		c.publicKey = pub
	}

	if c.publicKey == nil {
		return nil, fmt.Errorf("%w: no key material for %s", model.ErrConfiguration, alg)
	}

	return c, nil
}

// Algorithm returns the pinned signing algorithm.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// CanSign reports whether a private key is configured.
func (c *Codec) CanSign() bool {
	return c.privateKey != nil
}

// Sign copies claims, adds a random jti and exp = now + ttl, and signs the
// result. Caller supplied jti and exp are overwritten.
func (c *Codec) Sign(claims map[string]any, ttl time.Duration) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("%w: no private key configured", model.ErrConfiguration)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", model.ErrValidation)
	}

	mc := make(jwt.MapClaims, len(claims)+2)
	maps.Copy(mc, claims)
	mc[model.ClaimTokenID] = uuid.NewString()
	mc[model.ClaimExpiry] = c.now().Add(ttl).Unix()

	signed, err := jwt.NewWithClaims(c.method, mc).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign token: %w", model.ErrConfiguration, err)
	}

	return signed, nil
}

// Verify checks signature, algorithm and expiry.
func (c *Codec) Verify(token string) (map[string]any, error) {
	return c.parse(token,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
}

// VerifyIgnoringExpiry checks signature and algorithm only.
func (c *Codec) VerifyIgnoringExpiry(token string) (map[string]any, error) {
	return c.parse(token, jwt.WithoutClaimsValidation())
}

func (c *Codec) parse(token string, opts ...jwt.ParserOption) (map[string]any, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", model.ErrInvalidToken)
	}

	opts = append(opts, jwt.WithValidMethods([]string{c.method.Alg()}))

	mc := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return c.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: token is invalid", model.ErrInvalidToken)
	}

	return map[string]any(mc), nil
}

func parsePrivateKey(method jwt.SigningMethod, data []byte) (crypto.PrivateKey, crypto.PublicKey, error) {
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, err
		}
		return key, key.Public(), nil
	case *jwt.SigningMethodECDSA:
		key, err := jwt.ParseECPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, err
		}
		if key.Curve.Params().BitSize != m.CurveBits {
			return nil, nil, fmt.Errorf("%s needs a %d bit curve", m.Alg(), m.CurveBits)
		}
		return key, key.Public(), nil
	case *jwt.SigningMethodEd25519:
		key, err := jwt.ParseEdPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, err
		}
		edKey, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, nil, errors.New("not an ed25519 key")
		}
		return edKey, edKey.Public(), nil
	default:
		return nil, nil, fmt.Errorf("algorithm %s is not asymmetric", method.Alg())
	}
}

func parsePublicKey(method jwt.SigningMethod, data []byte) (crypto.PublicKey, error) {
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return jwt.ParseRSAPublicKeyFromPEM(data)
	case *jwt.SigningMethodECDSA:
		key, err := jwt.ParseECPublicKeyFromPEM(data)
		if err != nil {
			return nil, err
		}
		if key.Curve.Params().BitSize != m.CurveBits {
			return nil, fmt.Errorf("%s needs a %d bit curve", m.Alg(), m.CurveBits)
		}
		return key, nil
	case *jwt.SigningMethodEd25519:
		return jwt.ParseEdPublicKeyFromPEM(data)
	default:
		return nil, fmt.Errorf("algorithm %s is not asymmetric", method.Alg())
	}
}
