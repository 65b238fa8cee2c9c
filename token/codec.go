package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Method selects the signature algorithm.
type Method string

const (
	MethodHS256   Method = "hs256"
	MethodEd25519 Method = "ed25519"
)

// DefaultTTL is the lifetime of a freshly encoded token.
const DefaultTTL = 24 * time.Hour

const minHMACKeyLen = 32

// Config configures a Codec.
type Config struct {
	Method Method
	// Key is the HMAC secret for HS256, or the Ed25519 private key (raw or
	// PEM) for Ed25519.
	Key []byte
	// PublicKey is the Ed25519 verification key. Derived from Key when empty.
	PublicKey []byte
	TTL       time.Duration
	Issuer    string
	Audience  string
	Leeway    time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID    int64
	Email     string
	Role      string
	SessionID string
}

// Claims is the decoded token payload.
type Claims struct {
	UserID    int64  `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. Safe for concurrent use.
type Codec struct {
	cfg     Config
	method  jwt.SigningMethod
	signKey any
	verKey  any
	parser  *jwt.Parser
}

// NewCodec validates cfg and prepares the signing keys.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: leeway must be within [0, 2m]")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Codec{cfg: cfg}
	switch cfg.Method {
	case MethodHS256, "":
		if len(cfg.Key) < minHMACKeyLen {
			return nil, fmt.Errorf("token: hs256 key must be at least %d bytes", minHMACKeyLen)
		}
		c.method = jwt.SigningMethodHS256
		c.signKey, c.verKey = cfg.Key, cfg.Key
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		c.method = jwt.SigningMethodEdDSA
		c.signKey, c.verKey = priv, pub
	default:
		return nil, fmt.Errorf("token: unsupported method %q", cfg.Method)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	c.parser = jwt.NewParser(opts...)

	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.cfg.TTL }

// Encode signs a token for s. The returned claims carry the issue and expiry
// times actually embedded.
func (c *Codec) Encode(s Subject) (string, Claims, error) {
	now := c.cfg.Now()
	claims := Claims{
		UserID:    s.UserID,
		Email:     s.Email,
		Role:      s.Role,
		SessionID: s.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(s.UserID, 10),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TTL)),
		},
	}
	if c.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies raw and returns its claims. It never returns an error:
// anything short of a well-formed, correctly signed, unexpired token is
// reported as (nil, false).
func (c *Codec) Decode(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}

	var claims Claims
	tok, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.verKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, false
	}
	if claims.UserID <= 0 || claims.SessionID == "" {
		return nil, false
	}
	return &claims, true
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return priv, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return pub, nil
}
