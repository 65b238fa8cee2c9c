package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec(Config{Key: testKey, Issuer: "dashauth", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, clock)

	raw, issued, err := c.Encode(Subject{UserID: 1, Email: "admin@demo.com", Role: "admin", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := issued.ExpiresAt.Sub(issued.IssuedAt.Time); got != DefaultTTL {
		t.Fatalf("exp - iat = %v, want %v", got, DefaultTTL)
	}

	claims, ok := c.Decode(raw)
	if !ok {
		t.Fatal("expected token to decode")
	}
	if claims.UserID != 1 || claims.Email != "admin@demo.com" || claims.Role != "admin" || claims.SessionID != "s-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestDecodeExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, clock)

	raw, _, err := c.Encode(Subject{UserID: 2, SessionID: "s"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	clock.t = clock.t.Add(DefaultTTL - time.Second)
	if _, ok := c.Decode(raw); !ok {
		t.Fatal("token should still be valid one second before expiry")
	}

	clock.t = clock.t.Add(2 * time.Second)
	if _, ok := c.Decode(raw); ok {
		t.Fatal("expired token must not decode")
	}
}

func TestDecodeFailsSoft(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCodec(t, clock)

	raw, _, err := c.Encode(Subject{UserID: 3, SessionID: "s"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parts := strings.Split(raw, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	other, err := NewCodec(Config{Key: []byte("ffffffffffffffffffffffffffffffff"), Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	foreign, _, _ := other.Encode(Subject{UserID: 3, SessionID: "s"})

	for name, in := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"no dots":      "abc",
		"tampered":     tampered,
		"foreign key":  foreign,
		"binary noise": "\x00\xff.\x01.\x02",
	} {
		if claims, ok := c.Decode(in); ok || claims != nil {
			t.Errorf("%s: expected (nil, false), got (%v, %v)", name, claims, ok)
		}
	}
}

func TestDecodeRejectsOtherAlgorithm(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newTestCodec(t, clock)

	claims := Claims{
		UserID:    1,
		SessionID: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(clock.t),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
			Issuer:    "dashauth",
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, ok := c.Decode(raw); ok {
		t.Fatal("HS512 token must be rejected")
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, ok := c.Decode(unsigned); ok {
		t.Fatal("unsigned token must be rejected")
	}
}

func TestEd25519(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c, err := NewCodec(Config{Method: MethodEd25519, Key: priv})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, _, err := c.Encode(Subject{UserID: 9, Role: "user", SessionID: "s-9"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	claims, ok := c.Decode(raw)
	if !ok || claims.UserID != 9 {
		t.Fatalf("Decode = %+v, %v", claims, ok)
	}
}

func TestNewCodecValidation(t *testing.T) {
	if _, err := NewCodec(Config{Key: []byte("short")}); err == nil {
		t.Fatal("expected short hmac key to be rejected")
	}
	if _, err := NewCodec(Config{Key: testKey, Method: "rs256"}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
	if _, err := NewCodec(Config{Key: testKey, Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
}
