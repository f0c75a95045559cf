package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-hmac-secret-with-enough-length"

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"iss": "cbdc-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTValidator_HS256(t *testing.T) {
	v := NewJWTValidator(testSecret, "", "cbdc-test")
	require.True(t, v.IsConfigured())

	sub, err := v.Subject(context.Background(), signHS256(t, testSecret, validClaims("user1@banka.example.com")))
	require.NoError(t, err)
	assert.Equal(t, "user1@banka.example.com", sub)
}

func TestJWTValidator_Rejects(t *testing.T) {
	v := NewJWTValidator(testSecret, "", "cbdc-test")
	ctx := context.Background()

	expired := validClaims("a")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := validClaims("a")
	wrongIssuer["iss"] = "someone-else"

	noExp := validClaims("a")
	delete(noExp, "exp")

	noSub := validClaims("")

	tests := map[string]string{
		"wrong secret": signHS256(t, "another-secret-entirely-different", validClaims("a")),
		"expired":      signHS256(t, testSecret, expired),
		"wrong issuer": signHS256(t, testSecret, wrongIssuer),
		"no expiry":    signHS256(t, testSecret, noExp),
		"no subject":   signHS256(t, testSecret, noSub),
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Subject(ctx, tok)
			assert.Error(t, err)
		})
	}
}

func TestJWTValidator_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kid: "k1",
			Kty: "RSA",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	v := NewJWTValidator("", srv.URL, "")
	require.True(t, v.IsConfigured())

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("Admin@centralbank.example.com"))
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	for range 2 {
		sub, err := v.Subject(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, "Admin@centralbank.example.com", sub)
	}
	assert.Equal(t, 1, fetches, "keys should be cached after the first fetch")

	tok.Header["kid"] = "unknown"
	signed, err = tok.SignedString(key)
	require.NoError(t, err)
	_, err = v.Subject(context.Background(), signed)
	assert.Error(t, err)
}

func TestJWTValidator_NotConfigured(t *testing.T) {
	assert.False(t, NewJWTValidator("", "", "").IsConfigured())
}
