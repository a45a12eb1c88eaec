package apitest

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// SigningKey signs every token minted by this package.
var SigningKey = []byte("apitest-signing-key-0123456789abcdef")

// MintToken returns an HS256-signed compact JWT. A zero exp omits the claim.
func MintToken(t testing.TB, exp time.Time, claims map[string]any) string {
	t.Helper()
	tok, err := mint(exp, claims)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return tok
}

func mint(exp time.Time, claims map[string]any) (string, error) {
	b := jwt.NewBuilder().IssuedAt(time.Now())
	if !exp.IsZero() {
		b = b.Expiration(exp)
	}
	for k, v := range claims {
		b = b.Claim(k, v)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, SigningKey))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
