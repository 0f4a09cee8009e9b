package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "s3cret" {
		t.Fatal("digest must differ from plaintext")
	}

	ok, err := h.Verify("s3cret", digest)
	if err != nil || !ok {
		t.Fatalf("verify correct password: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong", digest)
	if err != nil || ok {
		t.Fatalf("verify wrong password: ok=%v err=%v", ok, err)
	}
	if _, err := h.Verify("s3cret", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec := NewTokenCodec("secret", "test", time.Hour).WithClock(func() time.Time { return now })

	token, issued, err := codec.Issue(Subject{UserID: 42, CompanyID: 7, Level: domain.LevelManager})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.ID == "" {
		t.Fatal("expected jti to be set")
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("user id = %d, err = %v", id, err)
	}
	if claims.CompanyID != 7 || claims.Level != string(domain.LevelManager) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejected(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	codec := NewTokenCodec("secret", "test", time.Hour).WithClock(func() time.Time { return now })
	token, _, err := codec.Issue(Subject{UserID: 1, CompanyID: 1, Level: domain.LevelCommon})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name  string
		codec *TokenCodec
		token string
	}{
		{
			name:  "expired",
			codec: NewTokenCodec("secret", "test", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) }),
			token: token,
		},
		{
			name:  "wrong secret",
			codec: NewTokenCodec("other", "test", time.Hour).WithClock(func() time.Time { return now }),
			token: token,
		},
		{
			name:  "wrong issuer",
			codec: NewTokenCodec("secret", "someone-else", time.Hour).WithClock(func() time.Time { return now }),
			token: token,
		},
		{
			name:  "garbage",
			codec: codec,
			token: "not.a.token",
		},
		{
			name:  "none algorithm",
			codec: codec,
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", Issuer: "test", ID: "x"})
				s, _ := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return s
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.codec.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
