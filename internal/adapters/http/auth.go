package httpadapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// Authenticator verifies HS256 bearer tokens and yields the owner identity.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

type ownerContextKey struct{}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing bearer token")))
			return
		}

		ownerID, err := a.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, domain.WrapError(domain.ErrUnauthorized, "authenticate", err))
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey{}, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type jwtClaims struct {
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
}

// verify checks an HS256 JWT: header.payload.signature with the signature
// over the first two segments.
func (a *Authenticator) verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errors.New("malformed token")
	}

	var header struct {
		Algorithm string `json:"alg"`
	}
	if err := decodeSegment(parts[0], &header); err != nil {
		return "", fmt.Errorf("decode header: %w", err)
	}
	if header.Algorithm != "HS256" {
		return "", fmt.Errorf("unsupported algorithm %q", header.Algorithm)
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", errors.New("signature mismatch")
	}

	var claims jwtClaims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return "", fmt.Errorf("decode claims: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject claim")
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return "", errors.New("token expired")
	}
	return claims.Subject, nil
}

func decodeSegment(segment string, out any) error {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// MintToken issues a token for the given subject. Used by tests and local
// tooling; production deployments mint tokens at the identity provider.
func (a *Authenticator) MintToken(subject string, ttl time.Duration) string {
	encode := func(v any) string {
		raw, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	head := encode(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload := encode(jwtClaims{Subject: subject, ExpiresAt: time.Now().Add(ttl).Unix()})

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(head + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return head + "." + payload + "." + sig
}
