package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminToken verifies the console's bearer token. The token itself is never
// stored; only a bcrypt hash reaches the process environment.
type AdminToken struct {
	hash []byte
	// plain is only set in dev mode (ADMIN_TOKEN without a hash).
	plain string
}

func NewAdminToken(bcryptHash, devPlain string) *AdminToken {
	t := &AdminToken{plain: strings.TrimSpace(devPlain)}
	if h := strings.TrimSpace(bcryptHash); h != "" {
		t.hash = []byte(h)
	}
	return t
}

func (t *AdminToken) Configured() bool {
	return len(t.hash) > 0 || t.plain != ""
}

func (t *AdminToken) Verify(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	if len(t.hash) > 0 {
		return bcrypt.CompareHashAndPassword(t.hash, []byte(token)) == nil
	}
	if t.plain != "" {
		return subtle.ConstantTimeCompare([]byte(t.plain), []byte(token)) == 1
	}
	return false
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
// With no token configured, everything is rejected; the admin surface never
// runs open by accident.
func (t *AdminToken) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) || !t.Verify(raw[len(prefix):]) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashToken produces a bcrypt hash for provisioning ADMIN_TOKEN_BCRYPT.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
