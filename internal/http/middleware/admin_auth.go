package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
)

const adminSubject = "admin"

// AdminAuthConfig holds the credentials accepted on admin routes.
type AdminAuthConfig struct {
	// Password is accepted verbatim as a bearer token.
	Password string
	// JWTSecret, when set, also accepts HS256 tokens issued by IssueAdminToken.
	JWTSecret string
}

// Enabled reports whether any credential is configured.
func (c AdminAuthConfig) Enabled() bool {
	return c.Password != "" || c.JWTSecret != ""
}

// AdminAuth requires "Authorization: Bearer <token>" where token is the admin password
// or a valid admin JWT. With nothing configured every request is rejected.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				unauthorized(w, "admin auth disabled")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing or malformed authorization header")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			if cfg.Password != "" && PasswordMatches(cfg.Password, token) {
				ctx := compliance.WithActor(r.Context(), adminSubject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if cfg.JWTSecret != "" {
				claims, err := ParseAdminToken(cfg.JWTSecret, token)
				if err == nil {
					ctx := compliance.WithActor(r.Context(), claims.Subject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			unauthorized(w, "invalid authorization")
		})
	}
}

// PasswordMatches compares in constant time.
func PasswordMatches(expected, given string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// IssueAdminToken signs an HS256 token valid for ttl.
func IssueAdminToken(secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("middleware: jwt secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken validates a token issued by IssueAdminToken.
func ParseAdminToken(secret, tokenString string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	if !token.Valid {
		return jwt.RegisteredClaims{}, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	respond.JSON(w, http.StatusUnauthorized, respond.Envelope{Success: false, Message: message})
}
