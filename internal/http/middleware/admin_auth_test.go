package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicbook/clinic-booking/internal/compliance"
)

func serveAdmin(t *testing.T, cfg AdminAuthConfig, authHeader string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	var seen *http.Request
	AdminAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, seen
}

func TestAdminAuthDisabled(t *testing.T) {
	rec, seen := serveAdmin(t, AdminAuthConfig{}, "Bearer anything")
	if rec.Code != http.StatusUnauthorized || seen != nil {
		t.Fatalf("expected 401 without credentials configured, got %d", rec.Code)
	}
}

func TestAdminAuthMissingHeader(t *testing.T) {
	rec, _ := serveAdmin(t, AdminAuthConfig{Password: "s3cret"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	rec, _ = serveAdmin(t, AdminAuthConfig{Password: "s3cret"}, "Basic s3cret")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for non-bearer scheme, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminAuthPassword(t *testing.T) {
	rec, seen := serveAdmin(t, AdminAuthConfig{Password: "s3cret"}, "Bearer s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if actor := compliance.ActorFromContext(seen.Context()); actor != "admin" {
		t.Fatalf("expected admin actor, got %q", actor)
	}

	rec, _ = serveAdmin(t, AdminAuthConfig{Password: "s3cret"}, "Bearer wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminAuthJWT(t *testing.T) {
	cfg := AdminAuthConfig{Password: "s3cret", JWTSecret: "signing-key"}
	token, err := IssueAdminToken("signing-key", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, seen := serveAdmin(t, cfg, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if actor := compliance.ActorFromContext(seen.Context()); actor != "admin" {
		t.Fatalf("expected token subject as actor, got %q", actor)
	}

	forged, _ := IssueAdminToken("other-key", time.Hour, time.Now())
	if rec, _ := serveAdmin(t, cfg, "Bearer "+forged); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected forged token to be rejected, got %d", rec.Code)
	}

	expired, _ := IssueAdminToken("signing-key", time.Minute, time.Now().Add(-time.Hour))
	if rec, _ := serveAdmin(t, cfg, "Bearer "+expired); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected expired token to be rejected, got %d", rec.Code)
	}
}

func TestParseAdminTokenRequiresExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin"})
	signed, err := token.SignedString([]byte("signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseAdminToken("signing-key", signed); err == nil {
		t.Fatalf("expected token without exp to be rejected")
	}
}

func TestIssueAdminTokenWithoutSecret(t *testing.T) {
	if _, err := IssueAdminToken("", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error without secret")
	}
}
