package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guestbot/internal/db/dbtest"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("secret")
	tok, err := j.Sign(7)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := j.Verify(tok)
	if err != nil || id != 7 {
		t.Fatalf("verify: id=%d err=%v", id, err)
	}

	if _, err := NewJWT("other").Verify(tok); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestJWTExpired(t *testing.T) {
	j := NewJWT("secret")
	j.now = func() time.Time { return time.Now().Add(-2 * tokenTTL) }
	tok, err := j.Sign(7)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWT("secret").Verify(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestRequireAdmin(t *testing.T) {
	j := NewJWT("secret")
	tok, _ := j.Sign(3)

	var gotID uint64
	h := RequireAdmin(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = AdminIDFromContext(r.Context())
	}))

	for _, header := range []string{"", "Bearer ", "Bearer nope", "Basic " + tok} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status %d", header, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotID != 3 {
		t.Fatalf("status %d id %d", rec.Code, gotID)
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := dbtest.Open(t, &AdminUser{})
	ctx := context.Background()

	if _, err := EnsureAdmin(ctx, db, "admin", ""); err == nil {
		t.Fatal("expected error without password")
	}
	created, err := EnsureAdmin(ctx, db, "admin", "first-password")
	if err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	created, err = EnsureAdmin(ctx, db, "admin", "second-password")
	if err != nil || created {
		t.Fatalf("second call created=%v err=%v", created, err)
	}

	var u AdminUser
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if !ComparePassword(u.PasswordHash, "first-password") || ComparePassword(u.PasswordHash, "second-password") {
		t.Fatal("existing admin password must be kept")
	}
}
