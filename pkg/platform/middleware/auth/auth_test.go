package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signingKey = "test-signing-key"

func mintToken(t *testing.T, key, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var gotSubject string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := Middleware(NewHMACValidator(signingKey), slog.New(slog.DiscardHandler))
	return mw(handler), &gotSubject
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	handler, gotSubject := protected(t)

	r := httptest.NewRequest(http.MethodPost, "/migrations/apply", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, signingKey, "ops@verity", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "ops@verity", *gotSubject)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler, _ := protected(t)

	r := httptest.NewRequest(http.MethodPost, "/migrations/apply", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	handler, _ := protected(t)

	r := httptest.NewRequest(http.MethodPost, "/migrations/apply", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, "other-key", "ops@verity", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	handler, _ := protected(t)

	r := httptest.NewRequest(http.MethodPost, "/migrations/apply", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, signingKey, "ops@verity", time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidatorRejectsUnexpectedAlgorithm(t *testing.T) {
	// alg=none tokens must never pass, regardless of signature checks.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "ops@verity"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewHMACValidator(signingKey).ValidateToken(signed)
	assert.Error(t, err)
}
