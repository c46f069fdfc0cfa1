package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/pkg/auth"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleWarehouse)

	var gotUser uuid.UUID
	var gotRole enums.Role
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, enums.RoleWarehouse, gotRole)
}

func TestAuthAcceptsQueryTokenForStreams(t *testing.T) {
	token := mintTestToken(t, uuid.New(), enums.RoleCustomer)
	handler := Auth(testJWT, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/stream?access_token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(nil, enums.RoleAdmin, enums.RoleAccountant)(okHandler())

	for role, want := range map[enums.Role]int{
		enums.RoleAdmin:      http.StatusOK,
		enums.RoleAccountant: http.StatusOK,
		enums.RoleVendor:     http.StatusForbidden,
		"":                   http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), uuid.New(), role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestStatusRecorderFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}
	_, err := sr.Write([]byte("data: x\n\n"))
	require.NoError(t, err)
	sr.Flush()
	assert.Equal(t, http.StatusOK, sr.status)
	assert.True(t, rec.Flushed)
}
