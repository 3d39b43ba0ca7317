package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	sessions map[string]*AuthContext
}

func (s *stubResolver) ResolveSession(_ context.Context, token string) (*AuthContext, error) {
	if ac, ok := s.sessions[token]; ok {
		return ac, nil
	}
	return nil, ErrInvalidSession
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc123", ExtractToken("Bearer abc123"))
	assert.Equal(t, "", ExtractToken("abc123"))
	assert.Equal(t, "", ExtractToken(""))
	assert.Equal(t, "", ExtractToken("Basic abc123"))
}

func TestMiddleware_InjectsContext(t *testing.T) {
	companyID := uuid.New()
	resolver := &stubResolver{sessions: map[string]*AuthContext{
		"good-token": {UserID: uuid.New(), CompanyIDs: []uuid.UUID{companyID}},
	}}

	var got *AuthContext
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/declarations", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.True(t, got.CanAccessCompany(companyID))
	assert.False(t, got.CanAccessCompany(uuid.New()))
}

func TestMiddleware_InvalidTokenProceedsWithoutContext(t *testing.T) {
	resolver := &stubResolver{}

	var called bool
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, GetAuthContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/declarations", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestRequireAuth_RejectsMissingSession(t *testing.T) {
	resolver := &stubResolver{}
	handler := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without auth")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/declarations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_PassesWithSession(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]*AuthContext{
		"good-token": {UserID: uuid.New()},
	}}

	handler := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/declarations", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
