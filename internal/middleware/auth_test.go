package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/logger"
)

type stubAuthService struct {
	identity *domain.GatewayIdentity
	err      error
}

func (s *stubAuthService) ValidateGatewayToken(ctx context.Context, token string) (*domain.GatewayIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		service    *stubAuthService
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "valid token",
			header:     "Bearer good-token",
			service:    &stubAuthService{identity: &domain.GatewayIdentity{ParticipantID: "alice"}},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "missing header",
			header:     "",
			service:    &stubAuthService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			service:    &stubAuthService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty bearer token",
			header:     "Bearer ",
			service:    &stubAuthService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "validation failure",
			header:     "Bearer bad-token",
			service:    &stubAuthService{err: errors.NewAuthenticationError("invalid token")},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				identity, ok := r.Context().Value(IdentityContextKey).(*domain.GatewayIdentity)
				require.True(t, ok)
				assert.Equal(t, "alice", identity.ParticipantID)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Auth(tt.service, logger.NewNop())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var fromContext string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext, _ = r.Context().Value(RequestIDContextKey).(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RequestID(logger.NewNop())(next).ServeHTTP(rec, req)

	assert.NotEmpty(t, fromContext)
	assert.Equal(t, fromContext, rec.Header().Get("X-Request-ID"))
}
