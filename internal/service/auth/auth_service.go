package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"schedpoll/internal/domain"
	"schedpoll/internal/service"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/logger"
)

// Service validates bearer tokens issued by the chat gateway. The gateway
// authenticates users on its own platform and signs a short-lived HS256
// token carrying the participant id; this core only verifies the signature
// and expiry.
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates an auth service sharing the gateway's signing secret
func NewService(secret string, log *logger.Logger) service.AuthService {
	return &Service{
		secret: []byte(secret),
		logger: log,
	}
}

// ValidateGatewayToken verifies the token and extracts the caller identity
func (s *Service) ValidateGatewayToken(ctx context.Context, token string) (*domain.GatewayIdentity, error) {
	if len(s.secret) == 0 {
		s.logger.Error("gateway JWT secret is not configured")
		return nil, errors.NewAuthenticationError("Token validation is not configured")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		s.logger.WithError(err).Debug("gateway token validation failed")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewAuthenticationError("Invalid token claims")
	}

	participantID, err := claims.GetSubject()
	if err != nil || participantID == "" {
		return nil, errors.NewAuthenticationError("Token is missing a subject")
	}

	identity := &domain.GatewayIdentity{ParticipantID: participantID}
	if name, ok := claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity, nil
}
