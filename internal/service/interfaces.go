package service

import (
	"context"

	"schedpoll/internal/domain"
)

// AuthService validates bearer tokens issued by the chat gateway
type AuthService interface {
	ValidateGatewayToken(ctx context.Context, token string) (*domain.GatewayIdentity, error)
}
