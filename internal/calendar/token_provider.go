package calendar

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"schedpoll/pkg/redis"
)

// RedisTokenProvider reads participant OAuth tokens from Redis. The OAuth
// collaborator owns the consent flow and writes tokens there; this core
// only consumes them.
type RedisTokenProvider struct {
	client *redis.Client
}

// NewRedisTokenProvider creates a token provider over the shared Redis client
func NewRedisTokenProvider(client *redis.Client) *RedisTokenProvider {
	return &RedisTokenProvider{client: client}
}

// TokenForParticipant loads and decodes the participant's stored token
func (p *RedisTokenProvider) TokenForParticipant(ctx context.Context, participantID string) (*oauth2.Token, error) {
	payload, err := p.client.Get(ctx, p.client.KeyBuilder.KeyParticipantToken(participantID))
	if err == goredis.Nil {
		return nil, fmt.Errorf("no stored token for participant %s", participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token for participant %s: %w", participantID, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(payload), &token); err != nil {
		return nil, fmt.Errorf("failed to decode token for participant %s: %w", participantID, err)
	}
	return &token, nil
}

// UnconfiguredTokenProvider always fails. Deployments without token storage
// fall back to it; every participant then counts as busy via the
// conservative substitution, so no slot is ever offered on unknown data.
type UnconfiguredTokenProvider struct{}

// TokenForParticipant reports that token storage is not configured
func (UnconfiguredTokenProvider) TokenForParticipant(ctx context.Context, participantID string) (*oauth2.Token, error) {
	return nil, fmt.Errorf("token storage is not configured")
}
