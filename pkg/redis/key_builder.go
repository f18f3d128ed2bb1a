package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// KeyPoll addresses one serialized poll
func (kb *KeyBuilder) KeyPoll(pollID string) string {
	return kb.BuildKey(fmt.Sprintf("poll:%s", pollID))
}

// KeyGroupPolls addresses the set of poll ids belonging to a group
func (kb *KeyBuilder) KeyGroupPolls(groupID string) string {
	return kb.BuildKey(fmt.Sprintf("group:%s:polls", groupID))
}

// KeyOpenPolls addresses the set of poll ids still accepting votes
func (kb *KeyBuilder) KeyOpenPolls() string {
	return kb.BuildKey("polls:open")
}

// KeyParticipantToken addresses a participant's OAuth token, written by the
// OAuth collaborator and only read here
func (kb *KeyBuilder) KeyParticipantToken(participantID string) string {
	return kb.BuildKey(fmt.Sprintf("token:%s", participantID))
}
