package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyResults() string {
	return kb.BuildKey(KeyResults)
}

func (kb *KeyBuilder) KeyStats() string {
	return kb.BuildKey(KeyStats)
}

func (kb *KeyBuilder) KeyCandidatesAll() string {
	return kb.BuildKey(KeyCandidatesAll)
}

func (kb *KeyBuilder) KeyCandidateByID(candidateID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyCandidateByID, candidateID))
}

func (kb *KeyBuilder) ChannelResults() string {
	return kb.BuildKey(ChannelResults)
}

func (kb *KeyBuilder) KeyBallotLimit(clientHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeyBallotLimit, clientHash))
}
