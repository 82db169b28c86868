package app

import (
	"context"

	"codeconnect/internal/domain"
)

// Collection keys in the durable store. Each key holds one JSON array of
// records; the identity key holds a single user record. The layout matches
// what earlier deployments of the platform persisted, so blobs written by
// one backend remain readable by another.
const (
	KeyQuizScores     = "quiz_scores"
	KeyChallenges     = "challenges"
	KeyDSAResources   = "dsa_resources"
	KeyFriendRequests = "friend_requests"
	KeyFriends        = "friends"
	KeyChatMessages   = "chat_messages"
	KeyActivities     = "activities"
	KeyIdentity       = "codeconnect_user"
)

// BlobStore abstracts the durable key-value medium (in-memory, Redis,
// Postgres). One serialized blob per key, last-writer-wins, no transactions
// across keys. Read returns domain.ErrKeyNotFound for absent keys.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// IdentityProvider exposes the current session identity, if any.
type IdentityProvider interface {
	Current() (domain.User, bool)
}
