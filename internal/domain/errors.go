package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when a mutation runs without a logged-in identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrScoreOutOfRange is returned for quiz scores outside [0,100].
	ErrScoreOutOfRange = errors.New("score out of range")
	// ErrChallengeNotFound indicates an unknown challenge id.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrResourceNotFound indicates an unknown DSA resource id.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrRequestNotFound indicates an unknown friend request id.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrRequestNotPending is returned when accepting or rejecting an already resolved request.
	ErrRequestNotPending = errors.New("friend request already resolved")
	// ErrSelfFriendRequest is returned when a user sends a friend request to themselves.
	ErrSelfFriendRequest = errors.New("cannot send friend request to yourself")
	// ErrDuplicateRequest is returned when an open request to the same user already exists.
	ErrDuplicateRequest = errors.New("friend request already pending")
	// ErrEmptyMessage is returned for blank chat messages.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrKeyNotFound is returned by blob stores when a key has never been written.
	ErrKeyNotFound = errors.New("key not found")
)
