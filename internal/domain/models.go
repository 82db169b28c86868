package domain

// User is the identity for the current session: an opaque id plus the
// display name chosen at login. No credentials are involved.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// QuizScore records a single quiz submission. Submissions are never merged;
// retaking a quiz appends another record.
type QuizScore struct {
	ID       string `json:"id"`
	QuizName string `json:"quizName"`
	Score    int    `json:"score"`
	Date     string `json:"date"`
	UserID   string `json:"userId"`
}

// Difficulty grades a challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Challenge is a coding challenge with the set of users who solved it.
// SolvedBy only grows and holds each user id at most once.
type Challenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	SolvedBy    []string   `json:"solvedBy"`
}

// Solved reports whether userID is in the challenge's solved set.
func (c Challenge) Solved(userID string) bool {
	for _, id := range c.SolvedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// DSAResource is a shared study resource. Immutable once created.
type DSAResource struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	UploadedBy string `json:"uploadedBy"`
	UploadDate string `json:"uploadDate"`
}

// RequestStatus is the friend request lifecycle state. The only legal
// transitions are pending to accepted and pending to rejected, each once.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest is a pending or resolved friendship offer.
type FriendRequest struct {
	ID           string        `json:"id"`
	FromUserID   string        `json:"fromUserId"`
	FromUserName string        `json:"fromUserName"`
	ToUserID     string        `json:"toUserId"`
	Status       RequestStatus `json:"status"`
	Date         string        `json:"date"`
}

// Friend is an entry in a user's local friend list. The id is the peer's
// user id; the relation is not mirrored on the peer's side (see
// StoreService.AcceptFriendRequest).
type Friend struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is one direction of a two-party chat. Append-only.
type ChatMessage struct {
	ID         string `json:"id"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

// ActivityType tags an activity feed entry.
type ActivityType string

const (
	ActivityQuiz        ActivityType = "quiz"
	ActivityChallenge   ActivityType = "challenge"
	ActivityDSAUpload   ActivityType = "dsa_upload"
	ActivityDSADownload ActivityType = "dsa_download"
)

// Activity is a denormalized feed record derived as a side effect of
// mutations on the other collections. Append-only.
type Activity struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Timestamp   string       `json:"timestamp"`
}
