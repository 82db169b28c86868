package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeconnect/internal/domain"
	"github.com/google/uuid"
)

// autoReplyText is the canned response appended on behalf of the chat peer.
const autoReplyText = "Thanks for your message! This is a simulated reply."

// defaultReplyDelay matches the original platform's simulated typing pause.
const defaultReplyDelay = 2 * time.Second

// EventType tags a store event delivered to subscribers.
type EventType string

const (
	EventActivity EventType = "activity"
	EventChat     EventType = "chat"
)

// Event is pushed to subscribers whenever a mutation derives a new activity
// record or appends a chat message.
type Event struct {
	Type     EventType
	Activity domain.Activity
	Message  domain.ChatMessage
}

// StoreService is the in-memory authority for all entity collections: quiz
// scores, challenges, DSA resources, friend requests, friends, chat
// messages, and the derived activity feed. Every mutation requires an
// authenticated identity, updates the in-memory collections, and
// write-through persists the collections it touched.
//
// Writes to different keys are not atomic: a crash between two collection
// writes can leave the durable store internally inconsistent. That risk is
// accepted; collections are independent enough that the worst case is a
// missing activity record.
type StoreService struct {
	blobs    BlobStore
	identity IdentityProvider

	now        func() time.Time
	newID      func() string
	replyDelay time.Duration

	mu         sync.RWMutex
	quizScores []domain.QuizScore
	challenges []domain.Challenge
	resources  []domain.DSAResource
	requests   []domain.FriendRequest
	friends    []domain.Friend
	messages   []domain.ChatMessage
	activities []domain.Activity

	replies     map[string]*time.Timer
	subscribers map[chan Event]struct{}
	closed      bool
}

// Option customizes a StoreService.
type Option func(*StoreService)

// WithClock injects a clock for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *StoreService) { s.now = now }
}

// WithIDGenerator injects the record id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *StoreService) { s.newID = newID }
}

// WithReplyDelay overrides the simulated chat reply delay.
func WithReplyDelay(d time.Duration) Option {
	return func(s *StoreService) { s.replyDelay = d }
}

// NewStoreService loads every collection from the blob store. Collections
// that have never been persisted are initialized with the platform's sample
// data and written back immediately; from then on the store owns the
// in-memory state and the blob store is a passive mirror.
func NewStoreService(ctx context.Context, blobs BlobStore, identity IdentityProvider, opts ...Option) (*StoreService, error) {
	s := &StoreService{
		blobs:       blobs,
		identity:    identity,
		now:         time.Now,
		newID:       uuid.NewString,
		replyDelay:  defaultReplyDelay,
		replies:     make(map[string]*time.Timer),
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := loadCollection(ctx, blobs, KeyQuizScores, &s.quizScores, sampleQuizScores()); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyChallenges, &s.challenges, sampleChallenges()); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyDSAResources, &s.resources, sampleResources()); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyFriendRequests, &s.requests, nil); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyFriends, &s.friends, nil); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyChatMessages, &s.messages, nil); err != nil {
		return nil, err
	}
	if err := loadCollection(ctx, blobs, KeyActivities, &s.activities, sampleActivities()); err != nil {
		return nil, err
	}
	return s, nil
}

// loadCollection reads one collection blob, seeding and persisting the
// sample records when the key has never been written. A nil seed means the
// collection simply starts empty without a seed write.
func loadCollection[T any](ctx context.Context, blobs BlobStore, key string, dst *[]T, seed []T) error {
	data, err := blobs.Read(ctx, key)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		*dst = seed
		if seed == nil {
			return nil
		}
		blob, err := json.Marshal(seed)
		if err != nil {
			return err
		}
		if err := blobs.Write(ctx, key, blob); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StoreService) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.blobs.Write(ctx, key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// AddQuizScore appends a quiz submission for the current identity and
// derives a matching activity record.
func (s *StoreService) AddQuizScore(ctx context.Context, quizName string, score int) (domain.QuizScore, error) {
	user, ok := s.identity.Current()
	if !ok {
		return domain.QuizScore{}, domain.ErrNotAuthenticated
	}
	if score < 0 || score > 100 {
		return domain.QuizScore{}, domain.ErrScoreOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	record := domain.QuizScore{
		ID:       s.newID(),
		QuizName: quizName,
		Score:    score,
		Date:     now.Format("2006-01-02"),
		UserID:   user.ID,
	}
	s.quizScores = append(s.quizScores, record)
	activity := s.appendActivityLocked(user.ID, domain.ActivityQuiz,
		fmt.Sprintf("Completed %s quiz with score %d", quizName, score))

	if err := s.save(ctx, KeyQuizScores, s.quizScores); err != nil {
		return record, err
	}
	if err := s.save(ctx, KeyActivities, s.activities); err != nil {
		return record, err
	}
	s.broadcastLocked(Event{Type: EventActivity, Activity: activity})
	return record, nil
}

// SolveChallenge marks the challenge solved by the current identity.
// Solving an already-solved challenge is a successful no-op and derives no
// second activity record.
func (s *StoreService) SolveChallenge(ctx context.Context, challengeID string) error {
	user, ok := s.identity.Current()
	if !ok {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.challenges {
		if s.challenges[i].ID == challengeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrChallengeNotFound
	}
	if s.challenges[idx].Solved(user.ID) {
		return nil
	}

	s.challenges[idx].SolvedBy = append(s.challenges[idx].SolvedBy, user.ID)
	activity := s.appendActivityLocked(user.ID, domain.ActivityChallenge,
		fmt.Sprintf("Solved %s challenge", s.challenges[idx].Title))

	if err := s.save(ctx, KeyChallenges, s.challenges); err != nil {
		return err
	}
	if err := s.save(ctx, KeyActivities, s.activities); err != nil {
		return err
	}
	s.broadcastLocked(Event{Type: EventActivity, Activity: activity})
	return nil
}

// UploadResource appends a DSA resource owned by the current identity.
func (s *StoreService) UploadResource(ctx context.Context, title string) (domain.DSAResource, error) {
	user, ok := s.identity.Current()
	if !ok {
		return domain.DSAResource{}, domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resource := domain.DSAResource{
		ID:         s.newID(),
		Title:      title,
		UploadedBy: user.ID,
		UploadDate: s.now().UTC().Format("2006-01-02"),
	}
	s.resources = append(s.resources, resource)
	activity := s.appendActivityLocked(user.ID, domain.ActivityDSAUpload,
		fmt.Sprintf("Uploaded DSA resource: %s", title))

	if err := s.save(ctx, KeyDSAResources, s.resources); err != nil {
		return resource, err
	}
	if err := s.save(ctx, KeyActivities, s.activities); err != nil {
		return resource, err
	}
	s.broadcastLocked(Event{Type: EventActivity, Activity: activity})
	return resource, nil
}

// RecordResourceDownload derives a download activity for the current
// identity. The resource itself is immutable and unaffected.
func (s *StoreService) RecordResourceDownload(ctx context.Context, resourceID string) error {
	user, ok := s.identity.Current()
	if !ok {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var title string
	for i := range s.resources {
		if s.resources[i].ID == resourceID {
			title = s.resources[i].Title
			break
		}
	}
	if title == "" {
		return domain.ErrResourceNotFound
	}

	activity := s.appendActivityLocked(user.ID, domain.ActivityDSADownload,
		fmt.Sprintf("Downloaded DSA resource: %s", title))
	if err := s.save(ctx, KeyActivities, s.activities); err != nil {
		return err
	}
	s.broadcastLocked(Event{Type: EventActivity, Activity: activity})
	return nil
}

// SendFriendRequest appends a pending request from the current identity.
// Self-requests and duplicate open requests to the same user are rejected.
// toUserName is accepted for caller symmetry but the record only carries
// the sender's name; the recipient already knows their own.
func (s *StoreService) SendFriendRequest(ctx context.Context, toUserID, toUserName string) (domain.FriendRequest, error) {
	user, ok := s.identity.Current()
	if !ok {
		return domain.FriendRequest{}, domain.ErrNotAuthenticated
	}
	if toUserID == user.ID {
		return domain.FriendRequest{}, domain.ErrSelfFriendRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if s.requests[i].FromUserID == user.ID && s.requests[i].ToUserID == toUserID &&
			s.requests[i].Status == domain.RequestPending {
			return domain.FriendRequest{}, domain.ErrDuplicateRequest
		}
	}

	request := domain.FriendRequest{
		ID:           s.newID(),
		FromUserID:   user.ID,
		FromUserName: user.Name,
		ToUserID:     toUserID,
		Status:       domain.RequestPending,
		Date:         s.now().UTC().Format(time.RFC3339),
	}
	s.requests = append(s.requests, request)
	if err := s.save(ctx, KeyFriendRequests, s.requests); err != nil {
		return request, err
	}
	return request, nil
}

// AcceptFriendRequest transitions a pending request to accepted and adds
// the sender to the accepter's friend list.
//
// The relation stays one-sided: only the accepter's friends collection
// gains a record, matching the platform's historical behavior. A symmetric
// model would need per-user friend collections and is deliberately not
// introduced here.
func (s *StoreService) AcceptFriendRequest(ctx context.Context, requestID string) error {
	if _, ok := s.identity.Current(); !ok {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.requests {
		if s.requests[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrRequestNotFound
	}
	if s.requests[idx].Status != domain.RequestPending {
		return domain.ErrRequestNotPending
	}

	s.friends = append(s.friends, domain.Friend{
		ID:   s.requests[idx].FromUserID,
		Name: s.requests[idx].FromUserName,
	})
	s.requests[idx].Status = domain.RequestAccepted

	if err := s.save(ctx, KeyFriends, s.friends); err != nil {
		return err
	}
	return s.save(ctx, KeyFriendRequests, s.requests)
}

// RejectFriendRequest transitions a pending request to rejected.
func (s *StoreService) RejectFriendRequest(ctx context.Context, requestID string) error {
	if _, ok := s.identity.Current(); !ok {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if s.requests[i].ID == requestID {
			if s.requests[i].Status != domain.RequestPending {
				return domain.ErrRequestNotPending
			}
			s.requests[i].Status = domain.RequestRejected
			return s.save(ctx, KeyFriendRequests, s.requests)
		}
	}
	return domain.ErrRequestNotFound
}

// SendMessage appends a chat message from the current identity to the peer
// and schedules the peer's simulated reply after the configured delay. The
// pending reply is tracked per message and cancelled by
// CancelPendingReplies or Close.
func (s *StoreService) SendMessage(ctx context.Context, toUserID, text string) (domain.ChatMessage, error) {
	user, ok := s.identity.Current()
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotAuthenticated
	}
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	message := domain.ChatMessage{
		ID:         s.newID(),
		FromUserID: user.ID,
		ToUserID:   toUserID,
		Message:    text,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	}
	s.messages = append(s.messages, message)
	if err := s.save(ctx, KeyChatMessages, s.messages); err != nil {
		return message, err
	}
	s.broadcastLocked(Event{Type: EventChat, Message: message})

	if !s.closed {
		// The reply targets the identities captured now, not whoever is
		// logged in when the timer fires.
		msgID, peerID, senderID := message.ID, toUserID, user.ID
		s.replies[msgID] = time.AfterFunc(s.replyDelay, func() {
			s.deliverReply(msgID, peerID, senderID)
		})
	}
	return message, nil
}

// deliverReply appends the canned auto-reply unless it was cancelled.
func (s *StoreService) deliverReply(msgID, peerID, senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.replies[msgID]; !pending || s.closed {
		return
	}
	delete(s.replies, msgID)

	reply := domain.ChatMessage{
		ID:         s.newID(),
		FromUserID: peerID,
		ToUserID:   senderID,
		Message:    autoReplyText,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	}
	s.messages = append(s.messages, reply)
	// Timer callbacks have no caller context; persistence is best-effort
	// here and the in-memory log stays authoritative for the session.
	_ = s.save(context.Background(), KeyChatMessages, s.messages)
	s.broadcastLocked(Event{Type: EventChat, Message: reply})
}

// CancelPendingReplies stops every scheduled auto-reply. Hooked to logout so
// a reply never arrives for a session that ended.
func (s *StoreService) CancelPendingReplies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.replies {
		timer.Stop()
		delete(s.replies, id)
	}
}

// Close cancels pending replies and closes all subscriber channels.
func (s *StoreService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, timer := range s.replies {
		timer.Stop()
		delete(s.replies, id)
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel receiving store events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *StoreService) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *StoreService) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow subscriber never blocks a mutation.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *StoreService) appendActivityLocked(userID string, typ domain.ActivityType, description string) domain.Activity {
	activity := domain.Activity{
		ID:          s.newID(),
		UserID:      userID,
		Type:        typ,
		Description: description,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}
	s.activities = append(s.activities, activity)
	return activity
}

// QuizScores returns a copy of the full quiz score collection in insertion order.
func (s *StoreService) QuizScores() []domain.QuizScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizScore(nil), s.quizScores...)
}

// Challenges returns a copy of the challenge collection.
func (s *StoreService) Challenges() []domain.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Challenge, len(s.challenges))
	for i, c := range s.challenges {
		c.SolvedBy = append([]string(nil), c.SolvedBy...)
		out[i] = c
	}
	return out
}

// Resources returns a copy of the DSA resource collection.
func (s *StoreService) Resources() []domain.DSAResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DSAResource(nil), s.resources...)
}

// FriendRequests returns a copy of the friend request collection.
func (s *StoreService) FriendRequests() []domain.FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FriendRequest(nil), s.requests...)
}

// Friends returns a copy of the current friend list.
func (s *StoreService) Friends() []domain.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Friend(nil), s.friends...)
}

// ChatMessages returns a copy of the full chat log.
func (s *StoreService) ChatMessages() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

// Activities returns a copy of the activity feed.
func (s *StoreService) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Activity(nil), s.activities...)
}

// UserActivities filters the feed by actor, preserving insertion order.
func (s *StoreService) UserActivities(userID string) []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// UserQuizScores filters quiz submissions by owner, preserving insertion order.
func (s *StoreService) UserQuizScores(userID string) []domain.QuizScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizScore, 0)
	for _, score := range s.quizScores {
		if score.UserID == userID {
			out = append(out, score)
		}
	}
	return out
}

// UserSolvedChallenges returns the challenges whose solved set contains userID.
func (s *StoreService) UserSolvedChallenges(userID string) []domain.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Challenge, 0)
	for _, c := range s.challenges {
		if c.Solved(userID) {
			c.SolvedBy = append([]string(nil), c.SolvedBy...)
			out = append(out, c)
		}
	}
	return out
}

// UserResources returns the DSA resources uploaded by userID.
func (s *StoreService) UserResources(userID string) []domain.DSAResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DSAResource, 0)
	for _, r := range s.resources {
		if r.UploadedBy == userID {
			out = append(out, r)
		}
	}
	return out
}

// Conversation returns both directions of the chat between the current
// identity and peerID, in insertion order.
func (s *StoreService) Conversation(peerID string) ([]domain.ChatMessage, error) {
	user, ok := s.identity.Current()
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, 0)
	for _, m := range s.messages {
		if (m.FromUserID == user.ID && m.ToUserID == peerID) ||
			(m.FromUserID == peerID && m.ToUserID == user.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}
