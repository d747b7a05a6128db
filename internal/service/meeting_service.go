package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"meetsync/internal/cache"
	"meetsync/internal/model"
	"meetsync/internal/repository"
	"meetsync/internal/validation"
)

// Summarizer turns a message history into a summary string. It never fails;
// on any error it returns a human-readable fallback instead.
type Summarizer interface {
	Summarize(ctx context.Context, messages []model.ChatMessage) string
}

// MeetingService owns all meeting lifecycle transitions. It is the sole
// writer of meeting state: every mutation runs under that meeting's lock,
// updates the in-memory cache entry and mirrors the document to Mongo.
type MeetingService struct {
	repo        repository.MeetingRepo
	cache       cache.MeetingCache
	summarizer  Summarizer
	broadcaster Broadcaster

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	summaryTimeout time.Duration
}

// NewMeetingService creates a new meeting service
func NewMeetingService(repo repository.MeetingRepo, meetingCache cache.MeetingCache, summarizer Summarizer) *MeetingService {
	return &MeetingService{
		repo:           repo,
		cache:          meetingCache,
		summarizer:     summarizer,
		locks:          make(map[string]*sync.Mutex),
		summaryTimeout: 15 * time.Second,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *MeetingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateMeeting generates a unique 6-digit meeting and persists it.
func (s *MeetingService) CreateMeeting(ctx context.Context, createdBy, creatorName string) (*model.Meeting, error) {
	if !validation.IsValidUserData(createdBy, creatorName) {
		return nil, ErrInvalidInput
	}

	meetingID, err := s.generateMeetingID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meeting id: %w", err)
	}

	meeting := &model.Meeting{
		MeetingID:       meetingID,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now(),
		Participants:    []model.Participant{},
		Messages:        []model.ChatMessage{},
		IsActive:        true,
		MaxParticipants: model.MaxParticipants,
	}

	if err := s.repo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	s.cache.Set(meetingID, meeting)

	return meeting, nil
}

// GetMeeting retrieves a meeting, cache first, rehydrating from Mongo on a
// miss. Malformed ids resolve to absent without touching storage.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string) (*model.Meeting, error) {
	if !validation.IsValidMeetingID(meetingID) {
		return nil, nil
	}
	if meeting := s.cache.Get(meetingID); meeting != nil {
		return meeting, nil
	}

	meeting, err := s.repo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	// Only active meetings rehydrate; caching an ended one would undo
	// evict-on-deactivation and let late messages slip past NotFound.
	if meeting != nil && meeting.IsActive {
		s.cache.Set(meetingID, meeting)
	}
	return meeting, nil
}

// Join adds a participant, or updates the session id of one that is already
// present (reconnect semantics).
func (s *MeetingService) Join(ctx context.Context, meetingID, uid, name, sessionID string) (*model.Meeting, error) {
	if !validation.IsValidMeetingID(meetingID) || !validation.IsValidUserData(uid, name) || strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}

	unlock := s.lockMeeting(meetingID)
	defer unlock()

	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrNotFound
	}
	if !meeting.IsActive {
		return nil, ErrInactive
	}

	_, idx, found := lo.FindIndexOf(meeting.Participants, func(p model.Participant) bool {
		return p.UID == uid
	})
	if found {
		meeting.Participants[idx].SessionID = sessionID
	} else {
		if len(meeting.Participants) >= meeting.MaxParticipants {
			return nil, ErrMeetingFull
		}
		meeting.Participants = append(meeting.Participants, model.Participant{
			UID:       uid,
			Name:      name,
			SessionID: sessionID,
			JoinedAt:  time.Now(),
		})
	}

	if err := s.repo.Update(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}
	s.cache.Set(meetingID, meeting)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToOthers(meetingID, sessionID, "user-joined", map[string]interface{}{
			"uid":              uid,
			"name":             name,
			"participantCount": len(meeting.Participants),
		})
	}

	return meeting, nil
}

// Leave removes the participant holding sessionID. Absent meetings and
// unknown sessions are a no-op, not an error. When the last participant
// leaves, the meeting deactivates and its transcript is summarized.
func (s *MeetingService) Leave(ctx context.Context, meetingID, sessionID string) {
	if !validation.IsValidMeetingID(meetingID) || sessionID == "" {
		return
	}

	unlock := s.lockMeeting(meetingID)
	defer unlock()

	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		log.Printf("leave: failed to load meeting %s: %v", meetingID, err)
		return
	}
	if meeting == nil || !meeting.IsActive {
		return
	}

	left, _, found := lo.FindIndexOf(meeting.Participants, func(p model.Participant) bool {
		return p.SessionID == sessionID
	})
	if found {
		meeting.Participants = lo.Reject(meeting.Participants, func(p model.Participant, _ int) bool {
			return p.SessionID == sessionID
		})
	}

	// Deactivation only when this removal emptied the list; a leave for an
	// unknown session must not kill a meeting nobody has joined yet.
	deactivated := false
	if found && len(meeting.Participants) == 0 {
		meeting.IsActive = false
		deactivated = true
	}

	if err := s.repo.Update(ctx, meeting); err != nil {
		log.Printf("leave: failed to save meeting %s: %v", meetingID, err)
	}

	if deactivated {
		s.cache.Delete(meetingID)
		s.scheduleSummary(meetingID, meeting.Messages)
	} else {
		s.cache.Set(meetingID, meeting)
	}

	if found && s.broadcaster != nil {
		s.broadcaster.BroadcastToMeeting(meetingID, "user-left", map[string]interface{}{
			"name":             left.Name,
			"participantCount": len(meeting.Participants),
		})
	}
}

// End deactivates a meeting on behalf of its creator.
func (s *MeetingService) End(ctx context.Context, meetingID, requesterID string) error {
	if strings.TrimSpace(requesterID) == "" {
		return ErrInvalidInput
	}

	unlock := s.lockMeeting(meetingID)
	defer unlock()

	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting == nil {
		return ErrNotFound
	}
	if meeting.CreatedBy != requesterID {
		return ErrForbidden
	}

	meeting.IsActive = false
	if err := s.repo.Update(ctx, meeting); err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}
	s.cache.Delete(meetingID)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToMeeting(meetingID, "meeting-ended", map[string]interface{}{})
		s.broadcaster.DisconnectMeeting(meetingID)
	}

	s.scheduleSummary(meetingID, meeting.Messages)
	return nil
}

// AddMessage appends a chat message and fans it out to the room. Lookup is
// cache-only: once a meeting has deactivated and been evicted, late messages
// get ErrNotFound even though the document is still in Mongo.
func (s *MeetingService) AddMessage(ctx context.Context, meetingID, uid, name, text string) (*model.ChatMessage, error) {
	if !validation.IsValidMeetingID(meetingID) || !validation.IsValidUserData(uid, name) || !validation.IsValidMessageText(text) {
		return nil, ErrInvalidInput
	}

	unlock := s.lockMeeting(meetingID)
	defer unlock()

	meeting := s.cache.Get(meetingID)
	if meeting == nil {
		return nil, ErrNotFound
	}
	if !meeting.IsActive {
		return nil, ErrInactive
	}

	now := time.Now()
	msg := model.ChatMessage{
		ID:        fmt.Sprintf("%d-%s", now.UnixMilli(), uid),
		UserID:    uid,
		UserName:  name,
		Text:      text,
		Timestamp: now,
	}
	meeting.Messages = append(meeting.Messages, msg)

	if err := s.repo.Update(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}
	s.cache.Set(meetingID, meeting)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToMeeting(meetingID, "new-message", msg)
	}

	return &msg, nil
}

// ListParticipants returns the current participants, empty if the meeting
// is absent.
func (s *MeetingService) ListParticipants(ctx context.Context, meetingID string) ([]model.Participant, error) {
	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return []model.Participant{}, nil
	}
	participants := make([]model.Participant, len(meeting.Participants))
	copy(participants, meeting.Participants)
	return participants, nil
}

// generateMeetingID creates a unique 6-digit numeric id, retrying on
// collision against the durable store.
func (s *MeetingService) generateMeetingID(ctx context.Context) (string, error) {
	const idLen = 6

	for attempts := 0; attempts < 50; attempts++ {
		b := make([]byte, idLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		id := make([]byte, idLen)
		for i := range id {
			id[i] = '0' + b[i]%10
		}
		idStr := string(id)

		exists, err := s.repo.Exists(ctx, idStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return idStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique meeting id")
}

// scheduleSummary fires the summarizer detached from the triggering request.
// The result is written back to the stored document best-effort; the
// triggering operation never waits on it.
func (s *MeetingService) scheduleSummary(meetingID string, messages []model.ChatMessage) {
	if s.summarizer == nil || len(messages) == 0 {
		return
	}

	transcript := make([]model.ChatMessage, len(messages))
	copy(transcript, messages)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.summaryTimeout)
		defer cancel()

		summary := s.summarizer.Summarize(ctx, transcript)
		if err := s.repo.SetSummary(ctx, meetingID, summary); err != nil {
			log.Printf("failed to persist summary for meeting %s: %v", meetingID, err)
		}
	}()
}

// lockMeeting serializes mutations per meeting id. Entries are kept for the
// life of the process: dropping one while a goroutine is still blocked on it
// would let a waiter and a fresh acquirer run side by side.
func (s *MeetingService) lockMeeting(meetingID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[meetingID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[meetingID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
