package model

import "time"

// MaxParticipants is the fixed participant cap per meeting.
const MaxParticipants = 10

// Participant is a user's live membership in a meeting, tied to one
// connection session. Uniqueness inside a meeting is keyed by UID;
// a rejoin swaps the SessionID in place.
type Participant struct {
	UID       string    `json:"uid" bson:"uid"`
	Name      string    `json:"name" bson:"name"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	JoinedAt  time.Time `json:"joinedAt" bson:"joinedAt"`
}

// ChatMessage is immutable once appended; ordering is append order.
type ChatMessage struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"userId"`
	UserName  string    `json:"userName" bson:"userName"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Meeting is a chat room with a bounded participant count and an ordered
// message history. One document per meeting in the "meetings" collection,
// keyed by MeetingID.
type Meeting struct {
	MeetingID       string        `json:"meetingId" bson:"meetingId"`
	CreatedBy       string        `json:"createdBy" bson:"createdBy"`
	CreatedAt       time.Time     `json:"createdAt" bson:"createdAt"`
	Participants    []Participant `json:"participants" bson:"participants"`
	Messages        []ChatMessage `json:"messages" bson:"messages"`
	Summary         string        `json:"summary,omitempty" bson:"summary,omitempty"`
	IsActive        bool          `json:"isActive" bson:"isActive"`
	MaxParticipants int           `json:"maxParticipants" bson:"maxParticipants"`
}

// Clone returns a copy whose participant and message slices are not shared
// with the receiver.
func (m *Meeting) Clone() *Meeting {
	cp := *m
	cp.Participants = append([]Participant(nil), m.Participants...)
	cp.Messages = append([]ChatMessage(nil), m.Messages...)
	return &cp
}
