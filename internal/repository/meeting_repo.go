package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"meetsync/internal/model"
)

// MeetingRepo is the durable mirror of meeting state. The registry is the
// sole writer; documents live in the "meetings" collection keyed by meetingId.
type MeetingRepo interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, meetingID string) (*model.Meeting, error)
	Exists(ctx context.Context, meetingID string) (bool, error)
	Update(ctx context.Context, meeting *model.Meeting) error
	SetSummary(ctx context.Context, meetingID, summary string) error
}

type meetingRepo struct {
	collection *mongo.Collection
}

func NewMeetingRepo(db *mongo.Database) MeetingRepo {
	return &meetingRepo{
		collection: db.Collection("meetings"),
	}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	_, err := r.collection.InsertOne(ctx, meeting)
	return err
}

func (r *meetingRepo) GetByID(ctx context.Context, meetingID string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.collection.FindOne(ctx, bson.M{"meetingId": meetingID}).Decode(&meeting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Meeting not found
		}
		return nil, err
	}

	return &meeting, nil
}

func (r *meetingRepo) Exists(ctx context.Context, meetingID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"meetingId": meetingID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update replaces the full document; the registry always writes whole
// participant/message lists.
func (r *meetingRepo) Update(ctx context.Context, meeting *model.Meeting) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"meetingId": meeting.MeetingID}, meeting)
	return err
}

// SetSummary is a targeted write so the detached summarizer cannot clobber
// fields written after the meeting ended.
func (r *meetingRepo) SetSummary(ctx context.Context, meetingID, summary string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$set": bson.M{"summary": summary}},
	)
	return err
}
