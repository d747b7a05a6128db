package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session records which meeting a connection session belongs to, so a
// transport-level disconnect can be routed to the right leave call even
// when the handling instance is not the one that accepted the join.
type Session struct {
	SessionID string `json:"sessionId"`
	MeetingID string `json:"meetingId"`
	UID       string `json:"uid"`
	Name      string `json:"name"`
}

type SessionCache interface {
	Set(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *sessionCache) Set(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "session:"+session.SessionID, data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := c.client.Get(ctx, "session:"+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "session:"+sessionID).Err()
}
