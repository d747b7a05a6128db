package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToMeeting(meetingID string, event string, payload interface{})
	BroadcastToOthers(meetingID, excludeSessionID string, event string, payload interface{})
	SendToSession(meetingID, sessionID string, event string, payload interface{})
	DisconnectMeeting(meetingID string)
}
