package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"meetsync/internal/cache"
	"meetsync/internal/model"
	"meetsync/internal/service"
)

type memMeetingRepo struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
}

func newMemMeetingRepo() *memMeetingRepo {
	return &memMeetingRepo{meetings: make(map[string]*model.Meeting)}
}

func (r *memMeetingRepo) Create(_ context.Context, m *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.meetings[m.MeetingID] = &cp
	return nil
}

func (r *memMeetingRepo) GetByID(_ context.Context, id string) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *memMeetingRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.meetings[id]
	return ok, nil
}

func (r *memMeetingRepo) Update(_ context.Context, m *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.meetings[m.MeetingID] = &cp
	return nil
}

func (r *memMeetingRepo) SetSummary(_ context.Context, id, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[id]; ok {
		m.Summary = summary
	}
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	meetingCache := cache.NewMeetingCache(time.Minute)
	t.Cleanup(meetingCache.Stop)

	svc := service.NewMeetingService(newMemMeetingRepo(), meetingCache, nil)
	h := NewMeetingHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/meetings", h.Create).Methods("POST")
	r.HandleFunc("/meetings/end", h.End).Methods("POST")
	r.HandleFunc("/meetings/{id}", h.Get).Methods("GET")
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestCreateMeetingEndpoint(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, "POST", "/meetings", map[string]string{
		"createdBy":   "u1",
		"creatorName": "Alice",
	})
	req.Equal(http.StatusCreated, rec.Code)
	req.Equal(true, body["success"])
	req.Len(body["meetingId"], 6)

	meeting, ok := body["meeting"].(map[string]interface{})
	req.True(ok)
	req.Equal(true, meeting["isActive"])
	req.Equal("u1", meeting["createdBy"])
}

func TestCreateMeetingEndpoint_MissingFields(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, "POST", "/meetings", map[string]string{"createdBy": "u1"})
	req.Equal(http.StatusBadRequest, rec.Code)
	req.NotEmpty(body["error"])
}

func TestEndMeetingEndpoint(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, created := doJSON(t, router, "POST", "/meetings", map[string]string{
		"createdBy":   "u1",
		"creatorName": "Alice",
	})
	meetingID := created["meetingId"].(string)

	// Non-creator cannot end.
	rec, body := doJSON(t, router, "POST", "/meetings/end", map[string]string{
		"meetingId": meetingID,
		"uid":       "u2",
	})
	req.Equal(http.StatusBadRequest, rec.Code)
	req.NotEmpty(body["error"])

	rec, body = doJSON(t, router, "POST", "/meetings/end", map[string]string{
		"meetingId": meetingID,
		"uid":       "u1",
	})
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(true, body["success"])
}

func TestEndMeetingEndpoint_UnknownMeeting(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, "POST", "/meetings/end", map[string]string{
		"meetingId": "999999",
		"uid":       "u1",
	})
	req.Equal(http.StatusBadRequest, rec.Code)
	req.NotEmpty(body["error"])
}

func TestGetMeetingEndpoint(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, created := doJSON(t, router, "POST", "/meetings", map[string]string{
		"createdBy":   "u1",
		"creatorName": "Alice",
	})
	meetingID := created["meetingId"].(string)

	rec, body := doJSON(t, router, "GET", "/meetings/"+meetingID, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(true, body["success"])
	req.Equal(float64(0), body["participantCount"])
}

func TestGetMeetingEndpoint_MalformedID(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, "GET", "/meetings/abc123x", nil)
	req.Equal(http.StatusBadRequest, rec.Code)
	req.NotEmpty(body["error"])
}

func TestGetMeetingEndpoint_AbsentMeeting(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, "GET", "/meetings/424242", nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(float64(0), body["participantCount"])
}
