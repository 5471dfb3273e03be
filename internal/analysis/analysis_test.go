package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	call      *domain.Call
	getErr    error
	updated   bool
	sentiment *string
	topics    domain.JSONB
	score     *float64
	updateErr error
}

func (f *fakeStore) GetCallByID(ctx context.Context, id string) (*domain.Call, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.call, nil
}

func (f *fakeStore) UpdateCallAnalysis(ctx context.Context, callID string, sentiment *string, topics domain.JSONB, score *float64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = true
	f.sentiment = sentiment
	f.topics = topics
	f.score = score
	return nil
}

func newTestQueue(t *testing.T, store Store, handler http.HandlerFunc) (*Queue, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	q := New(store, nil, "test-key")
	q.http.SetBaseURL(srv.URL)
	return q, srv.Close
}

func TestProcessSkipsWhenAPIKeyMissing(t *testing.T) {
	store := &fakeStore{call: &domain.Call{ID: "c1", Transcript: "hello"}}
	q := New(store, nil, "")
	q.process(context.Background(), job{tenantID: "t1", callID: "c1"})
	assert.False(t, store.updated)
}

func TestProcessSkipsCallsWithoutTranscript(t *testing.T) {
	store := &fakeStore{call: &domain.Call{ID: "c1", Transcript: ""}}
	q, closeFn := newTestQueue(t, store, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach anthropic when transcript is empty")
	})
	defer closeFn()

	q.process(context.Background(), job{tenantID: "t1", callID: "c1"})
	assert.False(t, store.updated)
}

func TestProcessPersistsAnalysisResult(t *testing.T) {
	store := &fakeStore{call: &domain.Call{ID: "c1", Transcript: "customer asked about pricing"}}
	q, closeFn := newTestQueue(t, store, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		body, _ := json.Marshal(anthropicResponse{
			Content: []anthropicContentBlock{
				{Type: "text", Text: `{"sentiment":"positive","topics":["pricing"],"score":0.8}`},
			},
		})
		w.Header().Set("content-type", "application/json")
		w.Write(body)
	})
	defer closeFn()

	q.process(context.Background(), job{tenantID: "t1", callID: "c1"})

	require.True(t, store.updated)
	require.NotNil(t, store.sentiment)
	assert.Equal(t, "positive", *store.sentiment)
	require.NotNil(t, store.score)
	assert.Equal(t, 0.8, *store.score)
	assert.Equal(t, []string{"pricing"}, store.topics["topics"])
}

func TestProcessHandlesUpstreamError(t *testing.T) {
	store := &fakeStore{call: &domain.Call{ID: "c1", Transcript: "hi"}}
	q, closeFn := newTestQueue(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeFn()

	q.process(context.Background(), job{tenantID: "t1", callID: "c1"})
	assert.False(t, store.updated)
}

func TestEnqueueDoesNotBlockWhenQueueFull(t *testing.T) {
	store := &fakeStore{}
	q := &Queue{store: store, apiKey: "", jobs: make(chan job, 1)}
	q.Enqueue("t1", "c1")
	q.Enqueue("t1", "c2")
	assert.Len(t, q.jobs, 1)
}
