package comfy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasreach/mediaforge/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(&Config{BaseURL: server.URL, RequestTimeout: 5 * time.Second}, logger)
}

func TestEnqueue_Success(t *testing.T) {
	var received enqueueRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/enqueue", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(enqueueResponse{CorrelationID: "corr-42"})
	})

	id, err := client.Enqueue(context.Background(), json.RawMessage(`{"3":{}}`), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "corr-42", id)
	assert.Equal(t, "job-1", received.ClientTag)
	assert.JSONEq(t, `{"3":{}}`, string(received.Template))
}

func TestEnqueue_Rejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "node 3 missing required input", http.StatusBadRequest)
	})

	_, err := client.Enqueue(context.Background(), json.RawMessage(`{}`), "job-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendRejected)
	assert.Contains(t, err.Error(), "node 3 missing required input")
}

func TestQueue_ContainsMatchesEitherIdentifier(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/queue", r.URL.Path)
		json.NewEncoder(w).Encode(QueueState{
			Running: []QueueEntry{{CorrelationID: "corr-1", ClientTag: "job-1"}},
			Pending: []QueueEntry{{CorrelationID: "corr-2", ClientTag: "job-2"}},
		})
	})

	state, err := client.Queue(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Contains("corr-1", ""))
	assert.True(t, state.Contains("corr-2", ""))
	assert.True(t, state.Contains("unknown", "job-2"), "client tag matches too")
	assert.False(t, state.Contains("corr-9", "job-9"))
}

func TestQueue_TransientError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Queue(context.Background())
	require.Error(t, err)

	var queryErr *domain.BackendQueryError
	assert.ErrorAs(t, err, &queryErr)
}

func TestHistory_Found(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/history/corr-1", r.URL.Path)
		json.NewEncoder(w).Encode(HistoryEntry{
			Status: HistoryStatus{Completed: true, StatusStr: "success"},
			Outputs: map[string][]OutputRef{
				"9": {{Filename: "out.png", Subfolder: "", Type: "output"}},
			},
		})
	})

	entry, found, err := client.History(context.Background(), "corr-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Status.Completed)
	assert.False(t, entry.Failed())
	assert.Len(t, entry.Outputs["9"], 1)
}

func TestHistory_AbsentVariants(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "404",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "empty object",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "null",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`null`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, tt.handler)

			_, found, err := client.History(context.Background(), "corr-1")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestHistory_ErrorVerdict(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(HistoryEntry{
			Status: HistoryStatus{Completed: false, StatusStr: "error"},
		})
	})

	entry, found, err := client.History(context.Background(), "corr-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Failed())
}

func TestView_DownloadsBytes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/view", r.URL.Path)
		assert.Equal(t, "out.png", r.URL.Query().Get("filename"))
		assert.Equal(t, "sub", r.URL.Query().Get("subfolder"))
		assert.Equal(t, "output", r.URL.Query().Get("type"))
		w.Write([]byte("png-bytes"))
	})

	data, err := client.View(context.Background(), OutputRef{Filename: "out.png", Subfolder: "sub", Type: "output"})
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}
