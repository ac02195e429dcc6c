package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ExtractsTopLevelRequestID(t *testing.T) {
	var gotAuth, gotContentType string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"request_id":"req-1"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	result, err := client.Submit(context.Background(), server.URL, "secret-key", map[string]any{"prompt": "a cat"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, "Key secret-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "a cat", gotPayload["prompt"])
}

func TestSubmit_ExtractsNestedRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"request":{"id":"req-nested"}}`))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	result, err := client.Submit(context.Background(), server.URL, "k", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, result.StatusCode)
	assert.Equal(t, "req-nested", result.RequestID)
}

func TestSubmit_NonSuccessKeepsBodyWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	result, err := client.Submit(context.Background(), server.URL, "k", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	assert.Empty(t, result.RequestID)
	assert.Contains(t, string(result.Body), "bad key")
}

func TestStatus_ParsesProgressAndLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Key k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"IN_PROGRESS","progress":0.42,"logs":[{"level":"INFO","message":"working"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	status, err := client.Status(context.Background(), server.URL, "k")

	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", status.Status)
	require.NotNil(t, status.Progress)
	assert.InDelta(t, 0.42, *status.Progress, 1e-9)
	require.Len(t, status.Logs, 1)
	assert.Equal(t, "INFO", status.Logs[0].Level)
}

func TestStatus_ErrorBodyNotParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	status, err := client.Status(context.Background(), server.URL, "k")

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status.StatusCode)
	assert.Empty(t, status.Status)
	assert.Equal(t, "not json", string(status.Body))
}

func TestStatus_MalformedSuccessBodyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{{{"))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	_, err := client.Status(context.Background(), server.URL, "k")

	assert.Error(t, err)
}

func TestResult_ParsesImageAndVideoShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, r *ResultPayload)
	}{
		{
			name: "images array",
			body: `{"images":[{"url":"http://img/1"},{"url":"http://img/2"}]}`,
			want: func(t *testing.T, r *ResultPayload) {
				require.Len(t, r.Images, 2)
				assert.Equal(t, "http://img/1", r.Images[0].URL)
			},
		},
		{
			name: "single image",
			body: `{"image":{"url":"http://img/solo"}}`,
			want: func(t *testing.T, r *ResultPayload) {
				require.NotNil(t, r.Image)
				assert.Equal(t, "http://img/solo", r.Image.URL)
			},
		},
		{
			name: "video",
			body: `{"video":{"url":"http://vid/1"}}`,
			want: func(t *testing.T, r *ResultPayload) {
				require.NotNil(t, r.Video)
				assert.Equal(t, "http://vid/1", r.Video.URL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.Client())
			result, err := client.Result(context.Background(), server.URL, "k")

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, result.StatusCode)
			tt.want(t, result)
		})
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.Client())
	_, err := client.Status(ctx, server.URL, "k")

	assert.Error(t, err)
}
