package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollgate-data/gantryflow/internal/httputil"
)

func newTestClient(mock *httputil.MockHTTPClient) *Client {
	return NewClient("https://model.example/v1", "test-model", "test-key", 5*time.Second, mock)
}

func TestClientComplete(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"choices":[{"message":{"role":"assistant","content":"SELECT 1"}}]}`)

	client := newTestClient(mock)
	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", reply)

	req := mock.GetRequest(0)
	require.NotNil(t, req)
	assert.Equal(t, "https://model.example/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
}

func TestClientRetriesOnRateLimit(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(429, `{"error":{"message":"rate limited"}}`)
	mock.AddResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`)

	client := newTestClient(mock)
	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 2, mock.RequestCount())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(400, `{"error":{"message":"bad request"}}`)

	client := newTestClient(mock)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
	assert.Equal(t, 1, mock.RequestCount())
}

func TestClientRespectsContextDuringBackoff(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(500, `boom`)
	mock.AddResponse(500, `boom`)
	mock.AddResponse(500, `boom`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(mock)
	_, err := client.Complete(ctx, []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	client := NewClient("https://model.example/v1", "m", "", time.Second, nil)
	assert.False(t, client.Enabled())
	_, err := client.Complete(context.Background(), nil)
	require.Error(t, err)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"sql tag", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}
