package driveclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "folder-1", "audio/webm",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestUpload_CreatesAndShares(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/permissions") {
			assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))
			w.Write([]byte(`{"id":"perm-1"}`))
			return
		}
		w.Write([]byte(`{"id":"file-1","webViewLink":"https://drive.example/file-1/view"}`))
	})

	link, err := client.Upload(context.Background(), "ticket.webm", []byte("video-bytes"), map[string]string{
		"userName": "Ann Lee",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://drive.example/file-1/view", link)
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], "/files")
	assert.Contains(t, calls[1], "/files/file-1/permissions")
}

func TestUpload_CreateFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad"}}`))
	})

	_, err := client.Upload(context.Background(), "ticket.webm", []byte("x"), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create file")
}
