package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhozTaskURL(t *testing.T) {
	got, err := WhozTaskURL("https://api.example.com/", "https://app.whoz.com/shared/task/64f1c2")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/shared/task/64f1c2", got)

	got, err = WhozTaskURL("", "https://app.whoz.com/shared/task/64f1c2")
	require.NoError(t, err)
	assert.Equal(t, "https://app.whoz.com/api/shared/task/64f1c2", got)

	_, err = WhozTaskURL("", "https://app.whoz.com/")
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "no task id in URL", fetchErr.Message)
}

func TestFetchWhozTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shared/task/64f1c2", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":        " Senior Go Developer ",
			"description": "<p>Build services.</p><p>Own the data layer.</p>",
			"skills": []any{
				"Go",
				map[string]any{"name": "PostgreSQL"},
				map[string]any{"skill": map[string]any{"name": "Kubernetes"}},
				map[string]any{"label": "Kafka"},
				"  ",
				42,
			},
		})
	}))
	defer server.Close()

	listing, err := FetchWhozTask(context.Background(), server.URL, "https://app.whoz.com/shared/task/64f1c2", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://app.whoz.com/shared/task/64f1c2", listing.URL)
	assert.Equal(t, "Senior Go Developer", listing.Name)
	assert.Equal(t, "Build services.\nOwn the data layer.", listing.Description)
	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes", "Kafka"}, listing.RequiredSkills)
}

func TestFetchWhozTask_InvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer server.Close()

	_, err := FetchWhozTask(context.Background(), server.URL, "https://app.whoz.com/shared/task/1", nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "invalid task payload", fetchErr.Message)
}

func TestFetchWhozTask_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FetchWhozTask(context.Background(), server.URL, "https://app.whoz.com/shared/task/1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP status 404")
}
