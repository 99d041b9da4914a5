package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDecodesVector(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-model")
	vector, err := client.Embed(context.Background(), "haben")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, "haben", gotBody["prompt"])
}

func TestEmbedNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-model")
	_, err := client.Embed(context.Background(), "haben")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-200")
}

func TestEmbedEmptyVectorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-model")
	_, err := client.Embed(context.Background(), "haben")
	require.Error(t, err)
}
