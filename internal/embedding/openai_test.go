package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, baseURL string, batchSize int) *OpenAIEmbedder {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	e, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:   baseURL,
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "text-embedding-3-small",
		BatchSize: batchSize,
	})
	require.NoError(t, err)
	return e
}

func openaiReply(w http.ResponseWriter, inputs []string) {
	var out openaiEmbedResponse
	for i := range inputs {
		out.Data = append(out.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{float32(i), 1}, Index: i})
	}
	json.NewEncoder(w).Encode(out)
}

func TestOpenAIMissingKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_MISSING", "")
	_, err := NewOpenAIEmbedder(OpenAIConfig{APIKeyEnv: "TEST_OPENAI_MISSING"})
	assert.Error(t, err)
}

func TestOpenAIEmbedBatchSplitsAndAuths(t *testing.T) {
	var calls int
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		auths = append(auths, r.Header.Get("Authorization"))
		require.Equal(t, "/embeddings", r.URL.Path)
		var req openaiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		openaiReply(w, req.Input)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 2)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	assert.Len(t, vecs, 5)
	assert.Equal(t, 3, calls)
	for _, a := range auths {
		assert.Equal(t, "Bearer sk-test", a)
	}
	assert.Equal(t, 2, e.Dimension())
}

func TestOpenAIRetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream overloaded", http.StatusBadGateway)
			return
		}
		var req openaiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		openaiReply(w, req.Input)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 10)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, calls)
}

func TestOpenAIDoesNotRetryClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 10)
	_, err := e.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOpenAIHonorsRetryAfter(t *testing.T) {
	var calls int
	var first, second time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		second = time.Now()
		var req openaiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		openaiReply(w, req.Input)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 10)
	_, err := e.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.Sub(first), time.Second)
}

func TestOpenAIExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 10)
	e.maxRetries = 1
	_, err := e.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted retries")
}

func TestRetryDelayCapped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
}

func TestOpenAIRejectsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, 10)
	e.maxRetries = 0
	_, err := e.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
