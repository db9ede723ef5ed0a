package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendPostsQueryAndTopK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is tf-idf", body["query"])
		assert.Equal(t, float64(3), body["top_k"])

		w.Write([]byte(`{"query":"what is tf-idf","best_score":0.42,"results":[{"source":"a","chunk_id":"1","text":"hello","score":0.42}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.Send(context.Background(), "what is tf-idf", 3)

	require.NoError(t, err)
	assert.Equal(t, "what is tf-idf", resp.Query)
	assert.InDelta(t, 0.42, resp.BestScore, 1e-9)
	assert.Equal(t, []Result{{SourceID: "a", ChunkID: "1", Text: "hello", Score: 0.42}}, resp.Results)
}

func TestClient_TrimsTrailingSlashes(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"///", nil)
	_, err := client.Send(context.Background(), "q", 3)

	require.NoError(t, err)
	assert.Equal(t, "/chat", path)
	assert.Equal(t, server.URL, client.BaseURL())
}

func TestClient_NormalizesMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"best_score":"high","results":"none"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, nil).Send(context.Background(), "original", 3)

	require.NoError(t, err)
	assert.Equal(t, "original", resp.Query)
	assert.Zero(t, resp.BestScore)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestClient_NormalizesResultElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":null,"results":[{"text":"only text","score":0.9},{"source":"b.pdf","chunk_id":17,"text":"x","score":"bad"},"junk",42]}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, nil).Send(context.Background(), "q", 3)

	require.NoError(t, err)
	assert.Equal(t, "q", resp.Query)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, Result{Text: "only text", Score: 0.9}, resp.Results[0])
	assert.Equal(t, Result{SourceID: "b.pdf", ChunkID: "17", Text: "x"}, resp.Results[1])
}

func TestClient_NumericChunkIDsAvoidExponent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"chunk_id":1e3},{"chunk_id":17.0},{"chunk_id":2.5},{"chunk_id":9007199254740993},{"chunk_id":"1e3"}]}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, nil).Send(context.Background(), "q", 3)

	require.NoError(t, err)
	var ids []string
	for _, r := range resp.Results {
		ids = append(ids, r.ChunkID)
	}
	assert.Equal(t, []string{"1000", "17", "2.5", "9007199254740993", "1e3"}, ids)
}

func TestClient_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server error"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil).Send(context.Background(), "q", 3)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 500, httpErr.StatusCode)
	assert.Equal(t, "server error", httpErr.Body)
	assert.Equal(t, "Backend error 500: server error", err.Error())
}

func TestClient_ConnectionRefusedIsUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewClient("http://"+addr, nil).Send(context.Background(), "q", 3)

	var unreachable *UnreachableError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, "http://"+addr+"/chat", unreachable.URL)
}

func TestClient_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json": "<html>oops</html>",
		"array":    `[1,2,3]`,
		"null":     `null`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, nil).Send(context.Background(), "q", 3)

			var malformed *MalformedResponseError
			assert.True(t, errors.As(err, &malformed), "got %v", err)
		})
	}
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok","chunks":128}`))
	}))
	defer server.Close()

	h, err := NewClient(server.URL, nil).Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Health{Status: "ok", Chunks: 128}, h)
}
