package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPrintsDecodedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "abc", r.Header.Get("X-Token"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{srv.URL, "-X", "POST", "-H", "X-Token=abc", "-q", "page=2", "-d", "hello"})
	require.NoError(t, cmd.Execute())

	var got result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, uint64(1), got.Attempt)
	assert.True(t, got.Finished)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, map[string]any{"ok": true}, got.Data)
}

func TestFetchRefetchCountsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{srv.URL, "--refetch", "2", "--response-type", "text"})
	require.NoError(t, cmd.Execute())

	var got result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, uint64(3), got.Attempt)
	assert.Equal(t, "pong", got.Data)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchDebouncedRefetchesCollapse(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{srv.URL, "--debounce", "30ms", "--refetch", "5"})
	require.NoError(t, cmd.Execute())

	var got result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, uint64(2), got.Attempt)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchReportsStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{srv.URL})
	require.Error(t, cmd.Execute())

	var got result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Data)
}

func TestParsePairsRejectsMalformed(t *testing.T) {
	_, err := parsePairs("header", []string{"novalue"})
	assert.Error(t, err)

	got, err := parsePairs("query", []string{" a = 1 ", "b="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": ""}, got)
}
