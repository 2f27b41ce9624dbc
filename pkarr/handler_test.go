// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package pkarr

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerServer(t *testing.T) (*MemoryClient, *httptest.Server) {
	t.Helper()
	backend := NewMemoryClient()
	srv := httptest.NewServer(NewHandler(backend, nil))
	t.Cleanup(srv.Close)
	return backend, srv
}

func TestHandlerServesRelayClient(t *testing.T) {
	ctx := context.Background()
	backend, srv := newHandlerServer(t)
	c := newTestRelayClient(t, srv.URL)

	key := testKey(20)
	_, err := c.Resolve(ctx, pubOf(key))
	assert.ErrorIs(t, err, ErrNotFound)

	p := signedAt(t, key, 42)
	require.NoError(t, c.Publish(ctx, p))
	assert.Equal(t, 1, backend.Len())

	got, err := c.Resolve(ctx, pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, p.Bytes(), got.Bytes())

	assert.ErrorIs(t, c.Publish(ctx, signedAt(t, key, 41)), ErrNotMostRecent)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	_, srv := newHandlerServer(t)
	key := testKey(21)
	origin := signedAt(t, key, 1).Origin()

	resp, err := http.Get(srv.URL + "/not-a-key")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	put := func(body []byte) int {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/"+origin, bytes.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, put([]byte("short")))

	// Valid payload under another key fails signature verification.
	other := signedAt(t, testKey(22), 1)
	assert.Equal(t, http.StatusBadRequest, put(other.RelayPayload()))

	assert.Equal(t, http.StatusNoContent, put(signedAt(t, key, 5).RelayPayload()))
	assert.Equal(t, http.StatusConflict, put(signedAt(t, key, 4).RelayPayload()))

	resp, err = http.Post(srv.URL+"/"+origin, "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
