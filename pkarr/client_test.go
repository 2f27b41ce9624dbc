// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package pkarr

import (
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tv42/zbase32"

	"github.com/aumos-ai/did-pkarr/packet"
)

func testKey(seed byte) ed25519.PrivateKey {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	return ed25519.NewKeyFromSeed(s)
}

func signedAt(t *testing.T, key ed25519.PrivateKey, ts packet.Timestamp) *packet.SignedPacket {
	t.Helper()
	p, err := packet.NewBuilder().Timestamp(ts).TXT("_did_pkarr", []string{"vr="}, 0).Sign(key)
	require.NoError(t, err)
	return p
}

func pubOf(key ed25519.PrivateKey) ed25519.PublicKey { return key.Public().(ed25519.PublicKey) }

func TestMemoryClient(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	key := testKey(1)

	_, err := c.Resolve(ctx, pubOf(key))
	assert.ErrorIs(t, err, ErrNotFound)

	older := signedAt(t, key, 10)
	newer := signedAt(t, key, 20)

	require.NoError(t, c.Publish(ctx, older))
	require.NoError(t, c.Publish(ctx, newer))
	assert.ErrorIs(t, c.Publish(ctx, older), ErrNotMostRecent)
	require.NoError(t, c.Publish(ctx, newer))

	got, err := c.ResolveMostRecent(ctx, pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, packet.Timestamp(20), got.Timestamp())
	assert.Equal(t, 1, c.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Resolve(cancelled, pubOf(key))
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeRelay is an in-memory pkarr relay.
type fakeRelay struct {
	mu       sync.Mutex
	payloads map[string][]byte
	failures atomic.Int32 // remaining 503 responses
	requests atomic.Int32
}

func newFakeRelay(t *testing.T) (*fakeRelay, *httptest.Server) {
	r := &fakeRelay{payloads: make(map[string][]byte)}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return r, srv
}

func (r *fakeRelay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.requests.Add(1)
	if r.failures.Load() > 0 {
		r.failures.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	r.mu.Lock()
	defer r.mu.Unlock()

	switch req.Method {
	case http.MethodGet:
		body, ok := r.payloads[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		pub, err := zbase32.DecodeString(key)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		incoming, err := packet.FromRelayPayload(pub, body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if old, ok := r.payloads[key]; ok {
			existing, err := packet.FromRelayPayload(pub, old)
			if err == nil && existing.MoreRecentThan(incoming) {
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		r.payloads[key] = body
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *fakeRelay) store(p *packet.SignedPacket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads[p.Origin()] = p.RelayPayload()
}

func (r *fakeRelay) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newTestRelayClient(t *testing.T, relays ...string) *RelayClient {
	t.Helper()
	c, err := NewRelayClient(
		WithRelays(relays...),
		WithMaxRetries(2),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return c
}

func TestRelayPublishAndResolve(t *testing.T) {
	ctx := context.Background()
	relayA, srvA := newFakeRelay(t)
	relayB, srvB := newFakeRelay(t)
	c := newTestRelayClient(t, srvA.URL, srvB.URL+"/")

	key := testKey(2)
	p := signedAt(t, key, 100)
	require.NoError(t, c.Publish(ctx, p))
	assert.Equal(t, 1, relayA.len())
	assert.Equal(t, 1, relayB.len())

	got, err := c.Resolve(ctx, pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, p.Bytes(), got.Bytes())

	assert.ErrorIs(t, c.Publish(ctx, signedAt(t, key, 50)), ErrNotMostRecent)
}

func TestRelayResolveMostRecent(t *testing.T) {
	ctx := context.Background()
	relayA, srvA := newFakeRelay(t)
	relayB, srvB := newFakeRelay(t)
	c := newTestRelayClient(t, srvA.URL, srvB.URL)

	key := testKey(3)
	relayA.store(signedAt(t, key, 1))
	relayB.store(signedAt(t, key, 2))

	got, err := c.ResolveMostRecent(ctx, pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, packet.Timestamp(2), got.Timestamp())
}

func TestRelayNotFound(t *testing.T) {
	_, srvA := newFakeRelay(t)
	_, srvB := newFakeRelay(t)
	c := newTestRelayClient(t, srvA.URL, srvB.URL)

	_, err := c.Resolve(context.Background(), pubOf(testKey(4)))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.ResolveMostRecent(context.Background(), pubOf(testKey(4)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelayRetriesServerErrors(t *testing.T) {
	relay, srv := newFakeRelay(t)
	c := newTestRelayClient(t, srv.URL)

	key := testKey(5)
	relay.store(signedAt(t, key, 9))
	relay.failures.Store(2)

	got, err := c.Resolve(context.Background(), pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, packet.Timestamp(9), got.Timestamp())
	assert.Equal(t, int32(3), relay.requests.Load())
}

func TestRelayGivesUpAfterMaxRetries(t *testing.T) {
	relay, srv := newFakeRelay(t)
	c := newTestRelayClient(t, srv.URL)
	relay.failures.Store(100)

	_, err := c.Resolve(context.Background(), pubOf(testKey(6)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(3), relay.requests.Load())

	err = c.Publish(context.Background(), signedAt(t, testKey(6), 1))
	assert.Error(t, err)
}

func TestRelayRejectsForgedPayload(t *testing.T) {
	relay, srv := newFakeRelay(t)
	c := newTestRelayClient(t, srv.URL)

	victim := testKey(7)
	forged := signedAt(t, testKey(8), 1)
	relay.mu.Lock()
	relay.payloads[zbase32.EncodeToString(pubOf(victim))] = forged.RelayPayload()
	relay.mu.Unlock()

	_, err := c.Resolve(context.Background(), pubOf(victim))
	assert.ErrorIs(t, err, packet.ErrInvalidSignature)
	assert.Equal(t, int32(1), relay.requests.Load())
}

func TestRelayPublishSucceedsIfAnyRelayAccepts(t *testing.T) {
	_, good := newFakeRelay(t)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(bad.Close)

	c := newTestRelayClient(t, bad.URL, good.URL)
	assert.NoError(t, c.Publish(context.Background(), signedAt(t, testKey(9), 1)))
}

func TestNewRelayClientValidation(t *testing.T) {
	_, err := NewRelayClient(WithRelays())
	assert.Error(t, err)
	_, err = NewRelayClient(WithRelays("ftp://relay.example"))
	assert.Error(t, err)

	c, err := NewRelayClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultRelays, c.Relays())
}

func TestLiveRelays(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION") != "1" {
		t.Skip("set RUN_INTEGRATION=1 to run against public relays")
	}
	c, err := NewRelayClient()
	require.NoError(t, err)

	key := testKey(byte(os.Getpid()))
	p := signedAt(t, key, packet.Now())
	require.NoError(t, c.Publish(context.Background(), p))

	got, err := c.ResolveMostRecent(context.Background(), pubOf(key))
	require.NoError(t, err)
	assert.Equal(t, p.Timestamp(), got.Timestamp())
}
