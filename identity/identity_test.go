// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package identity

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/packet"
	"github.com/aumos-ai/did-pkarr/pkarr"
	"github.com/aumos-ai/did-pkarr/resolver"
	"github.com/aumos-ai/did-pkarr/types"
)

const testKeyDID = "did:key:z6MktwupdmLXVVqTzCw4i46r4uGyosGXRnR3XjN4Zq7oMMsw"

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// flakyClient fails publishes while down is set.
type flakyClient struct {
	*pkarr.MemoryClient
	down atomic.Bool
}

func (c *flakyClient) Publish(ctx context.Context, p *packet.SignedPacket) error {
	if c.down.Load() {
		return errors.New("relay unavailable")
	}
	return c.MemoryClient.Publish(ctx, p)
}

func newManager(t *testing.T, client pkarr.Client) (*IdentityManager, *resolver.Resolver) {
	t.Helper()
	r := resolver.New(client, resolver.WithLogger(quietLogger()))
	m, err := NewIdentityManager(ManagerOptions{Resolver: r, Logger: quietLogger()})
	require.NoError(t, err)
	return m, r
}

func TestBuildKeyDIDDocument(t *testing.T) {
	doc, err := BuildKeyDIDDocument(did.MustParse(testKeyDID))
	require.NoError(t, err)

	vmID := testKeyDID + "#z6MktwupdmLXVVqTzCw4i46r4uGyosGXRnR3XjN4Zq7oMMsw"
	assert.Equal(t, testKeyDID, doc.ID)
	require.Len(t, doc.VerificationMethod, 1)
	assert.Equal(t, vmID, doc.VerificationMethod[0].ID)
	assert.Equal(t, testKeyDID, doc.VerificationMethod[0].Controller)
	assert.Equal(t, "Ed25519VerificationKey2020", doc.VerificationMethod[0].Type)
	assert.Equal(t, []string{vmID}, doc.Authentication)
	assert.Equal(t, []string{vmID}, doc.AssertionMethod)
	assert.Empty(t, doc.KeyAgreement)

	_, err = BuildKeyDIDDocument(did.MustParse("did:key:zabc"))
	assert.Error(t, err)
}

func TestExtractPublicKeyFromDocument(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	d, err := did.KeyFromPublicKey(pub)
	require.NoError(t, err)

	doc, err := BuildKeyDIDDocument(d)
	require.NoError(t, err)
	got, err := ExtractPublicKeyFromDocument(doc)
	require.NoError(t, err)
	assert.True(t, pub.Equal(got))

	_, err = ExtractPublicKeyFromDocument(&DIDDocument{ID: "did:pkarr:x"})
	assert.Error(t, err)
}

func TestFromPkarr(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	b, err := document.NewBuilder(pub)
	require.NoError(t, err)
	require.NoError(t, b.VerificationMethod(document.MustParseVerificationMethod(testKeyDID), document.Authentication|document.Assertion))
	require.NoError(t, b.VerificationMethod(document.MustParseVerificationMethod("did:web:example.com#key-1"), document.KeyAgreement))
	pdoc := b.AlsoKnownAs(document.MustParseURI("at://alice.example.com")).Build()

	doc := FromPkarr(pdoc)
	vmID := testKeyDID + "#z6MktwupdmLXVVqTzCw4i46r4uGyosGXRnR3XjN4Zq7oMMsw"
	assert.Equal(t, pdoc.DID().String(), doc.ID)
	assert.Equal(t, []string{"at://alice.example.com"}, doc.AlsoKnownAs)
	require.Len(t, doc.VerificationMethod, 1)
	assert.Equal(t, vmID, doc.VerificationMethod[0].ID)
	assert.Equal(t, doc.ID, doc.VerificationMethod[0].Controller)
	assert.Equal(t, []string{vmID}, doc.Authentication)
	assert.Equal(t, []string{vmID}, doc.AssertionMethod)
	assert.Equal(t, []string{"did:web:example.com#key-1"}, doc.KeyAgreement)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "@context")
	assert.Contains(t, generic, "keyAgreement")
}

func TestDIDResolver(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(t, pkarr.NewMemoryClient())
	agent, err := m.CreateIdentity(ctx, DocumentOptions{AlsoKnownAs: []string{"https://alice.example.com"}})
	require.NoError(t, err)

	dr := NewDIDResolver(ResolverOptions{Pkarr: r, MostRecent: true})

	doc, err := dr.Resolve(ctx, agent.DID)
	require.NoError(t, err)
	assert.Equal(t, agent.DID, doc.ID)
	assert.Equal(t, []string{"https://alice.example.com"}, doc.AlsoKnownAs)
	key, err := ExtractPublicKeyFromDocument(doc)
	require.NoError(t, err)
	assert.True(t, agent.PublicKey.Equal(key))

	doc, err = dr.Resolve(ctx, testKeyDID)
	require.NoError(t, err)
	assert.Equal(t, testKeyDID, doc.ID)

	var unsupported *types.ErrUnsupportedDIDMethod
	_, err = dr.Resolve(ctx, "did:web:example.com")
	assert.ErrorAs(t, err, &unsupported)
	_, err = NewDIDResolver(ResolverOptions{}).Resolve(ctx, agent.DID)
	assert.ErrorAs(t, err, &unsupported)

	var invalid *types.ErrInvalidDID
	_, err = dr.Resolve(ctx, "not a did")
	assert.ErrorAs(t, err, &invalid)
	_, err = dr.Resolve(ctx, "did:pkarr:abc")
	assert.ErrorAs(t, err, &invalid)

	other, err := did.PkarrFromPublicKey(ed25519.NewKeyFromSeed(make([]byte, 32)).Public().(ed25519.PublicKey))
	require.NoError(t, err)
	var failed *types.ErrDIDResolutionFailed
	_, err = dr.Resolve(ctx, other.String())
	assert.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, resolver.ErrNotFound)
}

func TestCreateAndUpdateIdentity(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(t, pkarr.NewMemoryClient())

	agent, err := m.CreateIdentity(ctx, DocumentOptions{
		Methods: []MethodSpec{{Method: "did:web:example.com#key-1", Relationship: document.KeyAgreement}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, agent.Status)
	require.NotNil(t, agent.LastPublish)
	first := agent.LastPublish.Timestamp

	id, err := did.ParsePkarr(agent.DID)
	require.NoError(t, err)
	published, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	local, err := agent.Document()
	require.NoError(t, err)
	assert.True(t, published.Equal(local))
	require.Len(t, published.VerificationMethods(), 2)

	updated, err := m.UpdateIdentity(ctx, agent.DID, DocumentOptions{
		AlsoKnownAs:    []string{"at://bob.example.com"},
		OmitSigningKey: true,
	})
	require.NoError(t, err)
	assert.Greater(t, updated.LastPublish.Timestamp, first)

	published, err = r.ResolveMostRecent(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, published.VerificationMethods())
	require.Len(t, published.AlsoKnownAs(), 1)
	assert.Equal(t, "at://bob.example.com", published.AlsoKnownAs()[0].String())

	_, err = m.UpdateIdentity(ctx, "did:pkarr:unknown", DocumentOptions{})
	var notFound *types.ErrIdentityNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateIdentityRejectsBadOptions(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, pkarr.NewMemoryClient())

	_, err := m.CreateIdentity(ctx, DocumentOptions{AlsoKnownAs: []string{"no scheme"}})
	assert.Error(t, err)
	_, err = m.CreateIdentity(ctx, DocumentOptions{Methods: []MethodSpec{{Method: "did:web:example.com"}}})
	assert.ErrorIs(t, err, document.ErrEmptyRelationship)
	_, err = m.CreateIdentity(ctx, DocumentOptions{Methods: []MethodSpec{{Method: "nope", Relationship: document.Authentication}}})
	assert.Error(t, err)

	ids, err := m.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPendingIdentityRepublish(t *testing.T) {
	ctx := context.Background()
	client := &flakyClient{MemoryClient: pkarr.NewMemoryClient()}
	client.down.Store(true)
	m, _ := newManager(t, client)

	agent, err := m.CreateIdentity(ctx, DocumentOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, resolver.ErrIO)
	require.NotNil(t, agent)
	assert.Equal(t, types.StatusPending, agent.Status)
	assert.Nil(t, agent.LastPublish)

	stored, err := m.ResolveIdentity(ctx, agent.DID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, stored.Status)

	client.down.Store(false)
	agent, err = m.Republish(ctx, agent.DID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, agent.Status)
	assert.Equal(t, 1, client.Len())
}

func TestConcurrentUpdatesAndReads(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(t, pkarr.NewMemoryClient())
	agent, err := m.CreateIdentity(ctx, DocumentOptions{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			aka := fmt.Sprintf("at://%d.example.com", i)
			_, err := m.UpdateIdentity(ctx, agent.DID, DocumentOptions{AlsoKnownAs: []string{aka}})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			got, err := m.ResolveIdentity(ctx, agent.DID)
			if assert.NoError(t, err) {
				assert.NotEmpty(t, got.Record)
				assert.NotNil(t, got.LastPublish)
			}
			ids, err := m.ListIdentities(ctx)
			if assert.NoError(t, err) && assert.Len(t, ids, 1) {
				assert.False(t, ids[0].UpdatedAt.IsZero())
			}
		}()
	}
	wg.Wait()

	stored, err := m.ResolveIdentity(ctx, agent.DID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, stored.Status)
	assert.Greater(t, stored.LastPublish.Timestamp, agent.LastPublish.Timestamp)

	id, err := did.ParsePkarr(agent.DID)
	require.NoError(t, err)
	published, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	local, err := stored.Document()
	require.NoError(t, err)
	assert.True(t, published.Equal(local))
}

func TestInMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	in := &Identity{DID: "did:pkarr:a", Record: []string{"vr="}, Status: types.StatusPending}
	require.NoError(t, s.Put(ctx, in))

	in.Record[0] = "changed"
	in.Status = types.StatusPublished
	got, err := s.Get(ctx, "did:pkarr:a")
	require.NoError(t, err)
	assert.Equal(t, []string{"vr="}, got.Record)
	assert.Equal(t, types.StatusPending, got.Status)

	got.Record = append(got.Record, "aka0=at://x")
	got.LastPublish = &types.PublishRecord{Timestamp: 1}
	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, []string{"vr="}, ids[0].Record)
	assert.Nil(t, ids[0].LastPublish)
}

func TestPublishLogsIdentity(t *testing.T) {
	ctx := context.Background()
	client := &flakyClient{MemoryClient: pkarr.NewMemoryClient()}
	var buf bytes.Buffer
	m, err := NewIdentityManager(ManagerOptions{
		Resolver: resolver.New(client, resolver.WithLogger(quietLogger())),
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
	})
	require.NoError(t, err)

	agent, err := m.CreateIdentity(ctx, DocumentOptions{})
	require.NoError(t, err)
	client.down.Store(true)
	_, err = m.Republish(ctx, agent.DID)
	require.Error(t, err)

	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "identity published", entries[0]["msg"])
	assert.Equal(t, agent.DID, entries[0]["did"])
	assert.Equal(t, float64(agent.LastPublish.Timestamp), entries[0]["timestamp"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, agent.DID, entries[1]["did"])
	assert.Contains(t, entries[1]["error"], "relay unavailable")
}

func TestImportAndDeleteIdentity(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, pkarr.NewMemoryClient())
	seed, err := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)

	agent, err := m.ImportIdentity(ctx, seed, DocumentOptions{})
	require.NoError(t, err)
	want, err := did.PkarrFromPublicKey(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, want.String(), agent.DID)

	ids, err := m.ListIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, m.DeleteIdentity(ctx, agent.DID))
	_, err = m.ResolveIdentity(ctx, agent.DID)
	var notFound *types.ErrIdentityNotFound
	assert.ErrorAs(t, err, &notFound)

	var keyNotFound *types.ErrKeyNotFound
	_, err = m.KeyManager().Load(ctx, agent.KeyID)
	assert.ErrorAs(t, err, &keyNotFound)
}

func TestNewIdentityManagerRequiresResolver(t *testing.T) {
	_, err := NewIdentityManager(ManagerOptions{})
	assert.Error(t, err)
}
