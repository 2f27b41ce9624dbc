// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package identity manages did:pkarr identities on top of the resolver. It
// provides Identity (the locally tracked record), IdentityManager (the main
// service object), an in-memory IdentityStore and W3C DID Document rendering.
package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/keys"
	"github.com/aumos-ai/did-pkarr/packet"
	"github.com/aumos-ai/did-pkarr/resolver"
	"github.com/aumos-ai/did-pkarr/types"
)

// Identity is a did:pkarr identity whose signing key is held locally.
type Identity struct {
	// DID is the did:pkarr identifier derived from PublicKey.
	DID string `json:"did"`
	// PublicKey is the identity's Ed25519 public key.
	PublicKey ed25519.PublicKey `json:"publicKey"`
	// KeyID is the KeyManager key ID corresponding to PublicKey.
	KeyID string `json:"keyId"`
	// Record holds the TXT attributes of the current document.
	Record    []string  `json:"record"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Status reports whether Record has been accepted by the network.
	Status types.IdentityStatus `json:"status"`
	// LastPublish is nil until the first successful publish.
	LastPublish *types.PublishRecord `json:"lastPublish,omitempty"`
}

// Document decodes Record into the document published under DID.
func (i *Identity) Document() (*document.Document, error) {
	id, err := did.ParsePkarr(i.DID)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	contents, err := document.DecodeTXT(i.Record)
	if err != nil {
		return nil, fmt.Errorf("identity: decode record of %s: %w", i.DID, err)
	}
	return document.New(id, contents)
}

// Clone returns a deep copy of i.
func (i *Identity) Clone() *Identity {
	c := *i
	c.PublicKey = slices.Clone(i.PublicKey)
	c.Record = slices.Clone(i.Record)
	if i.LastPublish != nil {
		lp := *i.LastPublish
		c.LastPublish = &lp
	}
	return &c
}

// IdentityStore is the interface for persisting and retrieving Identity records.
type IdentityStore interface {
	Put(ctx context.Context, identity *Identity) error
	Get(ctx context.Context, did string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
	Delete(ctx context.Context, did string) error
}

// InMemoryStore is a thread-safe, in-process IdentityStore. Suitable for tests
// and short-lived deployments. It stores and hands out copies, so callers may
// modify what they get without affecting the stored record.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[string]*Identity)}
}

func (s *InMemoryStore) Put(_ context.Context, identity *Identity) error {
	if identity == nil {
		return fmt.Errorf("identity store: cannot store nil Identity")
	}
	s.mu.Lock()
	s.identities[identity.DID] = identity.Clone()
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, did string) (*Identity, error) {
	s.mu.RLock()
	id, ok := s.identities[did]
	s.mu.RUnlock()
	if !ok {
		return nil, &types.ErrIdentityNotFound{DID: did}
	}
	return id.Clone(), nil
}

// List returns every stored identity ordered by DID.
func (s *InMemoryStore) List(_ context.Context) ([]*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Identity, 0, len(s.identities))
	for _, id := range s.identities {
		out = append(out, id.Clone())
	}
	slices.SortFunc(out, func(a, b *Identity) int {
		if a.DID < b.DID {
			return -1
		}
		if a.DID > b.DID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, did string) error {
	s.mu.Lock()
	delete(s.identities, did)
	s.mu.Unlock()
	return nil
}

// MethodSpec names a verification method and what it may be used for.
type MethodSpec struct {
	// Method is a did:key or any other DID URL.
	Method       string
	Relationship document.VerificationRelationship
}

// DocumentOptions describes the contents of a document to publish.
type DocumentOptions struct {
	// AlsoKnownAs lists alternative identifiers as URIs.
	AlsoKnownAs []string
	// Methods lists additional verification methods.
	Methods []MethodSpec
	// OmitSigningKey leaves the identity's own key out of the document. By
	// default it is listed as a did:key method for authentication and assertion.
	OmitSigningKey bool
}

// ManagerOptions configures an IdentityManager.
type ManagerOptions struct {
	// Resolver publishes documents. Required.
	Resolver *resolver.Resolver
	// Store is used to persist Identity records. If nil, an InMemoryStore is used.
	Store IdentityStore
	// KeyManager is used to generate and store key pairs. If nil, an
	// InMemoryKeyStore is used.
	KeyManager keys.KeyManager
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// IdentityManager is the primary service object. All exported methods are safe
// for concurrent use from multiple goroutines.
type IdentityManager struct {
	resolver   *resolver.Resolver
	store      IdentityStore
	keyManager keys.KeyManager
	logger     *slog.Logger

	// mu serializes every change to stored identities, so each read-modify-
	// publish cycle sees the previous one and publish timestamps only grow.
	mu sync.Mutex
}

// NewIdentityManager constructs an IdentityManager from the provided options.
func NewIdentityManager(opts ManagerOptions) (*IdentityManager, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("identity: ManagerOptions.Resolver must not be nil")
	}
	store := opts.Store
	if store == nil {
		store = NewInMemoryStore()
	}
	km := opts.KeyManager
	if km == nil {
		km = keys.NewInMemoryKeyStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityManager{
		resolver:   opts.Resolver,
		store:      store,
		keyManager: km,
		logger:     logger,
	}, nil
}

// CreateIdentity generates a new Ed25519 key pair, builds a document from
// opts, persists the identity and publishes the document.
//
// If publishing fails the identity is kept with StatusPending and returned
// alongside the error; Republish retries it.
func (m *IdentityManager) CreateIdentity(ctx context.Context, opts DocumentOptions) (*Identity, error) {
	kp, err := m.keyManager.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key pair: %w", err)
	}
	return m.adopt(ctx, kp, opts)
}

// ImportIdentity is like CreateIdentity but uses the key pair derived from seed.
func (m *IdentityManager) ImportIdentity(ctx context.Context, seed []byte, opts DocumentOptions) (*Identity, error) {
	kp, err := m.keyManager.Import(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("identity: import key pair: %w", err)
	}
	return m.adopt(ctx, kp, opts)
}

// AdoptKey is like CreateIdentity but uses a key already held by the KeyManager.
func (m *IdentityManager) AdoptKey(ctx context.Context, keyID string, opts DocumentOptions) (*Identity, error) {
	kp, err := m.keyManager.Load(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("identity: adopt key: %w", err)
	}
	return m.adopt(ctx, kp, opts)
}

func (m *IdentityManager) adopt(ctx context.Context, kp *keys.KeyPair, opts DocumentOptions) (*Identity, error) {
	doc, err := buildDocument(kp.PublicKey, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	agent := &Identity{
		DID:       doc.DID().String(),
		PublicKey: kp.PublicKey,
		KeyID:     kp.KeyID,
		Record:    doc.Contents().TXT(),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    types.StatusPending,
	}
	if err := m.store.Put(ctx, agent); err != nil {
		return nil, fmt.Errorf("identity: persist Identity: %w", err)
	}

	if err := m.publish(ctx, agent, doc); err != nil {
		return agent, err
	}
	return agent, nil
}

// UpdateIdentity replaces the document of a locally held identity and
// publishes it under a newer timestamp. The DID does not change.
func (m *IdentityManager) UpdateIdentity(ctx context.Context, didStr string, opts DocumentOptions) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, err := m.load(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("identity: update %s: %w", didStr, err)
	}
	doc, err := buildDocument(agent.PublicKey, opts)
	if err != nil {
		return nil, err
	}

	agent.Record = doc.Contents().TXT()
	agent.UpdatedAt = time.Now().UTC()
	agent.Status = types.StatusPending
	if err := m.store.Put(ctx, agent); err != nil {
		return nil, fmt.Errorf("identity: persist Identity: %w", err)
	}

	if err := m.publish(ctx, agent, doc); err != nil {
		return agent, err
	}
	return agent, nil
}

// Republish publishes the stored document of an identity again. It is the
// recovery path for identities left pending, and also refreshes records that
// relays may have evicted.
func (m *IdentityManager) Republish(ctx context.Context, didStr string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, err := m.load(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("identity: republish %s: %w", didStr, err)
	}
	doc, err := agent.Document()
	if err != nil {
		return nil, err
	}
	if err := m.publish(ctx, agent, doc); err != nil {
		return agent, err
	}
	return agent, nil
}

// load returns a private copy of a stored identity. Stores other than
// InMemoryStore may hand out shared records.
func (m *IdentityManager) load(ctx context.Context, didStr string) (*Identity, error) {
	agent, err := m.store.Get(ctx, didStr)
	if err != nil {
		return nil, err
	}
	return agent.Clone(), nil
}

// publish signs doc with the identity's key at a timestamp newer than its
// last publish, then records the outcome on agent and stores it. m.mu must
// be held and agent must not be shared.
func (m *IdentityManager) publish(ctx context.Context, agent *Identity, doc *document.Document) error {
	kp, err := m.keyManager.Load(ctx, agent.KeyID)
	if err != nil {
		return fmt.Errorf("identity: publish %s: %w", agent.DID, err)
	}
	if kp.PrivateKey == nil {
		return fmt.Errorf("identity: publish %s: private key not available", agent.DID)
	}

	ts := packet.Now()
	if agent.LastPublish != nil && uint64(ts) <= agent.LastPublish.Timestamp {
		ts = packet.Timestamp(agent.LastPublish.Timestamp + 1)
	}

	if err := m.resolver.Publish(ctx, doc, kp.PrivateKey, resolver.AtTimestamp(ts)); err != nil {
		m.logger.WarnContext(ctx, "publish failed, identity left pending",
			slog.String("did", agent.DID), slog.Any("error", err))
		return fmt.Errorf("identity: publish %s: %w", agent.DID, err)
	}

	agent.Status = types.StatusPublished
	agent.LastPublish = &types.PublishRecord{
		DID:         agent.DID,
		KeyID:       agent.KeyID,
		Timestamp:   uint64(ts),
		PublishedAt: ts.Time(),
	}
	if err := m.store.Put(ctx, agent); err != nil {
		return fmt.Errorf("identity: persist Identity: %w", err)
	}
	m.logger.InfoContext(ctx, "identity published",
		slog.String("did", agent.DID), slog.Uint64("timestamp", uint64(ts)))
	return nil
}

// ResolveIdentity looks up an Identity by DID in the local store. The result
// is a copy. For the document as seen by the network, use the DIDResolver.
func (m *IdentityManager) ResolveIdentity(ctx context.Context, didStr string) (*Identity, error) {
	agent, err := m.store.Get(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("identity: resolve %s: %w", didStr, err)
	}
	return agent, nil
}

// ListIdentities returns every locally held identity.
func (m *IdentityManager) ListIdentities(ctx context.Context) ([]*Identity, error) {
	return m.store.List(ctx)
}

// DeleteIdentity forgets an identity and its signing key. Whatever was
// published stays on the network until relays drop it.
func (m *IdentityManager) DeleteIdentity(ctx context.Context, didStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, err := m.store.Get(ctx, didStr)
	if err != nil {
		return fmt.Errorf("identity: delete %s: load: %w", didStr, err)
	}
	if err := m.keyManager.Delete(ctx, agent.KeyID); err != nil {
		return fmt.Errorf("identity: delete %s: key: %w", didStr, err)
	}
	if err := m.store.Delete(ctx, didStr); err != nil {
		return fmt.Errorf("identity: delete %s: persist: %w", didStr, err)
	}
	return nil
}

// KeyManager returns the underlying KeyManager for direct key operations.
func (m *IdentityManager) KeyManager() keys.KeyManager {
	return m.keyManager
}

// Store returns the underlying IdentityStore.
func (m *IdentityManager) Store() IdentityStore {
	return m.store
}

func buildDocument(pub ed25519.PublicKey, opts DocumentOptions) (*document.Document, error) {
	b, err := document.NewBuilder(pub)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	for _, s := range opts.AlsoKnownAs {
		u, err := document.ParseURI(s)
		if err != nil {
			return nil, fmt.Errorf("identity: alsoKnownAs %q: %w", s, err)
		}
		b.AlsoKnownAs(u)
	}
	if !opts.OmitSigningKey {
		self, err := document.KeyMethod(pub)
		if err != nil {
			return nil, fmt.Errorf("identity: %w", err)
		}
		if err := b.VerificationMethod(self, document.Authentication|document.Assertion); err != nil {
			return nil, fmt.Errorf("identity: %w", err)
		}
	}
	for _, ms := range opts.Methods {
		vm, err := document.ParseVerificationMethod(ms.Method)
		if err != nil {
			return nil, fmt.Errorf("identity: verification method %q: %w", ms.Method, err)
		}
		if err := b.VerificationMethod(vm, ms.Relationship); err != nil {
			return nil, fmt.Errorf("identity: verification method %q: %w", ms.Method, err)
		}
	}
	return b.Build(), nil
}
