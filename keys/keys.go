// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package keys holds the Ed25519 signing keys that own did:pkarr identities.
package keys

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/types"
)

// KeyPair is an Ed25519 key pair tracked by a KeyManager.
type KeyPair struct {
	KeyID      string
	Algorithm  types.KeyAlgorithm
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	CreatedAt  time.Time
}

// DID returns the did:pkarr identifier owned by this key pair.
func (kp *KeyPair) DID() (did.Pkarr, error) {
	return did.PkarrFromPublicKey(kp.PublicKey)
}

// KeyManager is custody for signing keys. Implementations must be safe for
// concurrent use.
type KeyManager interface {
	// Generate creates, stores and returns a fresh key pair.
	Generate(ctx context.Context) (*KeyPair, error)
	// Import stores the key pair derived from a 32-byte seed.
	Import(ctx context.Context, seed []byte) (*KeyPair, error)
	Store(ctx context.Context, kp *KeyPair) error
	Load(ctx context.Context, keyID string) (*KeyPair, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, keyID string) error
	Sign(ctx context.Context, keyID string, message []byte) ([]byte, error)
}
