// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package did

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/multiformats/go-multibase"

	"github.com/aumos-ai/did-pkarr/types"
)

// ed25519MulticodecPrefix is the multicodec varint prefix for Ed25519 public keys (0xed01).
var ed25519MulticodecPrefix = []byte{0xed, 0x01}

// KeyFromPublicKey creates a did:key DID from an Ed25519 public key.
// The key is encoded as multibase base58btc with the 0xed01 multicodec prefix.
func KeyFromPublicKey(publicKey ed25519.PublicKey) (DID, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return DID{}, fmt.Errorf("did: invalid Ed25519 public key length %d", len(publicKey))
	}

	prefixed := make([]byte, 0, len(ed25519MulticodecPrefix)+len(publicKey))
	prefixed = append(prefixed, ed25519MulticodecPrefix...)
	prefixed = append(prefixed, publicKey...)

	encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return DID{}, fmt.Errorf("did: multibase encode: %w", err)
	}

	return Parse("did:" + string(types.DIDMethodKey) + ":" + encoded)
}

// KeyPublicKey decodes the Ed25519 public key embedded in a did:key DID.
func KeyPublicKey(d DID) (ed25519.PublicKey, error) {
	if d.Method() != string(types.DIDMethodKey) {
		return nil, &types.ErrInvalidDID{DID: d.String(), Reason: "not a did:key DID"}
	}

	enc, decoded, err := multibase.Decode(d.MethodSpecificID())
	if err != nil {
		return nil, fmt.Errorf("did: multibase decode: %w", err)
	}
	if enc != multibase.Base58BTC {
		return nil, &types.ErrInvalidDID{DID: d.String(), Reason: "expected base58btc multibase encoding"}
	}
	if !bytes.HasPrefix(decoded, ed25519MulticodecPrefix) {
		return nil, &types.ErrInvalidDID{DID: d.String(), Reason: "unexpected multicodec prefix"}
	}

	rawKey := decoded[len(ed25519MulticodecPrefix):]
	if len(rawKey) != ed25519.PublicKeySize {
		return nil, &types.ErrInvalidDID{DID: d.String(), Reason: fmt.Sprintf("expected %d key bytes, got %d", ed25519.PublicKeySize, len(rawKey))}
	}

	return ed25519.PublicKey(rawKey), nil
}
