// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package did

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/tv42/zbase32"

	"github.com/aumos-ai/did-pkarr/types"
)

const pkarrPrefix = "did:" + string(types.DIDMethodPkarr) + ":"

var (
	ErrWrongPrefix      = errors.New("expected prefix " + pkarrPrefix)
	ErrNotZBase32       = errors.New("public key was not z-base-32 encoded")
	ErrWrongKeyLength   = errors.New("decoded public key has the wrong length")
	ErrInvalidPublicKey = errors.New("bytes are not a valid ed25519 public key")
)

// Pkarr is a did:pkarr identifier. Its method specific id is the z-base-32
// encoding of an Ed25519 public key, so the DID is fully determined by the key.
type Pkarr struct {
	key ed25519.PublicKey
	z32 string
}

// PkarrFromPublicKey returns the did:pkarr identifier for pub.
func PkarrFromPublicKey(pub ed25519.PublicKey) (Pkarr, error) {
	if err := validatePublicKey(pub); err != nil {
		return Pkarr{}, err
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, pub)
	return Pkarr{key: key, z32: zbase32.EncodeToString(key)}, nil
}

// ParsePkarr parses the did:pkarr:<z-base-32 public key> form.
func ParsePkarr(s string) (Pkarr, error) {
	d, err := Parse(s)
	if err != nil {
		return Pkarr{}, err
	}
	return PkarrFromDID(d)
}

// PkarrFromDID interprets an already parsed DID as did:pkarr.
func PkarrFromDID(d DID) (Pkarr, error) {
	if d.Method() != string(types.DIDMethodPkarr) {
		return Pkarr{}, &ParseError{Input: d.String(), Err: ErrWrongPrefix}
	}
	key, err := DecodePkarrKey(d.MethodSpecificID())
	if err != nil {
		return Pkarr{}, &ParseError{Input: d.String(), Err: err}
	}
	return Pkarr{key: key, z32: d.MethodSpecificID()}, nil
}

// DecodePkarrKey decodes a bare z-base-32 public key as used in pkarr record names.
func DecodePkarrKey(z32 string) (ed25519.PublicKey, error) {
	raw, err := zbase32.DecodeString(z32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotZBase32, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrWrongKeyLength, len(raw))
	}
	// Trailing bits that do not round trip would give one key several names.
	if zbase32.EncodeToString(raw) != z32 {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrNotZBase32)
	}
	if err := validatePublicKey(raw); err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

func validatePublicKey(pub []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: got %d bytes", ErrWrongKeyLength, len(pub))
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return nil
}

// String returns "did:pkarr:" followed by the z-base-32 public key.
func (p Pkarr) String() string { return pkarrPrefix + p.z32 }

// Z32 returns the bare z-base-32 public key, which is also the pkarr origin.
func (p Pkarr) Z32() string { return p.z32 }

// PublicKey returns a copy of the Ed25519 public key.
func (p Pkarr) PublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, len(p.key))
	copy(out, p.key)
	return out
}

// DID returns the generic DID form.
func (p Pkarr) DID() DID {
	return DID{raw: p.String(), sep: len(pkarrPrefix) - 1}
}

// Equal reports whether both identifiers name the same key.
func (p Pkarr) Equal(other Pkarr) bool { return p.key.Equal(other.key) }

// IsZero reports whether p is the zero value.
func (p Pkarr) IsZero() bool { return len(p.key) == 0 }

// MarshalText implements encoding.TextMarshaler.
func (p Pkarr) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pkarr) UnmarshalText(text []byte) error {
	parsed, err := ParsePkarr(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
