// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"crypto/ed25519"
	"fmt"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/types"
)

// MethodKind classifies a VerificationMethod.
type MethodKind int

const (
	// DidKey is an inline did:key public key.
	DidKey MethodKind = iota
	// External points at a verification method in another DID document.
	External
)

func (k MethodKind) String() string {
	if k == DidKey {
		return "did:key"
	}
	return "external"
}

// VerificationMethod is either a did:key or a DID URL referencing a method
// held elsewhere. It prints back exactly as it was parsed.
type VerificationMethod struct {
	url did.URL
}

// ParseVerificationMethod parses s as a DID URL and classifies it by method.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	u, err := did.ParseURL(s)
	if err != nil {
		return VerificationMethod{}, err
	}
	return VerificationMethod{url: u}, nil
}

// MustParseVerificationMethod is like ParseVerificationMethod but panics on error.
func MustParseVerificationMethod(s string) VerificationMethod {
	m, err := ParseVerificationMethod(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NewVerificationMethod wraps an already parsed DID URL.
func NewVerificationMethod(u did.URL) VerificationMethod { return VerificationMethod{url: u} }

// KeyMethod returns the did:key verification method for pub.
func KeyMethod(pub ed25519.PublicKey) (VerificationMethod, error) {
	d, err := did.KeyFromPublicKey(pub)
	if err != nil {
		return VerificationMethod{}, err
	}
	return VerificationMethod{url: d.URL()}, nil
}

// Kind reports DidKey iff the DID method is "key".
func (m VerificationMethod) Kind() MethodKind {
	if m.url.Method() == string(types.DIDMethodKey) {
		return DidKey
	}
	return External
}

// URL returns the underlying DID URL.
func (m VerificationMethod) URL() did.URL { return m.url }

// PublicKey decodes the inline key of a DidKey method.
func (m VerificationMethod) PublicKey() (ed25519.PublicKey, error) {
	if m.Kind() != DidKey {
		return nil, fmt.Errorf("document: %s is not a did:key verification method", m)
	}
	return did.KeyPublicKey(m.url.DID())
}

func (m VerificationMethod) String() string { return m.url.String() }

// Compare orders methods by their string form.
func (m VerificationMethod) Compare(other VerificationMethod) int { return m.url.Compare(other.url) }
