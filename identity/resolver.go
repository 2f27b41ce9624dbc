// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/resolver"
	"github.com/aumos-ai/did-pkarr/types"
)

// ResolverOptions configures a DIDResolver.
type ResolverOptions struct {
	// Pkarr resolves did:pkarr documents. If nil, did:pkarr is unsupported.
	Pkarr *resolver.Resolver
	// MostRecent makes did:pkarr resolution wait for every source and return
	// the newest document.
	MostRecent bool
}

// DIDResolver resolves DID Documents for did:key and did:pkarr methods.
// For did:key, resolution is entirely local (no network call).
// For did:pkarr, the signed packet is fetched through the pkarr resolver.
type DIDResolver struct {
	pkarr      *resolver.Resolver
	mostRecent bool
}

// NewDIDResolver constructs a DIDResolver with the provided options.
func NewDIDResolver(opts ResolverOptions) *DIDResolver {
	return &DIDResolver{
		pkarr:      opts.Pkarr,
		mostRecent: opts.MostRecent,
	}
}

// Resolve returns the DID Document for the given DID.
func (r *DIDResolver) Resolve(ctx context.Context, s string) (*DIDDocument, error) {
	d, err := did.Parse(s)
	if err != nil {
		return nil, &types.ErrInvalidDID{DID: s, Reason: err.Error()}
	}

	switch types.DIDMethod(d.Method()) {
	case types.DIDMethodKey:
		return r.resolveKey(d)
	case types.DIDMethodPkarr:
		if r.pkarr == nil {
			return nil, &types.ErrUnsupportedDIDMethod{Method: d.Method()}
		}
		return r.resolvePkarr(ctx, d)
	default:
		return nil, &types.ErrUnsupportedDIDMethod{Method: d.Method()}
	}
}

// resolveKey synthesizes a DID Document from the public key encoded in a did:key.
func (r *DIDResolver) resolveKey(d did.DID) (*DIDDocument, error) {
	doc, err := BuildKeyDIDDocument(d)
	if err != nil {
		return nil, fmt.Errorf("resolver: build DID document: %w", err)
	}
	return doc, nil
}

func (r *DIDResolver) resolvePkarr(ctx context.Context, d did.DID) (*DIDDocument, error) {
	id, err := did.PkarrFromDID(d)
	if err != nil {
		return nil, &types.ErrInvalidDID{DID: d.String(), Reason: err.Error()}
	}

	resolve := r.pkarr.Resolve
	if r.mostRecent {
		resolve = r.pkarr.ResolveMostRecent
	}
	doc, err := resolve(ctx, id)
	if err != nil {
		return nil, &types.ErrDIDResolutionFailed{DID: d.String(), Reason: "pkarr", Err: err}
	}
	return FromPkarr(doc), nil
}

// ExtractPublicKeyFromDocument extracts the first Ed25519VerificationKey2020 from a DID Document.
func ExtractPublicKeyFromDocument(doc *DIDDocument) (ed25519.PublicKey, error) {
	for _, vm := range doc.VerificationMethod {
		if vm.Type != string(types.VerificationMethodEd25519) {
			continue
		}
		if vm.PublicKeyMultibase == "" {
			continue
		}

		key, err := did.Parse("did:" + string(types.DIDMethodKey) + ":" + vm.PublicKeyMultibase)
		if err != nil {
			return nil, fmt.Errorf("resolver: decode publicKeyMultibase: %w", err)
		}
		pub, err := did.KeyPublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("resolver: decode publicKeyMultibase: %w", err)
		}
		return pub, nil
	}
	return nil, fmt.Errorf("resolver: no Ed25519VerificationKey2020 found in DID document for %s", doc.ID)
}
