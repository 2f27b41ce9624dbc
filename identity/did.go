// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package identity

import (
	"fmt"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/types"
)

var didContext = []string{
	"https://www.w3.org/ns/did/v1",
	"https://w3id.org/security/suites/ed25519-2020/v1",
}

// DIDDocument represents a W3C DID Document.
type DIDDocument struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	AlsoKnownAs        []string             `json:"alsoKnownAs,omitempty"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	KeyAgreement       []string             `json:"keyAgreement,omitempty"`
}

// VerificationMethod is an entry in a DID Document's verificationMethod array.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
}

// BuildKeyDIDDocument synthesizes the document of a did:key. The key is its
// only verification method, used for authentication and assertion.
func BuildKeyDIDDocument(d did.DID) (*DIDDocument, error) {
	if _, err := did.KeyPublicKey(d); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	vm := keyVerificationMethod(d, d.String())
	return &DIDDocument{
		Context:            didContext,
		ID:                 d.String(),
		VerificationMethod: []VerificationMethod{vm},
		Authentication:     []string{vm.ID},
		AssertionMethod:    []string{vm.ID},
	}, nil
}

// FromPkarr renders a did:pkarr document in W3C form. did:key methods are
// inlined as Ed25519VerificationKey2020 entries; external methods are
// referenced by DID URL from the relationship arrays only.
func FromPkarr(doc *document.Document) *DIDDocument {
	id := doc.DID().String()
	out := &DIDDocument{
		Context:            didContext,
		ID:                 id,
		VerificationMethod: []VerificationMethod{},
	}
	for _, u := range doc.AlsoKnownAs() {
		out.AlsoKnownAs = append(out.AlsoKnownAs, u.String())
	}

	for _, pair := range doc.VerificationMethods() {
		ref := pair.Method.String()
		if pair.Method.Kind() == document.DidKey {
			vm := keyVerificationMethod(pair.Method.URL().DID(), id)
			if pair.Method.URL().HasFragment() {
				vm.ID = ref
			}
			out.VerificationMethod = append(out.VerificationMethod, vm)
			ref = vm.ID
		}
		if pair.Relationship.Has(document.Authentication) {
			out.Authentication = append(out.Authentication, ref)
		}
		if pair.Relationship.Has(document.Assertion) {
			out.AssertionMethod = append(out.AssertionMethod, ref)
		}
		if pair.Relationship.Has(document.KeyAgreement) {
			out.KeyAgreement = append(out.KeyAgreement, ref)
		}
	}
	return out
}

// keyVerificationMethod follows the did:key convention of using the
// multibase key as the fragment.
func keyVerificationMethod(key did.DID, controller string) VerificationMethod {
	msid := key.MethodSpecificID()
	return VerificationMethod{
		ID:                 key.String() + "#" + msid,
		Type:               string(types.VerificationMethodEd25519),
		Controller:         controller,
		PublicKeyMultibase: msid,
	}
}
