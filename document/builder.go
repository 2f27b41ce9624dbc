// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"crypto/ed25519"
	"fmt"
	"slices"
	"strings"

	"github.com/aumos-ai/did-pkarr/did"
)

// Builder assembles a Document. Aliases are deduplicated and sorted; methods
// are keyed by their DID URL and sorted, adding the same method twice
// replaces its relationship.
type Builder struct {
	id      did.Pkarr
	aliases map[string]URI
	methods map[string]methodEntry
}

type methodEntry struct {
	method       VerificationMethod
	relationship VerificationRelationship
}

// NewBuilder starts a document for the given public key.
func NewBuilder(pub ed25519.PublicKey) (*Builder, error) {
	id, err := did.PkarrFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return NewBuilderFor(id), nil
}

// NewBuilderFor starts a document for an already parsed did:pkarr.
func NewBuilderFor(id did.Pkarr) *Builder {
	return &Builder{
		id:      id,
		aliases: make(map[string]URI),
		methods: make(map[string]methodEntry),
	}
}

// AlsoKnownAs adds an alias.
func (b *Builder) AlsoKnownAs(u URI) *Builder {
	b.aliases[u.String()] = u
	return b
}

// VerificationMethod grants r to m. Unknown bits in r are dropped; if nothing
// remains ErrEmptyRelationship is returned and the builder is unchanged.
func (b *Builder) VerificationMethod(m VerificationMethod, r VerificationRelationship) error {
	r = RelationshipFromBits(r.Bits())
	if r.IsEmpty() {
		return fmt.Errorf("document: %s: %w", m, ErrEmptyRelationship)
	}
	b.methods[m.String()] = methodEntry{method: m, relationship: r}
	return nil
}

// Build returns the document. The builder may keep being used afterwards.
func (b *Builder) Build() *Document {
	var c Contents

	for _, k := range sortedKeys(b.aliases) {
		c.AlsoKnownAs = append(c.AlsoKnownAs, b.aliases[k])
	}
	for _, k := range sortedKeys(b.methods) {
		e := b.methods[k]
		c.Methods = append(c.Methods, e.method)
		c.Relationships = append(c.Relationships, e.relationship)
	}
	return &Document{id: b.id, contents: c}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)
	return keys
}
