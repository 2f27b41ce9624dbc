// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"fmt"
	"strings"
)

// VerificationRelationship is the set of capabilities granted to a
// verification method. It is stored on the wire as a single byte.
type VerificationRelationship uint8

const (
	Authentication VerificationRelationship = 1 << iota
	Assertion
	KeyAgreement
)

// knownRelationships masks every bit this version understands.
const knownRelationships = Authentication | Assertion | KeyAgreement

// RelationshipFromBits keeps only the recognized bits of b. Unknown bits are
// dropped so documents written by newer versions still decode.
func RelationshipFromBits(b byte) VerificationRelationship {
	return VerificationRelationship(b) & knownRelationships
}

// Bits returns the raw byte.
func (r VerificationRelationship) Bits() byte { return byte(r) }

// Has reports whether every bit of other is set in r.
func (r VerificationRelationship) Has(other VerificationRelationship) bool {
	return r&other == other
}

// IsEmpty reports whether no recognized bit is set.
func (r VerificationRelationship) IsEmpty() bool { return r&knownRelationships == 0 }

// HasUnknownBits reports whether r carries bits outside the known set.
func (r VerificationRelationship) HasUnknownBits() bool { return r&^knownRelationships != 0 }

func (r VerificationRelationship) String() string {
	var names []string
	if r.Has(Authentication) {
		names = append(names, "authentication")
	}
	if r.Has(Assertion) {
		names = append(names, "assertion")
	}
	if r.Has(KeyAgreement) {
		names = append(names, "keyAgreement")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseRelationship parses names joined by '|' or ',' as printed by String.
// "assertionMethod" is accepted as an alias of "assertion".
func ParseRelationship(s string) (VerificationRelationship, error) {
	var r VerificationRelationship
	for _, name := range strings.FieldsFunc(s, func(c rune) bool { return c == '|' || c == ',' }) {
		switch strings.TrimSpace(name) {
		case "authentication":
			r |= Authentication
		case "assertion", "assertionMethod":
			r |= Assertion
		case "keyAgreement":
			r |= KeyAgreement
		default:
			return 0, fmt.Errorf("document: unknown verification relationship %q", name)
		}
	}
	if r.IsEmpty() {
		return 0, fmt.Errorf("document: %q: %w", s, ErrEmptyRelationship)
	}
	return r, nil
}
