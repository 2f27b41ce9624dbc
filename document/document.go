// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package document implements the did:pkarr DID document: its contents, the
// TXT attribute codec that stores them, and conversion to and from signed
// pkarr packets.
package document

import (
	"crypto/ed25519"
	"fmt"

	"github.com/miekg/dns"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/packet"
)

// RecordName is the name of the TXT record holding the document, relative
// to the key's origin.
const RecordName = "_did_pkarr."

// Document is a resolvable did:pkarr document. The id is the Ed25519 key that
// must sign any packet carrying it. Documents are immutable; updates are new
// documents published under the same key.
type Document struct {
	id       did.Pkarr
	contents Contents
}

// New returns a document with the given contents. Contents are copied.
func New(id did.Pkarr, contents Contents) (*Document, error) {
	if len(contents.Methods) != len(contents.Relationships) {
		return nil, fmt.Errorf("document: %d methods but %d relationships",
			len(contents.Methods), len(contents.Relationships))
	}
	return &Document{id: id, contents: cloneContents(contents)}, nil
}

// ID returns the did:pkarr identifier.
func (d *Document) ID() did.Pkarr { return d.id }

// DID returns "did:pkarr:" followed by the z-base-32 public key.
func (d *Document) DID() did.DID { return d.id.DID() }

// PublicKey returns the key the document is bound to.
func (d *Document) PublicKey() ed25519.PublicKey { return d.id.PublicKey() }

// Contents returns a copy of the document contents.
func (d *Document) Contents() Contents { return cloneContents(d.contents) }

// AlsoKnownAs returns the aliases.
func (d *Document) AlsoKnownAs() []URI { return append([]URI(nil), d.contents.AlsoKnownAs...) }

// MethodRelationship pairs a verification method with what it may be used for.
type MethodRelationship struct {
	Method       VerificationMethod
	Relationship VerificationRelationship
}

// VerificationMethods returns each method with its relationship.
func (d *Document) VerificationMethods() []MethodRelationship {
	out := make([]MethodRelationship, len(d.contents.Methods))
	for i, m := range d.contents.Methods {
		out[i] = MethodRelationship{Method: m, Relationship: d.contents.Relationships[i]}
	}
	return out
}

// Equal reports whether both documents have the same id and contents.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.id.Equal(other.id) && d.contents.Equal(other.contents)
}

// ToPacket signs the document into a pkarr packet stamped with ts. The key
// derived from the seed of signingKey must be the document id.
func (d *Document) ToPacket(signingKey ed25519.PrivateKey, ts packet.Timestamp) (*packet.SignedPacket, error) {
	if len(signingKey) != ed25519.PrivateKeySize {
		return nil, &ToPacketError{Err: fmt.Errorf("invalid private key length %d", len(signingKey))}
	}
	if !d.id.PublicKey().Equal(ed25519.NewKeyFromSeed(signingKey.Seed()).Public()) {
		return nil, &ToPacketError{Err: ErrKeyMismatch}
	}
	signed, err := packet.NewBuilder().
		Timestamp(ts).
		TXT(RecordName, d.contents.TXT(), 0).
		Sign(signingKey)
	if err != nil {
		return nil, &ToPacketError{Err: err}
	}
	return signed, nil
}

// FromPacket extracts the document from a verified packet. The packet must
// hold exactly one record named _did_pkarr and it must be TXT.
func FromPacket(p *packet.SignedPacket, opts ...DecodeOption) (*Document, error) {
	id, err := did.PkarrFromPublicKey(p.PublicKey())
	if err != nil {
		return nil, &FromPacketError{Err: err}
	}

	records := p.ResourceRecords(RecordName)
	switch len(records) {
	case 0:
		return nil, &FromPacketError{Err: ErrNoDidPkarrTxtRecord}
	case 1:
	default:
		return nil, &FromPacketError{Err: ErrMultipleDidPkarrRecords}
	}
	txt, ok := records[0].(*dns.TXT)
	if !ok {
		return nil, &FromPacketError{Err: ErrNoDidPkarrTxtRecord}
	}

	contents, err := DecodeTXT(packet.TXTStrings(txt), opts...)
	if err != nil {
		return nil, &FromPacketError{Err: err}
	}
	return &Document{id: id, contents: contents}, nil
}

func cloneContents(c Contents) Contents {
	return Contents{
		AlsoKnownAs:   append([]URI(nil), c.AlsoKnownAs...),
		Methods:       append([]VerificationMethod(nil), c.Methods...),
		Relationships: append([]VerificationRelationship(nil), c.Relationships...),
	}
}
