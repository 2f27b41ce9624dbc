// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package packet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/miekg/dns"

	"github.com/aumos-ai/did-pkarr/did"
)

// Builder assembles and signs a SignedPacket.
type Builder struct {
	timestamp    Timestamp
	hasTimestamp bool
	records      []dns.RR
	err          error
}

// NewBuilder returns an empty builder. Unless Timestamp is called the packet
// is stamped with the time of signing.
func NewBuilder() *Builder { return &Builder{} }

// Timestamp sets an explicit packet timestamp.
func (b *Builder) Timestamp(ts Timestamp) *Builder {
	b.timestamp = ts
	b.hasTimestamp = true
	return b
}

// TXT adds a TXT record. strings are raw character-strings, each at most
// 255 bytes. name may be relative to the signing key's origin.
func (b *Builder) TXT(name string, strings []string, ttl uint32) *Builder {
	txt := make([]string, len(strings))
	for i, s := range strings {
		if len(s) > MaxCharacterString && b.err == nil {
			b.err = fmt.Errorf("%w: string %d is %d bytes", ErrStringTooLong, i, len(s))
		}
		txt[i] = escapeTXT(s)
	}
	b.records = append(b.records, &dns.TXT{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: ttl},
		Txt: txt,
	})
	return b
}

// Record adds an arbitrary resource record. Its owner name is normalised at
// signing time like the TXT names.
func (b *Builder) Record(rr dns.RR) *Builder {
	b.records = append(b.records, dns.Copy(rr))
	return b
}

// Sign normalises every record name against the public key derived from the
// seed of key, packs the DNS message and signs it. The public half stored in
// key is ignored.
func (b *Builder) Sign(key ed25519.PrivateKey) (*SignedPacket, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("packet: invalid private key length %d", len(key))
	}
	key = ed25519.NewKeyFromSeed(key.Seed())
	id, err := did.PkarrFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	msg := new(dns.Msg)
	msg.Id = 0
	msg.Response = true
	msg.Authoritative = true
	for _, rr := range b.records {
		rr.Header().Name = normalizeName(id.Z32(), rr.Header().Name)
		msg.Answer = append(msg.Answer, rr)
	}
	encoded, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("packet: pack DNS message: %w", err)
	}
	if len(encoded) > MaxDNSPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(encoded))
	}

	ts := b.timestamp
	if !b.hasTimestamp {
		ts = Now()
	}

	// Round trip through the parser so the returned packet holds exactly
	// what a resolver will see.
	unpacked := new(dns.Msg)
	if err := unpacked.Unpack(encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDNSMessage, err)
	}

	return &SignedPacket{
		publicKey: id.PublicKey(),
		origin:    id.Z32(),
		signature: ed25519.Sign(key, signable(ts, encoded)),
		timestamp: ts,
		encoded:   encoded,
		msg:       unpacked,
	}, nil
}
