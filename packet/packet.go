// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package packet implements pkarr signed packets: a small DNS message signed
// by an Ed25519 key and stamped with a microsecond timestamp.
//
// The binary layout is
//
//	public key (32) || signature (64) || timestamp (8, big endian) || DNS message
//
// and the signature covers the BEP44 mutable-item encoding of the timestamp
// and DNS message, so packets can be stored on the mainline DHT unchanged.
package packet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/aumos-ai/did-pkarr/did"
)

const (
	// MaxDNSPacketSize is the largest DNS message a signed packet may carry.
	MaxDNSPacketSize = 1000

	headerSize = ed25519.PublicKeySize + ed25519.SignatureSize + 8
	// MaxSize bounds the full serialized packet.
	MaxSize = headerSize + MaxDNSPacketSize
)

var (
	ErrTooShort          = errors.New("packet: shorter than the fixed header")
	ErrTooLarge          = errors.New("packet: DNS message exceeds 1000 bytes")
	ErrInvalidSignature  = errors.New("packet: signature does not verify")
	ErrInvalidDNSMessage = errors.New("packet: malformed DNS message")
	ErrInvalidPublicKey  = errors.New("packet: invalid public key")
	ErrStringTooLong     = errors.New("packet: TXT character-string exceeds 255 bytes")
)

// SignedPacket is a verified pkarr packet. Values returned by this package
// always carry a valid signature; the zero value is not usable.
type SignedPacket struct {
	publicKey ed25519.PublicKey
	origin    string
	signature []byte
	timestamp Timestamp
	encoded   []byte
	msg       *dns.Msg
}

// Parse decodes and verifies a full serialized packet.
func Parse(b []byte) (*SignedPacket, error) {
	if len(b) < headerSize {
		return nil, ErrTooShort
	}
	return parse(ed25519.PublicKey(b[:ed25519.PublicKeySize]), b[ed25519.PublicKeySize:])
}

// FromRelayPayload decodes and verifies the body a relay returns for pub,
// which is the serialized packet without its leading public key.
func FromRelayPayload(pub ed25519.PublicKey, payload []byte) (*SignedPacket, error) {
	return parse(pub, payload)
}

func parse(pub ed25519.PublicKey, payload []byte) (*SignedPacket, error) {
	id, err := did.PkarrFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(payload) < headerSize-ed25519.PublicKeySize {
		return nil, ErrTooShort
	}
	sig := payload[:ed25519.SignatureSize]
	ts := Timestamp(binary.BigEndian.Uint64(payload[ed25519.SignatureSize:]))
	encoded := payload[ed25519.SignatureSize+8:]
	if len(encoded) > MaxDNSPacketSize {
		return nil, ErrTooLarge
	}
	if !ed25519.Verify(id.PublicKey(), signable(ts, encoded), sig) {
		return nil, ErrInvalidSignature
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDNSMessage, err)
	}

	return &SignedPacket{
		publicKey: id.PublicKey(),
		origin:    id.Z32(),
		signature: bytes.Clone(sig),
		timestamp: ts,
		encoded:   bytes.Clone(encoded),
		msg:       msg,
	}, nil
}

// signable returns the BEP44 bencoded form covered by the signature.
func signable(ts Timestamp, encoded []byte) []byte {
	var b bytes.Buffer
	b.WriteString("3:seqi")
	b.WriteString(strconv.FormatUint(uint64(ts), 10))
	b.WriteString("e1:v")
	b.WriteString(strconv.Itoa(len(encoded)))
	b.WriteByte(':')
	b.Write(encoded)
	return b.Bytes()
}

// PublicKey returns the key that signed the packet.
func (p *SignedPacket) PublicKey() ed25519.PublicKey { return bytes.Clone(p.publicKey) }

// Origin returns the z-base-32 public key that all record names are relative to.
func (p *SignedPacket) Origin() string { return p.origin }

// Timestamp returns the packet timestamp.
func (p *SignedPacket) Timestamp() Timestamp { return p.timestamp }

// Signature returns the Ed25519 signature.
func (p *SignedPacket) Signature() []byte { return bytes.Clone(p.signature) }

// EncodedDNSMessage returns the wire form of the DNS message.
func (p *SignedPacket) EncodedDNSMessage() []byte { return bytes.Clone(p.encoded) }

// Bytes returns the full serialized packet.
func (p *SignedPacket) Bytes() []byte {
	out := make([]byte, 0, ed25519.PublicKeySize+len(p.RelayPayload()))
	out = append(out, p.publicKey...)
	return append(out, p.RelayPayload()...)
}

// RelayPayload returns signature || timestamp || DNS message, the body used
// by the relay HTTP API.
func (p *SignedPacket) RelayPayload() []byte {
	out := make([]byte, 0, headerSize-ed25519.PublicKeySize+len(p.encoded))
	out = append(out, p.signature...)
	out = binary.BigEndian.AppendUint64(out, uint64(p.timestamp))
	return append(out, p.encoded...)
}

// AllRecords returns every answer record in the packet.
func (p *SignedPacket) AllRecords() []dns.RR {
	return append([]dns.RR(nil), p.msg.Answer...)
}

// ResourceRecords returns the answer records whose owner name matches name
// once both are normalised against the packet origin.
func (p *SignedPacket) ResourceRecords(name string) []dns.RR {
	want := dns.CanonicalName(normalizeName(p.origin, name))
	var out []dns.RR
	for _, rr := range p.msg.Answer {
		if dns.CanonicalName(rr.Header().Name) == want {
			out = append(out, rr)
		}
	}
	return out
}

// MoreRecentThan reports whether p should replace other. Equal timestamps
// are broken by comparing the encoded DNS messages.
func (p *SignedPacket) MoreRecentThan(other *SignedPacket) bool {
	if other == nil {
		return true
	}
	if p.timestamp != other.timestamp {
		return p.timestamp > other.timestamp
	}
	return bytes.Compare(p.encoded, other.encoded) > 0
}

// normalizeName turns a possibly relative name into a fully qualified name
// under origin. "@" and "" mean the origin itself.
func normalizeName(origin, name string) string {
	name = strings.TrimSuffix(name, ".")
	if name == "" || name == "@" {
		return dns.Fqdn(origin)
	}
	labels := dns.SplitDomainName(name)
	if strings.EqualFold(labels[len(labels)-1], origin) {
		return dns.Fqdn(name)
	}
	return dns.Fqdn(name + "." + origin)
}
