// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package pkarr provides clients that store and fetch signed packets by
// public key.
package pkarr

import (
	"context"
	"crypto/ed25519"
	"errors"

	"github.com/aumos-ai/did-pkarr/packet"
)

var (
	// ErrNotFound is returned when no source holds a packet for the key.
	ErrNotFound = errors.New("pkarr: no packet found")
	// ErrNotMostRecent is returned when publishing a packet older than the stored one.
	ErrNotMostRecent = errors.New("pkarr: a more recent packet is already stored")
)

// Client resolves and publishes signed packets. Implementations must be safe
// for concurrent use.
type Client interface {
	// Resolve returns any valid packet for pub, favouring latency.
	Resolve(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error)
	// ResolveMostRecent asks every source and returns the newest packet.
	ResolveMostRecent(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error)
	// Publish stores p.
	Publish(ctx context.Context, p *packet.SignedPacket) error
}
