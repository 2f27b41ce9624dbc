// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package pkarr

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/tv42/zbase32"

	"github.com/aumos-ai/did-pkarr/packet"
)

// MemoryClient is an in-process Client. A stored packet is only replaced by a
// more recent one.
type MemoryClient struct {
	mu      sync.RWMutex
	packets map[string]*packet.SignedPacket
}

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{packets: make(map[string]*packet.SignedPacket)}
}

// Resolve returns the stored packet for pub.
func (c *MemoryClient) Resolve(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.packets[zbase32.EncodeToString(pub)]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ResolveMostRecent is Resolve; a single store is always up to date.
func (c *MemoryClient) ResolveMostRecent(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error) {
	return c.Resolve(ctx, pub)
}

// Publish stores p unless a more recent packet is already held. Publishing
// the identical packet again is a no-op.
func (c *MemoryClient) Publish(ctx context.Context, p *packet.SignedPacket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.Origin()
	if existing, ok := c.packets[key]; ok && existing.MoreRecentThan(p) {
		return ErrNotMostRecent
	}
	c.packets[key] = p
	return nil
}

// Len returns the number of stored keys.
func (c *MemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.packets)
}
