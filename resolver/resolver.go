// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package resolver resolves did:pkarr identifiers to documents and publishes
// documents, on top of any pkarr.Client.
package resolver

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/packet"
	"github.com/aumos-ai/did-pkarr/pkarr"
)

// Resolver is safe for concurrent use. Calls are independent; retries and
// timeouts belong to the client.
type Resolver struct {
	client     pkarr.Client
	logger     *slog.Logger
	cache      *expirable.LRU[string, *document.Document]
	decodeOpts []document.DecodeOption
	now        func() packet.Timestamp
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithCache keeps up to size resolved documents for ttl. Only Resolve reads
// from the cache; ResolveMostRecent and Publish refresh it.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.cache = expirable.NewLRU[string, *document.Document](size, nil, ttl)
		}
	}
}

// WithDecodeOptions applies document decode options to every resolution.
func WithDecodeOptions(opts ...document.DecodeOption) Option {
	return func(r *Resolver) { r.decodeOpts = append(r.decodeOpts, opts...) }
}

// WithClock overrides the clock used when Publish is given no timestamp.
func WithClock(now func() packet.Timestamp) Option {
	return func(r *Resolver) { r.now = now }
}

// New returns a Resolver backed by client.
func New(client pkarr.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		logger: slog.Default(),
		now:    packet.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches some valid packet for id and decodes its document.
func (r *Resolver) Resolve(ctx context.Context, id did.Pkarr) (*document.Document, error) {
	if r.cache != nil {
		if doc, ok := r.cache.Get(id.Z32()); ok {
			r.logger.DebugContext(ctx, "resolver: cache hit", slog.String("did", id.String()))
			return doc, nil
		}
	}
	return r.resolve(ctx, id, r.client.Resolve)
}

// ResolveMostRecent asks the client for the newest packet across all of its
// sources. It trades latency for freshness and never answers from the cache.
func (r *Resolver) ResolveMostRecent(ctx context.Context, id did.Pkarr) (*document.Document, error) {
	return r.resolve(ctx, id, r.client.ResolveMostRecent)
}

type fetchFunc func(context.Context, ed25519.PublicKey) (*packet.SignedPacket, error)

func (r *Resolver) resolve(ctx context.Context, id did.Pkarr, fetch fetchFunc) (*document.Document, error) {
	p, err := fetch(ctx, id.PublicKey())
	if err != nil {
		if !errors.Is(err, pkarr.ErrNotFound) {
			r.logger.WarnContext(ctx, "resolver: client failed",
				slog.String("did", id.String()), slog.Any("error", err))
		}
		return nil, &ResolveError{Kind: NotFound, DID: id.String(), Err: err}
	}

	doc, err := document.FromPacket(p, r.decodeOpts...)
	if err != nil {
		r.logger.WarnContext(ctx, "resolver: invalid document",
			slog.String("did", id.String()), slog.Any("error", err))
		return nil, &ResolveError{Kind: Invalid, DID: id.String(), Err: err}
	}

	if r.cache != nil {
		r.cache.Add(id.Z32(), doc)
	}
	r.logger.DebugContext(ctx, "resolver: resolved",
		slog.String("did", id.String()), slog.Uint64("timestamp", uint64(p.Timestamp())))
	return doc, nil
}

// PublishOption configures Publish.
type PublishOption func(*publishOptions)

type publishOptions struct {
	timestamp    packet.Timestamp
	hasTimestamp bool
}

// AtTimestamp stamps the packet with ts instead of the current time.
func AtTimestamp(ts packet.Timestamp) PublishOption {
	return func(o *publishOptions) {
		o.timestamp = ts
		o.hasTimestamp = true
	}
}

// Publish signs doc with signingKey and hands it to the client. The key must
// belong to the document.
func (r *Resolver) Publish(ctx context.Context, doc *document.Document, signingKey ed25519.PrivateKey, opts ...PublishOption) error {
	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}
	ts := o.timestamp
	if !o.hasTimestamp {
		ts = r.now()
	}

	p, err := doc.ToPacket(signingKey, ts)
	if err != nil {
		return &PublishError{Kind: ToPkarr, Err: err}
	}
	if err := r.client.Publish(ctx, p); err != nil {
		return &PublishError{Kind: IO, Err: err}
	}

	if r.cache != nil {
		r.cache.Add(doc.ID().Z32(), doc)
	}
	r.logger.InfoContext(ctx, "resolver: published",
		slog.String("did", doc.DID().String()), slog.Uint64("timestamp", uint64(ts)))
	return nil
}
