// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package resolver

import (
	"context"
	"crypto/ed25519"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
)

// Future is the pending result of an Async call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func goFuture[T any](f func() (T, error)) *Future[T] {
	fut := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(fut.done)
		fut.val, fut.err = f()
	}()
	return fut
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is ready or ctx is done. Cancelling ctx
// stops the wait, not the underlying call.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is ready.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Async runs Resolver calls on their own goroutines, for callers that fan
// out many resolutions at once.
type Async struct {
	r *Resolver
}

// NewAsync wraps r.
func NewAsync(r *Resolver) *Async { return &Async{r: r} }

// Resolve starts Resolver.Resolve.
func (a *Async) Resolve(ctx context.Context, id did.Pkarr) *Future[*document.Document] {
	return goFuture(func() (*document.Document, error) { return a.r.Resolve(ctx, id) })
}

// ResolveMostRecent starts Resolver.ResolveMostRecent.
func (a *Async) ResolveMostRecent(ctx context.Context, id did.Pkarr) *Future[*document.Document] {
	return goFuture(func() (*document.Document, error) { return a.r.ResolveMostRecent(ctx, id) })
}

// Publish starts Resolver.Publish.
func (a *Async) Publish(ctx context.Context, doc *document.Document, signingKey ed25519.PrivateKey, opts ...PublishOption) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, a.r.Publish(ctx, doc, signingKey, opts...)
	})
}
