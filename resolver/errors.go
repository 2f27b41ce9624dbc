// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package resolver

import "fmt"

// ResolveErrorKind classifies a failed resolution.
type ResolveErrorKind int

const (
	// NotFound means no packet could be fetched. It may be transient.
	NotFound ResolveErrorKind = iota + 1
	// Invalid means a packet was fetched but is not a valid document.
	Invalid
)

func (k ResolveErrorKind) String() string {
	switch k {
	case NotFound:
		return "could not resolve with pkarr"
	case Invalid:
		return "failed to convert from pkarr into DID document"
	default:
		return fmt.Sprintf("ResolveErrorKind(%d)", int(k))
	}
}

// ResolveError is returned by Resolve and ResolveMostRecent.
type ResolveError struct {
	Kind ResolveErrorKind
	DID  string
	Err  error
}

func (e *ResolveError) Error() string {
	msg := "resolver: " + e.Kind.String()
	if e.DID != "" {
		msg += " " + e.DID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Is matches any *ResolveError of the same Kind.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	return ok && t.Kind == e.Kind
}

// PublishErrorKind classifies a failed publish.
type PublishErrorKind int

const (
	// ToPkarr means the document could not be signed into a packet, for
	// example because of a key mismatch. Retrying will not help.
	ToPkarr PublishErrorKind = iota + 1
	// IO means the network client failed to store the packet.
	IO
)

func (k PublishErrorKind) String() string {
	switch k {
	case ToPkarr:
		return "failed to convert to pkarr packet"
	case IO:
		return "failed to publish packet"
	default:
		return fmt.Sprintf("PublishErrorKind(%d)", int(k))
	}
}

// PublishError is returned by Publish.
type PublishError struct {
	Kind PublishErrorKind
	Err  error
}

func (e *PublishError) Error() string {
	if e.Err == nil {
		return "resolver: " + e.Kind.String()
	}
	return "resolver: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *PublishError) Unwrap() error { return e.Err }

// Is matches any *PublishError of the same Kind.
func (e *PublishError) Is(target error) bool {
	t, ok := target.(*PublishError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound = &ResolveError{Kind: NotFound}
	ErrInvalid  = &ResolveError{Kind: Invalid}
	ErrToPkarr  = &PublishError{Kind: ToPkarr}
	ErrIO       = &PublishError{Kind: IO}
)
