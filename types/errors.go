// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package types

import "fmt"

// ErrIdentityNotFound is returned when a DID is not present in the local identity store.
type ErrIdentityNotFound struct {
	DID string
}

func (e *ErrIdentityNotFound) Error() string {
	return fmt.Sprintf("identity not found: %s", e.DID)
}

// ErrUnsupportedDIDMethod is returned when a DID uses a method this module does not resolve.
type ErrUnsupportedDIDMethod struct {
	Method string
}

func (e *ErrUnsupportedDIDMethod) Error() string {
	return fmt.Sprintf("unsupported DID method: %s", e.Method)
}

// ErrInvalidDID is returned when a DID string is malformed.
type ErrInvalidDID struct {
	DID    string
	Reason string
}

func (e *ErrInvalidDID) Error() string {
	return fmt.Sprintf("invalid DID %q: %s", e.DID, e.Reason)
}

// ErrKeyNotFound is returned when a key ID cannot be located in the key store.
type ErrKeyNotFound struct {
	KeyID string
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found: %s", e.KeyID)
}

// ErrDIDResolutionFailed is returned when a DID Document cannot be fetched or decoded.
type ErrDIDResolutionFailed struct {
	DID    string
	Reason string
	Err    error
}

func (e *ErrDIDResolutionFailed) Error() string {
	return fmt.Sprintf("DID resolution failed for %s: %s", e.DID, e.Reason)
}

func (e *ErrDIDResolutionFailed) Unwrap() error { return e.Err }
