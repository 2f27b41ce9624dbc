// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"errors"
	"fmt"
)

// DecodeErrorKind names the stage of TXT decoding that failed.
type DecodeErrorKind int

const (
	TooManyAttrs DecodeErrorKind = iota + 1
	AkaParse
	VmParse
	VrParse
	ListAssembly
	LengthMismatch
	UnknownRelationshipBits
)

var decodeErrorKindNames = map[DecodeErrorKind]string{
	TooManyAttrs:            "encountered too many attributes",
	AkaParse:                "failed to parse aka string",
	VmParse:                 "failed to parse vm string",
	VrParse:                 "failed to parse vr string",
	ListAssembly:            "failed to assemble attrs into lists",
	LengthMismatch:          "vm and vr lists differ in length",
	UnknownRelationshipBits: "vr contains unknown relationship bits",
}

func (k DecodeErrorKind) String() string {
	if s, ok := decodeErrorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// Sentinels for errors.Is matching against a *DecodeError of the same kind.
var (
	ErrTooManyAttrs            = &DecodeError{Kind: TooManyAttrs}
	ErrAkaParse                = &DecodeError{Kind: AkaParse}
	ErrVmParse                 = &DecodeError{Kind: VmParse}
	ErrVrParse                 = &DecodeError{Kind: VrParse}
	ErrListAssembly            = &DecodeError{Kind: ListAssembly}
	ErrLengthMismatch          = &DecodeError{Kind: LengthMismatch}
	ErrUnknownRelationshipBits = &DecodeError{Kind: UnknownRelationshipBits}
)

// DecodeError is returned when a TXT record cannot be turned into Contents.
// Every kind is permanent: retrying the same bytes gives the same result.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "document: decode txt: " + e.Kind.String()
	}
	return fmt.Sprintf("document: decode txt: %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches any *DecodeError with the same Kind.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

// ListAssemblyErrorKind names why indexed attributes could not form a list.
type ListAssemblyErrorKind int

const (
	KeySuffixNotU8 ListAssemblyErrorKind = iota + 1
	SkippedIndex
	DuplicateIndex
	DuplicateKey
)

var listAssemblyErrorKindNames = map[ListAssemblyErrorKind]string{
	KeySuffixNotU8: "key suffix could not be parsed into a u8",
	SkippedIndex:   "skipped an index for the keys",
	DuplicateIndex: "index was encountered twice for same key",
	DuplicateKey:   "attribute key was encountered twice",
}

func (k ListAssemblyErrorKind) String() string {
	if s, ok := listAssemblyErrorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ListAssemblyErrorKind(%d)", int(k))
}

// Sentinels for errors.Is matching against a *ListAssemblyError of the same kind.
var (
	ErrKeySuffixNotU8 = &ListAssemblyError{Kind: KeySuffixNotU8}
	ErrSkippedIndex   = &ListAssemblyError{Kind: SkippedIndex}
	ErrDuplicateIndex = &ListAssemblyError{Kind: DuplicateIndex}
	ErrDuplicateKey   = &ListAssemblyError{Kind: DuplicateKey}
)

// ListAssemblyError reports the offending attribute key.
type ListAssemblyError struct {
	Kind ListAssemblyErrorKind
	Key  string
	Err  error
}

func (e *ListAssemblyError) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key %q)", msg, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ListAssemblyError) Unwrap() error { return e.Err }

// Is matches any *ListAssemblyError with the same Kind.
func (e *ListAssemblyError) Is(target error) bool {
	t, ok := target.(*ListAssemblyError)
	return ok && t.Kind == e.Kind
}

var (
	// ErrKeyMismatch means the signing key does not belong to the document.
	ErrKeyMismatch = errors.New("signing key did not match verifying key")
	// ErrNoDidPkarrTxtRecord means the packet has no _did_pkarr TXT record.
	ErrNoDidPkarrTxtRecord = errors.New("missing a _did_pkarr TXT record")
	// ErrMultipleDidPkarrRecords means the packet is ambiguous.
	ErrMultipleDidPkarrRecords = errors.New("encountered more than one _did_pkarr record")
	// ErrEmptyRelationship is returned by the builder for a method granted nothing.
	ErrEmptyRelationship = errors.New("verification method had no known relationship bits set")
)

// ToPacketError wraps failures converting a Document into a signed packet.
type ToPacketError struct {
	Err error
}

func (e *ToPacketError) Error() string {
	return "document: failed to convert to pkarr packet: " + e.Err.Error()
}

func (e *ToPacketError) Unwrap() error { return e.Err }

// FromPacketError wraps failures converting a signed packet into a Document.
type FromPacketError struct {
	Err error
}

func (e *FromPacketError) Error() string {
	return "document: failed to convert from pkarr packet: " + e.Err.Error()
}

func (e *FromPacketError) Unwrap() error { return e.Err }
