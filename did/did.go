// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package did provides the Decentralized Identifier value types used by the
// rest of the module: a generic DID, a DID URL with an optional fragment, and
// the two concrete methods this module understands, did:key and did:pkarr.
//
// The accepted grammar is deliberately narrower than the W3C DID-URL syntax.
// A DID URL may carry a fragment, but never a path or query.
package did

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const prefix = "did:"

var (
	ErrTooLong               = errors.New("identifier is too long")
	ErrMissingPrefix         = errors.New("did not start with `did:`")
	ErrMissingMethod         = errors.New("missing method")
	ErrInvalidMethod         = errors.New("method must be lowercase alphanumeric")
	ErrEmptyMethodSpecificID = errors.New("method specific id was empty")
	ErrInvalidCharacter      = errors.New("invalid character")
	ErrContainsPath          = errors.New("paths are not allowed")
	ErrContainsQuery         = errors.New("query params are not allowed")
	ErrEmptyFragment         = errors.New("cannot end with fragment specifier `#`")
	ErrMultipleFragments     = errors.New("multiple fragment specifiers `#` encountered")
	ErrContainsFragment      = errors.New("contains a fragment but only DID URLs can have this")
)

// ParseError reports why a string is not a valid DID or DID URL.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("did: parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DID is a Decentralized Identifier of the form did:<method>:<method-specific-id>.
// The zero value is not a valid DID.
type DID struct {
	raw string
	// index of the colon separating the method from the method specific id
	sep int
}

// Parse parses s as a DID. Fragments are rejected, use ParseURL for those.
func Parse(s string) (DID, error) {
	u, err := ParseURL(s)
	if err != nil {
		return DID{}, err
	}
	if u.HasFragment() {
		return DID{}, &ParseError{Input: s, Err: ErrContainsFragment}
	}
	return u.did, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) DID {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the DID exactly as it was parsed.
func (d DID) String() string { return d.raw }

// Method returns the method, e.g. "key" for did:key:z6Mk...
func (d DID) Method() string {
	if d.raw == "" {
		return ""
	}
	return d.raw[len(prefix):d.sep]
}

// MethodSpecificID returns everything after did:<method>:.
func (d DID) MethodSpecificID() string {
	if d.raw == "" {
		return ""
	}
	return d.raw[d.sep+1:]
}

// IsZero reports whether d is the zero value.
func (d DID) IsZero() bool { return d.raw == "" }

// Compare orders DIDs by their string form.
func (d DID) Compare(other DID) int { return strings.Compare(d.raw, other.raw) }

// URL returns d as a DID URL without a fragment.
func (d DID) URL() URL { return URL{did: d} }

// MarshalText implements encoding.TextMarshaler.
func (d DID) MarshalText() ([]byte, error) { return []byte(d.raw), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// URL is a DID optionally followed by a non-empty #fragment.
type URL struct {
	did      DID
	fragment string
}

// ParseURL parses s as a DID URL.
func ParseURL(s string) (URL, error) {
	u, err := parseURL(s)
	if err != nil {
		return URL{}, &ParseError{Input: s, Err: err}
	}
	return u, nil
}

func parseURL(s string) (URL, error) {
	if len(s) > math.MaxUint16 {
		return URL{}, ErrTooLong
	}
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return URL{}, ErrMissingPrefix
	}
	method, msid, ok := strings.Cut(rest, ":")
	if !ok || method == "" {
		return URL{}, ErrMissingMethod
	}
	for i := 0; i < len(method); i++ {
		if !isLowerAlnum(method[i]) {
			return URL{}, ErrInvalidMethod
		}
	}
	if msid == "" || msid[0] == '#' {
		return URL{}, ErrEmptyMethodSpecificID
	}
	if i := strings.IndexAny(msid, "/?"); i >= 0 {
		if msid[i] == '/' {
			return URL{}, ErrContainsPath
		}
		return URL{}, ErrContainsQuery
	}

	id, fragment, hasFragment := strings.Cut(msid, "#")
	if hasFragment {
		if fragment == "" {
			return URL{}, ErrEmptyFragment
		}
		if strings.Contains(fragment, "#") {
			return URL{}, ErrMultipleFragments
		}
		if err := validateChars(fragment, isFragmentChar); err != nil {
			return URL{}, err
		}
	}
	if err := validateChars(id, isIDChar); err != nil {
		return URL{}, err
	}
	// method-specific-id = *( *idchar ":" ) 1*idchar
	if strings.HasSuffix(id, ":") {
		return URL{}, ErrEmptyMethodSpecificID
	}

	sep := len(prefix) + len(method)
	return URL{
		did:      DID{raw: s[:sep+1+len(id)], sep: sep},
		fragment: fragment,
	}, nil
}

// MustParseURL is like ParseURL but panics on error.
func MustParseURL(s string) URL {
	u, err := ParseURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

// DID returns the DID part of the URL.
func (u URL) DID() DID { return u.did }

// Method returns the DID method.
func (u URL) Method() string { return u.did.Method() }

// MethodSpecificID returns the method specific id, without the fragment.
func (u URL) MethodSpecificID() string { return u.did.MethodSpecificID() }

// Fragment returns the fragment without the leading '#', or "" if there is none.
func (u URL) Fragment() string { return u.fragment }

// HasFragment reports whether the URL carries a fragment.
func (u URL) HasFragment() bool { return u.fragment != "" }

// IsZero reports whether u is the zero value.
func (u URL) IsZero() bool { return u.did.IsZero() }

func (u URL) String() string {
	if u.fragment == "" {
		return u.did.raw
	}
	return u.did.raw + "#" + u.fragment
}

// Compare orders DID URLs by their string form.
func (u URL) Compare(other URL) int { return strings.Compare(u.String(), other.String()) }

func validateChars(s string, allowed func(byte) bool) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' {
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return fmt.Errorf("%w: malformed percent encoding at %d", ErrInvalidCharacter, i)
			}
			i += 2
			continue
		}
		if !allowed(c) {
			return fmt.Errorf("%w: %q at %d", ErrInvalidCharacter, c, i)
		}
	}
	return nil
}

func isLowerAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

func isAlnum(c byte) bool {
	return isLowerAlnum(c) || ('A' <= c && c <= 'Z')
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isIDChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '-' || c == '_' || c == ':'
}

func isFragmentChar(c byte) bool {
	if isAlnum(c) {
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@", c) >= 0
}
