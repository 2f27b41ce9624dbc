// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"errors"
	"fmt"
	"net/url"
)

// URI is an absolute URI used as an also-known-as alias. It keeps the text it
// was parsed from so printing never re-encodes it.
type URI struct {
	raw string
}

// ParseURI validates s as an absolute URI.
func ParseURI(s string) (URI, error) {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] == 0x7f {
			return URI{}, fmt.Errorf("document: uri %q: invalid character at %d", s, i)
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return URI{}, fmt.Errorf("document: uri: %w", err)
	}
	if u.Scheme == "" {
		return URI{}, fmt.Errorf("document: uri %q: %w", s, errMissingScheme)
	}
	return URI{raw: s}, nil
}

var errMissingScheme = errors.New("missing scheme")

// MustParseURI is like ParseURI but panics on error.
func MustParseURI(s string) URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string { return u.raw }
