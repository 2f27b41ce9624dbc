// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package packet

import (
	"strings"

	"github.com/miekg/dns"
)

// MaxCharacterString is the longest byte string a single TXT
// character-string can carry on the wire.
const MaxCharacterString = 255

// TXTStrings returns the raw character-strings of rr. miekg/dns keeps TXT
// data in presentation form, so escapes added while unpacking are undone.
func TXTStrings(rr *dns.TXT) []string {
	out := make([]string, len(rr.Txt))
	for i, s := range rr.Txt {
		out[i] = unescapeTXT(s)
	}
	return out
}

// escapeTXT prepares a raw string for packing. The packer interprets
// backslash escapes, so only the backslash itself needs quoting.
func escapeTXT(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return strings.ReplaceAll(s, `\`, `\\`)
}

// unescapeTXT reverses the \X and \DDD escapes produced by the unpacker.
func unescapeTXT(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			v := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			if v <= 0xff {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
