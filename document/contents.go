// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	akaPrefix = "aka"
	vmPrefix  = "vm"
	vrKey     = "vr"

	// maxAttributes bounds the record because list indices are a single byte.
	maxAttributes = 255
)

var vrEncoding = base64.RawURLEncoding.Strict()

// Contents is everything in a did:pkarr document except its id. It maps 1:1
// onto the character-strings of the _did_pkarr TXT record.
type Contents struct {
	// AlsoKnownAs lists alternative identifiers for the subject.
	AlsoKnownAs []URI
	// Methods and Relationships are parallel: Relationships[i] is what
	// Methods[i] may be used for.
	Methods       []VerificationMethod
	Relationships []VerificationRelationship
}

// Equal reports whether both contents hold the same values in the same order.
func (c Contents) Equal(other Contents) bool {
	return slices.Equal(c.AlsoKnownAs, other.AlsoKnownAs) &&
		slices.EqualFunc(c.Methods, other.Methods, func(a, b VerificationMethod) bool {
			return a.String() == b.String()
		}) &&
		slices.Equal(c.Relationships, other.Relationships)
}

// TXT encodes c as TXT character-strings:
//
//	aka<N>=<uri>  vm<N>=<did>  vr=<base64url of one byte per method>
//
// The strings are ordered by attribute key.
func (c Contents) TXT() []string {
	type attr struct{ key, value string }
	attrs := make([]attr, 0, len(c.AlsoKnownAs)+len(c.Methods)+1)
	for i, u := range c.AlsoKnownAs {
		attrs = append(attrs, attr{akaPrefix + strconv.Itoa(i), u.String()})
	}
	for i, m := range c.Methods {
		attrs = append(attrs, attr{vmPrefix + strconv.Itoa(i), m.String()})
	}
	vr := make([]byte, len(c.Relationships))
	for i, r := range c.Relationships {
		vr[i] = r.Bits()
	}
	attrs = append(attrs, attr{vrKey, vrEncoding.EncodeToString(vr)})

	// aka10 sorts before aka2, so sort on the key rather than by position.
	slices.SortFunc(attrs, func(a, b attr) int { return cmp.Compare(a.key, b.key) })

	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.key + "=" + a.value
	}
	return out
}

// Attribute is a key=value TXT attribute that decoding did not interpret.
type Attribute struct {
	Key   string
	Value string
}

func (a Attribute) String() string { return a.Key + "=" + a.Value }

// Decoded is the result of ParseTXT: the document contents plus the
// attributes this version does not understand.
type Decoded struct {
	Contents Contents
	// Valueless holds keys that appeared without an '=' sign.
	Valueless []string
	// Unknown holds attributes other than aka<N>, vm<N> and vr.
	Unknown []Attribute
}

// DecodeTXT decodes TXT character-strings into Contents.
func DecodeTXT(txt []string, opts ...DecodeOption) (Contents, error) {
	d, err := ParseTXT(txt, opts...)
	if err != nil {
		return Contents{}, err
	}
	return d.Contents, nil
}

// ParseTXT decodes TXT character-strings and also reports attributes it
// ignored.
func ParseTXT(txt []string, opts ...DecodeOption) (*Decoded, error) {
	o := newDecodeOptions(opts)

	if len(txt) >= maxAttributes {
		return nil, &DecodeError{Kind: TooManyAttrs, Err: fmt.Errorf("got %d", len(txt))}
	}

	a, err := assembleLists(txt)
	if err != nil {
		return nil, &DecodeError{Kind: ListAssembly, Err: err}
	}

	out := &Decoded{Valueless: a.valueless}
	slices.Sort(out.Valueless)

	for _, s := range a.lists[akaPrefix] {
		u, err := ParseURI(s)
		if err != nil {
			return nil, &DecodeError{Kind: AkaParse, Err: err}
		}
		out.Contents.AlsoKnownAs = append(out.Contents.AlsoKnownAs, u)
	}

	for _, s := range a.lists[vmPrefix] {
		m, err := ParseVerificationMethod(s)
		if err != nil {
			return nil, &DecodeError{Kind: VmParse, Err: err}
		}
		out.Contents.Methods = append(out.Contents.Methods, m)
	}

	raw, err := vrEncoding.DecodeString(a.singletons[vrKey])
	if err != nil {
		return nil, &DecodeError{Kind: VrParse, Err: err}
	}
	for i, b := range raw {
		r := VerificationRelationship(b)
		if r.HasUnknownBits() && o.strictRelationships {
			return nil, &DecodeError{
				Kind: UnknownRelationshipBits,
				Err:  fmt.Errorf("vr[%d] = %#02x", i, b),
			}
		}
		out.Contents.Relationships = append(out.Contents.Relationships, RelationshipFromBits(b))
	}

	if len(out.Contents.Methods) != len(out.Contents.Relationships) {
		return nil, &DecodeError{
			Kind: LengthMismatch,
			Err:  fmt.Errorf("%d vm entries, %d vr entries", len(out.Contents.Methods), len(out.Contents.Relationships)),
		}
	}

	for key, value := range a.singletons {
		if key != vrKey {
			out.Unknown = append(out.Unknown, Attribute{Key: key, Value: value})
		}
	}
	for prefix, values := range a.lists {
		if prefix == akaPrefix || prefix == vmPrefix {
			continue
		}
		for i, v := range values {
			out.Unknown = append(out.Unknown, Attribute{Key: prefix + strconv.Itoa(i), Value: v})
		}
	}
	slices.SortFunc(out.Unknown, func(a, b Attribute) int { return cmp.Compare(a.Key, b.Key) })

	return out, nil
}

type assembled struct {
	valueless  []string
	singletons map[string]string
	lists      map[string][]string
}

// assembleLists groups key<N>=value attributes into dense per-key lists and
// key=value attributes into singletons. Keys without '=' are collected as
// valueless.
func assembleLists(txt []string) (*assembled, error) {
	a := &assembled{
		singletons: make(map[string]string),
		lists:      make(map[string][]string),
	}
	indexed := make(map[string]map[uint8]string)

	for _, s := range txt {
		key, value, hasValue := strings.Cut(s, "=")
		if !hasValue {
			if !slices.Contains(a.valueless, key) {
				a.valueless = append(a.valueless, key)
			}
			continue
		}
		prefix, idx, isIndexed, err := splitIndex(key)
		if err != nil {
			return nil, &ListAssemblyError{Kind: KeySuffixNotU8, Key: key, Err: err}
		}
		if !isIndexed {
			if _, dup := a.singletons[key]; dup {
				return nil, &ListAssemblyError{Kind: DuplicateKey, Key: key}
			}
			a.singletons[key] = value
			continue
		}
		values, ok := indexed[prefix]
		if !ok {
			values = make(map[uint8]string)
			indexed[prefix] = values
		}
		if _, dup := values[idx]; dup {
			return nil, &ListAssemblyError{Kind: DuplicateIndex, Key: key}
		}
		values[idx] = value
	}

	for prefix, values := range indexed {
		list := make([]string, len(values))
		for i := range list {
			v, ok := values[uint8(i)]
			if !ok {
				return nil, &ListAssemblyError{Kind: SkippedIndex, Key: prefix + strconv.Itoa(i)}
			}
			list[i] = v
		}
		a.lists[prefix] = list
	}
	return a, nil
}

// splitIndex splits key at its first ASCII digit. Everything from there on
// must parse as a u8.
func splitIndex(key string) (prefix string, idx uint8, indexed bool, err error) {
	i := strings.IndexFunc(key, func(r rune) bool { return '0' <= r && r <= '9' })
	if i < 0 {
		return key, 0, false, nil
	}
	n, err := strconv.ParseUint(key[i:], 10, 8)
	if err != nil {
		return "", 0, false, err
	}
	return key[:i], uint8(n), true, nil
}
