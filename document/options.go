// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package document

// DecodeOption configures TXT decoding.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	strictRelationships bool
}

// WithStrictRelationships rejects relationship bytes carrying bits this
// version does not know, instead of silently dropping them.
func WithStrictRelationships() DecodeOption {
	return func(o *decodeOptions) { o.strictRelationships = true }
}

// WithRelationshipStrictness is WithStrictRelationships driven by a flag,
// for callers wiring it from configuration.
func WithRelationshipStrictness(strict bool) DecodeOption {
	return func(o *decodeOptions) { o.strictRelationships = strict }
}

func newDecodeOptions(opts []DecodeOption) decodeOptions {
	var o decodeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
