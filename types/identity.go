// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package types defines shared value types used across the did:pkarr module.
package types

import "time"

// DIDMethod enumerates the Decentralized Identifier methods this module knows about.
type DIDMethod string

const (
	DIDMethodKey   DIDMethod = "key"
	DIDMethodPkarr DIDMethod = "pkarr"
)

// KeyAlgorithm identifies the cryptographic algorithm used by a key pair.
type KeyAlgorithm string

const (
	KeyAlgorithmEd25519 KeyAlgorithm = "Ed25519"
)

// VerificationMethodType identifies the type of a rendered DID verification method.
type VerificationMethodType string

const (
	VerificationMethodEd25519 VerificationMethodType = "Ed25519VerificationKey2020"
)

// IdentityStatus represents the lifecycle state of a locally managed identity.
type IdentityStatus string

const (
	// StatusPublished indicates the last document was accepted by the network.
	StatusPublished IdentityStatus = "published"
	// StatusPending indicates the document was built but publishing failed.
	StatusPending IdentityStatus = "pending"
)

// PublishRecord captures metadata about one publish of a did:pkarr document.
type PublishRecord struct {
	DID         string    `json:"did"`
	KeyID       string    `json:"keyId"`
	Timestamp   uint64    `json:"timestamp"`
	PublishedAt time.Time `json:"publishedAt"`
}
