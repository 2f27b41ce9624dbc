// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package keys

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// SaveSeed writes the hex encoded seed of kp to path, readable by the owner only.
func SaveSeed(path string, kp *KeyPair) error {
	if len(kp.PrivateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("keys: %s has no private key", kp.KeyID)
	}
	data := hex.EncodeToString(kp.PrivateKey.Seed()) + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("keys: write seed: %w", err)
	}
	return nil
}

// LoadSeed reads a seed written by SaveSeed and imports it into km.
func LoadSeed(ctx context.Context, km KeyManager, path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read seed: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("keys: decode seed %s: %w", path, err)
	}
	return km.Import(ctx, seed)
}
