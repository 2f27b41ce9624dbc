// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package keys

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumos-ai/did-pkarr/types"
)

func TestGenerateSignVerify(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryKeyStore()

	kp, err := s.Generate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, kp.KeyID)
	assert.Equal(t, types.KeyAlgorithmEd25519, kp.Algorithm)

	sig, err := s.Sign(ctx, kp.KeyID, []byte("hello"))
	require.NoError(t, err)
	assert.NoError(t, Verify(kp.PublicKey, []byte("hello"), sig))
	assert.Error(t, Verify(kp.PublicKey, []byte("other"), sig))

	id, err := kp.DID()
	require.NoError(t, err)
	assert.Equal(t, "pkarr", id.DID().Method())
}

func TestImportIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryKeyStore()
	// RFC 8032 section 7.1, test 1.
	seed, err := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)

	kp, err := s.Import(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", hex.EncodeToString(kp.PublicKey))

	_, err = s.Import(ctx, seed[:10])
	assert.Error(t, err)
}

func TestLoadListDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryKeyStore()

	a, err := s.Generate(ctx)
	require.NoError(t, err)
	b, err := s.Generate(ctx)
	require.NoError(t, err)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.KeyID, b.KeyID}, ids)

	got, err := s.Load(ctx, a.KeyID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	require.NoError(t, s.Delete(ctx, a.KeyID))
	_, err = s.Load(ctx, a.KeyID)
	var notFound *types.ErrKeyNotFound
	assert.ErrorAs(t, err, &notFound)

	_, err = s.Sign(ctx, a.KeyID, nil)
	assert.ErrorAs(t, err, &notFound)
}

func TestStoreValidation(t *testing.T) {
	s := NewInMemoryKeyStore()
	assert.Error(t, s.Store(context.Background(), nil))
	assert.Error(t, s.Store(context.Background(), &KeyPair{}))
	assert.Error(t, s.Store(context.Background(), &KeyPair{KeyID: "x", PublicKey: make([]byte, 3)}))
}

func TestSeedFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryKeyStore()
	kp, err := s.Generate(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.hex")
	require.NoError(t, SaveSeed(path, kp))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadSeed(ctx, s, path)
	require.NoError(t, err)
	assert.True(t, kp.PublicKey.Equal(loaded.PublicKey))
	assert.NotEqual(t, kp.KeyID, loaded.KeyID)

	require.NoError(t, os.WriteFile(path, []byte("zz"), 0o600))
	_, err = LoadSeed(ctx, s, path)
	assert.Error(t, err)

	assert.Error(t, SaveSeed(path, &KeyPair{KeyID: "pub-only"}))
}
