package cas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestPayloadStore_WriteAndRead(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("payload-bytes")
	digest := digestOf(data)

	path, err := store.Write(ctx, digest, data)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), digest[:2], digest), path)

	stored, err := store.Read(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestPayloadStore_WriteIsIdempotent(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("payload-bytes")
	digest := digestOf(data)

	first, err := store.Write(ctx, digest, data)
	require.NoError(t, err)

	// A second write of the same digest must not touch the stored file.
	info, err := os.Stat(first)
	require.NoError(t, err)
	before := info.ModTime()

	second, err := store.Write(ctx, digest, data)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err = os.Stat(first)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}

func TestPayloadStore_ShardsByDigestPrefix(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a := []byte("first")
	b := []byte("second")

	pathA, err := store.Write(ctx, digestOf(a), a)
	require.NoError(t, err)
	pathB, err := store.Write(ctx, digestOf(b), b)
	require.NoError(t, err)

	assert.Equal(t, digestOf(a)[:2], filepath.Base(filepath.Dir(pathA)))
	assert.Equal(t, digestOf(b)[:2], filepath.Base(filepath.Dir(pathB)))
}

func TestPayloadStore_RejectsInvalidDigest(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "x", []byte("data"))
	assert.Error(t, err)

	_, err = store.Read(context.Background(), "")
	assert.Error(t, err)
}

func TestPayloadStore_ReadMissingDigestFails(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(context.Background(), digestOf([]byte("never written")))
	assert.Error(t, err)
}
