package cas_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/cas"
	"go.trai.ch/dexer/internal/core/domain"
)

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	info := domain.BuildInfo{
		Key:          "/project/build/outputs/dex/classes.dex",
		InputHash:    "abc",
		OutputHash:   "def",
		MetadataHash: "ghi",
		ClassCount:   3,
		Timestamp:    time.Now().Truncate(time.Second).UTC(),
	}

	t.Run("put and get", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, store.Put(root, info))

		got, err := store.Get(root, info.Key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, info, *got)
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		got, err := store.Get(root, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStore_FileLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, cas.NewStore().Put(root, domain.BuildInfo{Key: "k"}))

	hash := sha256.Sum256([]byte("k"))
	_, err := os.Stat(filepath.Join(root, ".dexer", "store", hex.EncodeToString(hash[:])+".json"))
	assert.NoError(t, err)
}

func TestStore_Corrupt(t *testing.T) {
	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{Key: "k"}))

	dir := filepath.Join(root, domain.DefaultStorePath())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{ invalid json"), 0o600))

	_, err = store.Get(root, "k")
	assert.ErrorIs(t, err, domain.ErrStoreReadFailed)
}

func TestStore_Delete(t *testing.T) {
	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{Key: "k"}))

	require.NoError(t, store.Delete(root, "k"))
	got, err := store.Get(root, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, store.Delete(root, "k"))
}

func TestStore_PutUnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0o600))

	err := cas.NewStore().Put(root, domain.BuildInfo{Key: "k"})
	require.ErrorIs(t, err, domain.ErrStoreWriteFailed)
	assert.ErrorContains(t, err, root)
}
