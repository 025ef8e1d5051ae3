package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/domain"
	"veil/internal/store"
)

func TestPropertyFileStore_TypedRoundTrip(t *testing.T) {
	home := t.TempDir()
	s, err := store.OpenPropertyFileStore(home)
	require.NoError(t, err)

	require.NoError(t, s.SetProperty("name", "alice"))
	require.NoError(t, s.SetProperty("count", 42))
	require.NoError(t, s.SetProperty("flag", true))
	require.NoError(t, s.SetProperty("blob", []byte{0x00, 0xff}))

	reopened, err := store.OpenPropertyFileStore(home)
	require.NoError(t, err)

	assert.Equal(t, "alice", reopened.GetString("name", ""))
	assert.Equal(t, 42, reopened.GetInt("count", -1))
	assert.True(t, reopened.GetBool("flag", false))
	assert.Equal(t, []byte{0x00, 0xff}, reopened.GetBytes("blob", nil))
}

func TestPropertyFileStore_DefaultsOnMissingOrMalformed(t *testing.T) {
	s := store.NewMemoryPropertyStore()
	require.NoError(t, s.SetProperty("n", "not-a-number"))
	require.NoError(t, s.SetProperty("b", "maybe"))
	require.NoError(t, s.SetProperty("bytes", "%%%"))

	assert.Equal(t, -1, s.GetInt("n", -1))
	assert.False(t, s.GetBool("b", false))
	assert.Nil(t, s.GetBytes("bytes", nil))
	assert.Equal(t, "fallback", s.GetString("missing", "fallback"))
}

func TestPropertyFileStore_UnsupportedValue(t *testing.T) {
	s := store.NewMemoryPropertyStore()
	err := s.SetProperty("k", struct{}{})
	assert.ErrorIs(t, err, store.ErrUnsupportedValue)
}

func TestPropertyFileStore_ListsAndRemove(t *testing.T) {
	home := t.TempDir()
	s, err := store.OpenPropertyFileStore(home)
	require.NoError(t, err)

	require.NoError(t, s.AppendToList("fps", "A"))
	require.NoError(t, s.AppendToList("fps", "B"))
	assert.Equal(t, []string{"A", "B"}, s.GetList("fps"))

	require.NoError(t, s.RemoveProperty("fps"))
	assert.Empty(t, s.GetList("fps"))

	// Removing an absent key is a no-op.
	require.NoError(t, s.RemoveProperty("never-set"))
}

func TestPropertyFileStore_FailedWriteKeepsPreviousValues(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	require.NoError(t, os.MkdirAll(home, 0o700))
	s, err := store.OpenPropertyFileStore(home)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty("name", "alice"))
	require.NoError(t, s.AppendToList("fps", "AA"))

	require.NoError(t, os.RemoveAll(home))

	assert.Error(t, s.SetProperty("name", "bob"))
	assert.Error(t, s.AppendToList("fps", "BB"))
	assert.Error(t, s.RemoveProperty("name"))

	assert.Equal(t, "alice", s.GetString("name", ""))
	assert.Equal(t, []string{"AA"}, s.GetList("fps"))
}

func TestPropertyFileStore_FileMode(t *testing.T) {
	home := t.TempDir()
	s, err := store.OpenPropertyFileStore(home)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty("k", "v"))

	info, err := os.Stat(filepath.Join(home, "properties.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSealedPropertyFileStore_RoundTrip(t *testing.T) {
	home := t.TempDir()
	s, err := store.OpenSealedPropertyFileStore(home, "correct horse")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty("secret", "value"))

	raw, err := os.ReadFile(filepath.Join(home, "properties.json.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "value")

	reopened, err := store.OpenSealedPropertyFileStore(home, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "value", reopened.GetString("secret", ""))
}

func TestSealedPropertyFileStore_WrongPassphrase(t *testing.T) {
	home := t.TempDir()
	s, err := store.OpenSealedPropertyFileStore(home, "right")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty("k", "v"))

	_, err = store.OpenSealedPropertyFileStore(home, "wrong")
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)

	_, err = store.OpenSealedPropertyFileStore(home, "")
	assert.Error(t, err)
}

func TestPropertyFileStore_ImplementsDomain(t *testing.T) {
	var _ domain.PropertyStore = store.NewMemoryPropertyStore()
}
