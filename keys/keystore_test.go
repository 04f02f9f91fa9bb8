package keys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyStoreFindByNameAndRequirement(t *testing.T) {
	store := NewKeyStore()
	require.NoError(t, store.Add(&Key{Name: "cek-1", Value: make([]byte, 16), Algorithm: "aes128-cbc"}))
	require.NoError(t, store.Add(&Key{Name: "cek-2", Value: make([]byte, 32), Algorithm: "aes256-cbc"}))

	found := store.Find("cek-2", Requirement{KeyType: DataTypeSymmetric, Size: 256})
	require.NotNil(t, found)
	require.Equal(t, "cek-2", found.Name)

	require.Nil(t, store.Find("cek-2", Requirement{KeyType: DataTypeSymmetric, Size: 128}))
}

func TestKeyStoreFindReturnsDuplicateNotAlias(t *testing.T) {
	store := NewKeyStore()
	require.NoError(t, store.Add(&Key{Name: "k", Value: []byte{1, 2, 3, 4}}))

	found := store.Find("k", Requirement{})
	found.Value[0] = 0xFF

	again := store.Find("k", Requirement{})
	require.Equal(t, byte(1), again.Value[0], "Find must not hand back a live alias into the store")
}

func TestKeyStoreRejectsNilKey(t *testing.T) {
	store := NewKeyStore()
	require.Error(t, store.Add(nil))
}

func TestKeyStoreGrowsByDoubling(t *testing.T) {
	store := NewKeyStore()
	for i := 0; i < defaultCapacity+1; i++ {
		require.NoError(t, store.Add(&Key{Name: "k"}))
	}
	require.Equal(t, defaultCapacity+1, store.Len())
	require.Equal(t, defaultCapacity*2, store.cap)
}

func TestKeyStoreClearZeroesSymmetricMaterial(t *testing.T) {
	store := NewKeyStore()
	k := &Key{Value: []byte{1, 2, 3}}
	require.NoError(t, store.Add(k))
	store.Clear()
	require.Equal(t, 0, store.Len())
	require.Equal(t, []byte{0, 0, 0}, k.Value)
}

func TestKeyMatches(t *testing.T) {
	k := &Key{Value: make([]byte, 16), Algorithm: "aes128-cbc"}
	require.True(t, k.Matches(Requirement{KeyType: DataTypeSymmetric}))
	require.True(t, k.Matches(Requirement{Algorithm: "aes128-cbc", Size: 128}))
	require.False(t, k.Matches(Requirement{Algorithm: "aes256-cbc"}))
	require.False(t, k.Matches(Requirement{KeyType: DataTypePrivate}))
}

func TestKeyDuplicateCopiesValue(t *testing.T) {
	k := &Key{Value: []byte{1, 2, 3}}
	dup := k.Duplicate()
	dup.Value[0] = 9
	require.Equal(t, byte(1), k.Value[0])
}
