package keys

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultGetKeyByName(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Store.Add(&Key{Name: "recipient-1", Value: make([]byte, 16)}))

	key, err := mgr.GetKey(KeyInfoHint{Name: "recipient-1"}, &KeyInfoCtx{KeyReq: Requirement{KeyType: DataTypeSymmetric}})
	require.NoError(t, err)
	require.Equal(t, "recipient-1", key.Name)
}

func TestDefaultGetKeyUnknownNameFails(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	_, err := mgr.GetKey(KeyInfoHint{Name: "nobody"}, &KeyInfoCtx{})
	require.Error(t, err)
}

func TestDefaultGetKeyInlinePassesThrough(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	inline := &Key{Value: []byte{1, 2, 3}}
	key, err := mgr.GetKey(KeyInfoHint{Inline: inline}, &KeyInfoCtx{})
	require.NoError(t, err)
	require.Same(t, inline, key)
}

func TestDefaultGetKeyNoHintFails(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	_, err := mgr.GetKey(KeyInfoHint{}, &KeyInfoCtx{})
	require.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/keys.xml"

	mgr := NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Store.Add(&Key{Name: "cek", Value: []byte("0123456789abcdef")}))
	require.NoError(t, mgr.Save(path, DataTypeAny))

	loaded := NewSimpleKeysManager(nil)
	require.NoError(t, loaded.Load(path, true))
	require.Equal(t, 1, loaded.Store.Len())

	key := loaded.Store.Find("cek", Requirement{})
	require.NotNil(t, key)
	require.Equal(t, []byte("0123456789abcdef"), key.Value)
}

// keysXMLFixture builds a Keys document (§6's root Keys in the xmlsec
// namespace, KeyInfo children in the dsig namespace) with the given raw
// KeyInfo bodies spliced in verbatim, so a test can inject a malformed
// entry alongside well-formed ones.
func keysXMLFixture(keyInfoBodies ...string) string {
	doc := `<Keys xmlns="` + nsXMLSec + `" xmlns:dsig="` + nsDSig + `">`
	for _, body := range keyInfoBodies {
		doc += body
	}
	return doc + `</Keys>`
}

func keyInfoNameValue(name string, value []byte) string {
	return `<dsig:KeyInfo><dsig:KeyName>` + name + `</dsig:KeyName><dsig:KeyValue>` +
		base64.StdEncoding.EncodeToString(value) + `</dsig:KeyValue></dsig:KeyInfo>`
}

// TestLoadFindsNamedEntryAndRejectsUnknownName is scenario S1: loading a
// keys.xml with three distinct KeyInfo entries, finding the second one by
// name, and finding nothing for a name that was never loaded.
func TestLoadFindsNamedEntryAndRejectsUnknownName(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/keys.xml"
	xml := keysXMLFixture(
		keyInfoNameValue("alice", make([]byte, 16)),
		keyInfoNameValue("bob", []byte("0123456789abcdef")),
		keyInfoNameValue("carol", make([]byte, 32)),
	)
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o600))

	mgr := NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Load(path, true))
	require.Equal(t, 3, mgr.Store.Len())

	found := mgr.Store.Find("bob", Requirement{KeyType: DataTypeSymmetric, Size: 128})
	require.NotNil(t, found)
	require.Equal(t, "bob", found.Name)
	require.Equal(t, []byte("0123456789abcdef"), found.Value)

	require.Nil(t, mgr.Store.Find("nobody", Requirement{KeyType: DataTypeAny}))
}

// TestLoadNonStrictSkipsMalformedKeyInfo is scenario S2: a non-strict load
// where the middle KeyInfo is malformed (empty of any usable material)
// leaves the store at size 2, with no error surfaced.
func TestLoadNonStrictSkipsMalformedKeyInfo(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/keys.xml"
	xml := keysXMLFixture(
		keyInfoNameValue("alice", make([]byte, 16)),
		`<dsig:KeyInfo><dsig:KeyName>nothing-here</dsig:KeyName></dsig:KeyInfo>`,
		keyInfoNameValue("carol", make([]byte, 32)),
	)
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o600))

	mgr := NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Load(path, false))
	require.Equal(t, 2, mgr.Store.Len())
}

func TestLoadStrictAbortsOnMalformedKeyInfo(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/keys.xml"
	xml := keysXMLFixture(`<dsig:KeyInfo><dsig:KeyName>nothing-here</dsig:KeyName></dsig:KeyInfo>`)
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o600))

	mgr := NewSimpleKeysManager(nil)
	require.Error(t, mgr.Load(path, true))
}

func TestLoadRejectsNonKeyInfoChild(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/keys.xml"
	xml := `<Keys xmlns="` + nsXMLSec + `"><Bogus/></Keys>`
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o600))

	mgr := NewSimpleKeysManager(nil)
	require.Error(t, mgr.Load(path, false))
}
