package keys

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readium/xmlenc/dom"
)

func newKeyInfoElement(t *testing.T) *dom.Element {
	t.Helper()
	doc := dom.NewDocument()
	root := doc.NewRoot("dsig", "KeyInfo", nsDSig)
	return root
}

func TestReadKeyInfoByKeyName(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Store.Add(&Key{Name: "recipient", Value: make([]byte, 16)}))

	node := newKeyInfoElement(t)
	node.CreateChild("dsig", "KeyName").SetText("recipient")

	ctx := NewKeyInfoCtx(ModeRead, mgr)
	ctx.KeyReq = Requirement{KeyType: DataTypeSymmetric}
	key, err := ReadKeyInfo(node, ctx)
	require.NoError(t, err)
	require.Equal(t, "recipient", key.Name)
}

func TestReadKeyInfoBareKeyValue(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	node := newKeyInfoElement(t)
	node.CreateChild("dsig", "KeyValue").SetText(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef")))

	ctx := NewKeyInfoCtx(ModeRead, mgr)
	key, err := ReadKeyInfo(node, ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef"), key.Value)
}

func TestReadKeyInfoMissingHintFails(t *testing.T) {
	mgr := NewSimpleKeysManager(nil)
	node := newKeyInfoElement(t)
	ctx := NewKeyInfoCtx(ModeRead, mgr)
	_, err := ReadKeyInfo(node, ctx)
	require.Error(t, err)
}

func TestWriteKeyInfoEmitsKeyNameOnly(t *testing.T) {
	node := newKeyInfoElement(t)
	ctx := NewKeyInfoCtx(ModeWrite, NewSimpleKeysManager(nil))
	require.NoError(t, WriteKeyInfo(node, &Key{Name: "cek-1"}, ctx))

	nameNode := node.FirstChild("KeyName", nsDSig)
	require.NotNil(t, nameNode)
	require.Equal(t, "cek-1", nameNode.Text())
	require.Len(t, node.Children(), 1)
	require.Equal(t, DataTypePublic, ctx.KeyReq.KeyType)
}

func TestWriteKeyInfoIncludesCertificate(t *testing.T) {
	cert := selfSignedCert(t, "signer")
	node := newKeyInfoElement(t)
	ctx := NewKeyInfoCtx(ModeWrite, NewSimpleKeysManager(nil))
	require.NoError(t, WriteKeyInfo(node, &Key{Name: "signer", Cert: cert}, ctx))

	x509Data := node.FirstChild("X509Data", nsDSig)
	require.NotNil(t, x509Data)
	certNode := x509Data.FirstChild("X509Certificate", nsDSig)
	require.NotNil(t, certNode)

	decoded, err := base64.StdEncoding.DecodeString(certNode.Text())
	require.NoError(t, err)
	require.Equal(t, cert.Raw, decoded)
}
