package xmlenc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
	"github.com/readium/xmlenc/transform"
)

func sharedKeyManager(t *testing.T, name string, value []byte) *keys.KeysManager {
	t.Helper()
	mgr := keys.NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Store.Add(&keys.Key{Name: name, Value: value}))
	return mgr
}

func withKeyName(t *testing.T, template *dom.Element, name string) {
	t.Helper()
	keyInfo := template.CreateChild("dsig", "KeyInfo")
	keyInfo.SetAttr("xmlns:dsig", NSDSig)
	keyInfo.CreateChild("dsig", "KeyName").SetText(name)
}

func TestBinaryEncryptDecryptRoundTrip(t *testing.T) {
	mgr := sharedKeyManager(t, "cek", make([]byte, 16))

	template := NewEncryptedDataTemplate(transform.AES128CBC)
	withKeyName(t, template, "cek")

	encCtx := NewEncCtx(mgr, nil)
	encCtx.Initialize()
	out, err := encCtx.BinaryEncrypt(context.Background(), template, []byte("the quick brown fox"))
	require.NoError(t, err)
	encCtx.Finalize()

	serialized, err := out.Serialize()
	require.NoError(t, err)

	doc, err := dom.ReadDocument(strings.NewReader(string(serialized)))
	require.NoError(t, err)

	decCtx := NewEncCtx(mgr, nil)
	decCtx.Initialize()
	plaintext, err := decCtx.DecryptToBuffer(context.Background(), doc.Root())
	require.NoError(t, err)
	decCtx.Finalize()

	require.Equal(t, "the quick brown fox", string(plaintext))
}

func TestXMLEncryptElementRoundTrip(t *testing.T) {
	mgr := sharedKeyManager(t, "cek", make([]byte, 16))

	doc, err := dom.ReadDocument(strings.NewReader(`<root xmlns="urn:example:root"><secret>hello world</secret></root>`))
	require.NoError(t, err)
	secret := doc.Root().FirstChild("secret", "urn:example:root")
	require.NotNil(t, secret)

	template := NewEncryptedDataTemplate(transform.AES128CBC)
	template.SetAttr(attrType, TypeElement)
	withKeyName(t, template, "cek")

	encCtx := NewEncCtx(mgr, nil)
	encCtx.Initialize()
	_, err = encCtx.XMLEncrypt(context.Background(), template, secret)
	require.NoError(t, err)
	encCtx.Finalize()

	require.Nil(t, doc.Root().FirstChild("secret", "urn:example:root"))
	encrypted := doc.Root().FirstChild(elEncryptedData, NSEnc)
	require.NotNil(t, encrypted)

	decCtx := NewEncCtx(mgr, nil)
	decCtx.Initialize()
	require.NoError(t, decCtx.Decrypt(context.Background(), encrypted))
	decCtx.Finalize()

	restored := doc.Root().FirstChild("secret", "urn:example:root")
	require.NotNil(t, restored)
	require.Equal(t, "hello world", restored.Text())
}

func TestXMLEncryptContentRoundTrip(t *testing.T) {
	mgr := sharedKeyManager(t, "cek", make([]byte, 16))

	doc, err := dom.ReadDocument(strings.NewReader(`<root xmlns="urn:example:root"><container><a>1</a><b>2</b></container></root>`))
	require.NoError(t, err)
	container := doc.Root().FirstChild("container", "urn:example:root")
	require.NotNil(t, container)

	template := NewEncryptedDataTemplate(transform.AES128CBC)
	template.SetAttr(attrType, TypeContent)
	withKeyName(t, template, "cek")

	encCtx := NewEncCtx(mgr, nil)
	encCtx.Initialize()
	_, err = encCtx.XMLEncrypt(context.Background(), template, container)
	require.NoError(t, err)
	encCtx.Finalize()

	require.Nil(t, container.FirstChild("a", "urn:example:root"))
	encrypted := container.FirstChild(elEncryptedData, NSEnc)
	require.NotNil(t, encrypted)

	decCtx := NewEncCtx(mgr, nil)
	decCtx.Initialize()
	require.NoError(t, decCtx.Decrypt(context.Background(), encrypted))
	decCtx.Finalize()

	require.NotNil(t, container.FirstChild("a", "urn:example:root"))
	require.NotNil(t, container.FirstChild("b", "urn:example:root"))
}

func TestGenerateKeyWrapsNestedEncryptedKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	mgr := keys.NewSimpleKeysManager(nil)
	require.NoError(t, mgr.Store.Add(&keys.Key{Name: "wrap-key", Public: &priv.PublicKey}))

	template := NewEncryptedDataTemplate(transform.AES128CBC)
	keyInfo := template.CreateChild("dsig", "KeyInfo")
	keyInfo.SetAttr("xmlns:dsig", NSDSig)
	nestedKey := NewEncryptedKeyTemplate(transform.RSAOAEP256)
	keyInfo.AdoptFragment([]*dom.Element{nestedKey})
	nestedKeyInfo := nestedKey.CreateChild("dsig", "KeyInfo")
	nestedKeyInfo.SetAttr("xmlns:dsig", NSDSig)
	nestedKeyInfo.CreateChild("dsig", "KeyName").SetText("wrap-key")

	encCtx := NewEncCtx(mgr, nil)
	encCtx.Initialize()
	encCtx.GenerateKey = true

	_, err = encCtx.BinaryEncrypt(context.Background(), template, []byte("wrapped content"))
	require.NoError(t, err)
	encCtx.Finalize()

	wrappedKeyNode := keyInfo.FirstChild(elEncryptedKey, NSEnc)
	require.NotNil(t, wrappedKeyNode)
	cipherValue := wrappedKeyNode.FirstChild(elCipherData, NSEnc).FirstChild(elCipherValue, NSEnc)
	require.NotNil(t, cipherValue)
	require.NotEmpty(t, cipherValue.Text())

	decoded, err := base64.StdEncoding.DecodeString(cipherValue.Text())
	require.NoError(t, err)
	unwrapped, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, decoded, nil)
	require.NoError(t, err)
	require.Len(t, unwrapped, 16)
}

func TestTemplateReadRejectsUnexpectedChild(t *testing.T) {
	doc := dom.NewDocument()
	root := doc.NewRoot("xenc", elEncryptedData, NSEnc)
	root.CreateChild("xenc", "Bogus")

	c := NewEncCtx(keys.NewSimpleKeysManager(nil), nil)
	c.Initialize()
	_, _, err := c.TemplateRead(root)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindUnexpectedNode))
}

func TestCheckFreshResultRejectsReuse(t *testing.T) {
	mgr := sharedKeyManager(t, "cek", make([]byte, 16))
	template := NewEncryptedDataTemplate(transform.AES128CBC)
	withKeyName(t, template, "cek")

	c := NewEncCtx(mgr, nil)
	c.Initialize()
	_, err := c.BinaryEncrypt(context.Background(), template, []byte("data"))
	require.NoError(t, err)

	_, err = c.BinaryEncrypt(context.Background(), template, []byte("data again"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidData))
}

func TestCipherDataRejectsValueAndReferenceTogether(t *testing.T) {
	mgr := sharedKeyManager(t, "cek", make([]byte, 16))
	template := NewEncryptedDataTemplate(transform.AES128CBC)
	withKeyName(t, template, "cek")
	cipherData := template.FirstChild(elCipherData, NSEnc)
	cipherData.CreateChild("xenc", elCipherValue).SetText("AAAA")
	ref := cipherData.CreateChild("xenc", elCipherReference)
	ref.SetAttr(attrURI, "#nowhere")

	c := NewEncCtx(mgr, nil)
	c.Initialize()
	_, err := c.DecryptToBuffer(context.Background(), template)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidNode))
}
