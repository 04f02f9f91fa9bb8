package transform

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
)

func roundTrip(t *testing.T, id string, key *keys.Key, plaintext []byte) {
	t.Helper()
	enc, err := NewByID(id)
	require.NoError(t, err)
	enc.SetEncrypt(true)
	require.NoError(t, enc.SetKey(key))
	ciphertext, err := enc.Execute(plaintext)
	require.NoError(t, err)
	enc.Close()

	dec, err := NewByID(id)
	require.NoError(t, err)
	dec.SetEncrypt(false)
	require.NoError(t, dec.SetKey(key))
	got, err := dec.Execute(ciphertext)
	require.NoError(t, err)
	dec.Close()

	require.Equal(t, plaintext, got)
}

func TestAESCBCRoundTrip(t *testing.T) {
	key := &keys.Key{Value: make([]byte, 16)}
	roundTrip(t, AES128CBC, key, []byte("the quick brown fox"))
}

func TestAESCBCRejectsWrongKeySize(t *testing.T) {
	enc, err := NewByID(AES256CBC)
	require.NoError(t, err)
	err = enc.SetKey(&keys.Key{Value: make([]byte, 16)})
	require.True(t, errs.Is(err, errs.KindCrypto))
}

func TestAESGCMRoundTrip(t *testing.T) {
	key := &keys.Key{Value: make([]byte, 32)}
	roundTrip(t, AES256GCM, key, []byte("authenticated content"))
}

func TestAESGCMDetectsTampering(t *testing.T) {
	key := &keys.Key{Value: make([]byte, 16)}
	enc, err := NewByID(AES128GCM)
	require.NoError(t, err)
	enc.SetEncrypt(true)
	require.NoError(t, enc.SetKey(key))
	ciphertext, err := enc.Execute([]byte("payload"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	dec, err := NewByID(AES128GCM)
	require.NoError(t, err)
	dec.SetEncrypt(false)
	require.NoError(t, dec.SetKey(key))
	_, err = dec.Execute(ciphertext)
	require.True(t, errs.Is(err, errs.KindCrypto))
}

func TestTripleDESCBCRoundTrip(t *testing.T) {
	key := &keys.Key{Value: make([]byte, 24)}
	roundTrip(t, TripleDESCBC, key, []byte("legacy payload"))
}

func TestRSA15RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubKey := &keys.Key{Public: &priv.PublicKey}
	privKey := &keys.Key{Private: priv}

	enc, err := NewByID(RSA15)
	require.NoError(t, err)
	enc.SetEncrypt(true)
	require.NoError(t, enc.SetKey(pubKey))
	ciphertext, err := enc.Execute([]byte("session key material"))
	require.NoError(t, err)

	dec, err := NewByID(RSA15)
	require.NoError(t, err)
	dec.SetEncrypt(false)
	require.NoError(t, dec.SetKey(privKey))
	plaintext, err := dec.Execute(ciphertext)
	require.NoError(t, err)
	require.Equal(t, []byte("session key material"), plaintext)
}

func TestRSAOAEP256RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubKey := &keys.Key{Public: &priv.PublicKey}
	privKey := &keys.Key{Private: priv}

	enc, err := NewByID(RSAOAEP256)
	require.NoError(t, err)
	enc.SetEncrypt(true)
	require.NoError(t, enc.SetKey(pubKey))
	ciphertext, err := enc.Execute([]byte("cek"))
	require.NoError(t, err)

	dec, err := NewByID(RSAOAEP256)
	require.NoError(t, err)
	dec.SetEncrypt(false)
	require.NoError(t, dec.SetKey(privKey))
	plaintext, err := dec.Execute(ciphertext)
	require.NoError(t, err)
	require.Equal(t, []byte("cek"), plaintext)
}

func TestBase64Transform(t *testing.T) {
	enc, err := NewByID(Base64)
	require.NoError(t, err)
	enc.SetEncrypt(true)
	encoded, err := enc.Execute([]byte("hello"))
	require.NoError(t, err)

	dec, err := NewByID(Base64)
	require.NoError(t, err)
	dec.SetEncrypt(false)
	decoded, err := dec.Execute(encoded)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), decoded)
}

func TestNewByIDUnknownAlgorithm(t *testing.T) {
	_, err := NewByID("http://example.org/not-an-algorithm")
	require.Error(t, err)
}

func TestClassifyURI(t *testing.T) {
	cases := map[string]URIType{
		"":                      URITypeEmpty,
		"#fragment":             URITypeSameDoc,
		"cid:attachment-1":      URITypeCID,
		"http://example.org/x":  URITypeRemote,
		"https://example.org/x": URITypeRemote,
		"s3://bucket/key":       URITypeRemote,
		"resources/cover.jpg":   URITypeLocal,
	}
	for uri, want := range cases {
		require.Equal(t, want, ClassifyURI(uri), "uri %q", uri)
	}
}

func TestCheckURITypeRemoteDoesNotImplyCID(t *testing.T) {
	require.False(t, CheckURIType(URITypeRemote, "cid:part1"))
	require.True(t, CheckURIType(URITypeRemote|URITypeCID, "cid:part1"))
}

func TestPipelineBinaryExecuteChainsInOrder(t *testing.T) {
	key := &keys.Key{Value: make([]byte, 16)}
	cipherTransform, err := NewByID(AES128CBC)
	require.NoError(t, err)
	cipherTransform.SetEncrypt(true)
	require.NoError(t, cipherTransform.SetKey(key))

	b64, err := NewByID(Base64)
	require.NoError(t, err)
	b64.SetEncrypt(true)

	p := NewPipeline()
	p.Append(cipherTransform)
	p.Append(b64)
	out, err := p.BinaryExecute([]byte("plaintext payload"))
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// Cipher first, then base64: the output is base64 text of a 16-byte IV
	// plus the 17-byte plaintext padded to 32 bytes.
	decoded, err := base64.StdEncoding.DecodeString(string(out))
	require.NoError(t, err)
	require.Len(t, decoded, 48)
}

func TestPipelineExecuteWithoutURIFails(t *testing.T) {
	p := NewPipeline()
	_, err := p.Execute(context.Background())
	require.True(t, errs.Is(err, errs.KindInvalidData))
}
