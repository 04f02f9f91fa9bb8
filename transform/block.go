package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"io"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
)

// blockCipherTransform implements the CBC-mode block ciphers XML
// Encryption 1.0 defines (AES-128/192/256-CBC, TripleDES-CBC): the
// ciphertext on the wire is the IV followed by the PKCS#7-padded
// ciphertext, exactly the convention xmlsec's openssl cipher transforms
// use (EVP_CipherInit with an explicit random IV prefixed to the output).
type blockCipherTransform struct {
	id        string
	keySize   int
	newCipher func(key []byte) (cipher.Block, error)
	encrypt   bool
	key       []byte
}

func newAESCBCTransform(keySize int) *blockCipherTransform {
	id := map[int]string{16: AES128CBC, 24: AES192CBC, 32: AES256CBC}[keySize]
	return &blockCipherTransform{id: id, keySize: keySize, newCipher: aes.NewCipher}
}

func newTripleDESCBCTransform() *blockCipherTransform {
	return &blockCipherTransform{id: TripleDESCBC, keySize: 24, newCipher: des.NewTripleDESCipher}
}

func (t *blockCipherTransform) ID() string { return t.id }

func (t *blockCipherTransform) SetEncrypt(encrypt bool) { t.encrypt = encrypt }

func (t *blockCipherTransform) Requirement() keys.Requirement {
	return keys.Requirement{KeyType: keys.DataTypeSymmetric, Size: t.keySize * 8}
}

func (t *blockCipherTransform) SetKey(key *keys.Key) error {
	if len(key.Value) != t.keySize {
		return errs.New(component, errs.KindCrypto, "key size does not match algorithm")
	}
	t.key = key.Value
	return nil
}

func (t *blockCipherTransform) Execute(in []byte) ([]byte, error) {
	block, err := t.newCipher(t.key)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "initializing block cipher", err)
	}
	blockSize := block.BlockSize()
	if t.encrypt {
		padded := pkcs7Pad(in, blockSize)
		iv := make([]byte, blockSize)
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "generating IV", err)
		}
		out := make([]byte, blockSize+len(padded))
		copy(out, iv)
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[blockSize:], padded)
		return out, nil
	}
	if len(in) < blockSize || (len(in)-blockSize)%blockSize != 0 {
		return nil, errs.New(component, errs.KindInvalidData, "ciphertext is not a whole number of blocks")
	}
	iv := in[:blockSize]
	ciphertext := in[blockSize:]
	plainPadded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainPadded, ciphertext)
	return pkcs7Unpad(plainPadded)
}

func (t *blockCipherTransform) Close() {
	for i := range t.key {
		t.key[i] = 0
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errs.New(component, errs.KindInvalidData, "empty plaintext block")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errs.New(component, errs.KindInvalidData, "invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}

// aeadCipherTransform implements the GCM-mode AES ciphers XML Encryption
// 1.1 adds: the wire ciphertext is the nonce followed by the sealed box
// (ciphertext plus appended authentication tag), matching xmlsec's
// EVP_aes_*_gcm bindings.
type aeadCipherTransform struct {
	id      string
	keySize int
	encrypt bool
	key     []byte
}

func newAESGCMTransform(keySize int) *aeadCipherTransform {
	id := map[int]string{16: AES128GCM, 24: AES192GCM, 32: AES256GCM}[keySize]
	return &aeadCipherTransform{id: id, keySize: keySize}
}

func (t *aeadCipherTransform) ID() string { return t.id }

func (t *aeadCipherTransform) SetEncrypt(encrypt bool) { t.encrypt = encrypt }

func (t *aeadCipherTransform) Requirement() keys.Requirement {
	return keys.Requirement{KeyType: keys.DataTypeSymmetric, Size: t.keySize * 8}
}

func (t *aeadCipherTransform) SetKey(key *keys.Key) error {
	if len(key.Value) != t.keySize {
		return errs.New(component, errs.KindCrypto, "key size does not match algorithm")
	}
	t.key = key.Value
	return nil
}

func (t *aeadCipherTransform) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(t.key)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "initializing AES", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "initializing GCM", err)
	}
	return gcm, nil
}

func (t *aeadCipherTransform) Execute(in []byte) ([]byte, error) {
	gcm, err := t.gcm()
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if t.encrypt {
		nonce := make([]byte, nonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "generating nonce", err)
		}
		return gcm.Seal(nonce, nonce, in, nil), nil
	}
	if len(in) < nonceSize {
		return nil, errs.New(component, errs.KindInvalidData, "ciphertext shorter than GCM nonce")
	}
	nonce, sealed := in[:nonceSize], in[nonceSize:]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "GCM authentication failed", err)
	}
	return plain, nil
}

func (t *aeadCipherTransform) Close() {
	for i := range t.key {
		t.key[i] = 0
	}
}
