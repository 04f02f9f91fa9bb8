package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/readium/xmlenc/errs"
)

// decryptPEMBlock decrypts a legacy password-protected PEM block
// (RFC 1423 "Proc-Type: 4,ENCRYPTED" headers), the format produced by
// `openssl genrsa -des3` and similar.
func decryptPEMBlock(block *pem.Block, password []byte) ([]byte, error) {
	return x509.DecryptPEMBlock(block, password) //nolint:staticcheck // legacy PEM password format, no replacement in stdlib
}

func loadPEMKeyFile(path string, password []byte, private bool) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "reading PEM key file", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errs.New(component, errs.KindInvalidData, "no PEM block found")
	}
	der := block.Bytes
	if len(password) > 0 {
		decrypted, decErr := decryptPEMBlock(block, password)
		if decErr != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "decrypting PEM key", decErr)
		}
		der = decrypted
	}
	if !private {
		pub, err := x509.ParsePKIXPublicKey(der)
		if err != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "parsing public key", err)
		}
		return &Key{Public: pub}, nil
	}
	priv, err := parsePrivateKey(der)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "parsing private key", err)
	}
	key := &Key{Private: priv}
	if rsaKey, ok := priv.(*rsa.PrivateKey); ok {
		key.Public = &rsaKey.PublicKey
	}
	return key, nil
}

func parsePrivateKey(der []byte) (interface{}, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errs.New(component, errs.KindCrypto, "unrecognized private key encoding")
}
