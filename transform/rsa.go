package transform

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
)

// rsaTransform implements the RSA key-transport algorithms used to wrap a
// symmetric CEK inside an EncryptedKey: PKCS#1 v1.5 (rsa-1_5) or OAEP
// (rsa-oaep-mgf1p / rsa-oaep, the latter using SHA-256 per XML Encryption
// 1.1), mirroring xmlsec's openssl RSA key-transport bindings.
type rsaTransform struct {
	id      string
	oaep    bool
	oaep256 bool
	encrypt bool
	pub     *rsa.PublicKey
	priv    *rsa.PrivateKey
}

func newRSATransform(oaep bool, variant int) *rsaTransform {
	switch {
	case !oaep:
		return &rsaTransform{id: RSA15}
	case variant == 256:
		return &rsaTransform{id: RSAOAEP256, oaep: true, oaep256: true}
	default:
		return &rsaTransform{id: RSAOAEP, oaep: true}
	}
}

func (t *rsaTransform) ID() string { return t.id }

func (t *rsaTransform) SetEncrypt(encrypt bool) { t.encrypt = encrypt }

func (t *rsaTransform) Requirement() keys.Requirement {
	if t.encrypt {
		return keys.Requirement{KeyType: keys.DataTypePublic}
	}
	return keys.Requirement{KeyType: keys.DataTypePrivate}
}

func (t *rsaTransform) SetKey(key *keys.Key) error {
	if t.encrypt {
		pub, ok := key.Public.(*rsa.PublicKey)
		if !ok {
			return errs.New(component, errs.KindCrypto, "RSA transform requires an RSA public key")
		}
		t.pub = pub
		return nil
	}
	priv, ok := key.Private.(*rsa.PrivateKey)
	if !ok {
		return errs.New(component, errs.KindCrypto, "RSA transform requires an RSA private key")
	}
	t.priv = priv
	return nil
}

func (t *rsaTransform) Execute(in []byte) ([]byte, error) {
	if t.encrypt {
		return t.wrap(in)
	}
	return t.unwrap(in)
}

func (t *rsaTransform) wrap(in []byte) ([]byte, error) {
	if t.pub == nil {
		return nil, errs.New(component, errs.KindCrypto, "no RSA public key configured")
	}
	if !t.oaep {
		out, err := rsa.EncryptPKCS1v15(rand.Reader, t.pub, in)
		if err != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "RSA PKCS#1 v1.5 wrap failed", err)
		}
		return out, nil
	}
	hash := sha1Hash()
	if t.oaep256 {
		hash = sha256Hash()
	}
	out, err := rsa.EncryptOAEP(hash, rand.Reader, t.pub, in, nil)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "RSA OAEP wrap failed", err)
	}
	return out, nil
}

func (t *rsaTransform) unwrap(in []byte) ([]byte, error) {
	if t.priv == nil {
		return nil, errs.New(component, errs.KindCrypto, "no RSA private key configured")
	}
	if !t.oaep {
		out, err := rsa.DecryptPKCS1v15(rand.Reader, t.priv, in)
		if err != nil {
			return nil, errs.Wrap(component, errs.KindCrypto, "RSA PKCS#1 v1.5 unwrap failed", err)
		}
		return out, nil
	}
	hash := sha1Hash()
	if t.oaep256 {
		hash = sha256Hash()
	}
	out, err := rsa.DecryptOAEP(hash, rand.Reader, t.priv, in, nil)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "RSA OAEP unwrap failed", err)
	}
	return out, nil
}

func (t *rsaTransform) Close() { t.priv = nil }

func sha1Hash() hash.Hash   { return sha1.New() }
func sha256Hash() hash.Hash { return sha256.New() }
