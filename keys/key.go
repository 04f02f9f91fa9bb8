// Package keys implements the engine's key model: individual Keys, the
// in-memory KeyStore, the X509Store trust store, and the KeysManager
// facade that ties them together with pluggable lookup callbacks. It
// mirrors xmlSecSimpleKeysMngr from xmlsec's openssl/keysmngr.c.
package keys

import (
	"crypto"
	"crypto/x509"
)

// Origin records how a Key entered the store or was resolved during
// KeyInfo processing, mirroring xmlsec's xmlSecKeyDataType "origin" bits.
type Origin uint

const (
	OriginKeyManager Origin = 1 << iota
	OriginKeyName
	OriginKeyValue
	OriginRetrievalMethod
	OriginX509
	OriginPKCS12
)

// DataType is a bitmask over the broad classes of key material a
// Requirement or a stored Key can represent.
type DataType uint

const (
	DataTypePublic DataType = 1 << iota
	DataTypePrivate
	DataTypeSymmetric
)

// DataTypeAny matches any key material regardless of class.
const DataTypeAny = DataTypePublic | DataTypePrivate | DataTypeSymmetric

// Requirement describes what TemplateRead/KeyInfoCtx need from a resolved
// key: the algorithm it must work with, the class of material, and
// (optionally) its size in bits.
type Requirement struct {
	Algorithm string
	KeyType   DataType
	Size      int
}

// Key is a single key entry: either raw symmetric material, an asymmetric
// key pair (or one half of one), or a certificate-only public key learned
// from an X509Store lookup.
type Key struct {
	Name      string
	Algorithm string
	Value     []byte
	Public    crypto.PublicKey
	Private   crypto.PrivateKey
	Cert      *x509.Certificate
	Origin    Origin
}

// dataType derives the DataType bitmask implied by the material actually
// present on k, rather than requiring callers to keep a separate flag in
// sync.
func (k *Key) dataType() DataType {
	var t DataType
	if k.Value != nil {
		t |= DataTypeSymmetric
	}
	if k.Private != nil {
		t |= DataTypePrivate
	}
	if k.Public != nil || k.Cert != nil {
		t |= DataTypePublic
	}
	return t
}

// Size returns the key size in bits: len(Value)*8 for symmetric keys, or
// the modulus bit length for RSA keys.
func (k *Key) Size() int {
	if k.Value != nil {
		return len(k.Value) * 8
	}
	if rsaPub, ok := k.Public.(interface{ Size() int }); ok {
		return rsaPub.Size() * 8
	}
	if k.Cert != nil {
		if rsaPub, ok := k.Cert.PublicKey.(interface{ Size() int }); ok {
			return rsaPub.Size() * 8
		}
	}
	return 0
}

// Matches reports whether k satisfies req: its key-type bits intersect the
// requirement (or the requirement is DataTypeAny / zero), its algorithm
// equals the requirement's when one is given, and its size equals the
// requirement's when one is given. A key whose Size is 0 (unknown, e.g. a
// non-RSA asymmetric key) passes the size check.
func (k *Key) Matches(req Requirement) bool {
	if req.KeyType != 0 && k.dataType()&req.KeyType == 0 {
		return false
	}
	if req.Algorithm != "" && k.Algorithm != req.Algorithm {
		return false
	}
	if req.Size > 0 && k.Size() != 0 && k.Size() != req.Size {
		return false
	}
	return true
}

// Duplicate returns a deep-enough copy of k for callers that must not
// alias the store's backing entry, mirroring xmlSecKeyDuplicate: the byte
// slice is copied, crypto.PublicKey/PrivateKey/*x509.Certificate values
// are immutable by convention in the standard library so they are shared.
func (k *Key) Duplicate() *Key {
	dup := *k
	if k.Value != nil {
		dup.Value = append([]byte(nil), k.Value...)
	}
	return &dup
}

// Close zeroes the symmetric key material held by k, standing in for
// xmlSecKeyDestroy's buffer wipe. It is a no-op for asymmetric keys, whose
// material is owned by the standard library's crypto types.
func (k *Key) Close() {
	for i := range k.Value {
		k.Value[i] = 0
	}
}
