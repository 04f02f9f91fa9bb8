package keys

import (
	"crypto/rsa"
	"math/big"

	"github.com/readium/xmlenc/errs"
)

// rsaPublicKeyFromParams builds an *rsa.PublicKey from the big-endian
// Modulus/Exponent byte strings carried by a dsig:RSAKeyValue element.
func rsaPublicKeyFromParams(modulus, exponent []byte) (*rsa.PublicKey, error) {
	if len(modulus) == 0 || len(exponent) == 0 {
		return nil, errs.New(component, errs.KindInvalidData, "empty RSA key parameter")
	}
	e := new(big.Int).SetBytes(exponent)
	if !e.IsInt64() {
		return nil, errs.New(component, errs.KindInvalidData, "RSA exponent too large")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulus),
		E: int(e.Int64()),
	}, nil
}
