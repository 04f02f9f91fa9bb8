package transform

import (
	"encoding/base64"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
)

// base64Transform encodes on the encrypt path and decodes on the decrypt
// path, the same dual-direction behaviour as xmlSecTransformBase64Id: a
// single transform klass whose Execute branches on its configured
// direction.
type base64Transform struct {
	encrypt bool
}

func newBase64Transform() *base64Transform { return &base64Transform{} }

func (t *base64Transform) ID() string { return Base64 }

func (t *base64Transform) SetEncrypt(encrypt bool) { t.encrypt = encrypt }

func (t *base64Transform) SetKey(*keys.Key) error { return nil }

func (t *base64Transform) Requirement() keys.Requirement { return keys.Requirement{} }

func (t *base64Transform) Execute(in []byte) ([]byte, error) {
	if t.encrypt {
		out := make([]byte, base64.StdEncoding.EncodedLen(len(in)))
		base64.StdEncoding.Encode(out, in)
		return out, nil
	}
	out, err := base64.StdEncoding.DecodeString(string(in))
	if err != nil {
		return nil, errs.Wrap(component, errs.KindInvalidData, "decoding base64 CipherValue", err)
	}
	return out, nil
}

func (t *base64Transform) Close() {}
