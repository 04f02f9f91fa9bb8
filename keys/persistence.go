package keys

import (
	"crypto/x509"
	"encoding/base64"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
)

// nsXMLSec identifies the root Keys persistence document's namespace, the
// same one xmlsec's own simple keys manager XML format uses. It duplicates
// the value xmlenc.NSXMLSec carries rather than importing it: xmlenc
// imports this package, so an import the other way would cycle.
const nsXMLSec = "http://www.aleksey.com/xmlsec/2002"

// attrAlgorithm is a non-standard extension attribute on a persisted
// KeyInfo entry carrying the stored key's algorithm identifier, the same
// kind of engine convention readKeyValue's bare base64 KeyValue already
// relies on in place of an xmlsec algorithm-specific KeyValue extension.
const attrAlgorithm = "Algorithm"

// decodeKeysDocumentEntry decodes a single KeyInfo child of a persisted
// Keys document directly into a Key. Unlike ReadKeyInfo, it never calls
// back into a KeysManager: Load's job is to populate the store, not to
// resolve against it, so KeyName here supplies the decoded Key's Name
// rather than a lookup hint. Mirrors xmlSecKeyInfoNodeRead's effect when
// xmlSecSimpleKeysMngrLoad calls it with origin mask ALL.
func decodeKeysDocumentEntry(node *dom.Element) (*Key, error) {
	if !node.Is("KeyInfo", nsDSig) {
		return nil, errs.New(component, errs.KindUnexpectedNode, "Keys document child must be a KeyInfo element")
	}
	key := &Key{Origin: OriginKeyManager}
	if alg, ok := node.Attr(attrAlgorithm); ok {
		key.Algorithm = alg
	}
	for _, child := range node.Children() {
		switch {
		case child.Is("KeyName", nsDSig):
			key.Name = child.Text()
		case child.Is("KeyValue", nsDSig):
			inline, err := readKeyValue(child)
			if err != nil {
				return nil, err
			}
			key.Value = inline.Value
			if inline.Public != nil {
				key.Public = inline.Public
			}
		case child.Is("X509Data", nsDSig):
			cert, err := decodeX509DataCert(child)
			if err != nil {
				return nil, err
			}
			if cert != nil {
				key.Cert = cert
				key.Public = cert.PublicKey
				key.Origin |= OriginX509
			}
		}
	}
	if key.Value == nil && key.Public == nil {
		return nil, errs.New(component, errs.KindInvalidNodeContent, "KeyInfo carries no usable key material")
	}
	return key, nil
}

func decodeX509DataCert(node *dom.Element) (*x509.Certificate, error) {
	certNode := node.FirstChild("X509Certificate", nsDSig)
	if certNode == nil {
		return nil, nil
	}
	der, err := base64.StdEncoding.DecodeString(certNode.Text())
	if err != nil {
		return nil, errs.Wrap(component, errs.KindInvalidNodeContent, "decoding X509Certificate", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "parsing X509Certificate", err)
	}
	return cert, nil
}

// encodeKeysDocumentEntry appends a KeyInfo child under root carrying
// key's KeyName, KeyValue, and (if present) X509Data, the shape
// xmlSecSimpleKeysMngrSave writes for every stored key. keyValueType
// gates which material is actually serialized: a key's symmetric Value is
// written only when keyValueType allows DataTypeSymmetric, and its
// certificate only when keyValueType allows DataTypePublic. Private key
// material is never written — the dsig KeyValue vocabulary this document
// reuses has no element to carry an RSA private exponent, matching
// xmlsec's own Keys document, which only ever round-trips public/
// symmetric material.
func encodeKeysDocumentEntry(root *dom.Element, key *Key, keyValueType DataType) *dom.Element {
	node := root.CreateChild("dsig", "KeyInfo")
	if key.Algorithm != "" {
		node.SetAttr(attrAlgorithm, key.Algorithm)
	}
	if key.Name != "" {
		node.CreateChild("dsig", "KeyName").SetText(key.Name)
	}
	if key.Value != nil && keyValueType&DataTypeSymmetric != 0 {
		node.CreateChild("dsig", "KeyValue").SetText(base64.StdEncoding.EncodeToString(key.Value))
	}
	if key.Cert != nil && keyValueType&DataTypePublic != 0 {
		x509Data := node.CreateChild("dsig", "X509Data")
		x509Data.CreateChild("dsig", "X509Certificate").SetText(base64.StdEncoding.EncodeToString(key.Cert.Raw))
	}
	return node
}
