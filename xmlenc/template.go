package xmlenc

import (
	"github.com/google/uuid"

	"github.com/readium/xmlenc/dom"
)

// NewEncryptedDataTemplate builds a standalone EncryptedData skeleton with
// only a generated Id, EncryptionMethod/@Algorithm and an empty
// CipherData/CipherValue populated, ready to be passed to
// BinaryEncrypt/XMLEncrypt/URIEncrypt.
// Equivalent to the xmlSecTmplEncDataCreate convenience constructor.
func NewEncryptedDataTemplate(algorithm string) *dom.Element {
	return newTemplate(elEncryptedData, algorithm)
}

// NewEncryptedKeyTemplate builds a standalone EncryptedKey skeleton, used
// both as the top-level template for a key-transport operation and for
// the nested EncryptedKey a KeyInfo wraps a generated CEK in.
func NewEncryptedKeyTemplate(algorithm string) *dom.Element {
	return newTemplate(elEncryptedKey, algorithm)
}

func newTemplate(rootName, algorithm string) *dom.Element {
	doc := dom.NewDocument()
	root := doc.NewRoot("xenc", rootName, NSEnc)
	root.SetAttr(attrID, "xenc-"+uuid.NewString())
	method := root.CreateChild("xenc", elEncryptionMethod)
	method.SetAttr(attrAlgorithm, algorithm)
	root.CreateChild("xenc", elCipherData).CreateChild("xenc", elCipherValue)
	return root
}
