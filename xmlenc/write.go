package xmlenc

import (
	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/keys"
)

// WriteKey, when set before an encrypt operation, causes TemplateWrite to
// emit a dsig:KeyInfo identifying this key (KeyName plus, if the key
// carries one, an X509Certificate), the public-information-only write
// path keys.WriteKeyInfo enforces.
func (c *EncCtx) writeAttributes(root *dom.Element) {
	setOrClear(root, attrID, c.ID)
	setOrClear(root, attrType, c.Type)
	setOrClear(root, attrMimeType, c.MimeType)
	setOrClear(root, attrEncoding, c.Encoding)
	if c.Mode == ModeEncryptedKey {
		setOrClear(root, attrRecipient, c.Recipient)
	}
}

func setOrClear(node *dom.Element, attr, value string) {
	if value == "" {
		return
	}
	node.SetAttr(attr, value)
}

// TemplateWrite fills root (and, when cipherDataNode was absent, a freshly
// created CipherData child) with the results of an encrypt operation:
// attributes, CipherValue, CarriedKeyName (EncryptedKey only), and an
// optional KeyInfo identifying writeKey. Mirrors
// xmlSecEncCtxEncDataNodeWrite.
func (c *EncCtx) TemplateWrite(root *dom.Element, cipherDataNode *dom.Element, ciphertext []byte, writeKey *keys.Key) error {
	c.writeAttributes(root)
	if err := c.writeCipherValue(root, cipherDataNode, ciphertext); err != nil {
		return err
	}

	if c.Mode == ModeEncryptedKey && c.CarriedKeyName != "" {
		node := root.FirstChild(elCarriedKeyName, NSEnc)
		if node == nil {
			node = root.CreateChild("xenc", elCarriedKeyName)
		}
		node.SetText(c.CarriedKeyName)
	}

	if writeKey != nil {
		keyInfoNode := c.keyInfoNode
		if keyInfoNode == nil {
			keyInfoNode = root.CreateChild("dsig", elKeyInfo)
			keyInfoNode.SetAttr("xmlns:dsig", NSDSig)
		}
		if err := keys.WriteKeyInfo(keyInfoNode, writeKey, c.KeyInfoWriteCtx); err != nil {
			return err
		}
	}
	return nil
}
