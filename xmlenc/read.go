package xmlenc

import (
	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
	"github.com/readium/xmlenc/transform"
)

// TemplateRead parses root (an EncryptedData or EncryptedKey element) into
// c: attributes, EncryptionMethod, KeyInfo, CipherData, and -- for
// EncryptedKey -- ReferenceList/CarriedKeyName. It is the Go counterpart
// of xmlSecEncCtxEncDataNodeRead, and is the half of the state machine
// that runs before CipherData processing on every operation (encrypt or
// decrypt alike): a template supplies the algorithm and KeyInfo even when
// its CipherValue is still empty and about to be filled in by encrypt.
func (c *EncCtx) TemplateRead(root *dom.Element) (*dom.Element, *dom.Element, error) {
	switch {
	case root.Is(elEncryptedData, NSEnc):
		c.Mode = ModeEncryptedData
	case root.Is(elEncryptedKey, NSEnc):
		c.Mode = ModeEncryptedKey
	default:
		return nil, nil, errs.New(component, errs.KindInvalidNode, "root element is not EncryptedData or EncryptedKey")
	}

	c.ID = root.AttrOr(attrID, "")
	c.Type = root.AttrOr(attrType, "")
	c.MimeType = root.AttrOr(attrMimeType, "")
	c.Encoding = root.AttrOr(attrEncoding, "")
	if c.Mode == ModeEncryptedKey {
		c.Recipient = root.AttrOr(attrRecipient, "")
	}

	var cipherDataNode *dom.Element
	var referenceListNode *dom.Element

	for _, child := range root.Children() {
		switch {
		case child.Is(elEncryptionMethod, NSEnc):
			c.encMethodNode = child
		case child.Is(elKeyInfo, NSDSig):
			c.keyInfoNode = child
		case child.Is(elCipherData, NSEnc):
			cipherDataNode = child
		case child.Is(elEncryptionProperties, NSEnc):
			// Informational only; this engine neither validates nor
			// echoes EncryptionProperty content.
		case c.Mode == ModeEncryptedKey && child.Is(elReferenceList, NSEnc):
			referenceListNode = child
		case c.Mode == ModeEncryptedKey && child.Is(elCarriedKeyName, NSEnc):
			c.CarriedKeyName = child.Text()
		default:
			return nil, nil, errs.New(component, errs.KindUnexpectedNode, "unexpected child of "+root.Tag())
		}
	}

	if cipherDataNode == nil && !c.Encrypt {
		return nil, nil, errs.New(component, errs.KindInvalidNode, "CipherData element is required")
	}

	if err := c.readEncryptionMethod(); err != nil {
		return nil, nil, err
	}

	return cipherDataNode, referenceListNode, nil
}

func (c *EncCtx) readEncryptionMethod() error {
	if c.encMethod != nil {
		// A caller-supplied transform takes precedence and stays
		// borrowed; SetKey still needs to happen once a key is resolved.
		return nil
	}
	if c.encMethodNode == nil {
		return errs.New(component, errs.KindInvalidNode, "EncryptionMethod element is required")
	}
	alg, ok := c.encMethodNode.Attr(attrAlgorithm)
	if !ok || alg == "" {
		return errs.New(component, errs.KindInvalidNodeContent, "EncryptionMethod/@Algorithm is required")
	}
	t, err := transform.NewByID(alg)
	if err != nil {
		return err
	}
	c.encMethod = t
	c.methodOwned = ownershipOwned
	return nil
}

// resolveKey resolves the key material for the operation in progress: the
// parsed KeyInfo when present, or, when KeyInfo was omitted, a call to
// Manager.GetKey with an empty hint and the transform's own Requirement.
// The default GetKey rejects an empty hint, so the KeyInfo-less path only
// yields a key when the caller has installed its own GetKey. The
// resolved key is installed into the transform, which holds it until
// Finalize closes the transform. The transform's direction must already be set
// (SetEncrypt) so its Requirement() reflects which half of an asymmetric
// pair it needs.
func (c *EncCtx) resolveKey() error {
	req := c.encMethod.Requirement()
	c.KeyInfoReadCtx.KeyReq = req

	var key *keys.Key
	var err error
	if c.keyInfoNode != nil {
		key, err = keys.ReadKeyInfo(c.keyInfoNode, c.KeyInfoReadCtx)
	} else {
		key, err = c.Manager.GetKey(keys.KeyInfoHint{}, c.KeyInfoReadCtx)
	}
	if err != nil {
		return err
	}
	return c.encMethod.SetKey(key)
}
