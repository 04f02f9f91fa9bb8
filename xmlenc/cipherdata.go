package xmlenc

import (
	"context"
	"strings"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/transform"
)

// readCipherDataForDecrypt extracts the raw (post-base64, pre-cipher)
// ciphertext bytes from a CipherData element: either its CipherValue's
// base64 text, or the result of dereferencing and transform-processing a
// CipherReference. Mirrors
// xmlSecEncCtxCipherDataNodeRead/xmlSecEncCtxCipherReferenceNodeRead,
// which is exercised on decrypt only -- CipherReference is never produced
// on encrypt by this engine.
func (c *EncCtx) readCipherDataForDecrypt(ctx context.Context, cipherDataNode *dom.Element) ([]byte, error) {
	valueNode := cipherDataNode.FirstChild(elCipherValue, NSEnc)
	refNode := cipherDataNode.FirstChild(elCipherReference, NSEnc)

	switch {
	case valueNode != nil && refNode != nil:
		return nil, errs.New(component, errs.KindInvalidNode, "CipherData must not contain both CipherValue and CipherReference")
	case valueNode != nil:
		decoder, err := transform.NewByID(transform.Base64)
		if err != nil {
			return nil, err
		}
		decoder.SetEncrypt(false)
		c.pipeline.Prepend(decoder)
		raw, err := c.pipeline.BinaryExecute([]byte(strings.TrimSpace(valueNode.Text())))
		if err != nil {
			return nil, errs.Wrap(component, errs.KindInvalidData, "decoding CipherValue", err)
		}
		return raw, nil
	case refNode != nil:
		return c.readCipherReference(ctx, refNode)
	default:
		return nil, errs.New(component, errs.KindInvalidNode, "CipherData must contain CipherValue or CipherReference")
	}
}

func (c *EncCtx) readCipherReference(ctx context.Context, node *dom.Element) ([]byte, error) {
	uri, _ := node.Attr(attrURI)
	if !transform.CheckURIType(c.AllowedCipherReferenceURIs, uri) {
		return nil, errs.New(component, errs.KindInvalidURIType, "CipherReference URI class not allowed: "+uri)
	}
	data, err := transform.Fetch(ctx, uri, node, c.Attachments)
	if err != nil {
		return nil, err
	}
	transformsNode := node.FirstChild(elTransforms, NSDSig)
	if transformsNode == nil {
		return data, nil
	}
	pipeline := transform.NewPipeline()
	for _, tn := range transformsNode.Children() {
		if !tn.Is(elTransform, NSDSig) {
			continue
		}
		alg, ok := tn.Attr(attrAlgorithm)
		if !ok {
			return nil, errs.New(component, errs.KindInvalidNodeContent, "Transform/@Algorithm is required")
		}
		t, err := transform.NewByID(alg)
		if err != nil {
			return nil, err
		}
		t.SetEncrypt(false)
		pipeline.Append(t)
	}
	return pipeline.BinaryExecute(data)
}

// writeCipherValue sets, or creates and sets, CipherData/CipherValue under
// root to the base64 encoding of ciphertext, mirroring the output half of
// xmlSecEncCtxEncDataNodeWrite: per §4.5.3, the written bytes go through
// a base64 encoder appended to the operation's pipeline rather than a
// bespoke encoding call.
func (c *EncCtx) writeCipherValue(root *dom.Element, cipherDataNode *dom.Element, ciphertext []byte) error {
	if cipherDataNode == nil {
		cipherDataNode = root.CreateChild("xenc", elCipherData)
	}
	valueNode := cipherDataNode.FirstChild(elCipherValue, NSEnc)
	if valueNode == nil {
		valueNode = cipherDataNode.CreateChild("xenc", elCipherValue)
	}
	encoder, err := transform.NewByID(transform.Base64)
	if err != nil {
		return err
	}
	encoder.SetEncrypt(true)
	c.pipeline.Append(encoder)
	encoded, err := c.pipeline.BinaryExecute(ciphertext)
	if err != nil {
		return err
	}
	valueNode.SetText(string(encoded))
	return nil
}
