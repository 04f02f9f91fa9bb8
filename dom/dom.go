// Package dom wraps github.com/beevik/etree with the small set of
// namespace-aware helpers the encryption engine needs: parsing with
// charset detection, ancestor-walk namespace resolution (etree does not
// track a namespace-URI per node the way libxml2 does), fragment
// reparsing for decrypt substitution, and a same-document ID index
// standing in for libxml2's ID attribute machinery.
package dom

import (
	"bytes"
	"io"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/readium/xmlenc/errs"
)

const component = "dom"

// Element is a thin handle around an *etree.Element plus the Document it
// belongs to, so namespace and ID lookups can walk up to the root.
type Element struct {
	el  *etree.Element
	doc *Document
}

// Document holds the parsed tree and the same-document ID index built by
// RegisterIDs.
type Document struct {
	doc *etree.Document
	ids map[string]*Element
}

// NewDocument creates an empty document, used when building templates from
// scratch (the xmlenc template constructors, KeysManager.Save, or the
// respack manifest writer).
func NewDocument() *Document {
	d := etree.NewDocument()
	return &Document{doc: d, ids: make(map[string]*Element)}
}

// ReadDocument parses r, auto-detecting non-UTF-8 encodings the way the
// teacher's xmlenc.Data.Read does via golang.org/x/net/html/charset.
func ReadDocument(r io.Reader) (*Document, error) {
	utf8Reader, err := charset.NewReader(r, "")
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "charset detection failed", err)
	}
	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "read failed", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errs.Wrap(component, errs.KindXML, "malformed XML", err)
	}
	return &Document{doc: doc, ids: make(map[string]*Element)}, nil
}

// Root returns the document element, or nil if the document is empty.
func (d *Document) Root() *Element {
	root := d.doc.Root()
	if root == nil {
		return nil
	}
	return &Element{el: root, doc: d}
}

// SetRoot installs el as the document's root element, used when synthesizing
// a template from scratch.
func (d *Document) SetRoot(el *Element) {
	d.doc.SetRoot(el.el)
}

// NewRoot creates a root element named localName (qualified with prefix)
// declaring xmlns:prefix=uri on itself, and installs it as the document
// root. Used to build standalone EncryptedData/EncryptedKey templates
// from scratch.
func (d *Document) NewRoot(prefix, localName, uri string) *Element {
	tag := localName
	if prefix != "" {
		tag = prefix + ":" + localName
	}
	root := etree.NewElement(tag)
	if prefix != "" {
		root.CreateAttr("xmlns:"+prefix, uri)
	} else {
		root.CreateAttr("xmlns", uri)
	}
	d.doc.SetRoot(root)
	return &Element{el: root, doc: d}
}

// WriteTo serializes the document with indentation, matching the teacher's
// Manifest.Write behaviour.
func (d *Document) WriteTo(w io.Writer) error {
	d.doc.Indent(2)
	_, err := d.doc.WriteTo(w)
	if err != nil {
		return errs.Wrap(component, errs.KindIO, "write failed", err)
	}
	return nil
}

// RegisterIDs scans node and its descendants for attributes named in
// idAttrs (commonly "Id" or "ID") and indexes them by value, standing in
// for xmlSecAddIDs: CipherReference same-document fragment lookups resolve
// through this index rather than a DTD-aware processor.
func (d *Document) RegisterIDs(node *Element, idAttrs ...string) {
	if len(idAttrs) == 0 {
		idAttrs = []string{"Id", "ID", "id"}
	}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, name := range idAttrs {
			if v := e.SelectAttrValue(name, ""); v != "" {
				d.ids[v] = &Element{el: e, doc: d}
			}
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(node.el)
}

// ResolveID looks up a previously registered element by its fragment
// identifier (without the leading '#').
func (d *Document) ResolveID(id string) (*Element, bool) {
	e, ok := d.ids[id]
	return e, ok
}

// ParseFragment parses data as a sequence of sibling elements by wrapping
// them in a synthetic root, returning the (detached) children. Used by
// decrypt's Element/Content substitution, which must turn decrypted bytes
// back into live nodes without assuming they carry a single root element
// (Type=Content fragments commonly don't).
func ParseFragment(data []byte) ([]*Element, error) {
	wrapped := append([]byte("<xmlenc-fragment>"), data...)
	wrapped = append(wrapped, []byte("</xmlenc-fragment>")...)
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(wrapped); err != nil {
		return nil, errs.Wrap(component, errs.KindXML, "malformed decrypted fragment", err)
	}
	root := doc.Root()
	children := root.ChildElements()
	out := make([]*Element, 0, len(children))
	for _, c := range children {
		c.Parent().RemoveChild(c)
		out = append(out, &Element{el: c})
	}
	return out, nil
}

// Tag returns the element's local name (without namespace prefix).
func (e *Element) Tag() string { return e.el.Tag }

// NamespaceURI resolves e's namespace URI by walking up through ancestor
// xmlns/xmlns:prefix declarations, since etree does not expose a resolved
// namespace URI per element the way an XML-namespace-aware parser would.
func (e *Element) NamespaceURI() string {
	prefix := e.el.Space
	attrName := "xmlns"
	if prefix != "" {
		attrName = "xmlns:" + prefix
	}
	for cur := e.el; cur != nil; {
		if v := cur.SelectAttrValue(attrName, ""); v != "" {
			return v
		}
		cur = cur.Parent()
	}
	return ""
}

// Is reports whether e has local name localName and resolves to namespace
// uri, the namespace-aware equivalent of xmlSecCheckNodeName.
func (e *Element) Is(localName, uri string) bool {
	return e != nil && e.el.Tag == localName && e.NamespaceURI() == uri
}

func (e *Element) Attr(name string) (string, bool) {
	a := e.el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

func (e *Element) SetAttr(name, value string) {
	e.el.CreateAttr(name, value)
}

func (e *Element) RemoveAttr(name string) {
	e.el.RemoveAttr(name)
}

// Text returns the character data that follows e's opening tag, up to its
// first child element (text after a child element is not included). The
// result is not trimmed.
func (e *Element) Text() string {
	return e.el.Text()
}

func (e *Element) SetText(s string) {
	e.el.SetText(s)
}

// Children returns e's child elements in document order, skipping text and
// comment nodes.
func (e *Element) Children() []*Element {
	kids := e.el.ChildElements()
	out := make([]*Element, 0, len(kids))
	for _, k := range kids {
		out = append(out, &Element{el: k, doc: e.doc})
	}
	return out
}

// OwnerDocument returns the Document e was parsed into or created under,
// or nil if e was built standalone (e.g. a detached ParseFragment result
// that hasn't been adopted yet).
func (e *Element) OwnerDocument() *Document { return e.doc }

// FirstChild returns e's first matching child element, or nil.
func (e *Element) FirstChild(localName, uri string) *Element {
	for _, c := range e.Children() {
		if c.Is(localName, uri) {
			return c
		}
	}
	return nil
}

// CreateChild appends a new child element with the given local name and
// namespace prefix (pass "" for prefix to inherit the ambient default
// namespace), returning the new node.
func (e *Element) CreateChild(prefix, localName string) *Element {
	tag := localName
	if prefix != "" {
		tag = prefix + ":" + localName
	}
	child := e.el.CreateElement(tag)
	return &Element{el: child, doc: e.doc}
}

// AdoptFragment appends fragment (detached elements produced by
// ParseFragment or built by another Document) as children of e.
func (e *Element) AdoptFragment(fragment []*Element) {
	for _, f := range fragment {
		e.el.AddChild(f.el)
	}
}

// Parent returns e's parent element, or nil at the document root.
func (e *Element) Parent() *Element {
	p := e.el.Parent()
	if p == nil {
		return nil
	}
	return &Element{el: p, doc: e.doc}
}

// RemoveChildren detaches every child element of e (used by XMLEncrypt's
// Type=Content path before the EncryptedData is moved under e).
func (e *Element) RemoveChildren() {
	for _, c := range e.el.ChildElements() {
		e.el.RemoveChild(c)
	}
}

// ReplaceWith swaps e for replacement in e's parent, used by decrypt's
// Type=Element substitution (the whole EncryptedData node is replaced by
// the decrypted plaintext element).
func (e *Element) ReplaceWith(replacement *Element) error {
	parent := e.el.Parent()
	if parent == nil {
		return errs.New(component, errs.KindInvalidNode, "cannot replace the document root")
	}
	idx := childIndex(parent, e.el)
	if idx < 0 {
		return errs.New(component, errs.KindInvalidNode, "element is not attached to its parent")
	}
	parent.RemoveChild(e.el)
	parent.InsertChildAt(idx, replacement.el)
	return nil
}

// ReplaceWithMany swaps e for a sequence of sibling elements, used when the
// decrypted Content fragment has more than one top-level element.
func (e *Element) ReplaceWithMany(replacements []*Element) error {
	parent := e.el.Parent()
	if parent == nil {
		return errs.New(component, errs.KindInvalidNode, "cannot replace the document root")
	}
	idx := childIndex(parent, e.el)
	if idx < 0 {
		return errs.New(component, errs.KindInvalidNode, "element is not attached to its parent")
	}
	parent.RemoveChild(e.el)
	for i, r := range replacements {
		parent.InsertChildAt(idx+i, r.el)
	}
	return nil
}

func childIndex(p *etree.Element, child *etree.Element) int {
	for i, t := range p.Child {
		if t == child {
			return i
		}
	}
	return -1
}

// Serialize renders e (and its subtree) as a standalone XML fragment,
// without an XML declaration, for feeding into binaryEncrypt/pipeline
// input.
func (e *Element) Serialize() ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(e.el.Copy())
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, errs.Wrap(component, errs.KindXML, "serialize failed", err)
	}
	return buf.Bytes(), nil
}

// SerializeChildren renders e's children (not e itself) concatenated, used
// for Type=Content encryption, where the EncryptedData replaces the
// element's children rather than the element itself.
func (e *Element) SerializeChildren() ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range e.Children() {
		data, err := c.Serialize()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

