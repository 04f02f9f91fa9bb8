// Package respack adapts the teacher's Readium Package reader/writer
// (pack/rwppackage.go) into a bulk resource-encryption driver for this
// engine: given a set of named resources, it runs each one through an
// EncCtx and assembles the resulting EncryptedData elements into an
// OCF-style "encryption.xml" manifest, the container-level companion
// document EPUB/LCP-style packages keep alongside their encrypted
// resources.
package respack

import (
	"io"
	"net/url"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/xmlenc"
)

const component = "respack"

// ContainerNS is the OCF container namespace the <encryption> manifest
// root is qualified with, matching the namespace the teacher's own
// rwppackage.go Manifest type carried on its XMLName tag.
const ContainerNS = "urn:oasis:names:tc:opendocument:xmlns:container"

// Manifest collects the EncryptedData elements produced for each resource
// in a package, keyed by the resource's original path so later lookups
// (DataForPath) don't need to walk the XML tree.
type Manifest struct {
	doc    *dom.Document
	root   *dom.Element
	byPath map[string]*dom.Element
}

// NewManifest returns an empty manifest ready to accept entries via Add.
func NewManifest() *Manifest {
	doc := dom.NewDocument()
	root := doc.NewRoot("", "encryption", ContainerNS)
	return &Manifest{doc: doc, root: root, byPath: make(map[string]*dom.Element)}
}

// attrPath names the manifest's own bookkeeping attribute on each
// EncryptedData entry, carrying the resource path through a WriteTo/
// ReadManifest round trip. It is unprefixed and therefore outside every
// XML namespace in play, a private extension to the OCF encryption.xml
// shape rather than part of the xmlenc/dsig vocabularies.
const attrPath = "Path"

// Add registers the EncryptedData element produced for the resource at
// path, adopting it as a child of the manifest root and stamping it with
// attrPath so a later ReadManifest can recover the association.
func (m *Manifest) Add(path string, encryptedData *dom.Element) {
	encryptedData.SetAttr(attrPath, path)
	m.root.AdoptFragment([]*dom.Element{encryptedData})
	m.byPath[path] = encryptedData
}

// DataForPath returns the EncryptedData element registered for path, the
// Go equivalent of the teacher's Manifest.DataForFile lookup (there keyed
// by CipherReference/@URI; here keyed directly, since this engine stores
// ciphertext inline rather than by external reference).
func (m *Manifest) DataForPath(path string) (*dom.Element, bool) {
	if d, ok := m.byPath[path]; ok {
		return d, true
	}
	escaped, err := url.Parse(path)
	if err != nil {
		return nil, false
	}
	d, ok := m.byPath[escaped.EscapedPath()]
	return d, ok
}

// Paths returns the set of resource paths registered in the manifest.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.byPath))
	for p := range m.byPath {
		paths = append(paths, p)
	}
	return paths
}

// WriteTo serializes the manifest document to w.
func (m *Manifest) WriteTo(w io.Writer) error {
	return m.doc.WriteTo(w)
}

// ReadManifest parses an existing "encryption.xml" document, indexing its
// EncryptedData children by attrPath (falling back to Id for documents
// written by something other than this package) so a later decrypt pass
// can locate the entry for a given resource path.
func ReadManifest(r io.Reader) (*Manifest, error) {
	doc, err := dom.ReadDocument(r)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	m := &Manifest{doc: doc, root: root, byPath: make(map[string]*dom.Element)}
	if root == nil {
		return m, nil
	}
	for _, child := range root.Children() {
		if !child.Is("EncryptedData", xmlenc.NSEnc) {
			continue
		}
		if path, ok := child.Attr(attrPath); ok && path != "" {
			m.byPath[path] = child
			continue
		}
		if id, ok := child.Attr("Id"); ok && id != "" {
			m.byPath[id] = child
		}
	}
	return m, nil
}
