package keys

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
)

// GetKeyFunc resolves a key from a parsed KeyInfo description, the Go
// equivalent of xmlSecKeysMngrGetKeyCallback. hint is the zero
// KeyInfoHint when no KeyInfo element was present and the engine is asking
// for a "bare" lookup by ctx.KeyReq alone; the default implementation
// rejects such a lookup with KindKeyNotFound.
type GetKeyFunc func(hint KeyInfoHint, ctx *KeyInfoCtx) (*Key, error)

// FindX509Func resolves a certificate by the criteria extracted from an
// X509Data element, mirroring the xmlSecKeysMngrFindX509 callback slot.
type FindX509Func func(subjectName, issuerName, issuerSerial, ski string, ctx *KeyInfoCtx) (*Key, error)

// VerifyX509Func mirrors the xmlSecKeysMngrVerifyX509 callback slot.
type VerifyX509Func func(key *Key, ctx *KeyInfoCtx) (VerifyResult, error)

// KeyInfoHint carries whatever identifying information ReadKeyInfo managed
// to extract from a KeyInfo element's children before calling back into the
// manager: a name, inline key material, or X509 lookup criteria. Exactly
// one of Inline, Name, or the X509 fields is normally populated.
type KeyInfoHint struct {
	Name         string
	Inline       *Key
	SubjectName  string
	IssuerName   string
	IssuerSerial string
	SKI          string
}

// KeysManager is the façade xmlsec calls a "keys manager": a KeyStore, an
// optional X509Store, and the three swappable lookup callbacks that let a
// caller substitute a database-backed or HSM-backed key source without
// touching EncCtx. Mirrors xmlSecKeysMngr / xmlSecSimpleKeysMngr.
type KeysManager struct {
	Store *KeyStore
	X509  *X509Store

	GetKey     GetKeyFunc
	FindX509   FindX509Func
	VerifyX509 VerifyX509Func

	log *logrus.Entry
}

// NewSimpleKeysManager returns a manager backed by an in-memory KeyStore
// and X509Store, with default callbacks wired to them, mirroring
// xmlSecSimpleKeysMngrCreate's all-in-one convenience constructor.
func NewSimpleKeysManager(log *logrus.Entry) *KeysManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &KeysManager{
		Store: NewKeyStore(),
		X509:  NewX509Store(),
		log:   log.WithField("component", "keys-manager"),
	}
	m.GetKey = m.defaultGetKey
	m.FindX509 = m.defaultFindX509
	m.VerifyX509 = m.defaultVerifyX509
	return m
}

func (m *KeysManager) defaultGetKey(hint KeyInfoHint, ctx *KeyInfoCtx) (*Key, error) {
	if hint.Inline != nil {
		return hint.Inline, nil
	}
	if hint.Name != "" {
		if k := m.Store.Find(hint.Name, ctx.KeyReq); k != nil {
			return k, nil
		}
		return nil, errs.New(component, errs.KindKeyNotFound, "no key named "+hint.Name)
	}
	if hint.SubjectName != "" || hint.IssuerName != "" || hint.IssuerSerial != "" || hint.SKI != "" {
		return m.FindX509(hint.SubjectName, hint.IssuerName, hint.IssuerSerial, hint.SKI, ctx)
	}
	return nil, errs.New(component, errs.KindKeyNotFound, "KeyInfo supplied no usable identification")
}

func (m *KeysManager) defaultFindX509(subjectName, issuerName, issuerSerial, ski string, ctx *KeyInfoCtx) (*Key, error) {
	if m.X509 == nil {
		return nil, errs.New(component, errs.KindKeyNotFound, "no X509Store configured")
	}
	cert := m.X509.Find(subjectName, issuerName, issuerSerial, ski)
	if cert == nil {
		return nil, errs.New(component, errs.KindKeyNotFound, "no matching certificate")
	}
	if k := m.Store.Find(cert.Subject.CommonName, ctx.KeyReq); k != nil {
		k.Cert = cert
		return k, nil
	}
	return &Key{
		Name:   cert.Subject.CommonName,
		Public: cert.PublicKey,
		Cert:   cert,
		Origin: OriginX509,
	}, nil
}

func (m *KeysManager) defaultVerifyX509(key *Key, ctx *KeyInfoCtx) (VerifyResult, error) {
	if m.X509 == nil || key.Cert == nil {
		return VerifyUntrusted, nil
	}
	return m.X509.Verify(key.Cert), nil
}

// Load reads an XML Keys document from path and adds every entry to the
// store, mirroring xmlSecSimpleKeysMngrLoad: the root element must be
// Keys in the xmlsec namespace, and each of its children must be a
// KeyInfo element (in the dsig namespace) read with origin mask ALL.
// When strict is false, a KeyInfo child that fails to decode is skipped
// and logged rather than aborting the whole load; a child that isn't
// even a KeyInfo element is always fatal, strict or not.
func (m *KeysManager) Load(path string, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(component, errs.KindIO, "reading keys document", err)
	}
	defer f.Close()

	doc, err := dom.ReadDocument(f)
	if err != nil {
		return err
	}
	root := doc.Root()
	if !root.Is("Keys", nsXMLSec) {
		return errs.New(component, errs.KindInvalidNode, "keys document root must be Keys")
	}
	for i, child := range root.Children() {
		if !child.Is("KeyInfo", nsDSig) {
			return errs.New(component, errs.KindUnexpectedNode, "keys document child must be a KeyInfo element")
		}
		key, decodeErr := decodeKeysDocumentEntry(child)
		if decodeErr != nil {
			if strict {
				return decodeErr
			}
			m.log.WithError(decodeErr).Warnf("skipping malformed KeyInfo entry %d", i)
			continue
		}
		if err := m.Store.Add(key); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the store's keys to path as an XML Keys document: a Keys
// root (xmlsec namespace) whose children are one KeyInfo per stored key,
// each carrying KeyName, KeyValue, and (if present) X509Data.
// keyValueType restricts which material is serialized, mirroring
// xmlSecSimpleKeysMngrSave's keyValueType/keysType parameter.
func (m *KeysManager) Save(path string, keyValueType DataType) error {
	doc := dom.NewDocument()
	root := doc.NewRoot("", "Keys", nsXMLSec)
	root.SetAttr("xmlns:dsig", nsDSig)
	for _, k := range m.Store.All() {
		encodeKeysDocumentEntry(root, k, keyValueType)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.Wrap(component, errs.KindIO, "writing keys document", err)
	}
	defer f.Close()

	if err := doc.WriteTo(f); err != nil {
		return err
	}
	return nil
}

// LoadPEMKey reads a PEM-encoded private or public key, adds it to the
// store under name, and also returns it, mirroring
// xmlSecSimpleKeysMngrLoadPemKey (which both registers and hands back the
// key it just parsed).
func (m *KeysManager) LoadPEMKey(name, path string, password []byte, private bool) (*Key, error) {
	key, err := loadPEMKeyFile(path, password, private)
	if err != nil {
		return nil, err
	}
	key.Name = name
	key.Origin = OriginKeyManager
	if err := m.Store.Add(key); err != nil {
		return nil, err
	}
	return key, nil
}
