package respack

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/keys"
	"github.com/readium/xmlenc/metrics"
	"github.com/readium/xmlenc/xmlenc"
)

// Resource is a single package entry a ResourceEncryptor can encrypt,
// the same small reader-side interface the teacher's pack.Resource
// described (Path/ContentType/Open), trimmed to what bulk binary
// encryption actually needs: this engine has no notion of "ancillary,
// never encrypted" resources or compression-before-encryption, since
// those are Readium Package manifest concerns, not XML-Encryption ones.
type Resource interface {
	Path() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// ResourceEncryptor drives one EncCtx.BinaryEncrypt per Resource, the
// bulk-package counterpart of calling BinaryEncrypt by hand for a single
// document: every resource is wrapped under the same algorithm and, when
// GenerateKeyPerResource is false, the same content-encryption key, the
// way the teacher's RWPPWriter iterates reader.Resources() and calls
// CopyTo/MarkAsEncrypted once per entry.
type ResourceEncryptor struct {
	Manager   *keys.KeysManager
	Log       *logrus.Entry
	Algorithm string

	// CEK is the shared content-encryption key used when
	// GenerateKeyPerResource is false. It must already satisfy
	// Algorithm's key-size requirement.
	CEK *keys.Key

	// GenerateKeyPerResource mints a fresh random key for every resource
	// instead of reusing CEK, at the cost of one EncryptedKey per
	// resource rather than a single shared one; WriteKey, if set, is
	// attached to each so a later decrypt pass can locate the right
	// unwrapping key.
	GenerateKeyPerResource bool
	WriteKey               *keys.Key

	Manifest *Manifest

	cekRegistered bool
}

// sharedCEKName is the name CEK is registered under in Manager.Store so
// the template's KeyName lets EncCtx.resolveKey's normal KeyInfo lookup
// find it, rather than bypassing KeyInfo resolution entirely.
const sharedCEKName = "respack-shared-cek"

// NewResourceEncryptor returns a ResourceEncryptor writing into a fresh
// Manifest.
func NewResourceEncryptor(mgr *keys.KeysManager, log *logrus.Entry, algorithm string) *ResourceEncryptor {
	return &ResourceEncryptor{
		Manager:   mgr,
		Log:       log,
		Algorithm: algorithm,
		Manifest:  NewManifest(),
	}
}

// Encrypt reads all of r's content, encrypts it under Algorithm and
// registers the resulting EncryptedData in e.Manifest keyed by r.Path().
func (e *ResourceEncryptor) Encrypt(ctx context.Context, r Resource) error {
	if e.CEK == nil && !e.GenerateKeyPerResource {
		return errs.New(component, errs.KindInvalidData, "ResourceEncryptor needs a CEK or GenerateKeyPerResource")
	}

	start := time.Now()
	outcome := metrics.OutcomeSuccess
	defer func() {
		metrics.ObserveOperation("encrypt", "EncryptedData", outcome, time.Since(start).Seconds())
	}()

	rc, err := r.Open()
	if err != nil {
		outcome = metrics.OutcomeFailure
		return errs.Wrap(component, errs.KindIO, "opening resource "+r.Path(), err)
	}
	defer rc.Close()
	plaintext, err := io.ReadAll(rc)
	if err != nil {
		outcome = metrics.OutcomeFailure
		return errs.Wrap(component, errs.KindIO, "reading resource "+r.Path(), err)
	}

	template := xmlenc.NewEncryptedDataTemplate(e.Algorithm)
	template.SetAttr("MimeType", r.ContentType())

	if !e.GenerateKeyPerResource {
		if !e.cekRegistered {
			cek := e.CEK.Duplicate()
			cek.Name = sharedCEKName
			cek.Origin = keys.OriginKeyManager
			if err := e.Manager.Store.Add(cek); err != nil {
				outcome = metrics.OutcomeFailure
				return errs.Wrap(component, errs.KindCrypto, "registering shared content-encryption key", err)
			}
			e.cekRegistered = true
		}
		keyInfo := template.CreateChild("dsig", "KeyInfo")
		keyInfo.SetAttr("xmlns:dsig", xmlenc.NSDSig)
		keyInfo.CreateChild("dsig", "KeyName").SetText(sharedCEKName)
	}

	encCtx := xmlenc.NewEncCtx(e.Manager, e.Log)
	encCtx.Initialize()
	encCtx.GenerateKey = e.GenerateKeyPerResource
	encCtx.WriteKey = e.WriteKey

	encrypted, err := encCtx.BinaryEncrypt(ctx, template, plaintext)
	encCtx.Finalize()
	if err != nil {
		outcome = metrics.OutcomeFailure
		return errs.Wrap(component, errs.KindCrypto, "encrypting resource "+r.Path(), err)
	}

	e.Manifest.Add(r.Path(), encrypted)
	return nil
}

// EncryptAll encrypts every resource in resources in order, stopping at
// the first error.
func (e *ResourceEncryptor) EncryptAll(ctx context.Context, resources []Resource) error {
	for _, r := range resources {
		if err := e.Encrypt(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
