package keys

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/readium/xmlenc/errs"
)

// VerifyFlags mirrors the xmlSecKeyDataX509 verification flag bitmask
// (xmlSecKeyDataX509VerifyAndPossibleDecrypt-style options), controlling
// how permissive X509Store.Verify is.
type VerifyFlags uint

const (
	// VerifyAllowExpired skips certificate expiry checking, matching the
	// XMLSEC_KEYINFO_FLAGS variant used by test harnesses with fixed-date
	// fixtures.
	VerifyAllowExpired VerifyFlags = 1 << iota
	// VerifyDisablePathLengthCheck can be set, but Verify does not consult
	// it: basic-constraints path length is always enforced.
	VerifyDisablePathLengthCheck
)

// VerifyResult mirrors xmlSecSimpleKeysMngrVerifyX509's tri-state return
// (1 = trusted, 0 = untrusted-but-valid-chain-unknown, -1 = error).
type VerifyResult int

const (
	VerifyError     VerifyResult = -1
	VerifyUntrusted VerifyResult = 0
	VerifyTrusted   VerifyResult = 1
)

// X509Store holds the two logical certificate pools xmlsec keeps per
// keys-manager: a trusted pool (anchors verification) and an untrusted
// ("intermediate") pool supplying chain-building material that is not
// itself trusted.
type X509Store struct {
	trusted   []*x509.Certificate
	untrusted []*x509.Certificate
	flags     VerifyFlags
}

// NewX509Store returns an empty trust store.
func NewX509Store() *X509Store {
	return &X509Store{}
}

// SetVerifyFlags installs the verification flags used by Verify.
func (s *X509Store) SetVerifyFlags(flags VerifyFlags) {
	s.flags = flags
}

// LoadPEMCert parses a PEM-encoded certificate file and adds it to the
// trusted or untrusted pool, mirroring xmlSecSimpleKeysMngrLoadPemCert.
func (s *X509Store) LoadPEMCert(path string, trusted bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(component, errs.KindIO, "reading certificate file", err)
	}
	cert, err := parsePEMCert(data)
	if err != nil {
		return err
	}
	if trusted {
		s.trusted = append(s.trusted, cert)
	} else {
		s.untrusted = append(s.untrusted, cert)
	}
	return nil
}

func parsePEMCert(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errs.New(component, errs.KindInvalidData, "no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "parsing certificate", err)
	}
	return cert, nil
}

// AddCertsDir walks dir non-recursively, best-effort loading every PEM
// certificate it finds into the trusted pool (or the untrusted pool when
// trusted is false) and skipping files that don't parse, matching the
// supplemented xmlSecSimpleKeysMngrAddCertsDir behaviour described in
// SPEC_FULL.md.
func (s *X509Store) AddCertsDir(dir string, trusted bool) (loaded int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errs.Wrap(component, errs.KindIO, "reading certificates directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			continue
		}
		cert, parseErr := parsePEMCert(data)
		if parseErr != nil {
			continue
		}
		if trusted {
			s.trusted = append(s.trusted, cert)
		} else {
			s.untrusted = append(s.untrusted, cert)
		}
		loaded++
	}
	return loaded, nil
}

// LoadPKCS12 decodes a PKCS#12 bundle, returning a Key carrying the private
// key and leaf certificate, and adds any CA certificates found alongside
// it to the untrusted pool for chain building. This is the supplemented
// xmlSecSimpleKeysMngrLoadPkcs12 path.
func (s *X509Store) LoadPKCS12(path, password string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "reading PKCS#12 file", err)
	}
	privKey, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindCrypto, "decoding PKCS#12", err)
	}
	for _, ca := range caCerts {
		s.untrusted = append(s.untrusted, ca)
	}
	return &Key{
		Name:    cert.Subject.CommonName,
		Private: privKey,
		Public:  cert.PublicKey,
		Cert:    cert,
		Origin:  OriginPKCS12,
	}, nil
}

// Find performs a linear scan across the trusted pool then the untrusted
// pool (insertion order within each), returning the first certificate
// matching every supplied, non-empty criterion. A nil/empty criterion is
// ignored, mirroring xmlSecSimpleKeysMngrX509Find's parameter handling.
func (s *X509Store) Find(subjectName, issuerName, issuerSerial, ski string) *x509.Certificate {
	for _, pool := range [][]*x509.Certificate{s.trusted, s.untrusted} {
		for _, cert := range pool {
			if subjectName != "" && cert.Subject.String() != subjectName {
				continue
			}
			if issuerName != "" && cert.Issuer.String() != issuerName {
				continue
			}
			if issuerSerial != "" && cert.SerialNumber.String() != issuerSerial {
				continue
			}
			if ski != "" && !matchesSKI(cert, ski) {
				continue
			}
			return cert
		}
	}
	return nil
}

func matchesSKI(cert *x509.Certificate, ski string) bool {
	return len(cert.SubjectKeyId) > 0 && string(cert.SubjectKeyId) == ski
}

// Verify builds a chain from cert to one of the trusted anchors, using the
// untrusted pool as intermediates, and reports VerifyTrusted,
// VerifyUntrusted, or VerifyError exactly as
// xmlSecSimpleKeysMngrVerifyX509 does.
func (s *X509Store) Verify(cert *x509.Certificate) VerifyResult {
	roots := x509.NewCertPool()
	for _, c := range s.trusted {
		roots.AddCert(c)
	}
	intermediates := x509.NewCertPool()
	for _, c := range s.untrusted {
		intermediates.AddCert(c)
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	}
	if s.flags&VerifyAllowExpired != 0 {
		opts.CurrentTime = cert.NotBefore.Add(time.Hour)
	}
	if _, err := cert.Verify(opts); err != nil {
		if len(s.trusted) == 0 {
			return VerifyUntrusted
		}
		return VerifyError
	}
	return VerifyTrusted
}
