package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, commonName string) *x509.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte(commonName),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestX509StoreFindByCriteria(t *testing.T) {
	store := NewX509Store()
	cert := selfSignedCert(t, "alice")
	store.trusted = append(store.trusted, cert)

	found := store.Find(cert.Subject.String(), "", "", "")
	require.NotNil(t, found)
	require.Equal(t, cert.Raw, found.Raw)

	require.Nil(t, store.Find("not-a-match", "", "", ""))
}

func TestX509StoreFindBySKI(t *testing.T) {
	store := NewX509Store()
	cert := selfSignedCert(t, "bob")
	store.untrusted = append(store.untrusted, cert)

	found := store.Find("", "", "", string(cert.SubjectKeyId))
	require.NotNil(t, found)
}

func TestX509StoreVerifyTrustedSelfSignedRoot(t *testing.T) {
	store := NewX509Store()
	cert := selfSignedCert(t, "trusted-root")
	store.trusted = append(store.trusted, cert)

	require.Equal(t, VerifyTrusted, store.Verify(cert))
}

func TestX509StoreVerifyUntrustedWithoutAnchors(t *testing.T) {
	store := NewX509Store()
	cert := selfSignedCert(t, "unknown")

	require.Equal(t, VerifyUntrusted, store.Verify(cert))
}
