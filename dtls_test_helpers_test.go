package dtls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateTestCertificate mints an ephemeral self-signed ECDSA P-256
// certificate for handshake tests, grounded on crypto/tls's own
// test-certificate generation idiom.
func generateTestCertificate(t *testing.T, commonName string) *Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	return &Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

// newCertPoolFrom builds an x509.CertPool containing certs, for tests that
// need a trust root to verify a client certificate against.
func newCertPoolFrom(certs []*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool
}

func testRandom(seed byte) Random {
	var r Random
	r.GMTUnixTime = 0x01020304
	for i := range r.RandomBytes {
		r.RandomBytes[i] = seed + byte(i)
	}
	return r
}
