// Command dtls-server runs a single-connection DTLS 1.2 server handshake
// over a UDP socket, driving this package's flight Engine from Flight0
// through Flight6. Grounded on ekr-mint's bin/mint-server/main.go: a thin
// flag+log wrapper with no subcommands, matching the teacher's own demo
// binaries rather than introducing a CLI framework for a two-flag tool.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"flag"
	"log"
	"math/big"
	"net"
	"time"

	"github.com/pion/logging"

	dtls "github.com/pion-student/dtls"
)

var (
	listenAddr = flag.String("listen", ":4444", "UDP address to listen on")
	psk        = flag.String("psk", "", "pre-shared key (hex-free, raw ASCII); when set, runs in PSK mode instead of ECDHE+certificate mode")
	pskHint    = flag.String("psk-hint", "", "PSK identity hint advertised in ServerKeyExchange")
)

func main() {
	flag.Parse()

	cfg := &dtls.HandshakeConfig{
		ClientAuth:           dtls.NoClientCert,
		ExtendedMasterSecret: dtls.ExtendedMasterSecretRequest,
	}

	if *psk != "" {
		key := []byte(*psk)
		cfg.LocalPSKCallback = func(hint []byte) ([]byte, error) { return key, nil }
		cfg.LocalPSKIdentityHint = []byte(*pskHint)
	} else {
		cert, err := generateSelfSigned()
		if err != nil {
			log.Fatalf("dtls-server: generating self-signed certificate: %v", err)
		}
		cfg.Certificates = []*dtls.Certificate{cert}
		cfg.ServerName = "localhost"
	}

	pc, err := net.ListenPacket("udp", *listenAddr)
	if err != nil {
		log.Fatalf("dtls-server: listen: %v", err)
	}
	defer pc.Close()
	log.Printf("dtls-server: listening on %s", pc.LocalAddr())

	// A production listener would demultiplex by source address and run
	// one Conn per peer; this demo handles exactly one handshake.
	buf := make([]byte, inboundProbeSize)
	n, rAddr, err := pc.ReadFrom(buf)
	if err != nil {
		log.Fatalf("dtls-server: initial read: %v", err)
	}
	log.Printf("dtls-server: first datagram (%d bytes) from %s", n, rAddr)

	conn := dtls.NewServerConn(pc, rAddr, cfg, dtls.ConnConfig{
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err := conn.Feed(buf[:n]); err != nil {
		log.Fatalf("dtls-server: feeding initial datagram: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.Handshake(ctx); err != nil {
		log.Fatalf("dtls-server: handshake failed: %v", err)
	}

	st := conn.ConnectionState()
	log.Printf("dtls-server: handshake complete: suite=%s srtp=%d verifiedClientCert=%v ems=%v",
		st.CipherSuite, st.SRTPProtectionProfile, st.PeerCertificatesVerified, st.ExtendedMasterSecret)
}

const inboundProbeSize = 8192

// generateSelfSigned mints an ephemeral ECDSA P-256 certificate for the
// non-PSK demo path, grounded on crypto/tls's own test-certificate
// generation idiom (x509.CreateCertificate against a self-signed template).
func generateSelfSigned() (*dtls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	return &dtls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
