package dtls

import "crypto/x509"

// ClientAuthType mirrors crypto/tls.ClientAuthType's five-way policy for
// how the server requests and verifies a client certificate.
type ClientAuthType int

const (
	NoClientCert ClientAuthType = iota
	RequestClientCert
	RequireAnyClientCert
	VerifyClientCertIfGiven
	RequireAndVerifyClientCert
)

func (t ClientAuthType) String() string {
	switch t {
	case NoClientCert:
		return "NoClientCert"
	case RequestClientCert:
		return "RequestClientCert"
	case RequireAnyClientCert:
		return "RequireAnyClientCert"
	case VerifyClientCertIfGiven:
		return "VerifyClientCertIfGiven"
	case RequireAndVerifyClientCert:
		return "RequireAndVerifyClientCert"
	default:
		return "Unknown"
	}
}

// ExtendedMasterSecretType is the extended_master_secret negotiation
// tri-state: disabled, requested, or required.
type ExtendedMasterSecretType int

const (
	ExtendedMasterSecretDisable ExtendedMasterSecretType = iota
	ExtendedMasterSecretRequest
	ExtendedMasterSecretRequire
)

// PSKCallback looks up the pre-shared key for an identity hint.
type PSKCallback func(hint []byte) ([]byte, error)

// VerifyPeerCertificateFunc is an optional hook run after the built-in
// chain verification, mirroring crypto/tls.Config.VerifyPeerCertificate.
type VerifyPeerCertificateFunc func(leaf []byte, chains [][]*x509.Certificate) error

// HandshakeConfig holds the server's handshake policy: which signature
// schemes it offers, its PSK or certificate credentials, and its
// client-authentication requirements. It has no cipher suite setting:
// flight3Parse takes the first offered suite that NewCipherSuite supports.
type HandshakeConfig struct {
	InitialEpoch uint16

	ClientAuth            ClientAuthType
	ExtendedMasterSecret  ExtendedMasterSecretType
	LocalSignatureSchemes []SignatureHashAlgorithm
	LocalPSKCallback      PSKCallback
	LocalPSKIdentityHint  []byte
	ServerName            string
	VerifyPeerCertificate VerifyPeerCertificateFunc

	// ClientCAs is the trust anchor verify_cert builds a chain against.
	ClientCAs *x509.CertPool

	Certificates []*Certificate
}

// GetCertificate implements get_certificate: SNI lookup with
// fallback to the first configured certificate, grounded on
// crypto/tls.Config.getCertificate's same fallback shape.
func (c *HandshakeConfig) GetCertificate(serverName string) (*Certificate, error) {
	if len(c.Certificates) == 0 {
		return nil, ErrNoCertificates
	}
	for _, cert := range c.Certificates {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			continue
		}
		if leaf.Subject.CommonName == serverName {
			return cert, nil
		}
		for _, name := range leaf.DNSNames {
			if name == serverName {
				return cert, nil
			}
		}
	}
	return c.Certificates[0], nil
}

func defaultSignatureSchemes() []SignatureHashAlgorithm {
	return []SignatureHashAlgorithm{
		{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmECDSA},
		{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmRSA},
		{Hash: HashAlgorithmSHA384, Signature: SignatureAlgorithmECDSA},
		{Hash: HashAlgorithmEd25519, Signature: SignatureAlgorithmEd25519},
	}
}

// Init fills unset fields with defaults, mirroring ekr-mint's
// Config.Init (conn.go) which lazily defaults CipherSuites/Groups/
// SignatureSchemes the same way.
func (c *HandshakeConfig) Init() {
	if len(c.LocalSignatureSchemes) == 0 {
		c.LocalSignatureSchemes = defaultSignatureSchemes()
	}
}
