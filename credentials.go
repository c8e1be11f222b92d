package dtls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"
)

type ecdsaSignature struct {
	R, S *big.Int
}

// Certificate is a leaf certificate plus its private key, in the shape
// tls.Certificate takes (DER-encoded chain, leaf-to-root).
type Certificate struct {
	Certificate [][]byte
	PrivateKey  crypto.PrivateKey
}

func (c *Certificate) keyType() string {
	switch c.PrivateKey.(type) {
	case ed25519.PrivateKey:
		return "ed25519"
	case *ecdsa.PrivateKey:
		return "ecdsa"
	case *rsa.PrivateKey:
		return "rsa"
	default:
		return ""
	}
}

// selectSignatureScheme implements select_signature_scheme:
// the first scheme in schemes whose signature field matches privateKey's
// algorithm family. Ordering is the caller's (the offered list's) to
// control, not this function's.
func selectSignatureScheme(schemes []SignatureHashAlgorithm, cert *Certificate) (SignatureHashAlgorithm, error) {
	keyType := cert.keyType()
	for _, s := range schemes {
		if signatureAlgorithmMatchesKeyType(s.Signature, keyType) {
			return s, nil
		}
	}
	return SignatureHashAlgorithm{}, ErrNoAvailableSignatureSchemes
}

// serverKeyExchangeSignatureMessage builds the plaintext ServerKeyExchange
// signs over: client_random ‖ server_random ‖ ServerECDHParams ‖ public_key,
// per RFC 5246 §7.4.3 and grounded on the vendored pion/dtls crypto.go's
// valueKeyMessage.
func serverKeyExchangeSignatureMessage(clientRandom, serverRandom, publicKey []byte, curve NamedCurve) []byte {
	params := make([]byte, 4)
	params[0] = 3 // named_curve
	binary.BigEndian.PutUint16(params[1:3], uint16(curve))
	params[3] = byte(len(publicKey))

	msg := make([]byte, 0, len(clientRandom)+len(serverRandom)+len(params)+len(publicKey))
	msg = append(msg, clientRandom...)
	msg = append(msg, serverRandom...)
	msg = append(msg, params...)
	msg = append(msg, publicKey...)
	return msg
}

// generateKeySignature signs the ServerKeyExchange params with the server's
// private key, producing the signature field written into
// ServerKeyExchange.signed_params.
func generateKeySignature(clientRandom, serverRandom, publicKey []byte, curve NamedCurve, privateKey crypto.PrivateKey, hashAlgorithm HashAlgorithm) ([]byte, error) {
	msg := serverKeyExchangeSignatureMessage(clientRandom, serverRandom, publicKey, curve)
	switch p := privateKey.(type) {
	case ed25519.PrivateKey:
		return p.Sign(rand.Reader, msg, crypto.Hash(0))
	case *ecdsa.PrivateKey:
		return p.Sign(rand.Reader, hashAlgorithm.digest(msg), hashAlgorithm.cryptoHash())
	case *rsa.PrivateKey:
		return rsa.SignPKCS1v15(rand.Reader, p, hashAlgorithm.cryptoHash(), hashAlgorithm.digest(msg))
	default:
		return nil, ErrKeySignatureGenerateUnimplemented
	}
}

// verifyKeySignature checks a peer ServerKeyExchange/ClientKeyExchange
// signature against the first certificate in rawCertificates, verifying
// against the leaf certificate's public key.
func verifyKeySignature(message, remoteKeySignature []byte, hashAlgorithm HashAlgorithm, rawCertificates [][]byte) error {
	if len(rawCertificates) == 0 {
		return ErrLengthMismatch
	}
	cert, err := x509.ParseCertificate(rawCertificates[0])
	if err != nil {
		return fmt.Errorf("dtls: parse leaf certificate: %w", err)
	}

	switch p := cert.PublicKey.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(p, message, remoteKeySignature) {
			return ErrKeySignatureMismatch
		}
		return nil
	case *ecdsa.PublicKey:
		sig := &ecdsaSignature{}
		if _, err := asn1.Unmarshal(remoteKeySignature, sig); err != nil {
			return fmt.Errorf("dtls: unmarshal ecdsa signature: %w", err)
		}
		if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
			return ErrInvalidECDSASignature
		}
		if !ecdsa.Verify(p, hashAlgorithm.digest(message), sig.R, sig.S) {
			return ErrKeySignatureMismatch
		}
		return nil
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(p, hashAlgorithm.cryptoHash(), hashAlgorithm.digest(message), remoteKeySignature)
	default:
		return ErrKeySignatureVerifyUnimplemented
	}
}

// generateCertificateVerify signs the running handshake transcript hash for
// a client CertificateVerify message, per RFC 5246 §7.4.8.
func generateCertificateVerify(handshakeTranscript []byte, privateKey crypto.PrivateKey, hashAlgorithm HashAlgorithm) ([]byte, error) {
	hashed := hashAlgorithm.digest(handshakeTranscript)
	switch p := privateKey.(type) {
	case ed25519.PrivateKey:
		return p.Sign(rand.Reader, handshakeTranscript, crypto.Hash(0))
	case *ecdsa.PrivateKey:
		return p.Sign(rand.Reader, hashed, hashAlgorithm.cryptoHash())
	case *rsa.PrivateKey:
		return rsa.SignPKCS1v15(rand.Reader, p, hashAlgorithm.cryptoHash(), hashed)
	default:
		return nil, ErrKeySignatureGenerateUnimplemented
	}
}

// verifyCertificateVerify checks that a client's CertificateVerify
// signature covers the handshake transcript hash, using the client's leaf
// certificate public key.
func verifyCertificateVerify(handshakeTranscript []byte, hashAlgorithm HashAlgorithm, remoteKeySignature []byte, rawCertificates [][]byte) error {
	if len(rawCertificates) == 0 {
		return ErrLengthMismatch
	}
	cert, err := x509.ParseCertificate(rawCertificates[0])
	if err != nil {
		return fmt.Errorf("dtls: parse leaf certificate: %w", err)
	}

	switch p := cert.PublicKey.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(p, handshakeTranscript, remoteKeySignature) {
			return ErrKeySignatureMismatch
		}
		return nil
	case *ecdsa.PublicKey:
		sig := &ecdsaSignature{}
		if _, err := asn1.Unmarshal(remoteKeySignature, sig); err != nil {
			return fmt.Errorf("dtls: unmarshal ecdsa signature: %w", err)
		}
		if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
			return ErrInvalidECDSASignature
		}
		hashed := hashAlgorithm.digest(handshakeTranscript)
		if !ecdsa.Verify(p, hashed, sig.R, sig.S) {
			return ErrKeySignatureMismatch
		}
		return nil
	case *rsa.PublicKey:
		hashed := hashAlgorithm.digest(handshakeTranscript)
		return rsa.VerifyPKCS1v15(p, hashAlgorithm.cryptoHash(), hashed, remoteKeySignature)
	default:
		return ErrKeySignatureVerifyUnimplemented
	}
}

func loadCerts(rawCertificates [][]byte) ([]*x509.Certificate, error) {
	if len(rawCertificates) == 0 {
		return nil, ErrNoCertificates
	}
	certs := make([]*x509.Certificate, 0, len(rawCertificates))
	for _, raw := range rawCertificates {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, fmt.Errorf("dtls: parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// verifyClientCert verifies the server's peer (the connecting client):
// builds an intermediate pool
// from everything but the leaf and verifies against clientCAs with
// ExtKeyUsageClientAuth, matching mutual-TLS semantics.
func verifyClientCert(rawCertificates [][]byte, clientCAs *x509.CertPool) ([][]*x509.Certificate, error) {
	certs, err := loadCerts(rawCertificates)
	if err != nil {
		return nil, err
	}
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	opts := x509.VerifyOptions{
		Roots:         clientCAs,
		CurrentTime:   time.Now(),
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	return certs[0].Verify(opts)
}
