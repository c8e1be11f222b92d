package dtls

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// NamedCurve is the IANA EC named_curve codepoint used in
// supported_elliptic_curves / ServerKeyExchange. Only the three curves
// this node supports (X25519, P-256, P-384) are given names; any other
// codepoint keeps its raw value when decoded, prints as "unsupported", and
// has no ecdh curve.
type NamedCurve uint16

const (
	NamedCurveUnsupported NamedCurve = 0x0000
	NamedCurveP256        NamedCurve = 23
	NamedCurveP384        NamedCurve = 24
	NamedCurveX25519      NamedCurve = 29
)

func (c NamedCurve) String() string {
	switch c {
	case NamedCurveP256:
		return "P-256"
	case NamedCurveP384:
		return "P-384"
	case NamedCurveX25519:
		return "X25519"
	default:
		return "unsupported"
	}
}

func (c NamedCurve) ecdhCurve() (ecdh.Curve, error) {
	switch c {
	case NamedCurveP256:
		return ecdh.P256(), nil
	case NamedCurveP384:
		return ecdh.P384(), nil
	case NamedCurveX25519:
		return ecdh.X25519(), nil
	default:
		return nil, fmt.Errorf("dtls: %w: curve %s", ErrInvalidECDHEPoint, c)
	}
}

// Keypair is an ephemeral ECDHE keypair bound to one named curve. It backs
// State.LocalKeypair. Nothing zeroes PrivateKey after the master secret
// has been derived; it lives as long as the State that holds it.
type Keypair struct {
	Curve      NamedCurve
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeypair creates a fresh ephemeral keypair on curve. Grounded on
// the vendored pion/dtls crypto.go's curve dispatch-by-type, adapted to
// stdlib crypto/ecdh which unifies X25519 and the NIST curves behind one
// GenerateKey/ECDH API.
func GenerateKeypair(curve NamedCurve) (*Keypair, error) {
	c, err := curve.ecdhCurve()
	if err != nil {
		return nil, err
	}
	priv, err := c.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("dtls: generating %s keypair: %w", curve, err)
	}
	return &Keypair{
		Curve:      curve,
		PublicKey:  priv.PublicKey().Bytes(),
		PrivateKey: priv.Bytes(),
	}, nil
}

// PreMasterSecretFromKeypair performs the ECDHE scalar multiplication: the
// server's ephemeral private key against the client's opaque public point.
// A malformed peer point (off
// curve, wrong length, identity element) is mapped to ErrInvalidECDHEPoint,
// which Flight4's parse turns into Fatal/IllegalParameter.
func PreMasterSecretFromKeypair(peerPublicKey []byte, localPrivateKey []byte, curve NamedCurve) ([]byte, error) {
	c, err := curve.ecdhCurve()
	if err != nil {
		return nil, err
	}
	priv, err := c.NewPrivateKey(localPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("dtls: %w: local private key: %v", ErrInvalidECDHEPoint, err)
	}
	pub, err := c.NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("dtls: %w: peer public key: %v", ErrInvalidECDHEPoint, err)
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("dtls: %w: %v", ErrInvalidECDHEPoint, err)
	}
	return secret, nil
}
