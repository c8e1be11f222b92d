package dtls

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
)

// HashAlgorithm is RFC 5246 §7.4.1.4.1's one-byte hash identifier. The
// value 8 is not IANA-assigned in TLS 1.2's registry; it is used here,
// matching the convention pion/dtls adopted for Ed25519 (a TLS-1.3-era
// signature scheme retrofitted into this node's one-byte pairing), purely
// as an internal sentinel meaning "no separate hash — Ed25519 hashes
// internally."
type HashAlgorithm uint8

const (
	HashAlgorithmUnsupported HashAlgorithm = 0
	HashAlgorithmSHA1        HashAlgorithm = 2
	HashAlgorithmSHA256      HashAlgorithm = 4
	HashAlgorithmSHA384      HashAlgorithm = 5
	HashAlgorithmSHA512      HashAlgorithm = 6
	HashAlgorithmEd25519     HashAlgorithm = 8
)

// SignatureAlgorithm is RFC 5246 §7.4.1.4.1's one-byte signature identifier.
type SignatureAlgorithm uint8

const (
	SignatureAlgorithmUnsupported SignatureAlgorithm = 0
	SignatureAlgorithmRSA         SignatureAlgorithm = 1
	SignatureAlgorithmECDSA       SignatureAlgorithm = 3
	SignatureAlgorithmEd25519     SignatureAlgorithm = 7
)

// SignatureHashAlgorithm is the {hash, signature} pair negotiated via
// signature_algorithms / used to pick a CertificateVerify / ServerKeyExchange
// scheme.
type SignatureHashAlgorithm struct {
	Hash      HashAlgorithm
	Signature SignatureAlgorithm
}

// cryptoHash maps to the stdlib crypto.Hash used for RSA/ECDSA signing and
// verification via crypto.Signer.
func (h HashAlgorithm) cryptoHash() crypto.Hash {
	switch h {
	case HashAlgorithmSHA1:
		return crypto.SHA1
	case HashAlgorithmSHA256:
		return crypto.SHA256
	case HashAlgorithmSHA384:
		return crypto.SHA384
	case HashAlgorithmSHA512:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}

// digest hashes msg with h, used ahead of rsa/ecdsa Sign/Verify which both
// expect a pre-hashed message rather than hashing internally (unlike
// ed25519, which is handled separately by its callers).
func (h HashAlgorithm) digest(msg []byte) []byte {
	switch h {
	case HashAlgorithmSHA1:
		sum := crypto.SHA1.New()
		sum.Write(msg)
		return sum.Sum(nil)
	case HashAlgorithmSHA384:
		sum := sha512.New384()
		sum.Write(msg)
		return sum.Sum(nil)
	case HashAlgorithmSHA512:
		sum := sha512.New()
		sum.Write(msg)
		return sum.Sum(nil)
	default:
		sum := sha256.New()
		sum.Write(msg)
		return sum.Sum(nil)
	}
}

// signatureAlgorithmMatchesKeyType reports whether sig is the signature
// algorithm of keyType's family ("rsa", "ecdsa" or "ed25519"); any other
// keyType matches nothing.
func signatureAlgorithmMatchesKeyType(sig SignatureAlgorithm, keyType string) bool {
	switch keyType {
	case "rsa":
		return sig == SignatureAlgorithmRSA
	case "ecdsa":
		return sig == SignatureAlgorithmECDSA
	case "ed25519":
		return sig == SignatureAlgorithmEd25519
	default:
		return false
	}
}
