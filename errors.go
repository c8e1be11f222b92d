package dtls

import "errors"

// Stable, comparable error sentinels. These are identifiers, not strings:
// callers compare with errors.Is rather than matching on message text, since
// wrapped context (via fmt.Errorf's %w) is appended at the call site.
var (
	// ErrCertificateVerifyNoCertificate is returned when a CertificateVerify
	// message arrives but no client certificate preceded it.
	ErrCertificateVerifyNoCertificate = errors.New("dtls: client sent CertificateVerify but no certificate")

	// ErrNoAvailableSignatureSchemes is returned when the peer's
	// (hash, signature) pair in CertificateVerify or ServerKeyExchange is not
	// among the locally configured signature schemes.
	ErrNoAvailableSignatureSchemes = errors.New("dtls: no compatible signature schemes")

	// ErrClientCertificateRequired is returned when client_auth demands a
	// certificate and the peer sent none.
	ErrClientCertificateRequired = errors.New("dtls: client certificate required")

	// ErrClientCertificateNotVerified is returned when a client certificate
	// was sent but never passed chain verification, under a policy that
	// requires it.
	ErrClientCertificateNotVerified = errors.New("dtls: client certificate not verified")

	// ErrHandshakeMessageUnexpectedType means the cache handed back a
	// message whose parsed variant did not match its wire type.
	ErrHandshakeMessageUnexpectedType = errors.New("dtls: handshake message has wrong type for its header")

	// ErrKeySignatureMismatch is returned by signature verification when the
	// signature does not validate against the claimed public key.
	ErrKeySignatureMismatch = errors.New("dtls: key signature mismatch")

	// ErrKeySignatureGenerateUnimplemented is returned when asked to sign
	// with an unsupported private key type.
	ErrKeySignatureGenerateUnimplemented = errors.New("dtls: key signature generation not implemented for this key type")

	// ErrKeySignatureVerifyUnimplemented is returned when asked to verify a
	// signature against an unsupported public key type.
	ErrKeySignatureVerifyUnimplemented = errors.New("dtls: key signature verification not implemented for this key type")

	// ErrInvalidECDSASignature flags a syntactically invalid ECDSA
	// signature (non-positive R or S).
	ErrInvalidECDSASignature = errors.New("dtls: invalid ECDSA signature")

	// ErrLengthMismatch is a generic "wrong number of elements" error used by
	// certificate-chain helpers.
	ErrLengthMismatch = errors.New("dtls: length mismatch")

	// ErrNoCertificates is returned by GetCertificate when the config has no
	// certificate usable for the requested server name and no default.
	ErrNoCertificates = errors.New("dtls: no certificates configured")

	// ErrInvalidCipherSuite is returned by NewCipherSuite for a cipher suite
	// ID this package does not implement.
	ErrInvalidCipherSuite = errors.New("dtls: invalid or unnegotiated cipher suite")

	// ErrCipherSuiteNotInitialized flags an encrypt/decrypt attempted before
	// CipherSuite.Init has run.
	ErrCipherSuiteNotInitialized = errors.New("dtls: cipher suite not initialized")

	// ErrInvalidECDHEPoint flags a peer public key that fails to decode or
	// scalar-multiply on the negotiated curve.
	ErrInvalidECDHEPoint = errors.New("dtls: invalid ECDHE public key")

	// ErrPSKCallbackFailed wraps a failure returned by a PSK callback.
	ErrPSKCallbackFailed = errors.New("dtls: PSK callback failed")

	// ErrNotEnoughRoomForNonce / ErrDecryptFailed flag record-cipher failures.
	ErrNotEnoughRoomForNonce = errors.New("dtls: not enough room for AEAD nonce")
	ErrDecryptFailed         = errors.New("dtls: record decryption failed")

	// ErrIncomplete is the "not enough has arrived yet" sentinel returned by
	// handshakeCache.pullAndMerge when a required rule has no match and by
	// fragmentBuffer.push while a message still lacks fragments. Conn treats
	// the reassembler's ErrIncomplete as "wait for more fragments"; a flight
	// Parse that gets it returns it together with a fatal InternalError alert.
	ErrIncomplete = errors.New("dtls: handshake cache rule set not yet satisfiable")

	// ErrFragmentOutOfBounds flags a malformed DTLS handshake fragment
	// whose offset+length exceeds the declared message length.
	ErrFragmentOutOfBounds = errors.New("dtls: handshake fragment out of bounds")

	// ErrInvalidFlight flags a flightVal with no registered handlers.
	ErrInvalidFlight = errors.New("dtls: invalid flight")

	// ErrNoMatchingCipherSuite flags a ClientHello that offers no cipher
	// suite NewCipherSuite supports.
	ErrNoMatchingCipherSuite = errors.New("dtls: no matching cipher suite")

	// ErrCookieMismatch flags a Flight3 ClientHello whose cookie does not
	// match the one issued in Flight2's HelloVerifyRequest.
	ErrCookieMismatch = errors.New("dtls: cookie mismatch")

	// ErrExtendedMasterSecretRequired flags a client that omitted the
	// use_extended_master_secret extension while the server's policy is
	// ExtendedMasterSecretRequire.
	ErrExtendedMasterSecretRequired = errors.New("dtls: server requires extended master secret but client did not offer it")

	// ErrFinishedVerifyDataMismatch flags a client Finished whose verify_data
	// does not match what this node computes from the master secret and
	// handshake transcript — the client does not hold the negotiated keys.
	ErrFinishedVerifyDataMismatch = errors.New("dtls: Finished verify_data mismatch")
)
