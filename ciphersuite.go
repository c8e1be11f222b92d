package dtls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"hash"
	"sync"
)

// CipherSuiteID is the two-byte IANA TLS CipherSuite registry value.
type CipherSuiteID uint16

const (
	CipherSuiteUnsupported                  CipherSuiteID = 0x0000
	CipherSuiteTLSPSKWithAES128GCMSHA256    CipherSuiteID = 0x00A8
	CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256 CipherSuiteID = 0xC02B
	CipherSuiteTLSECDHERSAWithAES128GCMSHA256   CipherSuiteID = 0xC02F
)

func (id CipherSuiteID) String() string {
	switch id {
	case CipherSuiteTLSPSKWithAES128GCMSHA256:
		return "TLS_PSK_WITH_AES_128_GCM_SHA256"
	case CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"
	case CipherSuiteTLSECDHERSAWithAES128GCMSHA256:
		return "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"
	default:
		return "Unsupported"
	}
}

// CipherSuite is the negotiated AEAD construction + hash function pairing:
// nullable until negotiated, initialized exactly once. Grounded on
// ekr-mint's record-layer.go AEAD cipher field, split here into an
// interface so Flight4 can key it (Init) without owning the record-layer
// encrypt/decrypt machinery itself.
type CipherSuite interface {
	ID() CipherSuiteID
	IsPSK() bool
	IsInitialized() bool
	HashFunc() func() hash.Hash

	// Init derives client/server write keys and IVs from the master secret
	// via the suite's key-expansion PRF, RFC 5246 §6.3. Calling Init a
	// second time is a no-op: it returns nil and keeps the keys derived by
	// the first call. Flight4 additionally checks IsInitialized before
	// calling it.
	Init(masterSecret, clientRandom, serverRandom []byte, isClient bool) error

	Encrypt(header RecordLayerHeader, raw []byte) ([]byte, error)
	Decrypt(header RecordLayerHeader, in []byte) ([]byte, error)
}

// aeadCipherSuite implements the AES-128-GCM suites plus the AEAD PSK
// suite. The key exchange (ECDHE vs PSK) only affects how the pre-master
// secret was derived upstream in Flight4; by the time Init runs, every
// suite here looks identical (RFC 5288 AEAD key block layout).
type aeadCipherSuite struct {
	id   CipherSuiteID
	psk  bool
	hash func() hash.Hash

	mu          sync.Mutex
	initialized bool

	localGCM  cipher.AEAD
	remoteGCM cipher.AEAD
	localIV   []byte
	remoteIV  []byte
}

const (
	aeadKeyLen = 16 // AES-128
	aeadSaltLen = 4  // RFC 5288 fixed IV portion
	aeadNonceLen = 12
)

// NewCipherSuite constructs the suite named by id. Only the AES-128-GCM
// suites are supported; anything else returns ErrInvalidCipherSuite so
// misconfiguration fails loudly at negotiation time rather than silently
// falling back.
func NewCipherSuite(id CipherSuiteID) (CipherSuite, error) {
	switch id {
	case CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, CipherSuiteTLSECDHERSAWithAES128GCMSHA256:
		return &aeadCipherSuite{id: id, hash: sha256.New}, nil
	case CipherSuiteTLSPSKWithAES128GCMSHA256:
		return &aeadCipherSuite{id: id, psk: true, hash: sha256.New}, nil
	default:
		return nil, fmt.Errorf("dtls: %w: %s", ErrInvalidCipherSuite, id)
	}
}

func (s *aeadCipherSuite) ID() CipherSuiteID        { return s.id }
func (s *aeadCipherSuite) IsPSK() bool               { return s.psk }
func (s *aeadCipherSuite) HashFunc() func() hash.Hash { return s.hash }

func (s *aeadCipherSuite) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *aeadCipherSuite) Init(masterSecret, clientRandom, serverRandom []byte, isClient bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	// RFC 5246 §6.3: key_block = PRF(master_secret, "key expansion",
	// server_random + client_random). Note the reversed random order versus
	// the master-secret PRF call in prf.go.
	keyLen := 2*aeadKeyLen + 2*aeadSaltLen
	keyBlock := keyExpansion(masterSecret, serverRandom, clientRandom, keyLen, s.hash)

	clientWriteKey := keyBlock[0:aeadKeyLen]
	serverWriteKey := keyBlock[aeadKeyLen : 2*aeadKeyLen]
	clientWriteIV := keyBlock[2*aeadKeyLen : 2*aeadKeyLen+aeadSaltLen]
	serverWriteIV := keyBlock[2*aeadKeyLen+aeadSaltLen : 2*aeadKeyLen+2*aeadSaltLen]

	localKey, remoteKey := serverWriteKey, clientWriteKey
	localIV, remoteIV := serverWriteIV, clientWriteIV
	if isClient {
		localKey, remoteKey = clientWriteKey, serverWriteKey
		localIV, remoteIV = clientWriteIV, serverWriteIV
	}

	localGCM, err := newAESGCM(localKey)
	if err != nil {
		return err
	}
	remoteGCM, err := newAESGCM(remoteKey)
	if err != nil {
		return err
	}

	s.localGCM, s.remoteGCM = localGCM, remoteGCM
	s.localIV, s.remoteIV = localIV, remoteIV
	s.initialized = true
	return nil
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("dtls: aes cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// buildNonce returns the 12-byte GCM nonce: the 4-byte fixed IV followed by
// the 8-byte explicit part (epoch‖sequence_number), per RFC 5288 §3 and the
// vendored pion/dtls crypto.go's generateAEADAdditionalData layout for the
// epoch/sequence packing.
func buildNonce(fixedIV []byte, header RecordLayerHeader) []byte {
	nonce := make([]byte, aeadNonceLen)
	copy(nonce[:aeadSaltLen], fixedIV)
	explicit := nonce[aeadSaltLen:]
	explicit[0] = byte(header.Epoch >> 8)
	explicit[1] = byte(header.Epoch)
	seq := header.SequenceNumber
	for i := 7; i >= 2; i-- {
		explicit[i] = byte(seq)
		seq >>= 8
	}
	return nonce
}

func (s *aeadCipherSuite) Encrypt(header RecordLayerHeader, raw []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrCipherSuiteNotInitialized
	}
	nonce := buildNonce(s.localIV, header)
	additionalData := generateAEADAdditionalData(&header, len(raw))
	return s.localGCM.Seal(nil, nonce, raw, additionalData), nil
}

func (s *aeadCipherSuite) Decrypt(header RecordLayerHeader, in []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrCipherSuiteNotInitialized
	}
	nonce := buildNonce(s.remoteIV, header)
	additionalData := generateAEADAdditionalData(&header, len(in)-s.remoteGCM.Overhead())
	out, err := s.remoteGCM.Open(nil, nonce, in, additionalData)
	if err != nil {
		return nil, fmt.Errorf("dtls: %w: %v", ErrDecryptFailed, err)
	}
	return out, nil
}

// generateAEADAdditionalData mirrors the vendored pion/dtls crypto.go
// function of the same name: an 8-byte epoch+sequence field (sequence
// written first, then epoch overwrites its top two bytes, matching DTLS's
// combined 64-bit "epoch‖sequence_number" AAD convention) followed by
// content type, version, and ciphertext length.
func generateAEADAdditionalData(h *RecordLayerHeader, payloadLen int) []byte {
	var additionalData [13]byte
	seq := h.SequenceNumber
	for i := 7; i >= 0; i-- {
		additionalData[i] = byte(seq)
		seq >>= 8
	}
	additionalData[0] = byte(h.Epoch >> 8)
	additionalData[1] = byte(h.Epoch)
	additionalData[8] = byte(h.ContentType)
	additionalData[9] = h.ProtocolVersion.Major
	additionalData[10] = h.ProtocolVersion.Minor
	additionalData[11] = byte(payloadLen >> 8)
	additionalData[12] = byte(payloadLen)
	return additionalData[:]
}
