package dtls

import (
	"crypto/x509"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the session state: mutated only by the flight currently
// executing, single-owner for the connection's lifetime. Grounded on
// ekr-mint's StateConnected/ConnectionState split in conn.go, collapsed
// here into one struct since this core tracks a single in-flight
// handshake rather than a post-handshake resumable session.
type State struct {
	LocalRandom  Random
	RemoteRandom Random

	CipherSuite  CipherSuite
	LocalKeypair *Keypair
	NamedCurve   NamedCurve

	MasterSecret          []byte
	ExtendedMasterSecret  bool
	LocalKeySignature     []byte
	SRTPProtectionProfile SRTPProtectionProfile

	PeerCertificates         [][]byte
	PeerCertificatesVerified bool

	HandshakeRecvSequence uint64

	// ConnectionID and Cookie are [EXPANDED]: out-of-scope collaborators
	// (UDP I/O, HelloVerifyRequest cookie exchange) still need somewhere to
	// park their output so later flights and the demo Conn can read it back.
	ConnectionID uuid.UUID
	Cookie       []byte

	// LocalEpoch/RemoteEpoch are [EXPANDED] atomics recording the epoch the
	// demo Conn last wrote at and the epoch a received ChangeCipherSpec moved
	// reading to. The demo Conn itself reads and writes them only from the
	// goroutine that calls Feed and Handshake.
	LocalEpoch  atomic.Uint64
	RemoteEpoch atomic.Uint64
}

// NewState allocates a fresh per-connection Session State, stamping a new
// ConnectionID for log/metric correlation.
func NewState() *State {
	s := &State{ConnectionID: uuid.New()}
	return s
}

// IsCipherSuiteInitialized is the no-op guard Phase B of Flight-4 Parse
// checks before re-deriving keys.
func (s *State) IsCipherSuiteInitialized() bool {
	return s.CipherSuite != nil && s.CipherSuite.IsInitialized()
}

// x509Chain lazily parses PeerCertificates for callers (verify_peer_certificate
// hooks) that want *x509.Certificate rather than raw DER.
func (s *State) x509Chain() ([]*x509.Certificate, error) {
	if len(s.PeerCertificates) == 0 {
		return nil, nil
	}
	return loadCerts(s.PeerCertificates)
}
