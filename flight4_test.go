package dtls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFlightConn is a minimal flightConn that records what flight4Parse and
// flight4Generate try to send, without any real record-layer I/O.
type fakeFlightConn struct {
	alerts  []*Alert
	written []*Packet
}

func (f *fakeFlightConn) notify(_ context.Context, level AlertLevel, desc AlertDescription) error {
	f.alerts = append(f.alerts, &Alert{Level: level, Description: desc})
	return nil
}

func (f *fakeFlightConn) writePackets(_ context.Context, pkts []*Packet) error {
	f.written = append(f.written, pkts...)
	return nil
}

func (f *fakeFlightConn) handleQueuedPackets(_ context.Context) error { return nil }

func concatBytes(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// newTestServerState builds a Session State with an ECDHE keypair and the
// given cipher suite ID, ready for flight4Parse.
func newTestServerState(t *testing.T, suiteID CipherSuiteID, curve NamedCurve) (*State, *Keypair) {
	t.Helper()
	state := NewState()
	state.LocalRandom = testRandom(1)
	state.RemoteRandom = testRandom(2)
	suite, err := NewCipherSuite(suiteID)
	require.NoError(t, err)
	state.CipherSuite = suite
	if curve != NamedCurveUnsupported {
		keypair, err := GenerateKeypair(curve)
		require.NoError(t, err)
		state.LocalKeypair = keypair
		state.NamedCurve = curve
		return state, keypair
	}
	return state, nil
}

// TestFlight4ECDHENoClientCert covers S1 (ECDHE-ECDSA, NoClientCert) and
// spec.md §8 invariant 2 (cipher init is idempotent across repeated Parse
// calls while waiting for Finished).
func TestFlight4ECDHENoClientCert(t *testing.T) {
	ctx := context.Background()
	cfg := &HandshakeConfig{ClientAuth: NoClientCert}
	cfg.Init()

	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)
	clientKeypair, err := GenerateKeypair(NamedCurveX25519)
	require.NoError(t, err)

	cache := newHandshakeCache()
	cache.push(mustMarshal(t, &HandshakeMessageClientKeyExchange{PublicKey: clientKeypair.PublicKey}), 0, 0, HandshakeTypeClientKeyExchange, true)

	conn := &fakeFlightConn{}
	next, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, flightVal(0), next, "Finished has not arrived yet: parse must report (none, none)")
	require.True(t, state.IsCipherSuiteInitialized())
	require.Len(t, state.MasterSecret, masterSecretLength)

	msBefore := append([]byte{}, state.MasterSecret...)
	_, _, err = flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Equal(t, msBefore, state.MasterSecret, "a second Parse before Finished arrives must not re-derive the master secret")

	cache.push(mustMarshal(t, &HandshakeMessageFinished{VerifyData: make([]byte, verifyDataLength)}), 1, 0, HandshakeTypeFinished, true)
	next, alert, err = flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, flight6, next)
}

// TestFlight4RequireAndVerifyClientCertSuccess covers S2's happy path:
// ECDHE-RSA... here ECDHE-ECDSA for simplicity, RequireAndVerifyClientCert,
// valid client certificate and CertificateVerify.
func TestFlight4RequireAndVerifyClientCertSuccess(t *testing.T) {
	ctx := context.Background()
	cfg := &HandshakeConfig{ClientAuth: RequireAndVerifyClientCert}
	cfg.Init()

	clientCert := generateTestCertificate(t, "client")
	pool, err := loadCerts(clientCert.Certificate)
	require.NoError(t, err)
	cfg.ClientCAs = newCertPoolFrom(pool)

	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)
	clientKeypair, err := GenerateKeypair(NamedCurveX25519)
	require.NoError(t, err)

	cache := newHandshakeCache()
	clientHello := []byte("client-hello-stub")
	serverHello := []byte("server-hello-stub")
	serverCertRaw := []byte("server-cert-stub")
	serverKeyExchangeRaw := []byte("server-key-exchange-stub")
	certRequestRaw := []byte("cert-request-stub")
	serverHelloDoneRaw := []byte("server-hello-done-stub")

	cache.push(clientHello, 0, 0, HandshakeTypeClientHello, true)
	cache.push(serverHello, 0, 0, HandshakeTypeServerHello, false)
	cache.push(serverCertRaw, 0, 1, HandshakeTypeCertificate, false)
	cache.push(serverKeyExchangeRaw, 0, 2, HandshakeTypeServerKeyExchange, false)
	cache.push(certRequestRaw, 0, 3, HandshakeTypeCertificateRequest, false)
	cache.push(serverHelloDoneRaw, 0, 4, HandshakeTypeServerHelloDone, false)

	clientCertRaw := mustMarshal(t, &HandshakeMessageCertificate{Certificate: clientCert.Certificate})
	cache.push(clientCertRaw, 0, 1, HandshakeTypeCertificate, true)

	ckeRaw := mustMarshal(t, &HandshakeMessageClientKeyExchange{PublicKey: clientKeypair.PublicKey})
	cache.push(ckeRaw, 0, 2, HandshakeTypeClientKeyExchange, true)

	transcript := concatBytes(clientHello, serverHello, serverCertRaw, serverKeyExchangeRaw, certRequestRaw, serverHelloDoneRaw, clientCertRaw, ckeRaw)
	sig, err := generateCertificateVerify(transcript, clientCert.PrivateKey, HashAlgorithmSHA256)
	require.NoError(t, err)
	cvRaw := mustMarshal(t, &HandshakeMessageCertificateVerify{HashAlgorithm: HashAlgorithmSHA256, SignatureAlgorithm: SignatureAlgorithmECDSA, Signature: sig})
	cache.push(cvRaw, 0, 3, HandshakeTypeCertificateVerify, true)

	conn := &fakeFlightConn{}
	next, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, flightVal(0), next)
	require.True(t, state.PeerCertificatesVerified)
	require.True(t, state.IsCipherSuiteInitialized())

	cache.push(mustMarshal(t, &HandshakeMessageFinished{VerifyData: make([]byte, verifyDataLength)}), 1, 0, HandshakeTypeFinished, true)
	next, alert, err = flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, flight6, next)
}

// TestFlight4InvalidCertificateVerifySignature covers S2's failure branch:
// a CertificateVerify whose signature does not match the transcript is
// rejected immediately with Fatal/BadCertificate, before Finished even
// needs to arrive.
func TestFlight4InvalidCertificateVerifySignature(t *testing.T) {
	ctx := context.Background()
	cfg := &HandshakeConfig{ClientAuth: RequireAndVerifyClientCert}
	cfg.Init()

	clientCert := generateTestCertificate(t, "client")
	pool, err := loadCerts(clientCert.Certificate)
	require.NoError(t, err)
	cfg.ClientCAs = newCertPoolFrom(pool)

	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)
	clientKeypair, err := GenerateKeypair(NamedCurveX25519)
	require.NoError(t, err)

	cache := newHandshakeCache()
	cache.push([]byte("client-hello"), 0, 0, HandshakeTypeClientHello, true)
	cache.push([]byte("server-hello"), 0, 0, HandshakeTypeServerHello, false)
	cache.push([]byte("server-cert"), 0, 1, HandshakeTypeCertificate, false)
	cache.push([]byte("server-key-exchange"), 0, 2, HandshakeTypeServerKeyExchange, false)
	cache.push([]byte("cert-request"), 0, 3, HandshakeTypeCertificateRequest, false)
	cache.push([]byte("server-hello-done"), 0, 4, HandshakeTypeServerHelloDone, false)

	clientCertRaw := mustMarshal(t, &HandshakeMessageCertificate{Certificate: clientCert.Certificate})
	cache.push(clientCertRaw, 0, 1, HandshakeTypeCertificate, true)
	ckeRaw := mustMarshal(t, &HandshakeMessageClientKeyExchange{PublicKey: clientKeypair.PublicKey})
	cache.push(ckeRaw, 0, 2, HandshakeTypeClientKeyExchange, true)

	// Sign over the wrong bytes entirely: whatever transcript flight4Parse
	// reconstructs, this signature cannot match it.
	sig, err := generateCertificateVerify([]byte("not the real transcript"), clientCert.PrivateKey, HashAlgorithmSHA256)
	require.NoError(t, err)
	cvRaw := mustMarshal(t, &HandshakeMessageCertificateVerify{HashAlgorithm: HashAlgorithmSHA256, SignatureAlgorithm: SignatureAlgorithmECDSA, Signature: sig})
	cache.push(cvRaw, 0, 3, HandshakeTypeCertificateVerify, true)

	conn := &fakeFlightConn{}
	_, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.Error(t, err)
	require.NotNil(t, alert)
	require.Equal(t, AlertDescriptionBadCertificate, alert.Description)
	require.Equal(t, AlertLevelFatal, alert.Level)
}

// TestFlight4VerifyClientCertIfGivenMissingCertificateVerify covers S2's
// "client sent a certificate but never signed a CertificateVerify" branch:
// parse proceeds with (none, none) until Finished arrives, at which point
// Phase D rejects it under VerifyClientCertIfGiven.
func TestFlight4VerifyClientCertIfGivenMissingCertificateVerify(t *testing.T) {
	ctx := context.Background()
	cfg := &HandshakeConfig{ClientAuth: VerifyClientCertIfGiven}
	cfg.Init()

	clientCert := generateTestCertificate(t, "client")
	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)
	clientKeypair, err := GenerateKeypair(NamedCurveX25519)
	require.NoError(t, err)

	cache := newHandshakeCache()
	clientCertRaw := mustMarshal(t, &HandshakeMessageCertificate{Certificate: clientCert.Certificate})
	cache.push(clientCertRaw, 0, 0, HandshakeTypeCertificate, true)
	ckeRaw := mustMarshal(t, &HandshakeMessageClientKeyExchange{PublicKey: clientKeypair.PublicKey})
	cache.push(ckeRaw, 0, 1, HandshakeTypeClientKeyExchange, true)

	conn := &fakeFlightConn{}
	next, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, flightVal(0), next, "no CertificateVerify, no Finished yet: still (none, none)")
	require.False(t, state.PeerCertificatesVerified)

	cache.push(mustMarshal(t, &HandshakeMessageFinished{VerifyData: make([]byte, verifyDataLength)}), 1, 0, HandshakeTypeFinished, true)
	_, alert, err = flight4Parse(ctx, conn, state, cache, cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrClientCertificateNotVerified)
	require.NotNil(t, alert)
	require.Equal(t, AlertDescriptionBadCertificate, alert.Description)
}

// TestFlight4RequireAnyClientCertRejectsEmptyCertificate covers invariant 5:
// RequireAnyClientCert/RequireAndVerifyClientCert must fail when the client
// sends no certificate at all.
func TestFlight4RequireAnyClientCertRejectsEmptyCertificate(t *testing.T) {
	ctx := context.Background()
	cfg := &HandshakeConfig{ClientAuth: RequireAnyClientCert}
	cfg.Init()

	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)
	clientKeypair, err := GenerateKeypair(NamedCurveX25519)
	require.NoError(t, err)

	cache := newHandshakeCache()
	cache.push(mustMarshal(t, &HandshakeMessageClientKeyExchange{PublicKey: clientKeypair.PublicKey}), 0, 0, HandshakeTypeClientKeyExchange, true)
	cache.push(mustMarshal(t, &HandshakeMessageFinished{VerifyData: make([]byte, verifyDataLength)}), 1, 0, HandshakeTypeFinished, true)

	conn := &fakeFlightConn{}
	_, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.ErrorIs(t, err, ErrClientCertificateRequired)
	require.NotNil(t, alert)
	require.Equal(t, AlertDescriptionNoCertificate, alert.Description)
}

// TestFlight4PSKWithHint covers S3's parse side: PSK key exchange with a
// hint configured, checking the master secret derived from
// pskPreMasterSecret(psk). The pre_master_secret byte layout itself
// (invariant 3) is checked by TestPSKPreMasterSecretLayout in prf_test.go.
func TestFlight4PSKWithHint(t *testing.T) {
	ctx := context.Background()
	psk := []byte("secret")
	cfg := &HandshakeConfig{
		ClientAuth:           NoClientCert,
		LocalPSKCallback:     func(hint []byte) ([]byte, error) { return psk, nil },
		LocalPSKIdentityHint: []byte("hint"),
	}
	cfg.Init()

	state, _ := newTestServerState(t, CipherSuiteTLSPSKWithAES128GCMSHA256, NamedCurveUnsupported)

	cache := newHandshakeCache()
	cke := &HandshakeMessageClientKeyExchange{isPSK: true, IdentityHint: []byte("client-identity")}
	cache.push(mustMarshal(t, cke), 0, 0, HandshakeTypeClientKeyExchange, true)

	conn := &fakeFlightConn{}
	_, alert, err := flight4Parse(ctx, conn, state, cache, cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.True(t, state.IsCipherSuiteInitialized())

	expectedPMS := pskPreMasterSecret(psk)
	expectedMS := masterSecret(expectedPMS, state.RemoteRandom.Marshal(), state.LocalRandom.Marshal(), state.CipherSuite.HashFunc())
	require.Equal(t, expectedMS, state.MasterSecret)
}

// TestFlight4GeneratePSKWithHintIncludesServerKeyExchange and
// TestFlight4GeneratePSKWithoutHintOmitsServerKeyExchange cover S3/S4's
// generate-side distinction (RFC 4279 §2).
func TestFlight4GeneratePSKWithHintIncludesServerKeyExchange(t *testing.T) {
	cfg := &HandshakeConfig{LocalPSKCallback: func(hint []byte) ([]byte, error) { return []byte("secret"), nil }, LocalPSKIdentityHint: []byte("hint")}
	cfg.Init()
	state, _ := newTestServerState(t, CipherSuiteTLSPSKWithAES128GCMSHA256, NamedCurveUnsupported)

	pkts, alert, err := flight4Generate(&fakeFlightConn{}, state, newHandshakeCache(), cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, []HandshakeType{HandshakeTypeServerHello, HandshakeTypeServerKeyExchange, HandshakeTypeServerHelloDone}, packetTypes(t, pkts))
}

func TestFlight4GeneratePSKWithoutHintOmitsServerKeyExchange(t *testing.T) {
	cfg := &HandshakeConfig{LocalPSKCallback: func(hint []byte) ([]byte, error) { return []byte("secret"), nil }}
	cfg.Init()
	state, _ := newTestServerState(t, CipherSuiteTLSPSKWithAES128GCMSHA256, NamedCurveUnsupported)

	pkts, alert, err := flight4Generate(&fakeFlightConn{}, state, newHandshakeCache(), cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, []HandshakeType{HandshakeTypeServerHello, HandshakeTypeServerHelloDone}, packetTypes(t, pkts))
}

func TestFlight4GenerateECDHERequestsCertificateWhenClientAuthEnabled(t *testing.T) {
	cert := generateTestCertificate(t, "localhost")
	cfg := &HandshakeConfig{ClientAuth: RequestClientCert, Certificates: []*Certificate{cert}, ServerName: "localhost"}
	cfg.Init()
	state, _ := newTestServerState(t, CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256, NamedCurveX25519)

	pkts, alert, err := flight4Generate(&fakeFlightConn{}, state, newHandshakeCache(), cfg)
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Equal(t, []HandshakeType{
		HandshakeTypeServerHello,
		HandshakeTypeCertificate,
		HandshakeTypeServerKeyExchange,
		HandshakeTypeCertificateRequest,
		HandshakeTypeServerHelloDone,
	}, packetTypes(t, pkts))
	require.NotEmpty(t, state.LocalKeySignature)
}

func packetTypes(t *testing.T, pkts []*Packet) []HandshakeType {
	t.Helper()
	types := make([]HandshakeType, 0, len(pkts))
	for _, p := range pkts {
		body, ok := p.Content.(HandshakeMessageBody)
		require.True(t, ok, "%T does not implement HandshakeMessageBody", p.Content)
		types = append(types, body.Type())
	}
	return types
}
