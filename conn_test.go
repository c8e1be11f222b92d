package dtls

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConnPair(t *testing.T) (*Conn, net.PacketConn, net.Addr) {
	t.Helper()
	serverPC, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverPC.Close() })

	clientPC, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientPC.Close() })

	cfg := &HandshakeConfig{}
	c := NewServerConn(serverPC, clientPC.LocalAddr(), cfg, ConnConfig{})
	return c, clientPC, serverPC.LocalAddr()
}

func TestNewServerConnStartsAtFlight0(t *testing.T) {
	c, _, _ := newTestConnPair(t)
	require.Equal(t, flight0, c.engine.current)
	require.NotNil(t, c.state)
	require.NotNil(t, c.cache)
}

func TestWritePacketsAssignsMonotonicSequenceNumbersAndCachesHandshakeContent(t *testing.T) {
	c, clientPC, _ := newTestConnPair(t)

	finished1 := &HandshakeMessageFinished{VerifyData: []byte("first")}
	finished2 := &HandshakeMessageFinished{VerifyData: []byte("second")}
	pkts := []*Packet{
		{Header: RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: 0}, Content: finished1},
		{Header: RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: 0}, Content: finished2},
	}

	err := c.writePackets(context.Background(), pkts)
	require.NoError(t, err)
	require.Equal(t, uint64(2), c.localSeq[0])
	require.Equal(t, uint16(2), c.localMsgSeq[0])

	body1, found1 := c.cache.raw(handshakeCachePullRule{typ: HandshakeTypeFinished, epoch: 0, isClient: false})
	require.True(t, found1)
	raw1, err := finished1.Marshal()
	require.NoError(t, err)
	require.Equal(t, raw1, body1)

	buf := make([]byte, 2048)
	_ = clientPC.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := clientPC.ReadFrom(buf)
	require.NoError(t, err)
	var header RecordLayerHeader
	hn, err := header.Unmarshal(buf[:n])
	require.NoError(t, err)
	require.Equal(t, ContentTypeHandshake, header.ContentType)
	require.Equal(t, uint64(0), header.SequenceNumber)
	_ = hn
}

func TestNotifySendsAlertRecord(t *testing.T) {
	c, clientPC, _ := newTestConnPair(t)

	err := c.notify(context.Background(), AlertLevelFatal, AlertDescriptionBadCertificate)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.localSeq[0])

	buf := make([]byte, 2048)
	_ = clientPC.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := clientPC.ReadFrom(buf)
	require.NoError(t, err)

	var header RecordLayerHeader
	hn, err := header.Unmarshal(buf[:n])
	require.NoError(t, err)
	require.Equal(t, ContentTypeAlert, header.ContentType)

	alertBytes := buf[hn:n]
	require.Len(t, alertBytes, 2)
	require.Equal(t, AlertLevelFatal, AlertLevel(alertBytes[0]))
	require.Equal(t, AlertDescriptionBadCertificate, AlertDescription(alertBytes[1]))
}

func TestIngestChangeCipherSpecAdvancesRemoteEpoch(t *testing.T) {
	c, _, _ := newTestConnPair(t)

	header := RecordLayerHeader{ContentType: ContentTypeChangeCipherSpec, ProtocolVersion: ProtocolVersion1_2, Epoch: 0, ContentLen: 1}
	raw := append(header.Marshal(), 1)

	err := c.ingest(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.state.RemoteEpoch.Load())
}

func TestIngestQueuesRecordAtUnkeyedEpochThenHandleQueuedPacketsDrainsOnceKeyed(t *testing.T) {
	c, _, _ := newTestConnPair(t)

	suite, err := NewCipherSuite(CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256)
	require.NoError(t, err)
	masterSecret := make([]byte, 48)
	for i := range masterSecret {
		masterSecret[i] = byte(i)
	}
	clientRandom := testRandom(1).Marshal()
	serverRandom := testRandom(2).Marshal()
	require.NoError(t, suite.Init(masterSecret, clientRandom, serverRandom, false))

	finished := &HandshakeMessageFinished{VerifyData: []byte("client-finished-verify-data!")}
	plainHandshake, err := finished.Marshal()
	require.NoError(t, err)
	hh := HandshakeHeader{Type: HandshakeTypeFinished, Length: uint32(len(plainHandshake)), MessageSeq: 0, FragmentOffset: 0, FragmentLength: uint32(len(plainHandshake))}
	hhBytes, err := hh.Marshal()
	require.NoError(t, err)
	plain := append(hhBytes, plainHandshake...)

	clientSuite, err := NewCipherSuite(CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256)
	require.NoError(t, err)
	require.NoError(t, clientSuite.Init(masterSecret, clientRandom, serverRandom, true))

	recHeader := RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: 1, SequenceNumber: 0}
	sealed, err := clientSuite.Encrypt(recHeader, plain)
	require.NoError(t, err)
	recHeader.ContentLen = uint16(len(sealed))
	raw := append(recHeader.Marshal(), sealed...)

	require.NoError(t, c.ingest(raw))
	require.Len(t, c.queued, 1)

	c.state.CipherSuite = suite
	require.NoError(t, c.handleQueuedPackets(context.Background()))
	require.Empty(t, c.queued)

	body, found := c.cache.raw(handshakeCachePullRule{typ: HandshakeTypeFinished, epoch: 1, isClient: true})
	require.True(t, found)
	require.Equal(t, plainHandshake, body)
}

func TestConnectionStateReflectsNegotiatedSession(t *testing.T) {
	c, _, _ := newTestConnPair(t)
	suite, err := NewCipherSuite(CipherSuiteTLSECDHERSAWithAES128GCMSHA256)
	require.NoError(t, err)
	c.state.CipherSuite = suite
	c.state.PeerCertificatesVerified = true
	c.state.ExtendedMasterSecret = true
	c.state.SRTPProtectionProfile = SRTPProtectionProfile(1)

	cs := c.ConnectionState()
	require.Equal(t, CipherSuiteTLSECDHERSAWithAES128GCMSHA256, cs.CipherSuite)
	require.True(t, cs.PeerCertificatesVerified)
	require.True(t, cs.ExtendedMasterSecret)
	require.Equal(t, SRTPProtectionProfile(1), cs.SRTPProtectionProfile)
}

func TestConnectionStateDefaultsToUnsupportedBeforeNegotiation(t *testing.T) {
	c, _, _ := newTestConnPair(t)
	cs := c.ConnectionState()
	require.Equal(t, CipherSuiteUnsupported, cs.CipherSuite)
	require.False(t, cs.PeerCertificatesVerified)
}
