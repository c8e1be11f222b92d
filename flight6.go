package dtls

import (
	"context"
	"crypto/hmac"
)

// transcriptThroughClientSecondRoundRules is the handshake-cache rule set
// used to reconstruct everything through the client's second round trip:
// the messages flight4Parse's CertificateVerify check pulls plus the
// client's CertificateVerify, with the server's Certificate,
// ServerKeyExchange and CertificateRequest and the client's Certificate
// and CertificateVerify optional.
func transcriptThroughClientSecondRoundRules(cfg *HandshakeConfig) []handshakeCachePullRule {
	return []handshakeCachePullRule{
		{HandshakeTypeClientHello, cfg.InitialEpoch, true, false},
		{HandshakeTypeServerHello, cfg.InitialEpoch, false, false},
		{HandshakeTypeCertificate, cfg.InitialEpoch, false, true},
		{HandshakeTypeServerKeyExchange, cfg.InitialEpoch, false, true},
		{HandshakeTypeCertificateRequest, cfg.InitialEpoch, false, true},
		{HandshakeTypeServerHelloDone, cfg.InitialEpoch, false, false},
		{HandshakeTypeCertificate, cfg.InitialEpoch, true, true},
		{HandshakeTypeClientKeyExchange, cfg.InitialEpoch, true, false},
		{HandshakeTypeCertificateVerify, cfg.InitialEpoch, true, true},
	}
}

// flight6Parse verifies the client's Finished, exactly once, before the
// handshake is reported complete. The message's presence was already
// confirmed by flight4Parse; this node recomputes the expected verify_data
// over the pre-Finished transcript and compares.
func flight6Parse(_ context.Context, _ flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error) {
	rawFinished, ok := cache.raw(handshakeCachePullRule{HandshakeTypeFinished, cfg.InitialEpoch + 1, true, false})
	if !ok {
		return 0, fatal(AlertDescriptionInternalError), ErrIncomplete
	}
	finished := &HandshakeMessageFinished{}
	if _, err := finished.Unmarshal(rawFinished); err != nil {
		return 0, fatal(AlertDescriptionDecodeError), err
	}

	transcript, err := cache.pullAndMerge(transcriptThroughClientSecondRoundRules(cfg)...)
	if err != nil {
		return 0, fatal(AlertDescriptionInternalError), err
	}

	expected := clientFinishedVerifyData(state.MasterSecret, transcript, state.CipherSuite.HashFunc())
	if !hmac.Equal(expected, finished.VerifyData) {
		return 0, fatal(AlertDescriptionHandshakeFailure), ErrFinishedVerifyDataMismatch
	}

	return flight6, nil, nil
}

// flight6Generate emits the server's half of the handoff: ChangeCipherSpec
// at the initial epoch, then its own Finished at initial_epoch+1, encrypted
// under the keys Flight-4 derived. The server's Finished covers the
// transcript through the client's own Finished, per RFC 5246 §7.4.9.
func flight6Generate(_ flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) ([]*Packet, *Alert, error) {
	if state.CipherSuite == nil || !state.CipherSuite.IsInitialized() {
		return nil, fatal(AlertDescriptionInternalError), ErrCipherSuiteNotInitialized
	}

	pkts := []*Packet{
		{
			Header:  RecordLayerHeader{ContentType: ContentTypeChangeCipherSpec, ProtocolVersion: ProtocolVersion1_2, Epoch: cfg.InitialEpoch},
			Content: &ChangeCipherSpec{},
		},
	}

	rules := transcriptThroughClientSecondRoundRules(cfg)
	rules = append(rules, handshakeCachePullRule{HandshakeTypeFinished, cfg.InitialEpoch + 1, true, false})
	transcript, err := cache.pullAndMerge(rules...)
	if err != nil {
		return nil, fatal(AlertDescriptionInternalError), err
	}

	finishedData := serverFinishedVerifyData(state.MasterSecret, transcript, state.CipherSuite.HashFunc())

	pkts = append(pkts, &Packet{
		Header:                   RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: cfg.InitialEpoch + 1},
		Content:                  &HandshakeMessageFinished{VerifyData: finishedData},
		ShouldEncrypt:            true,
		ResetLocalSequenceNumber: true,
	})

	return pkts, nil, nil
}
