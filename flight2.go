package dtls

import "context"

// flight2Generate emits the single HelloVerifyRequest carrying the cookie
// flight0Parse minted, per RFC 6347 §4.2.1.
func flight2Generate(_ flightConn, state *State, _ *handshakeCache, cfg *HandshakeConfig) ([]*Packet, *Alert, error) {
	body := &HandshakeMessageHelloVerifyRequest{Version: ProtocolVersion1_2, Cookie: state.Cookie}
	return []*Packet{
		{
			Header:  RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: cfg.InitialEpoch},
			Content: body,
		},
	}, nil, nil
}

// flight2Parse waits for the client's second ClientHello (the one echoing
// the cookie); verifying the cookie itself is Flight3's concern, matching
// RFC 6347 §4.2.1's two-round-trip structure.
func flight2Parse(_ context.Context, _ flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error) {
	seq, _, ok := cache.fullPullMap(state.HandshakeRecvSequence,
		handshakeCachePullRule{HandshakeTypeClientHello, cfg.InitialEpoch, true, false},
	)
	if !ok {
		return 0, nil, nil
	}
	_ = seq
	return flight3, nil, nil
}
