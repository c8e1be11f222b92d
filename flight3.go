package dtls

import "context"

// flight3Generate has nothing to emit: Flight3 is the server's
// cookie-verification step between HelloVerifyRequest (Flight2) and the
// main Flight4 round trip.
func flight3Generate(_ flightConn, _ *State, _ *handshakeCache, _ *HandshakeConfig) ([]*Packet, *Alert, error) {
	return nil, nil, nil
}

// flight3Parse implements the cookie-check half of RFC 6347 §4.2.1: pull
// the client's second ClientHello, confirm it echoes state.Cookie, and
// transition to Flight4. A mismatch is Fatal/HandshakeFailure — the client
// is either replaying a stale cookie or spoofing a source address, and the
// amplification-prevention design of HelloVerifyRequest gives no lighter
// recourse than dropping the connection.
func flight3Parse(_ context.Context, _ flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error) {
	seq, msgs, ok := cache.fullPullMap(state.HandshakeRecvSequence,
		handshakeCachePullRule{HandshakeTypeClientHello, cfg.InitialEpoch, true, false},
	)
	if !ok {
		return 0, nil, nil
	}

	clientHello, ok := msgs[HandshakeTypeClientHello].(*HandshakeMessageClientHello)
	if !ok {
		return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
	}

	if len(clientHello.Cookie) == 0 || string(clientHello.Cookie) != string(state.Cookie) {
		return 0, fatal(AlertDescriptionHandshakeFailure), ErrCookieMismatch
	}

	for _, id := range clientHello.CipherSuites {
		if cs, err := NewCipherSuite(id); err == nil {
			state.CipherSuite = cs
			break
		}
	}
	if state.CipherSuite == nil {
		return 0, fatal(AlertDescriptionInsufficientSecurity), ErrNoMatchingCipherSuite
	}

	if !state.CipherSuite.IsPSK() {
		if ext := clientHello.Extensions.SupportedEllipticCurves; ext != nil && len(ext.Curves) > 0 {
			state.NamedCurve = ext.Curves[0]
		} else {
			state.NamedCurve = NamedCurveX25519
		}
		keypair, err := GenerateKeypair(state.NamedCurve)
		if err != nil {
			return 0, fatal(AlertDescriptionIllegalParameter), err
		}
		state.LocalKeypair = keypair
	}

	if ext := clientHello.Extensions.UseSRTP; ext != nil {
		state.SRTPProtectionProfile = ext.ProtectionProfile
	}

	state.HandshakeRecvSequence = seq
	return flight4, nil, nil
}
