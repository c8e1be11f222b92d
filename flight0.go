package dtls

import (
	"context"
	"crypto/rand"
)

// flight0Generate has nothing to emit: Flight0 is purely receive-driven,
// waiting for the client's first ClientHello. Grounded on
// tgragnato-snowflake/dtls's flight0Generate, trimmed to this core's
// narrower scope (no session resumption, no connection IDs).
func flight0Generate(_ flightConn, state *State, _ *handshakeCache, _ *HandshakeConfig) ([]*Packet, *Alert, error) {
	var zero uint16
	state.LocalEpoch.Store(uint64(zero))
	state.RemoteEpoch.Store(uint64(zero))
	return nil, nil, nil
}

// flight0Parse implements Flight0 node: consume the
// client's initial ClientHello, record its random and whether it offers
// extended master secret, mint the cookie, and transition to Flight2 so the
// server can challenge with
// a HelloVerifyRequest cookie (RFC 6347 §4.2.1). Grounded on
// tgragnato-snowflake/dtls's flight0Parse, trimmed of session resumption.
func flight0Parse(_ context.Context, _ flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error) {
	seq, msgs, ok := cache.fullPullMap(0,
		handshakeCachePullRule{HandshakeTypeClientHello, cfg.InitialEpoch, true, false},
	)
	if !ok {
		return 0, nil, nil
	}
	state.HandshakeRecvSequence = seq

	clientHello, ok := msgs[HandshakeTypeClientHello].(*HandshakeMessageClientHello)
	if !ok {
		return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
	}

	if !clientHello.Version.Equal(ProtocolVersion1_2) {
		return 0, fatal(AlertDescriptionProtocolVersion), ErrDecodeError
	}

	state.RemoteRandom = clientHello.Random

	if clientHello.Extensions.UseExtendedMasterSecret && cfg.ExtendedMasterSecret != ExtendedMasterSecretDisable {
		state.ExtendedMasterSecret = true
	}
	if cfg.ExtendedMasterSecret == ExtendedMasterSecretRequire && !state.ExtendedMasterSecret {
		return 0, fatal(AlertDescriptionInsufficientSecurity), ErrExtendedMasterSecretRequired
	}

	state.Cookie = make([]byte, 20)
	if _, err := rand.Read(state.Cookie); err != nil {
		return 0, fatal(AlertDescriptionInternalError), err
	}

	return flight2, nil, nil
}
