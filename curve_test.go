package dtls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeypairRejectsUnsupportedCurve(t *testing.T) {
	_, err := GenerateKeypair(NamedCurveUnsupported)
	require.ErrorIs(t, err, ErrInvalidECDHEPoint)
}

func TestECDHERoundTripPerCurve(t *testing.T) {
	for _, curve := range []NamedCurve{NamedCurveX25519, NamedCurveP256, NamedCurveP384} {
		curve := curve
		t.Run(curve.String(), func(t *testing.T) {
			server, err := GenerateKeypair(curve)
			require.NoError(t, err)
			client, err := GenerateKeypair(curve)
			require.NoError(t, err)

			serverSecret, err := PreMasterSecretFromKeypair(client.PublicKey, server.PrivateKey, curve)
			require.NoError(t, err)
			clientSecret, err := PreMasterSecretFromKeypair(server.PublicKey, client.PrivateKey, curve)
			require.NoError(t, err)

			require.Equal(t, serverSecret, clientSecret, "ECDHE must agree on the same shared secret from both sides")
			require.NotEmpty(t, serverSecret)
		})
	}
}

func TestPreMasterSecretFromKeypairRejectsMalformedPoint(t *testing.T) {
	server, err := GenerateKeypair(NamedCurveP256)
	require.NoError(t, err)

	_, err = PreMasterSecretFromKeypair([]byte{0x04, 0x01, 0x02}, server.PrivateKey, NamedCurveP256)
	require.ErrorIs(t, err, ErrInvalidECDHEPoint)
}

func TestPreMasterSecretFromKeypairRejectsUnsupportedCurve(t *testing.T) {
	_, err := PreMasterSecretFromKeypair([]byte{1, 2, 3}, []byte{4, 5, 6}, NamedCurveUnsupported)
	require.ErrorIs(t, err, ErrInvalidECDHEPoint)
}
