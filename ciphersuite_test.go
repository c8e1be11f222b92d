package dtls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCipherSuiteRejectsUnsupportedID(t *testing.T) {
	_, err := NewCipherSuite(CipherSuiteID(0xFFFF))
	require.ErrorIs(t, err, ErrInvalidCipherSuite)
}

func TestCipherSuiteEncryptBeforeInitFails(t *testing.T) {
	suite, err := NewCipherSuite(CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256)
	require.NoError(t, err)
	_, err = suite.Encrypt(RecordLayerHeader{}, []byte("hello"))
	require.ErrorIs(t, err, ErrCipherSuiteNotInitialized)
}

func TestCipherSuiteEncryptDecryptRoundTrip(t *testing.T) {
	clientSuite, err := NewCipherSuite(CipherSuiteTLSECDHERSAWithAES128GCMSHA256)
	require.NoError(t, err)
	serverSuite, err := NewCipherSuite(CipherSuiteTLSECDHERSAWithAES128GCMSHA256)
	require.NoError(t, err)

	masterSecret := []byte("0123456789abcdef0123456789abcdef0123456789abcdef")
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	for i := range clientRandom {
		clientRandom[i] = byte(i)
		serverRandom[i] = byte(32 - i)
	}

	require.NoError(t, clientSuite.Init(masterSecret, clientRandom, serverRandom, true))
	require.NoError(t, serverSuite.Init(masterSecret, clientRandom, serverRandom, false))

	header := RecordLayerHeader{
		ContentType:     ContentTypeApplicationData,
		ProtocolVersion: ProtocolVersion1_2,
		Epoch:           1,
		SequenceNumber:  42,
	}
	plaintext := []byte("ping")

	ciphertext, err := clientSuite.Encrypt(header, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	recovered, err := serverSuite.Decrypt(header, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestCipherSuiteDecryptFailsOnTamperedCiphertext(t *testing.T) {
	clientSuite, err := NewCipherSuite(CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256)
	require.NoError(t, err)
	serverSuite, err := NewCipherSuite(CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256)
	require.NoError(t, err)

	masterSecret := make([]byte, masterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	require.NoError(t, clientSuite.Init(masterSecret, clientRandom, serverRandom, true))
	require.NoError(t, serverSuite.Init(masterSecret, clientRandom, serverRandom, false))

	header := RecordLayerHeader{ContentType: ContentTypeApplicationData, ProtocolVersion: ProtocolVersion1_2, Epoch: 1}
	ciphertext, err := clientSuite.Encrypt(header, []byte("ping"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xFF

	_, err = serverSuite.Decrypt(header, ciphertext)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCipherSuiteDecryptFailsOnWrongEpochAAD(t *testing.T) {
	clientSuite, err := NewCipherSuite(CipherSuiteTLSPSKWithAES128GCMSHA256)
	require.NoError(t, err)
	serverSuite, err := NewCipherSuite(CipherSuiteTLSPSKWithAES128GCMSHA256)
	require.NoError(t, err)
	require.True(t, clientSuite.IsPSK())

	masterSecret := make([]byte, masterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	require.NoError(t, clientSuite.Init(masterSecret, clientRandom, serverRandom, true))
	require.NoError(t, serverSuite.Init(masterSecret, clientRandom, serverRandom, false))

	sendHeader := RecordLayerHeader{ContentType: ContentTypeApplicationData, ProtocolVersion: ProtocolVersion1_2, Epoch: 1}
	ciphertext, err := clientSuite.Encrypt(sendHeader, []byte("ping"))
	require.NoError(t, err)

	recvHeader := sendHeader
	recvHeader.Epoch = 2
	_, err = serverSuite.Decrypt(recvHeader, ciphertext)
	require.ErrorIs(t, err, ErrDecryptFailed)
}
