package dtls

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPSKPreMasterSecretLayout checks spec.md §8 invariant 3: pre_master_secret
// in PSK mode equals len‖zeros(len)‖len‖psk, and the specific S3 vector
// from spec.md §8 ("secret").
func TestPSKPreMasterSecretLayout(t *testing.T) {
	psk := []byte("secret")
	pms := pskPreMasterSecret(psk)

	expected := []byte{0x00, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x06, 0x73, 0x65, 0x63, 0x72, 0x65, 0x74}
	require.Equal(t, expected, pms)
}

func TestPSKPreMasterSecretIsAllZerosExceptLengthsAndKey(t *testing.T) {
	psk := []byte("0123456789abcdef")
	pms := pskPreMasterSecret(psk)
	require.Len(t, pms, 2+len(psk)+2+len(psk))
	require.True(t, bytes.Equal(pms[2:2+len(psk)], make([]byte, len(psk))), "the zero-filled region must be all zero bytes")
	require.Equal(t, psk, pms[2+len(psk)+2:])
}

// TestMasterSecretLength checks spec.md §8 invariant 4: master_secret is
// exactly 48 bytes regardless of branch (standard PRF and EMS).
func TestMasterSecretLength(t *testing.T) {
	pms := []byte("pre-master-secret-material")
	clientRandom := bytes.Repeat([]byte{0x11}, 32)
	serverRandom := bytes.Repeat([]byte{0x22}, 32)

	ms := masterSecret(pms, clientRandom, serverRandom, sha256.New)
	require.Len(t, ms, masterSecretLength)

	sessionHash := sha256.Sum256([]byte("transcript"))
	ems := extendedMasterSecret(pms, sessionHash[:], sha256.New)
	require.Len(t, ems, masterSecretLength)
}

// TestMasterSecretDeterministic checks spec.md §8 invariant 7: the same
// (pre_master_secret, transcript) inputs produce a bit-identical
// master_secret across calls (standing in for cross-implementation
// RFC 7627 test vectors, since this codebase has no peer implementation to
// compare against here).
func TestMasterSecretDeterministic(t *testing.T) {
	pms := []byte("shared-secret")
	sessionHash := sha256.Sum256([]byte("the-handshake-transcript"))

	a := extendedMasterSecret(pms, sessionHash[:], sha256.New)
	b := extendedMasterSecret(pms, sessionHash[:], sha256.New)
	require.Equal(t, a, b)

	// Changing the transcript must change the output: EMS is bound to it.
	otherHash := sha256.Sum256([]byte("a different transcript"))
	c := extendedMasterSecret(pms, otherHash[:], sha256.New)
	require.NotEqual(t, a, c)
}

func TestPHashPrefixStable(t *testing.T) {
	// RFC 5246's PRF reduces to HMAC chaining; exercise P_hash directly
	// with a short requested length to confirm the A(i) iteration and
	// truncation both behave, rather than re-deriving an external vector.
	secret := []byte("secret")
	seed := []byte("seed")

	out16 := pHash(secret, seed, 16, sha256.New)
	out32 := pHash(secret, seed, 32, sha256.New)
	require.Len(t, out16, 16)
	require.Len(t, out32, 32)
	require.Equal(t, out16, out32[:16], "P_hash must be a prefix-stable stream: a longer request reproduces the shorter one's prefix")
}

func TestVerifyDataLabelsDiffer(t *testing.T) {
	ms := []byte("master-secret-material-000000000000000000000000")
	transcript := []byte("transcript-bytes")

	client := clientFinishedVerifyData(ms, transcript, sha256.New)
	server := serverFinishedVerifyData(ms, transcript, sha256.New)
	require.Len(t, client, verifyDataLength)
	require.Len(t, server, verifyDataLength)
	require.NotEqual(t, client, server, "client and server Finished labels must diverge")
}
