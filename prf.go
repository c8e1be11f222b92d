package dtls

import (
	"crypto/hmac"
	"encoding/binary"
	"hash"
)

// pHash implements the TLS 1.2 PRF's core primitive, RFC 5246 §5:
//
//	P_hash(secret, seed) = HMAC_hash(secret, A(1) + seed) +
//	                        HMAC_hash(secret, A(2) + seed) + ...
//	where A(0) = seed, A(i) = HMAC_hash(secret, A(i-1))
//
// This is RFC 5246's own algorithm, also called out by name in
// original_source/dtls/src/flight/flight4.rs's prf_* call sites.
func pHash(secret, seed []byte, length int, hashFunc func() hash.Hash) []byte {
	h := hmac.New(hashFunc, secret)
	h.Write(seed)
	a := h.Sum(nil)

	out := make([]byte, 0, length)
	for len(out) < length {
		h.Reset()
		h.Write(a)
		h.Write(seed)
		out = append(out, h.Sum(nil)...)

		h.Reset()
		h.Write(a)
		a = h.Sum(nil)
	}
	return out[:length]
}

const masterSecretLength = 48

// masterSecret implements Phase B step 3's non-EMS branch:
// PRF(pre_master_secret, "master secret", client_random ‖ server_random, 48).
func masterSecret(preMasterSecret, clientRandom, serverRandom []byte, hashFunc func() hash.Hash) []byte {
	seed := append([]byte("master secret"), clientRandom...)
	seed = append(seed, serverRandom...)
	return pHash(preMasterSecret, seed, masterSecretLength, hashFunc)
}

// extendedMasterSecret implements Phase B step 3's EMS branch
// (RFC 7627 §4): PRF(pre_master_secret, "extended master secret",
// session_hash, 48).
func extendedMasterSecret(preMasterSecret, sessionHash []byte, hashFunc func() hash.Hash) []byte {
	seed := append([]byte("extended master secret"), sessionHash...)
	return pHash(preMasterSecret, seed, masterSecretLength, hashFunc)
}

// keyExpansion implements the "key expansion" label PRF call used by
// CipherSuite.Init, RFC 5246 §6.3: PRF(master_secret, "key expansion",
// server_random ‖ client_random, length). Note the server-then-client
// random order, the reverse of masterSecret's seed.
func keyExpansion(masterSecret, serverRandom, clientRandom []byte, length int, hashFunc func() hash.Hash) []byte {
	seed := append([]byte("key expansion"), serverRandom...)
	seed = append(seed, clientRandom...)
	return pHash(masterSecret, seed, length, hashFunc)
}

const verifyDataLength = 12

// verifyData implements RFC 5246 §7.4.9's Finished.verify_data:
// PRF(master_secret, label, Hash(handshake_messages))[0..11]. label is
// "client finished" or "server finished" depending on which side is
// producing the message; handshakeMessages is the concatenated transcript
// up to (but not including) this Finished message.
func verifyData(label string, masterSecret, handshakeMessages []byte, hashFunc func() hash.Hash) []byte {
	h := hashFunc()
	h.Write(handshakeMessages)
	transcriptHash := h.Sum(nil)

	seed := append([]byte(label), transcriptHash...)
	return pHash(masterSecret, seed, verifyDataLength, hashFunc)
}

func clientFinishedVerifyData(masterSecret, handshakeMessages []byte, hashFunc func() hash.Hash) []byte {
	return verifyData("client finished", masterSecret, handshakeMessages, hashFunc)
}

func serverFinishedVerifyData(masterSecret, handshakeMessages []byte, hashFunc func() hash.Hash) []byte {
	return verifyData("server finished", masterSecret, handshakeMessages, hashFunc)
}

// pskPreMasterSecret implements Phase B step 2's PSK formula
// and invariant 3 (): len(u16) ‖ zeros(len) ‖ len(u16) ‖ psk.
func pskPreMasterSecret(psk []byte) []byte {
	n := len(psk)
	out := make([]byte, 2+n+2+n)
	binary.BigEndian.PutUint16(out[0:2], uint16(n))
	// out[2:2+n] is already zero
	binary.BigEndian.PutUint16(out[2+n:2+n+2], uint16(n))
	copy(out[2+n+2:], psk)
	return out
}
