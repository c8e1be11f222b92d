package dtls

import (
	"encoding/binary"
	"fmt"
)

// HandshakeMessageBody is implemented by every handshake message body this
// node marshals or unmarshals. Grounded directly on ekr-mint's
// handshake-messages.go HandshakeMessageBody interface; Unmarshal keeps its
// "return bytes consumed" signature even though every message
// here is unmarshalled from an already-reassembled, exactly-sized buffer
// and callers ignore the count (ServerHello's stops before its extensions
// and ServerHelloDone's is always 0), for symmetry with
// Marshal and because the fragment reassembler (fragment.go) is what
// actually owns splitting the stream into whole messages.
type HandshakeMessageBody interface {
	Type() HandshakeType
	Marshal() ([]byte, error)
	Unmarshal(data []byte) (int, error)
}

// Random is the 32-byte gmt_unix_time‖28-random-bytes structure shared by
// ClientHello and ServerHello.
type Random struct {
	GMTUnixTime uint32
	RandomBytes [28]byte
}

// Marshal writes Random into a properly sized 32-byte buffer.
func (r *Random) Marshal() []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint32(out[0:4], r.GMTUnixTime)
	copy(out[4:32], r.RandomBytes[:])
	return out
}

func (r *Random) Unmarshal(data []byte) (int, error) {
	if len(data) < 32 {
		return 0, fmt.Errorf("dtls: %w: short Random", ErrDecodeError)
	}
	r.GMTUnixTime = binary.BigEndian.Uint32(data[0:4])
	copy(r.RandomBytes[:], data[4:32])
	return 32, nil
}

// ---- HelloVerifyRequest ----

// HandshakeMessageHelloVerifyRequest is Flight2's sole emitted message
// (RFC 6347 §4.2.1): a repeat of the negotiated version plus the cookie the
// client must echo in its next ClientHello.
type HandshakeMessageHelloVerifyRequest struct {
	Version ProtocolVersion
	Cookie  []byte
}

func (h *HandshakeMessageHelloVerifyRequest) Type() HandshakeType {
	return HandshakeTypeHelloVerifyRequest
}

func (h *HandshakeMessageHelloVerifyRequest) Marshal() ([]byte, error) {
	out := make([]byte, 2+1+len(h.Cookie))
	out[0] = h.Version.Major
	out[1] = h.Version.Minor
	out[2] = byte(len(h.Cookie))
	copy(out[3:], h.Cookie)
	return out, nil
}

func (h *HandshakeMessageHelloVerifyRequest) Unmarshal(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("dtls: %w: short HelloVerifyRequest", ErrDecodeError)
	}
	h.Version = ProtocolVersion{Major: data[0], Minor: data[1]}
	n := int(data[2])
	if len(data) < 3+n {
		return 0, fmt.Errorf("dtls: %w: HelloVerifyRequest cookie truncated", ErrDecodeError)
	}
	h.Cookie = append([]byte{}, data[3:3+n]...)
	return 3 + n, nil
}

// ---- ClientHello (parsed only; generation is a client-side concern, but
// Flight0-3's stub still needs to decode enough of it to learn the
// negotiated cipher suite, EMS and SRTP intent) ----

type HandshakeMessageClientHello struct {
	Version      ProtocolVersion
	Random       Random
	Cookie       []byte
	CipherSuites []CipherSuiteID
	Extensions   ExtensionList
}

func (h *HandshakeMessageClientHello) Type() HandshakeType { return HandshakeTypeClientHello }

func (h *HandshakeMessageClientHello) Marshal() ([]byte, error) {
	return nil, fmt.Errorf("dtls: ClientHello generation is a client-side flight, out of scope for this node")
}

func (h *HandshakeMessageClientHello) Unmarshal(data []byte) (int, error) {
	if len(data) < 34 {
		return 0, fmt.Errorf("dtls: %w: short ClientHello", ErrDecodeError)
	}
	h.Version = ProtocolVersion{Major: data[0], Minor: data[1]}
	if _, err := h.Random.Unmarshal(data[2:34]); err != nil {
		return 0, err
	}
	offset := 34
	sessionIDLen := int(data[offset])
	offset++
	offset += sessionIDLen // legacy_session_id, ignored (no session resumption)

	if len(data) < offset+1 {
		return 0, fmt.Errorf("dtls: %w: ClientHello truncated at cookie", ErrDecodeError)
	}
	cookieLen := int(data[offset])
	offset++
	if len(data) < offset+cookieLen {
		return 0, fmt.Errorf("dtls: %w: ClientHello cookie truncated", ErrDecodeError)
	}
	h.Cookie = append([]byte{}, data[offset:offset+cookieLen]...)
	offset += cookieLen

	if len(data) < offset+2 {
		return 0, fmt.Errorf("dtls: %w: ClientHello truncated at cipher suites", ErrDecodeError)
	}
	suitesLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+suitesLen {
		return 0, fmt.Errorf("dtls: %w: ClientHello cipher suite list truncated", ErrDecodeError)
	}
	h.CipherSuites = h.CipherSuites[:0]
	for i := 0; i < suitesLen; i += 2 {
		h.CipherSuites = append(h.CipherSuites, CipherSuiteID(binary.BigEndian.Uint16(data[offset+i:offset+i+2])))
	}
	offset += suitesLen

	if len(data) < offset+1 {
		return 0, fmt.Errorf("dtls: %w: ClientHello truncated at compression methods", ErrDecodeError)
	}
	compLen := int(data[offset])
	offset += 1 + compLen

	ext, err := unmarshalExtensionList(data[offset:])
	if err != nil {
		return 0, err
	}
	h.Extensions = ext
	return len(data), nil
}

// ---- ServerHello ----

// HandshakeMessageServerHello is emitted first by Flight-4 generate.
type HandshakeMessageServerHello struct {
	Version          ProtocolVersion
	Random           Random
	CipherSuite      CipherSuiteID
	CompressionMethod uint8
	Extensions       []Extension
}

func (h *HandshakeMessageServerHello) Type() HandshakeType { return HandshakeTypeServerHello }

func (h *HandshakeMessageServerHello) Marshal() ([]byte, error) {
	out := []byte{h.Version.Major, h.Version.Minor}
	out = append(out, h.Random.Marshal()...)
	out = append(out, 0) // legacy_session_id length 0
	suite := make([]byte, 2)
	binary.BigEndian.PutUint16(suite, uint16(h.CipherSuite))
	out = append(out, suite...)
	out = append(out, h.CompressionMethod)

	var extBytes []byte
	for _, e := range h.Extensions {
		b, err := marshalExtension(e)
		if err != nil {
			return nil, err
		}
		extBytes = append(extBytes, b...)
	}
	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(extBytes)))
	out = append(out, extLen...)
	out = append(out, extBytes...)
	return out, nil
}

func (h *HandshakeMessageServerHello) Unmarshal(data []byte) (int, error) {
	if len(data) < 35 {
		return 0, fmt.Errorf("dtls: %w: short ServerHello", ErrDecodeError)
	}
	h.Version = ProtocolVersion{Major: data[0], Minor: data[1]}
	if _, err := h.Random.Unmarshal(data[2:34]); err != nil {
		return 0, err
	}
	offset := 34
	sessionIDLen := int(data[offset])
	offset++
	offset += sessionIDLen
	if len(data) < offset+3 {
		return 0, fmt.Errorf("dtls: %w: ServerHello truncated", ErrDecodeError)
	}
	h.CipherSuite = CipherSuiteID(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	h.CompressionMethod = data[offset]
	offset++
	// Extensions are not decoded: Unmarshal stops after compression_method
	// and returns that offset, leaving h.Extensions unchanged.
	return offset, nil
}

// ---- Certificate ----

// HandshakeMessageCertificate frames a chain as
// total_len(u24) ‖ repeated { cert_len(u24) ‖ cert_der }.
// Used for both the server's Certificate (Flight-4 generate) and the
// client's Certificate (Flight-4 parse).
type HandshakeMessageCertificate struct {
	Certificate [][]byte
}

func (h *HandshakeMessageCertificate) Type() HandshakeType { return HandshakeTypeCertificate }

func (h *HandshakeMessageCertificate) Marshal() ([]byte, error) {
	var body []byte
	for _, der := range h.Certificate {
		entry := make([]byte, 3+len(der))
		putUint24(entry[0:3], uint32(len(der)))
		copy(entry[3:], der)
		body = append(body, entry...)
	}
	out := make([]byte, 3+len(body))
	putUint24(out[0:3], uint32(len(body)))
	copy(out[3:], body)
	return out, nil
}

func (h *HandshakeMessageCertificate) Unmarshal(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("dtls: %w: short Certificate", ErrDecodeError)
	}
	total := getUint24(data[0:3])
	if uint32(len(data)-3) < total {
		return 0, fmt.Errorf("dtls: %w: Certificate list truncated", ErrDecodeError)
	}
	body := data[3 : 3+total]
	h.Certificate = h.Certificate[:0]
	for len(body) > 0 {
		if len(body) < 3 {
			return 0, fmt.Errorf("dtls: %w: Certificate entry header truncated", ErrDecodeError)
		}
		certLen := getUint24(body[0:3])
		if uint32(len(body)-3) < certLen {
			return 0, fmt.Errorf("dtls: %w: Certificate entry truncated", ErrDecodeError)
		}
		der := make([]byte, certLen)
		copy(der, body[3:3+certLen])
		h.Certificate = append(h.Certificate, der)
		body = body[3+certLen:]
	}
	return int(3 + total), nil
}

// ---- ServerKeyExchange ----

// HandshakeMessageServerKeyExchange covers both the signed ECDHE body and
// the degenerate PSK-identity-hint-only body.
type HandshakeMessageServerKeyExchange struct {
	IdentityHint      []byte
	EllipticCurveType uint8
	NamedCurve        NamedCurve
	PublicKey         []byte
	HashAlgorithm     HashAlgorithm
	SignatureAlgorithm SignatureAlgorithm
	Signature         []byte
}

func (h *HandshakeMessageServerKeyExchange) Type() HandshakeType {
	return HandshakeTypeServerKeyExchange
}

func (h *HandshakeMessageServerKeyExchange) Marshal() ([]byte, error) {
	if len(h.PublicKey) == 0 && h.EllipticCurveType == 0 {
		// PSK-identity-hint-only form, RFC 4279 §2.
		out := make([]byte, 2+len(h.IdentityHint))
		binary.BigEndian.PutUint16(out[0:2], uint16(len(h.IdentityHint)))
		copy(out[2:], h.IdentityHint)
		return out, nil
	}

	// curve_type(u8=3) ‖ named_curve(u16) ‖ pubkey_len(u8) ‖ pubkey ‖
	// hash_alg(u8) ‖ sig_alg(u8) ‖ sig_len(u16) ‖ sig
	out := []byte{h.EllipticCurveType}
	nc := make([]byte, 2)
	binary.BigEndian.PutUint16(nc, uint16(h.NamedCurve))
	out = append(out, nc...)
	out = append(out, byte(len(h.PublicKey)))
	out = append(out, h.PublicKey...)
	out = append(out, byte(h.HashAlgorithm), byte(h.SignatureAlgorithm))
	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(h.Signature)))
	out = append(out, sigLen...)
	out = append(out, h.Signature...)
	return out, nil
}

// unmarshalECDHE and unmarshalPSK are used instead of a single sniffing
// Unmarshal because the two ServerKeyExchange shapes are not reliably
// self-describing: a PSK identity hint whose 2-byte length happens to
// start with the byte value 3 (hint length >= 0x0300 = 768 bytes) is
// indistinguishable from the ECDHE shape's curve_type==named_curve(3)
// tag by content alone. Which shape applies is known out-of-band from the
// negotiated cipher suite (CipherSuite.IsPSK), exactly as with
// ClientKeyExchange's unmarshalECDHE/unmarshalPSK split below.
func (h *HandshakeMessageServerKeyExchange) unmarshalECDHE(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("dtls: %w: short ServerKeyExchange", ErrDecodeError)
	}
	h.EllipticCurveType = data[0]
	h.NamedCurve = NamedCurve(binary.BigEndian.Uint16(data[1:3]))
	pkLen := int(data[3])
	if len(data) < 4+pkLen+4 {
		return 0, fmt.Errorf("dtls: %w: ServerKeyExchange truncated", ErrDecodeError)
	}
	h.PublicKey = append([]byte{}, data[4:4+pkLen]...)
	offset := 4 + pkLen
	h.HashAlgorithm = HashAlgorithm(data[offset])
	h.SignatureAlgorithm = SignatureAlgorithm(data[offset+1])
	sigLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
	offset += 4
	if len(data) < offset+sigLen {
		return 0, fmt.Errorf("dtls: %w: ServerKeyExchange signature truncated", ErrDecodeError)
	}
	h.Signature = append([]byte{}, data[offset:offset+sigLen]...)
	return offset + sigLen, nil
}

func (h *HandshakeMessageServerKeyExchange) unmarshalPSK(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("dtls: %w: short PSK ServerKeyExchange", ErrDecodeError)
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+n {
		return 0, fmt.Errorf("dtls: %w: PSK identity hint truncated", ErrDecodeError)
	}
	h.IdentityHint = append([]byte{}, data[2:2+n]...)
	return 2 + n, nil
}

// Unmarshal implements HandshakeMessageBody by defaulting to the ECDHE
// shape, matching ClientKeyExchange.Unmarshal's default; this package never
// exercises it for the PSK shape through the generic fullPullMap dispatch
// today, since ServerKeyExchange is only pulled raw (pullAndMerge, for
// transcript reconstruction) by flight4.go, never decoded generically.
func (h *HandshakeMessageServerKeyExchange) Unmarshal(data []byte) (int, error) {
	return h.unmarshalECDHE(data)
}

// ---- ClientKeyExchange ----

// HandshakeMessageClientKeyExchange covers both consumed bodies: ECDHE's
// {len(u8), pubkey_bytes} and PSK's {len(u16), identity_bytes}. Which
// decode applies is determined by the
// negotiated cipher suite (PSK vs ECDHE), not by sniffing the bytes:
// Unmarshal fills PublicKey only, flight4Parse re-decodes with unmarshalPSK
// to fill IdentityHint when the suite is PSK, and then uses IdentityHint or
// PublicKey depending on cfg.LocalPSKCallback.
type HandshakeMessageClientKeyExchange struct {
	PublicKey    []byte // ECDHE opaque point
	IdentityHint []byte // PSK identity
	isPSK        bool
}

func (h *HandshakeMessageClientKeyExchange) Type() HandshakeType {
	return HandshakeTypeClientKeyExchange
}

func (h *HandshakeMessageClientKeyExchange) Marshal() ([]byte, error) {
	if h.isPSK {
		out := make([]byte, 2+len(h.IdentityHint))
		binary.BigEndian.PutUint16(out[0:2], uint16(len(h.IdentityHint)))
		copy(out[2:], h.IdentityHint)
		return out, nil
	}
	out := make([]byte, 1+len(h.PublicKey))
	out[0] = byte(len(h.PublicKey))
	copy(out[1:], h.PublicKey)
	return out, nil
}

// unmarshalECDHE and unmarshalPSK are used instead of a single Unmarshal
// because, unlike every other message here, the wire shape of
// ClientKeyExchange is ambiguous without already knowing which key exchange
// the cipher suite negotiated; the two shapes are distinguished out-of-band
// by the caller.
func (h *HandshakeMessageClientKeyExchange) unmarshalECDHE(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("dtls: %w: empty ClientKeyExchange", ErrDecodeError)
	}
	n := int(data[0])
	if len(data) < 1+n {
		return 0, fmt.Errorf("dtls: %w: ClientKeyExchange public key truncated", ErrDecodeError)
	}
	h.PublicKey = append([]byte{}, data[1:1+n]...)
	return 1 + n, nil
}

func (h *HandshakeMessageClientKeyExchange) unmarshalPSK(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("dtls: %w: short PSK ClientKeyExchange", ErrDecodeError)
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+n {
		return 0, fmt.Errorf("dtls: %w: PSK identity truncated", ErrDecodeError)
	}
	h.isPSK = true
	h.IdentityHint = append([]byte{}, data[2:2+n]...)
	return 2 + n, nil
}

// Unmarshal implements HandshakeMessageBody by defaulting to the ECDHE
// shape; Flight4's parse calls unmarshalPSK directly when the negotiated
// cipher suite is PSK,
// since that is the only place the distinguishing context is available.
func (h *HandshakeMessageClientKeyExchange) Unmarshal(data []byte) (int, error) {
	return h.unmarshalECDHE(data)
}

// ---- CertificateRequest ----

// ClientCertificateType identifies an acceptable client certificate
// signature algorithm, per RFC 5246 §7.4.4.
type ClientCertificateType uint8

const (
	ClientCertificateTypeRSASign   ClientCertificateType = 1
	ClientCertificateTypeECDSASign ClientCertificateType = 64
)

// HandshakeMessageCertificateRequest is emitted when cfg.ClientAuth >
// NoClientCert.
type HandshakeMessageCertificateRequest struct {
	CertificateTypes       []ClientCertificateType
	SignatureHashAlgorithms []SignatureHashAlgorithm
}

func (h *HandshakeMessageCertificateRequest) Type() HandshakeType {
	return HandshakeTypeCertificateRequest
}

func (h *HandshakeMessageCertificateRequest) Marshal() ([]byte, error) {
	out := []byte{byte(len(h.CertificateTypes))}
	for _, t := range h.CertificateTypes {
		out = append(out, byte(t))
	}
	algLen := make([]byte, 2)
	binary.BigEndian.PutUint16(algLen, uint16(2*len(h.SignatureHashAlgorithms)))
	out = append(out, algLen...)
	for _, a := range h.SignatureHashAlgorithms {
		out = append(out, byte(a.Hash), byte(a.Signature))
	}
	out = append(out, 0, 0) // certificate_authorities<0..2^16-1>, empty (no CA filtering in this node)
	return out, nil
}

func (h *HandshakeMessageCertificateRequest) Unmarshal(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("dtls: %w: empty CertificateRequest", ErrDecodeError)
	}
	n := int(data[0])
	offset := 1
	if len(data) < offset+n {
		return 0, fmt.Errorf("dtls: %w: CertificateRequest types truncated", ErrDecodeError)
	}
	h.CertificateTypes = h.CertificateTypes[:0]
	for i := 0; i < n; i++ {
		h.CertificateTypes = append(h.CertificateTypes, ClientCertificateType(data[offset+i]))
	}
	offset += n
	if len(data) < offset+2 {
		return 0, fmt.Errorf("dtls: %w: CertificateRequest truncated at sig algs", ErrDecodeError)
	}
	algBytes := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+algBytes {
		return 0, fmt.Errorf("dtls: %w: CertificateRequest sig algs truncated", ErrDecodeError)
	}
	h.SignatureHashAlgorithms = h.SignatureHashAlgorithms[:0]
	for i := 0; i < algBytes; i += 2 {
		h.SignatureHashAlgorithms = append(h.SignatureHashAlgorithms, SignatureHashAlgorithm{
			Hash:      HashAlgorithm(data[offset+i]),
			Signature: SignatureAlgorithm(data[offset+i+1]),
		})
	}
	offset += algBytes
	if len(data) < offset+2 {
		return 0, fmt.Errorf("dtls: %w: CertificateRequest truncated at CA list", ErrDecodeError)
	}
	caLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2 + caLen
	return offset, nil
}

// ---- ServerHelloDone ----

// HandshakeMessageServerHelloDone is the empty-bodied terminator of the
// server's flight.
type HandshakeMessageServerHelloDone struct{}

func (h *HandshakeMessageServerHelloDone) Type() HandshakeType { return HandshakeTypeServerHelloDone }
func (h *HandshakeMessageServerHelloDone) Marshal() ([]byte, error) { return []byte{}, nil }
func (h *HandshakeMessageServerHelloDone) Unmarshal(data []byte) (int, error) { return 0, nil }

// ---- CertificateVerify ----

// HandshakeMessageCertificateVerify carries the client's signature over the
// handshake transcript.
type HandshakeMessageCertificateVerify struct {
	HashAlgorithm      HashAlgorithm
	SignatureAlgorithm SignatureAlgorithm
	Signature          []byte
}

func (h *HandshakeMessageCertificateVerify) Type() HandshakeType {
	return HandshakeTypeCertificateVerify
}

func (h *HandshakeMessageCertificateVerify) Marshal() ([]byte, error) {
	out := []byte{byte(h.HashAlgorithm), byte(h.SignatureAlgorithm)}
	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(h.Signature)))
	out = append(out, sigLen...)
	out = append(out, h.Signature...)
	return out, nil
}

func (h *HandshakeMessageCertificateVerify) Unmarshal(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("dtls: %w: short CertificateVerify", ErrDecodeError)
	}
	h.HashAlgorithm = HashAlgorithm(data[0])
	h.SignatureAlgorithm = SignatureAlgorithm(data[1])
	sigLen := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < 4+sigLen {
		return 0, fmt.Errorf("dtls: %w: CertificateVerify signature truncated", ErrDecodeError)
	}
	h.Signature = append([]byte{}, data[4:4+sigLen]...)
	return 4 + sigLen, nil
}

// ---- Finished ----

// HandshakeMessageFinished carries verify_data. Flight4's parse only
// requires the message's arrival — the MAC check happens once, in
// Flight6 (see flight6.go).
type HandshakeMessageFinished struct {
	VerifyData []byte
}

func (h *HandshakeMessageFinished) Type() HandshakeType { return HandshakeTypeFinished }

func (h *HandshakeMessageFinished) Marshal() ([]byte, error) {
	return append([]byte{}, h.VerifyData...), nil
}

func (h *HandshakeMessageFinished) Unmarshal(data []byte) (int, error) {
	h.VerifyData = append([]byte{}, data...)
	return len(data), nil
}

// unmarshalHandshakeMessageBody decodes data (a whole, reassembled
// handshake body, header stripped) according to typ. Used by
// handshakeCache.fullPullMap to turn a logged item's raw bytes back into a
// typed HandshakeMessageBody on demand.
func unmarshalHandshakeMessageBody(typ HandshakeType, data []byte) (HandshakeMessageBody, error) {
	var body HandshakeMessageBody
	switch typ {
	case HandshakeTypeHelloVerifyRequest:
		body = &HandshakeMessageHelloVerifyRequest{}
	case HandshakeTypeClientHello:
		body = &HandshakeMessageClientHello{}
	case HandshakeTypeServerHello:
		body = &HandshakeMessageServerHello{}
	case HandshakeTypeCertificate:
		body = &HandshakeMessageCertificate{}
	case HandshakeTypeServerKeyExchange:
		body = &HandshakeMessageServerKeyExchange{}
	case HandshakeTypeCertificateRequest:
		body = &HandshakeMessageCertificateRequest{}
	case HandshakeTypeServerHelloDone:
		body = &HandshakeMessageServerHelloDone{}
	case HandshakeTypeClientKeyExchange:
		body = &HandshakeMessageClientKeyExchange{}
	case HandshakeTypeCertificateVerify:
		body = &HandshakeMessageCertificateVerify{}
	case HandshakeTypeFinished:
		body = &HandshakeMessageFinished{}
	default:
		return nil, fmt.Errorf("dtls: %w: unknown handshake type %s", ErrHandshakeMessageUnexpectedType, typ)
	}
	if _, err := body.Unmarshal(data); err != nil {
		return nil, err
	}
	return body, nil
}
