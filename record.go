package dtls

import (
	"encoding/binary"
	"fmt"
)

// ProtocolVersion is DTLS's {major, minor} pair, encoded as the one's
// complement of the equivalent TLS version (RFC 6347 §4.1).
type ProtocolVersion struct {
	Major, Minor uint8
}

// ProtocolVersion1_2 is the only version this node ever emits or accepts;
// DTLS 1.3 support is out of scope.
var ProtocolVersion1_2 = ProtocolVersion{Major: 0xfe, Minor: 0xfd}

func (v ProtocolVersion) Equal(o ProtocolVersion) bool {
	return v.Major == o.Major && v.Minor == o.Minor
}

// ContentType is the DTLS record's outer content type.
type ContentType uint8

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

const recordLayerHeaderSize = 13

// RecordLayerHeader is the 13-byte DTLS record header: content type,
// version, epoch, 48-bit sequence number, and payload length. Grounded on
// ekr-mint's record-layer.go TLSPlaintext (which carries the same
// fields implicitly via its stream framing) generalized to DTLS's explicit
// per-record epoch+sequence fields.
type RecordLayerHeader struct {
	ContentType     ContentType
	ProtocolVersion ProtocolVersion
	Epoch           uint16
	SequenceNumber  uint64 // only the low 48 bits are meaningful
	ContentLen      uint16
}

func (h *RecordLayerHeader) Marshal() []byte {
	out := make([]byte, recordLayerHeaderSize)
	out[0] = byte(h.ContentType)
	out[1] = h.ProtocolVersion.Major
	out[2] = h.ProtocolVersion.Minor
	binary.BigEndian.PutUint16(out[3:5], h.Epoch)
	// 48-bit sequence number: write as 8 bytes then drop the top 2.
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], h.SequenceNumber)
	copy(out[5:11], seq[2:])
	binary.BigEndian.PutUint16(out[11:13], h.ContentLen)
	return out
}

func (h *RecordLayerHeader) Unmarshal(data []byte) (int, error) {
	if len(data) < recordLayerHeaderSize {
		return 0, fmt.Errorf("dtls: %w: short record header", ErrDecodeError)
	}
	h.ContentType = ContentType(data[0])
	h.ProtocolVersion = ProtocolVersion{Major: data[1], Minor: data[2]}
	h.Epoch = binary.BigEndian.Uint16(data[3:5])
	var seq [8]byte
	copy(seq[2:], data[5:11])
	h.SequenceNumber = binary.BigEndian.Uint64(seq[:])
	h.ContentLen = binary.BigEndian.Uint16(data[11:13])
	return recordLayerHeaderSize, nil
}

// ErrDecodeError flags a malformed wire structure (short buffer, bad
// length prefix). Kept distinct from the handshake-layer sentinels in
// errors.go because it is purely a framing-layer concern.
var ErrDecodeError = fmt.Errorf("dtls: decode error")

// Packet pairs a record-layer header with its content, plus the
// should_encrypt / reset_local_sequence_number flags the record layer (an
// external collaborator) consumes.
type Packet struct {
	Header                   RecordLayerHeader
	Content                  Marshaler
	ShouldEncrypt            bool
	ResetLocalSequenceNumber bool
}

// Marshaler is implemented by every content type a Packet can carry
// (handshake messages, alerts, change_cipher_spec).
type Marshaler interface {
	Marshal() ([]byte, error)
}

// ChangeCipherSpec is RFC 5246 §7.1's single-byte content: the signal that
// everything after it on this epoch is encrypted under the just-derived
// keys. Flight6 emits it ahead of the server's own Finished.
type ChangeCipherSpec struct{}

func (c *ChangeCipherSpec) Marshal() ([]byte, error) { return []byte{1}, nil }

func (c *ChangeCipherSpec) Unmarshal(data []byte) error {
	if len(data) != 1 || data[0] != 1 {
		return fmt.Errorf("dtls: %w: invalid change_cipher_spec", ErrDecodeError)
	}
	return nil
}
