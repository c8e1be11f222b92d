package dtls

import (
	"encoding/binary"
	"fmt"
)

// ExtensionType is the two-byte IANA TLS ExtensionType registry value.
type ExtensionType uint16

const (
	ExtensionTypeSupportedEllipticCurves ExtensionType = 10
	ExtensionTypeSupportedPointFormats   ExtensionType = 11
	ExtensionTypeUseSRTP                 ExtensionType = 14
	ExtensionTypeUseExtendedMasterSecret ExtensionType = 23
)

// Extension is any hello extension this node reads or writes. Only four
// extensions are implemented (extended_master_secret, use_srtp,
// supported_elliptic_curves, supported_point_formats); anything else
// is skipped when decoding and otherwise ignored. Extension
// negotiation beyond these four, e.g. ALPN, is out of scope.
type Extension interface {
	Type() ExtensionType
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

func marshalExtension(e Extension) ([]byte, error) {
	body, err := e.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint16(out[0:2], uint16(e.Type()))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	return out, nil
}

// ExtensionUseExtendedMasterSecret is RFC 7627's empty-bodied extension.
type ExtensionUseExtendedMasterSecret struct{}

func (e *ExtensionUseExtendedMasterSecret) Type() ExtensionType { return ExtensionTypeUseExtendedMasterSecret }
func (e *ExtensionUseExtendedMasterSecret) Marshal() ([]byte, error) { return []byte{}, nil }
func (e *ExtensionUseExtendedMasterSecret) Unmarshal(data []byte) error { return nil }

// SRTPProtectionProfile identifies an SRTP keying scheme (RFC 5764 §4.1.2).
type SRTPProtectionProfile uint16

const (
	SRTPProtectionProfileUnsupported      SRTPProtectionProfile = 0x0000
	SRTPProtectionProfileAes128CmHmacSha1_80 SRTPProtectionProfile = 0x0001
	SRTPProtectionProfileAeadAes128Gcm    SRTPProtectionProfile = 0x0007
)

// ExtensionUseSRTP carries the single negotiated SRTP profile.
type ExtensionUseSRTP struct {
	ProtectionProfile SRTPProtectionProfile
}

func (e *ExtensionUseSRTP) Type() ExtensionType { return ExtensionTypeUseSRTP }

func (e *ExtensionUseSRTP) Marshal() ([]byte, error) {
	// profiles<2..2^16-1>, then mki<0..255>
	out := make([]byte, 2+2+1)
	binary.BigEndian.PutUint16(out[0:2], 2)
	binary.BigEndian.PutUint16(out[2:4], uint16(e.ProtectionProfile))
	out[4] = 0 // empty MKI
	return out, nil
}

func (e *ExtensionUseSRTP) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("dtls: %w: use_srtp extension too short", ErrDecodeError)
	}
	n := binary.BigEndian.Uint16(data[0:2])
	if int(n) < 2 || len(data) < int(2+n) {
		return fmt.Errorf("dtls: %w: use_srtp profile list truncated", ErrDecodeError)
	}
	// Server only ever proposes/accepts a single profile in this node.
	e.ProtectionProfile = SRTPProtectionProfile(binary.BigEndian.Uint16(data[2:4]))
	return nil
}

// ExtensionSupportedEllipticCurves is the fixed {X25519, P-256, P-384}
// list offered in non-PSK mode.
type ExtensionSupportedEllipticCurves struct {
	Curves []NamedCurve
}

func (e *ExtensionSupportedEllipticCurves) Type() ExtensionType {
	return ExtensionTypeSupportedEllipticCurves
}

func (e *ExtensionSupportedEllipticCurves) Marshal() ([]byte, error) {
	out := make([]byte, 2+2*len(e.Curves))
	binary.BigEndian.PutUint16(out[0:2], uint16(2*len(e.Curves)))
	for i, c := range e.Curves {
		binary.BigEndian.PutUint16(out[2+2*i:4+2*i], uint16(c))
	}
	return out, nil
}

func (e *ExtensionSupportedEllipticCurves) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("dtls: %w: supported_elliptic_curves too short", ErrDecodeError)
	}
	n := binary.BigEndian.Uint16(data[0:2])
	if len(data) < int(2+n) || n%2 != 0 {
		return fmt.Errorf("dtls: %w: supported_elliptic_curves truncated", ErrDecodeError)
	}
	e.Curves = e.Curves[:0]
	for i := 0; i < int(n); i += 2 {
		e.Curves = append(e.Curves, NamedCurve(binary.BigEndian.Uint16(data[2+i:4+i])))
	}
	return nil
}

const ellipticCurvePointFormatUncompressed = 0

// ExtensionSupportedPointFormats is the fixed {uncompressed} list emitted
// alongside supported_elliptic_curves.
type ExtensionSupportedPointFormats struct {
	PointFormats []uint8
}

func (e *ExtensionSupportedPointFormats) Type() ExtensionType { return ExtensionTypeSupportedPointFormats }

func (e *ExtensionSupportedPointFormats) Marshal() ([]byte, error) {
	out := make([]byte, 1+len(e.PointFormats))
	out[0] = byte(len(e.PointFormats))
	copy(out[1:], e.PointFormats)
	return out, nil
}

func (e *ExtensionSupportedPointFormats) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("dtls: %w: supported_point_formats too short", ErrDecodeError)
	}
	n := int(data[0])
	if len(data) < 1+n {
		return fmt.Errorf("dtls: %w: supported_point_formats truncated", ErrDecodeError)
	}
	e.PointFormats = append([]uint8{}, data[1:1+n]...)
	return nil
}

// ExtensionList decodes the extensions<0..2^16-1> block that terminates a
// ClientHello/ServerHello. Unknown extension types are skipped rather than
// erroring, matching TLS's forward-compatibility rule.
type ExtensionList struct {
	UseExtendedMasterSecret bool
	UseSRTP                 *ExtensionUseSRTP
	SupportedEllipticCurves *ExtensionSupportedEllipticCurves
	SupportedPointFormats   *ExtensionSupportedPointFormats
}

func unmarshalExtensionList(data []byte) (ExtensionList, error) {
	var list ExtensionList
	if len(data) == 0 {
		return list, nil
	}
	if len(data) < 2 {
		return list, fmt.Errorf("dtls: %w: extensions block too short", ErrDecodeError)
	}
	total := binary.BigEndian.Uint16(data[0:2])
	body := data[2:]
	if len(body) < int(total) {
		return list, fmt.Errorf("dtls: %w: extensions block truncated", ErrDecodeError)
	}
	body = body[:total]
	for len(body) > 0 {
		if len(body) < 4 {
			return list, fmt.Errorf("dtls: %w: extension header truncated", ErrDecodeError)
		}
		typ := ExtensionType(binary.BigEndian.Uint16(body[0:2]))
		extLen := binary.BigEndian.Uint16(body[2:4])
		if len(body) < int(4+extLen) {
			return list, fmt.Errorf("dtls: %w: extension body truncated", ErrDecodeError)
		}
		extBody := body[4 : 4+extLen]
		switch typ {
		case ExtensionTypeUseExtendedMasterSecret:
			list.UseExtendedMasterSecret = true
		case ExtensionTypeUseSRTP:
			e := &ExtensionUseSRTP{}
			if err := e.Unmarshal(extBody); err != nil {
				return list, err
			}
			list.UseSRTP = e
		case ExtensionTypeSupportedEllipticCurves:
			e := &ExtensionSupportedEllipticCurves{}
			if err := e.Unmarshal(extBody); err != nil {
				return list, err
			}
			list.SupportedEllipticCurves = e
		case ExtensionTypeSupportedPointFormats:
			e := &ExtensionSupportedPointFormats{}
			if err := e.Unmarshal(extBody); err != nil {
				return list, err
			}
			list.SupportedPointFormats = e
		}
		body = body[4+extLen:]
	}
	return list, nil
}
