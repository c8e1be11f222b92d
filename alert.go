package dtls

import "fmt"

// AlertLevel mirrors TLS/DTLS's one-byte alert severity.
type AlertLevel uint8

const (
	AlertLevelWarning AlertLevel = 1
	AlertLevelFatal   AlertLevel = 2
)

func (l AlertLevel) String() string {
	switch l {
	case AlertLevelWarning:
		return "warning"
	case AlertLevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AlertDescription is the subset of RFC 5246 §7.2.2 alert descriptions this
// node can raise.
type AlertDescription uint8

const (
	AlertDescriptionCloseNotify            AlertDescription = 0
	AlertDescriptionUnexpectedMessage       AlertDescription = 10
	AlertDescriptionBadRecordMac            AlertDescription = 20
	AlertDescriptionHandshakeFailure        AlertDescription = 40
	AlertDescriptionNoCertificate           AlertDescription = 41
	AlertDescriptionBadCertificate          AlertDescription = 42
	AlertDescriptionUnsupportedCertificate  AlertDescription = 43
	AlertDescriptionCertificateExpired      AlertDescription = 45
	AlertDescriptionCertificateUnknown      AlertDescription = 46
	AlertDescriptionIllegalParameter        AlertDescription = 47
	AlertDescriptionUnknownCA               AlertDescription = 48
	AlertDescriptionDecodeError             AlertDescription = 50
	AlertDescriptionProtocolVersion         AlertDescription = 70
	AlertDescriptionInsufficientSecurity    AlertDescription = 71
	AlertDescriptionInternalError           AlertDescription = 80
	AlertDescriptionUnsupportedExtension    AlertDescription = 110
	AlertDescriptionNoApplicationProtocol   AlertDescription = 120
)

func (d AlertDescription) String() string {
	switch d {
	case AlertDescriptionCloseNotify:
		return "close_notify"
	case AlertDescriptionUnexpectedMessage:
		return "unexpected_message"
	case AlertDescriptionBadRecordMac:
		return "bad_record_mac"
	case AlertDescriptionHandshakeFailure:
		return "handshake_failure"
	case AlertDescriptionNoCertificate:
		return "no_certificate"
	case AlertDescriptionBadCertificate:
		return "bad_certificate"
	case AlertDescriptionUnsupportedCertificate:
		return "unsupported_certificate"
	case AlertDescriptionCertificateExpired:
		return "certificate_expired"
	case AlertDescriptionCertificateUnknown:
		return "certificate_unknown"
	case AlertDescriptionIllegalParameter:
		return "illegal_parameter"
	case AlertDescriptionUnknownCA:
		return "unknown_ca"
	case AlertDescriptionDecodeError:
		return "decode_error"
	case AlertDescriptionProtocolVersion:
		return "protocol_version"
	case AlertDescriptionInsufficientSecurity:
		return "insufficient_security"
	case AlertDescriptionInternalError:
		return "internal_error"
	case AlertDescriptionUnsupportedExtension:
		return "unsupported_extension"
	case AlertDescriptionNoApplicationProtocol:
		return "no_application_protocol"
	default:
		return "unknown"
	}
}

// Alert is the {level, description} pair sent to the peer and surfaced to
// the application alongside a concrete error.
type Alert struct {
	Level       AlertLevel
	Description AlertDescription
}

func (a *Alert) Error() string {
	return fmt.Sprintf("dtls: alert(%s, %s)", a.Level, a.Description)
}

func (a *Alert) Marshal() []byte {
	return []byte{byte(a.Level), byte(a.Description)}
}

func fatal(desc AlertDescription) *Alert {
	return &Alert{Level: AlertLevelFatal, Description: desc}
}
