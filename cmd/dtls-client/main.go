// Command dtls-client is a throwaway probe, not a DTLS client implementation
// (client-side flights are out of scope per spec.md §1 and this package
// implements none of them). It hand-builds a single ClientHello datagram,
// fires it at a dtls-server instance, and prints whatever comes back —
// useful for exercising Flight0/Flight2's cookie exchange by hand. Grounded
// on ekr-mint's bin/mint-client/main.go for the flag+log shape.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"log"
	"net"
	"time"

	dtls "github.com/pion-student/dtls"
)

var (
	serverAddr = flag.String("server", "127.0.0.1:4444", "dtls-server UDP address")
	cookie     = flag.String("cookie", "", "cookie to echo, hex-decoded; empty on the first ClientHello")
)

func main() {
	flag.Parse()

	raddr, err := net.ResolveUDPAddr("udp", *serverAddr)
	if err != nil {
		log.Fatalf("dtls-client: resolve %s: %v", *serverAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		log.Fatalf("dtls-client: dial: %v", err)
	}
	defer conn.Close()

	cookieBytes, err := hex.DecodeString(*cookie)
	if err != nil {
		log.Fatalf("dtls-client: decode -cookie: %v", err)
	}
	hello := buildClientHello(cookieBytes)
	record := wrapHandshakeRecord(hello, 0, 0)

	if _, err := conn.Write(record); err != nil {
		log.Fatalf("dtls-client: write ClientHello: %v", err)
	}
	log.Printf("dtls-client: sent ClientHello (%d bytes, cookie=%q)", len(record), *cookie)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("dtls-client: read response: %v", err)
	}
	describeResponse(buf[:n])
}

// buildClientHello hand-encodes a minimal RFC 6347 ClientHello: version,
// 32-byte Random, empty legacy_session_id, the cookie field DTLS adds over
// TLS, a small cipher suite list, and no extensions. Good enough to drive
// this package's Flight0/Flight2/Flight3 stub chain far enough to observe
// HelloVerifyRequest and ServerHello, not a conformant client.
func buildClientHello(cookie []byte) []byte {
	random := make([]byte, 32)
	binary.BigEndian.PutUint32(random[0:4], uint32(time.Now().Unix()))

	out := []byte{0xfe, 0xfd} // ProtocolVersion1_2
	out = append(out, random...)
	out = append(out, 0) // legacy_session_id length 0
	out = append(out, byte(len(cookie)))
	out = append(out, cookie...)

	suites := []uint16{
		uint16(dtls.CipherSuiteTLSECDHEECDSAWithAES128GCMSHA256),
		uint16(dtls.CipherSuiteTLSECDHERSAWithAES128GCMSHA256),
	}
	suiteBytes := make([]byte, 2+2*len(suites))
	binary.BigEndian.PutUint16(suiteBytes[0:2], uint16(2*len(suites)))
	for i, s := range suites {
		binary.BigEndian.PutUint16(suiteBytes[2+2*i:4+2*i], s)
	}
	out = append(out, suiteBytes...)
	out = append(out, 1, 0) // compression_methods: [null]
	out = append(out, 0, 0) // extensions<0..2^16-1>: empty
	return out
}

// wrapHandshakeRecord prepends a DTLS handshake header then a DTLS record
// header around body, with no fragmentation (body always fits one
// datagram in this probe).
func wrapHandshakeRecord(body []byte, epoch uint16, messageSeq uint16) []byte {
	handshakeHeader := make([]byte, 12)
	handshakeHeader[0] = 1 // client_hello
	putUint24(handshakeHeader[1:4], uint32(len(body)))
	binary.BigEndian.PutUint16(handshakeHeader[4:6], messageSeq)
	putUint24(handshakeHeader[6:9], 0)
	putUint24(handshakeHeader[9:12], uint32(len(body)))
	handshakeMsg := append(handshakeHeader, body...)

	recordHeader := make([]byte, 13)
	recordHeader[0] = 22 // handshake
	recordHeader[1], recordHeader[2] = 0xfe, 0xfd
	binary.BigEndian.PutUint16(recordHeader[3:5], epoch)
	// sequence number left at 0: this probe only ever sends one record per epoch.
	binary.BigEndian.PutUint16(recordHeader[11:13], uint16(len(handshakeMsg)))
	return append(recordHeader, handshakeMsg...)
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func describeResponse(raw []byte) {
	if len(raw) < 13 {
		log.Printf("dtls-client: response too short to be a DTLS record (%d bytes)", len(raw))
		return
	}
	contentType := raw[0]
	epoch := binary.BigEndian.Uint16(raw[3:5])
	if contentType != 22 || len(raw) < 13+12 {
		log.Printf("dtls-client: received non-handshake record (content_type=%d, epoch=%d)", contentType, epoch)
		return
	}
	msgType := raw[13]
	log.Printf("dtls-client: received handshake message type=%d epoch=%d (%d bytes) — re-run with -cookie to echo a HelloVerifyRequest cookie",
		msgType, epoch, len(raw))
}
