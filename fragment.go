package dtls

import (
	"fmt"
	"sort"
)

type fragmentSpan struct {
	offset, length int
}

// pendingMessage accumulates fragments for one message_seq until every byte
// of its declared length has arrived at least once. Grounded on
// FrameReader's two-phase header/body accumulation (frame-reader.go),
// generalized here from FrameReader's single in-order stream assumption to
// DTLS's explicit offset/length-addressed, possibly-reordered fragments
// (RFC 6347 §4.2.3), which the demo Conn (conn.go) needs a working
// implementation of to drive the handshake end to end.
type pendingMessage struct {
	header HandshakeHeader
	data   []byte
	spans  []fragmentSpan
}

func (p *pendingMessage) addSpan(offset, length int) {
	p.spans = append(p.spans, fragmentSpan{offset, length})
	sort.Slice(p.spans, func(i, j int) bool { return p.spans[i].offset < p.spans[j].offset })
}

// complete reports whether the merged spans cover [0, len(p.data)) without
// gaps.
func (p *pendingMessage) complete() bool {
	covered := 0
	for _, s := range p.spans {
		if s.offset > covered {
			return false
		}
		if end := s.offset + s.length; end > covered {
			covered = end
		}
	}
	return covered >= len(p.data)
}

// fragmentBuffer reassembles DTLS handshake fragments into whole messages,
// keyed by (epoch, message_seq) so that epoch N and N+1 fragment streams
// stay disjoint.
type fragmentBuffer struct {
	pending map[uint16]map[uint16]*pendingMessage
}

func newFragmentBuffer() *fragmentBuffer {
	return &fragmentBuffer{pending: map[uint16]map[uint16]*pendingMessage{}}
}

// push feeds one handshake record fragment into the buffer. It returns the
// fully reassembled (header, body) pair once every fragment of that
// message has arrived, or ErrIncomplete when more fragments are still
// needed.
func (b *fragmentBuffer) push(epoch uint16, raw []byte) (HandshakeHeader, []byte, error) {
	var header HandshakeHeader
	if _, err := header.Unmarshal(raw); err != nil {
		return HandshakeHeader{}, nil, err
	}
	fragment := raw[handshakeHeaderLength:]
	if len(fragment) < int(header.FragmentLength) {
		return HandshakeHeader{}, nil, fmt.Errorf("dtls: %w: fragment shorter than declared", ErrFragmentOutOfBounds)
	}
	fragment = fragment[:header.FragmentLength]

	if int(header.FragmentOffset)+int(header.FragmentLength) > int(header.Length) {
		return HandshakeHeader{}, nil, ErrFragmentOutOfBounds
	}

	byMessageSeq, ok := b.pending[epoch]
	if !ok {
		byMessageSeq = map[uint16]*pendingMessage{}
		b.pending[epoch] = byMessageSeq
	}

	msg, ok := byMessageSeq[header.MessageSeq]
	if !ok {
		msg = &pendingMessage{header: header, data: make([]byte, header.Length)}
		byMessageSeq[header.MessageSeq] = msg
	}

	copy(msg.data[header.FragmentOffset:], fragment)
	msg.addSpan(int(header.FragmentOffset), int(header.FragmentLength))

	if !msg.complete() {
		return HandshakeHeader{}, nil, ErrIncomplete
	}

	delete(byMessageSeq, header.MessageSeq)
	if len(byMessageSeq) == 0 {
		delete(b.pending, epoch)
	}
	return msg.header, msg.data, nil
}
