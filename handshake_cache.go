package dtls

import (
	"bytes"
	"hash"
	"sort"
	"sync"
)

// handshakeCacheItem is one logged handshake message: its wire type, epoch,
// direction, DTLS message_seq, and the raw marshalled bytes as they were
// sent or received. Storing raw bytes (rather than the decoded struct)
// means pullAndMerge and sessionHash never re-serialize when reconstructing
// a transcript.
type handshakeCacheItem struct {
	typ             HandshakeType
	isClient        bool
	epoch           uint16
	messageSequence uint16
	data            []byte
}

// handshakeCachePullRule names one entry of the rule set passed to
// fullPullMap/pullAndMerge: which type, at which epoch and direction, and
// whether its absence is tolerated.
type handshakeCachePullRule struct {
	typ      HandshakeType
	epoch    uint16
	isClient bool
	optional bool
}

// handshakeCache is the append-only, (type, epoch, isClient)-keyed
// handshake message log, guarded by a mutex and grounded on pion/dtls's
// handshakeCache (exercised directly by
// tgragnato-snowflake/dtls/handshake_cache_test.go, which this package's
// own handshake_cache_test.go adapts).
type handshakeCache struct {
	mu    sync.Mutex
	cache []*handshakeCacheItem
}

func newHandshakeCache() *handshakeCache {
	return &handshakeCache{}
}

// push appends one message. Re-pushing the same (typ, epoch, isClient,
// messageSequence) quadruple is a harmless duplicate (invariant
// (i): messages are never lost or reordered, but retransmitted duplicates
// are common under DTLS and are deduplicated by pull, not by push).
func (c *handshakeCache) push(data []byte, epoch uint16, messageSequence uint16, typ HandshakeType, isClient bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = append(c.cache, &handshakeCacheItem{
		typ:             typ,
		isClient:        isClient,
		epoch:           epoch,
		messageSequence: messageSequence,
		data:            append([]byte{}, data...),
	})
}

// sessionHash hashes the concatenation of the logged messages at epoch in
// the fixed protocol sequencing (ClientHello .. ClientKeyExchange/
// CertificateVerify, optional messages skipped when absent), for RFC 7627
// extended-master-secret derivation.
func (c *handshakeCache) sessionHash(hashFunc func() hash.Hash, epoch uint16) ([]byte, error) {
	merged, err := c.pullAndMerge(
		handshakeCachePullRule{HandshakeTypeClientHello, epoch, true, false},
		handshakeCachePullRule{HandshakeTypeServerHello, epoch, false, false},
		handshakeCachePullRule{HandshakeTypeCertificate, epoch, false, true},
		handshakeCachePullRule{HandshakeTypeServerKeyExchange, epoch, false, true},
		handshakeCachePullRule{HandshakeTypeCertificateRequest, epoch, false, true},
		handshakeCachePullRule{HandshakeTypeServerHelloDone, epoch, false, false},
		handshakeCachePullRule{HandshakeTypeCertificate, epoch, true, true},
		handshakeCachePullRule{HandshakeTypeClientKeyExchange, epoch, true, false},
		handshakeCachePullRule{HandshakeTypeCertificateVerify, epoch, true, true},
	)
	if err != nil {
		return nil, err
	}
	h := hashFunc()
	h.Write(merged)
	return h.Sum(nil), nil
}

// pullAndMerge concatenates the marshalled bytes of the messages matched
// by rules, in rule order, ignoring unmatched optional rules. A required
// rule with no match returns ErrIncomplete.
func (c *handshakeCache) pullAndMerge(rules ...handshakeCachePullRule) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var merged bytes.Buffer
	for _, rule := range rules {
		item := c.findLocked(rule, 0)
		if item == nil {
			if rule.optional {
				continue
			}
			return nil, ErrIncomplete
		}
		merged.Write(item.data)
	}
	return merged.Bytes(), nil
}

// raw returns the matched item's undecoded bytes, for callers like Flight4's
// ClientKeyExchange handling that must pick an unmarshal variant (ECDHE vs
// PSK) using context fullPullMap doesn't have.
func (c *handshakeCache) raw(rule handshakeCachePullRule) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.findLocked(rule, 0)
	if item == nil {
		return nil, false
	}
	return item.data, true
}

// cursorPosition places item in the (epoch, message_sequence) order that the
// fullPullMap cursor walks: every message of a later epoch sorts after all
// messages of an earlier one, so a cursor advanced at epoch N still reaches
// epoch N+1 messages whatever their message_sequence.
func cursorPosition(item *handshakeCacheItem) uint64 {
	return uint64(item.epoch)<<16 | uint64(item.messageSequence)
}

// findLocked returns the lowest-message_sequence item matching rule whose
// cursor position is at or after minSeq, or nil. Caller must hold c.mu.
func (c *handshakeCache) findLocked(rule handshakeCachePullRule, minSeq uint64) *handshakeCacheItem {
	var best *handshakeCacheItem
	for _, item := range c.cache {
		if item.typ != rule.typ || item.epoch != rule.epoch || item.isClient != rule.isClient {
			continue
		}
		if cursorPosition(item) < minSeq {
			continue
		}
		if best == nil || item.messageSequence < best.messageSequence {
			best = item
		}
	}
	return best
}

// fullPullMap scans forward from startSeq, satisfies every rule (required
// rules must all match), and returns the decoded handshake messages keyed
// by type plus the new cursor (one past the highest cursorPosition
// consumed; at epoch 0 that is one past the highest message_sequence).
// ok=false with no error is the "not enough has arrived yet"
// signal Flight4 Parse maps onto (none, none).
func (c *handshakeCache) fullPullMap(startSeq uint64, rules ...handshakeCachePullRule) (uint64, map[HandshakeType]HandshakeMessageBody, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := make(map[HandshakeType]*handshakeCacheItem, len(rules))
	maxSeq := startSeq
	for _, rule := range rules {
		item := c.findLocked(rule, startSeq)
		if item == nil {
			if rule.optional {
				continue
			}
			return startSeq, nil, false
		}
		matched[rule.typ] = item
		if seq := cursorPosition(item) + 1; seq > maxSeq {
			maxSeq = seq
		}
	}

	out := make(map[HandshakeType]HandshakeMessageBody, len(matched))
	types := make([]HandshakeType, 0, len(matched))
	for typ := range matched {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, typ := range types {
		item := matched[typ]
		body, err := unmarshalHandshakeMessageBody(item.typ, item.data)
		if err != nil {
			return startSeq, nil, false
		}
		out[typ] = body
	}

	return maxSeq, out, true
}
